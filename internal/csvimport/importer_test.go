package csvimport

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/me-karanm/cerebro-ai-sub001/internal/observability/metrics"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
)

type countingAdder struct {
	*contacts.Store
	calls int
}

func (c *countingAdder) BulkAdd(data []contacts.NewContact) []contacts.Contact {
	c.calls++
	return c.Store.BulkAdd(data)
}

func TestImportPartialSuccess(t *testing.T) {
	adder := &countingAdder{Store: contacts.NewStore()}
	imp := New(adder, logging.New("error"), nil)

	content := "name,email\n" +
		"A,a@example.com\n" +
		"B,\n" +
		"C,c@example.com\n"
	res := imp.Import(content, Options{})

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 3")
	assert.Equal(t, 2, adder.Len())
	assert.Equal(t, 1, adder.calls, "accepted rows go in one bulk call")
	for _, c := range adder.All() {
		assert.Equal(t, contacts.SourceCSV, c.Source)
	}
}

func TestImportMissingHeaderLeavesStoreUntouched(t *testing.T) {
	adder := &countingAdder{Store: contacts.NewStore()}
	adder.Add(contacts.NewContact{Name: "Existing", Email: "e@example.com"})
	imp := New(adder, logging.New("error"), nil)

	res := imp.Import("name,phone\nA,555\n", Options{})

	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "missing required columns")
	assert.Equal(t, 1, adder.Len())
	assert.Zero(t, adder.calls)
}

func TestImportAllRowsRejectedSkipsBulkAdd(t *testing.T) {
	adder := &countingAdder{Store: contacts.NewStore()}
	res := New(adder, nil, nil).Import("name,email\nA,\nB,bad\n", Options{})

	assert.True(t, res.Success)
	assert.Zero(t, res.Imported)
	assert.Len(t, res.Errors, 2)
	assert.Zero(t, adder.calls)
}

func TestImportRoundTripsExport(t *testing.T) {
	src := contacts.NewStore()
	src.BulkAdd([]contacts.NewContact{
		{Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+1 555 0100", Tags: []string{"Hot", "VIP"}, AssignedAgent: "1"},
		{Name: "Bob", Email: "bob@example.com", Tags: []string{}},
		{Name: "Cy", Email: "cy@example.com", Phone: "555-0300", Tags: []string{"Cold"}, Campaign: "c2"},
	})

	var buf bytes.Buffer
	require.NoError(t, contacts.ExportCSV(&buf, src.All()))

	dst := contacts.NewStore()
	res := New(dst, nil, nil).Import(buf.String(), Options{})
	require.True(t, res.Success, res.Errors)
	require.Empty(t, res.Errors)
	assert.Equal(t, 3, res.Imported)

	assert.Equal(t, fingerprint(src.All()), fingerprint(dst.All()))
}

func fingerprint(list []contacts.Contact) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, strings.Join([]string{c.Name, c.Email, c.Phone, strings.Join(c.Tags, ";")}, "|"))
	}
	sort.Strings(out)
	return out
}

func TestImportReaderEnforcesLimit(t *testing.T) {
	adder := &countingAdder{Store: contacts.NewStore()}
	imp := New(adder, nil, nil).WithMaxBytes(16)

	res := imp.ImportReader(context.Background(), strings.NewReader("name,email\nAda,ada@example.com\n"), Options{})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "too large")
	assert.Zero(t, adder.Len())

	res = New(adder, nil, nil).ImportReader(context.Background(), strings.NewReader("name,email\nAda,ada@example.com\n"), Options{})
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Imported)
}

func TestWithMaxBytesIgnoresNonPositive(t *testing.T) {
	adder := &countingAdder{Store: contacts.NewStore()}
	imp := New(adder, nil, nil).WithMaxBytes(16).WithMaxBytes(0).WithMaxBytes(-1)

	res := imp.ImportReader(context.Background(), strings.NewReader("name,email\nAda,ada@example.com\n"), Options{})
	assert.False(t, res.Success)
	assert.Zero(t, adder.Len())
}

func TestImportReaderAcceptsByteOrderMark(t *testing.T) {
	adder := &countingAdder{Store: contacts.NewStore()}
	res := New(adder, nil, nil).ImportReader(context.Background(), strings.NewReader("\ufeffname,email\nAda,ada@example.com\n"), Options{})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, "Ada", adder.All()[0].Name)
}

func TestImportReaderHonoursCancellation(t *testing.T) {
	adder := &countingAdder{Store: contacts.NewStore()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(adder, nil, nil).ImportReader(ctx, strings.NewReader("name,email\nA,a@example.com\n"), Options{})
	assert.False(t, res.Success)
	assert.Zero(t, adder.Len())
}

func TestImportRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewContactMetrics(reg)
	imp := New(contacts.NewStore(), nil, m)

	imp.Import("name,email\nA,a@example.com\nB,\n", Options{})
	imp.Import("phone\n1\n", Options{})

	expected := `
# HELP cerebro_csv_import_imports_total CSV import calls by result
# TYPE cerebro_csv_import_imports_total counter
cerebro_csv_import_imports_total{result="failed"} 1
cerebro_csv_import_imports_total{result="success"} 1
# HELP cerebro_csv_import_rows_total CSV import data rows by outcome
# TYPE cerebro_csv_import_rows_total counter
cerebro_csv_import_rows_total{outcome="accepted"} 1
cerebro_csv_import_rows_total{outcome="rejected"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"cerebro_csv_import_imports_total", "cerebro_csv_import_rows_total")
	assert.NoError(t, err)
}
