package contacts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat maps a query value to a Format; "" means csv.
func ParseFormat(v string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(v))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, v)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// FileName builds a download name for an export taken at ts.
func (f Format) FileName(ts time.Time) string {
	return fmt.Sprintf("contacts-%s.%s", ts.UTC().Format("2006-01-02"), f)
}

// csvHeader matches the columns the CSV importer recognises, plus a few
// read-only ones it ignores.
var csvHeader = []string{"Name", "Email", "Phone", "Assigned Agent", "Campaign", "Tags", "Source", "Created On", "Notes"}

// Export writes contacts to w in format f.
func Export(w io.Writer, f Format, contacts []Contact) error {
	switch f {
	case FormatCSV:
		return ExportCSV(w, contacts)
	case FormatJSON:
		return ExportJSON(w, contacts)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// ExportCSV writes a header and one row per contact, every value wrapped in
// double quotes and tags joined with ";". Values are not escaped.
func ExportCSV(w io.Writer, contacts []Contact) error {
	bw := bufio.NewWriter(w)
	writeRow := func(values []string) {
		for i, v := range values {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteByte('"')
			bw.WriteString(v)
			bw.WriteByte('"')
		}
		bw.WriteByte('\n')
	}

	writeRow(csvHeader)
	for _, c := range contacts {
		writeRow([]string{
			c.Name,
			c.Email,
			c.Phone,
			c.AssignedAgent,
			c.Campaign,
			strings.Join(c.Tags, ";"),
			string(c.Source),
			c.CreatedOn.UTC().Format(time.RFC3339),
			c.Notes,
		})
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("contacts: write csv export: %w", err)
	}
	return nil
}

// ExportJSON writes contacts as an indented JSON array.
func ExportJSON(w io.Writer, contacts []Contact) error {
	if contacts == nil {
		contacts = []Contact{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(contacts); err != nil {
		return fmt.Errorf("contacts: write json export: %w", err)
	}
	return nil
}
