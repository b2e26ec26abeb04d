package csvimport

import (
	"fmt"
	"strings"

	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
)

// Recognised header names, lower-cased.
const (
	colName          = "name"
	colEmail         = "email"
	colPhone         = "phone"
	colAssignedAgent = "assigned agent"
	colAssignedAlt   = "assignedagent"
	colCampaign      = "campaign"
	colTags          = "tags"
	colNotes         = "notes"
)

// byteOrderMark prefixes spreadsheet "CSV UTF-8" exports.
const byteOrderMark = "\ufeff"

// Options carries the import context. Non-empty values override the per-row
// agent and campaign columns.
type Options struct {
	AgentID    string `json:"agentId"`
	CampaignID string `json:"campaignId"`
}

// RowError is a rejected data row. Row is 1-based with the header as row 1.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
}

// Parse turns a CSV payload into contact records. A non-nil error means the
// whole payload was rejected; row-level problems come back in rowErrs while
// the remaining rows are still returned.
//
// Fields are split on every comma. Quoted commas and embedded newlines are
// not supported.
func Parse(content string, opts Options) (records []contacts.NewContact, rowErrs []RowError, err error) {
	lines := nonBlankLines(strings.TrimPrefix(content, byteOrderMark))
	if len(lines) == 0 {
		return nil, nil, ErrEmptyFile
	}

	cols := parseHeader(lines[0])
	var missing []string
	for _, required := range []string{colName, colEmail} {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for i, line := range lines[1:] {
		rowNum := i + 2
		values := splitRow(line)
		get := func(names ...string) string {
			for _, name := range names {
				if pos, ok := cols[name]; ok && pos < len(values) {
					return values[pos]
				}
			}
			return ""
		}

		rec := contacts.NewContact{
			Name:          get(colName),
			Email:         get(colEmail),
			Phone:         get(colPhone),
			AssignedAgent: firstNonEmpty(opts.AgentID, get(colAssignedAgent, colAssignedAlt)),
			Campaign:      firstNonEmpty(opts.CampaignID, get(colCampaign)),
			Tags:          splitTags(get(colTags)),
			Source:        contacts.SourceCSV,
			Notes:         get(colNotes),
		}

		switch {
		case rec.Name == "" || rec.Email == "":
			rowErrs = append(rowErrs, RowError{Row: rowNum, Reason: "name and email are required"})
		case !contacts.ValidEmail(rec.Email):
			rowErrs = append(rowErrs, RowError{Row: rowNum, Reason: fmt.Sprintf("invalid email format (%s)", rec.Email)})
		default:
			records = append(records, rec)
		}
	}
	return records, rowErrs, nil
}

func nonBlankLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseHeader maps lower-cased column names to their position. The first
// occurrence of a duplicated name wins.
func parseHeader(line string) map[string]int {
	cols := make(map[string]int)
	for i, raw := range strings.Split(line, ",") {
		name := strings.ToLower(strings.Trim(raw, " \t\"'"))
		if _, dup := cols[name]; name != "" && !dup {
			cols[name] = i
		}
	}
	return cols
}

func splitRow(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = cleanValue(p)
	}
	return parts
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, `"`)
	v = strings.TrimSuffix(v, `"`)
	return strings.TrimSpace(v)
}

func splitTags(v string) []string {
	tags := []string{}
	for _, t := range strings.Split(v, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
