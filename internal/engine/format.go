package engine

import (
	"fmt"
	"strings"

	"github.com/lychee-technology/vizql"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ApplyLabels implements §4.11's label stage: a column's single output
// position gets its new label verbatim; a column occupying several
// positions (post-pivot) keeps its pivot-value prefix and has the new
// label appended after it, since the positions differ only by that prefix.
func ApplyLabels(query *vizql.Query, table *vizql.DataTable, meta []projectedColumn) {
	if len(query.Labels) == 0 {
		return
	}
	positionsByID := make(map[string][]int)
	for i, m := range meta {
		positionsByID[m.sourceID] = append(positionsByID[m.sourceID], i)
	}
	for _, l := range query.Labels {
		positions, ok := positionsByID[l.ColumnID]
		if !ok {
			continue
		}
		if len(positions) == 1 {
			table.Columns[positions[0]].Label = l.Label
			continue
		}
		for _, p := range positions {
			id := table.Columns[p].ID
			prefix := strings.TrimSuffix(id, l.ColumnID)
			table.Columns[p].Label = prefix + l.Label
		}
	}
}

// ApplyFormats implements §4.11's format stage: each affected position gets
// a ValueFormatter built from its pattern; an unparseable pattern skips that
// column and appends an ILLEGAL_FORMATTING_PATTERNS warning instead of
// aborting the query (§7). locale matches the collaborator signature in §6
// ("ValueFormatter factory — given (type, pattern, locale)") and §9's "locale
// is carried as a parameter into the sort and format phases only" — the same
// locale.Tag SortRows receives.
func ApplyFormats(query *vizql.Query, table *vizql.DataTable, meta []projectedColumn, locale language.Tag) error {
	if len(query.Formats) == 0 {
		return nil
	}
	positionsByID := make(map[string][]int)
	for i, m := range meta {
		positionsByID[m.sourceID] = append(positionsByID[m.sourceID], i)
	}
	for _, f := range query.Formats {
		positions, ok := positionsByID[f.ColumnID]
		if !ok {
			continue
		}
		for _, p := range positions {
			formatter, err := NewValueFormatter(table.Columns[p].Type, f.Pattern, locale)
			if err != nil {
				table.Warn(vizql.WarnIllegalFormattingPatterns,
					fmt.Sprintf("column %q: %s", table.Columns[p].ID, err.Error()))
				continue
			}
			table.Columns[p].Pattern = f.Pattern
			for r := range table.Rows {
				cell := &table.Rows[r].Cells[p]
				cell.FormattedValue = formatter.Format(cell.Value)
			}
		}
	}
	return nil
}

// ValueFormatter renders a Value as a display string under one pattern,
// mirroring the collaborator interface in §6 ("engine never interprets the
// pattern itself beyond dispatching to this factory").
type ValueFormatter interface {
	Format(v vizql.Value) string
}

// NewValueFormatter builds a formatter for typ from pattern under locale, or
// an error if pattern is not well-formed for that type. locale drives the
// grouping/decimal-separator rendering of numberFormatter (via
// golang.org/x/text/number); dateFormatter's layout is fully pinned by the
// pattern's explicit tokens (§4.11 names no localized month/day-name token),
// so it accepts locale only to keep the factory signature uniform with §6.
func NewValueFormatter(typ vizql.ValueType, pattern string, locale language.Tag) (ValueFormatter, error) {
	if pattern == "" {
		return identityFormatter{}, nil
	}
	switch typ {
	case vizql.TypeNumber:
		return newNumberFormatter(pattern, locale)
	case vizql.TypeDate, vizql.TypeDateTime, vizql.TypeTimeOfDay:
		return newDateFormatter(pattern)
	default:
		return identityFormatter{}, nil
	}
}

type identityFormatter struct{}

func (identityFormatter) Format(v vizql.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}

// numberFormatter supports a decimal-places pattern of repeated '0'/'#'
// after an optional '.', e.g. "0.00" or "#,##0.00" — the Google
// Visualization DataTable numeric pattern subset.
// numberFormatter renders via golang.org/x/text/number so the thousands
// separator and decimal point follow locale (e.g. "1.234,56" under de-DE
// vs "1,234.56" under en-US) rather than being hardcoded to a comma/dot,
// matching §6's "ValueFormatter factory — given (type, pattern, locale)".
type numberFormatter struct {
	decimals int
	grouping bool
	locale   language.Tag
}

func newNumberFormatter(pattern string, locale language.Tag) (ValueFormatter, error) {
	dot := strings.IndexByte(pattern, '.')
	decimals := 0
	if dot >= 0 {
		for _, r := range pattern[dot+1:] {
			if r != '0' && r != '#' {
				return nil, fmt.Errorf("invalid number pattern %q", pattern)
			}
			decimals++
		}
	}
	return numberFormatter{decimals: decimals, grouping: strings.Contains(pattern, ","), locale: locale}, nil
}

func (f numberFormatter) Format(v vizql.Value) string {
	if v.IsNull() {
		return ""
	}
	n, err := v.Number()
	if err != nil {
		return ""
	}
	opts := []number.Option{number.MinFractionDigits(f.decimals), number.MaxFractionDigits(f.decimals)}
	if !f.grouping {
		opts = append(opts, number.NoSeparator())
	}
	p := message.NewPrinter(f.locale)
	return p.Sprintf("%v", number.Decimal(n, opts...))
}

// dateFormatter translates a subset of the Unicode/ICU-style date pattern
// (yyyy, MM, dd, HH, mm, ss) into Go's reference-time layout.
type dateFormatter struct {
	layout string
}

func newDateFormatter(pattern string) (ValueFormatter, error) {
	layout := pattern
	replacements := []struct{ from, to string }{
		{"yyyy", "2006"}, {"MM", "01"}, {"dd", "02"},
		{"HH", "15"}, {"mm", "04"}, {"ss", "05"},
	}
	for _, r := range replacements {
		layout = strings.ReplaceAll(layout, r.from, r.to)
	}
	if layout == pattern && pattern != "2006-01-02" {
		// No recognized token was substituted; treat as malformed rather
		// than silently echoing the raw pattern back as a layout.
		recognized := false
		for _, r := range replacements {
			if strings.Contains(pattern, r.to) {
				recognized = true
			}
		}
		if !recognized {
			return nil, fmt.Errorf("unrecognized date pattern %q", pattern)
		}
	}
	return dateFormatter{layout: layout}, nil
}

func (f dateFormatter) Format(v vizql.Value) string {
	if v.IsNull() {
		return ""
	}
	t, err := v.Time()
	if err != nil {
		return ""
	}
	return t.Format(f.layout)
}
