package engine

import (
	"sort"

	"github.com/lychee-technology/vizql"
	"github.com/lychee-technology/vizql/internal/locale"
	"golang.org/x/text/language"
)

// SortRows stably sorts table's rows per query.OrderBy (§4.9): a composite
// comparator over ordered (column, direction) pairs, each key evaluated via
// the same column-expression evaluation used by selection. Text values use
// locale-sensitive collation; every other type uses Value.Compare.
func SortRows(query *vizql.Query, table *vizql.DataTable, tag language.Tag) error {
	if len(query.OrderBy) == 0 {
		return nil
	}
	collator := locale.For(tag)

	n := len(table.Rows)
	keys := make([][]vizql.Value, n)
	for r := 0; r < n; r++ {
		row := make([]vizql.Value, len(query.OrderBy))
		for i, sc := range query.OrderBy {
			v, err := vizql.Eval(sc.Column, table, r)
			if err != nil {
				return err
			}
			row[i] = v
		}
		keys[r] = row
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	var sortErr error
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := keys[idx[i]], keys[idx[j]]
		for k, sc := range query.OrderBy {
			cmp, err := compareSortKey(a[k], b[k], collator)
			if err != nil {
				sortErr = err
				return false
			}
			if cmp == 0 {
				continue
			}
			if sc.Order == vizql.SortDescending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}

	reordered := make([]vizql.TableRow, n)
	for i, j := range idx {
		reordered[i] = table.Rows[j]
	}
	table.Rows = reordered
	return nil
}

func compareSortKey(a, b vizql.Value, collator *locale.Collator) (int, error) {
	if a.Type() == vizql.TypeText && b.Type() == vizql.TypeText && !a.IsNull() && !b.IsNull() {
		at, _ := a.Text()
		bt, _ := b.Text()
		return collator.CompareText(at, bt), nil
	}
	return a.Compare(b)
}
