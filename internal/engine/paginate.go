package engine

import "github.com/lychee-technology/vizql"

// ApplySkipping retains rows at indices 0, k, 2k, ... of table's current row
// order (§4.10); k<=1 is a no-op.
func ApplySkipping(k int, table *vizql.DataTable) {
	if k <= 1 {
		return
	}
	var kept []vizql.TableRow
	for i, row := range table.Rows {
		if i%k == 0 {
			kept = append(kept, row)
		}
	}
	table.Rows = kept
}

// ApplyPagination slices table's rows to [min(offset,n), min(offset+limit,n))
// per §4.10 (limit == -1 disables the upper bound). maxRows, taken from
// EngineConfig.Query.MaxRows, is then applied as a hard ceiling on top of
// that window: it never changes the meaning of an explicit row_limit/
// row_offset (§4.10's own math is untouched), but it stops an unbounded
// (limit == -1) query from materializing more rows than the embedding host
// configured as safe, mirroring QueryConfig's job as "ambient settings every
// stage of the engine reads from" (config.go) rather than part of the
// query's own semantics — maxRows <= 0 disables this cap. A DATA_TRUNCATED
// warning is appended only once the number of rows the limit/maxRows window
// cut off the *end* reaches warnThreshold (EngineConfig.Query.
// TruncationWarnSize); warnThreshold <= 0 warns on any such truncation at
// all, matching the zero-value QueryConfig. Rows the offset alone skipped
// off the *front* are never counted toward this: §8 property 6 and E2E
// scenario 5 require LIMIT 100 OFFSET 10 against 50 rows (40 rows back, all
// of them present) to emit no warning, even though offset dropped 10 rows.
func ApplyPagination(offset, limit, maxRows, warnThreshold int, table *vizql.DataTable) {
	n := len(table.Rows)
	start := offset
	if start > n {
		start = n
	}
	end := n
	if limit != -1 {
		candidate := offset + limit
		if candidate < end {
			end = candidate
		}
	}
	// droppedByLimit counts only rows beyond end — i.e. rows the limit
	// window (or its clamp to n) left out the back — before the
	// end-can't-be-before-start clamp below, which exists purely to keep
	// the final slice bounds valid and carries no truncation meaning of
	// its own.
	droppedByLimit := n - end
	if end < start {
		end = start
	}
	dropped := droppedByLimit
	if maxRows > 0 && end-start > maxRows {
		dropped += end - start - maxRows
		end = start + maxRows
	}
	if dropped > 0 && dropped >= warnThreshold {
		table.Warn(vizql.WarnDataTruncated, "result truncated by row_limit/row_offset")
	}
	table.Rows = table.Rows[start:end]
}
