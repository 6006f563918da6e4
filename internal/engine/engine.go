package engine

import (
	"context"

	"github.com/lychee-technology/vizql"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Engine executes a validated Query against a DataTable per the fixed
// pipeline order of §4.10: filter -> group+pivot -> sort -> skip ->
// paginate -> select -> label -> format. It is the core's sole public
// operation (spec §6: "execute(query, table, locale) -> table"), grounded
// on the teacher's sequential, zap-logged EntityManager.Query orchestration
// (internal/entity_manager_query.go) generalized from an EAV read path to
// this column-expression pipeline.
type Engine struct {
	Config *vizql.EngineConfig
}

// New creates an Engine with the given config, defaulting to
// vizql.DefaultEngineConfig when cfg is nil.
func New(cfg *vizql.EngineConfig) *Engine {
	if cfg == nil {
		cfg = vizql.DefaultEngineConfig()
	}
	return &Engine{Config: cfg}
}

// Execute validates query against table's shape, then runs the full
// pipeline, returning ownership of a new DataTable (the input is never
// mutated past the initial Clone, per §5's exclusive-mutable-access
// contract). locale governs only the sort and format phases (§9).
func (e *Engine) Execute(ctx context.Context, query *vizql.Query, table *vizql.DataTable, locale language.Tag) (*vizql.DataTable, error) {
	if err := query.Validate(table); err != nil {
		return nil, err
	}

	log := zap.S()
	log.Debugw("engine execute: filter", "rows", len(table.Rows))
	filtered, err := FilterTable(query, table)
	if err != nil {
		return nil, err
	}

	var (
		working    *vizql.DataTable
		positions  map[string][]int
		passthru   *vizql.DataTable
	)

	limit := clampLimit(query.Limit, e.Config.Query.MaxPageSize)
	maxRows := e.Config.Query.MaxRows
	warnThreshold := e.Config.Query.TruncationWarnSize

	if query.HasGrouping() || query.HasAggregation() {
		log.Debugw("engine execute: group+pivot", "rows", len(filtered.Rows))
		gr, err := GroupAndPivot(query, filtered)
		if err != nil {
			return nil, err
		}
		working = gr.table
		positions = gr.positions

		log.Debugw("engine execute: sort", "rows", len(working.Rows))
		if err := SortRows(query, working, locale); err != nil {
			return nil, err
		}
		ApplySkipping(query.Skip, working)
		ApplyPagination(query.Offset, limit, maxRows, warnThreshold, working)
	} else {
		log.Debugw("engine execute: sort", "rows", len(filtered.Rows))
		if err := SortRows(query, filtered, locale); err != nil {
			return nil, err
		}
		ApplySkipping(query.Skip, filtered)
		ApplyPagination(query.Offset, limit, maxRows, warnThreshold, filtered)
		passthru = filtered
	}

	log.Debugw("engine execute: select")
	out, meta, err := Project(query, working, positions, passthru)
	if err != nil {
		return nil, err
	}

	// Warnings accumulated upstream (e.g. DATA_TRUNCATED on the grouped or
	// passthrough table) must survive projection, since Project builds a
	// fresh DataTable.
	var warnSource *vizql.DataTable
	if working != nil {
		warnSource = working
	} else {
		warnSource = passthru
	}
	out.Warnings = append(out.Warnings, warnSource.Warnings...)

	ApplyLabels(query, out, meta)
	if err := ApplyFormats(query, out, meta, locale); err != nil {
		return nil, err
	}

	log.Debugw("engine execute: done", "outRows", len(out.Rows), "outCols", len(out.Columns))
	return out, nil
}

// clampLimit narrows an explicit row_limit down to QueryConfig.MaxPageSize,
// mirroring the teacher's own pagination clamp
// (entity_manager_query.go: "if req.ItemsPerPage > em.config.Query.MaxPageSize
// { req.ItemsPerPage = em.config.Query.MaxPageSize }"). limit == -1 ("-1
// means unlimited", §3) is left untouched here: §8 property 4 (Idempotence)
// requires the no-clause identity query to be a true identity transform, so
// MaxPageSize/DefaultPageSize cannot silently reinterpret "-1" as "use the
// config default" inside Execute itself — see DESIGN.md for where
// DefaultPageSize is wired instead. maxPageSize <= 0 disables the clamp.
func clampLimit(limit, maxPageSize int) int {
	if limit == -1 || maxPageSize <= 0 || limit <= maxPageSize {
		return limit
	}
	return maxPageSize
}
