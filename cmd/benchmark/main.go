// Command benchmark measures Engine.Execute throughput over a synthetic
// table, grounded on the teacher's cmd/benchmark/main.go flag-driven CLI
// shape (options struct + flag.Parse + log.Fatalf on setup failure),
// generalized from its Postgres lead/listing seeding benchmark to an
// in-memory query engine benchmark.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/lychee-technology/vizql"
	"github.com/lychee-technology/vizql/internal/engine"
	"golang.org/x/text/language"
)

type options struct {
	rows       int
	iterations int
	groupBy    bool
	seed       int64
	pageSize   int
}

func parseFlags() options {
	var o options
	flag.IntVar(&o.rows, "rows", 100000, "number of synthetic rows")
	flag.IntVar(&o.iterations, "iterations", 5, "number of Execute calls to time")
	flag.BoolVar(&o.groupBy, "group-by", true, "include GROUP BY + aggregation in the benchmark query")
	flag.Int64Var(&o.seed, "seed", 42, "random seed for synthetic data")
	flag.IntVar(&o.pageSize, "page-size", 0, "row_limit for the flat (non group-by) query; <1 uses EngineConfig.Query.DefaultPageSize")
	flag.Parse()
	return o
}

func buildTable(o options) *vizql.DataTable {
	table := vizql.NewDataTable([]vizql.ColumnDescription{
		{ID: "Region", Type: vizql.TypeText},
		{ID: "Product", Type: vizql.TypeText},
		{ID: "Quantity", Type: vizql.TypeNumber},
		{ID: "Revenue", Type: vizql.TypeNumber},
	})
	r := rand.New(rand.NewSource(o.seed))
	regions := []string{"NA", "EMEA", "APAC", "LATAM"}
	products := []string{"Widget", "Gadget", "Gizmo"}
	for i := 0; i < o.rows; i++ {
		if err := table.AddRow(
			vizql.TextValue(regions[r.Intn(len(regions))]),
			vizql.TextValue(products[r.Intn(len(products))]),
			vizql.NumberValue(float64(r.Intn(100))),
			vizql.NumberValue(r.Float64()*1000),
		); err != nil {
			log.Fatalf("seed row %d: %v", i, err)
		}
	}
	return table
}

// buildQuery mirrors the teacher's own request-level pagination defaulting
// (entity_manager_query.go: "if req.ItemsPerPage < 1 { ... = DefaultPageSize }
// if req.ItemsPerPage > MaxPageSize { ... = MaxPageSize }") at the CLI-flag
// boundary, since Execute itself must leave an explicit row_limit == -1
// meaning "unlimited" (§3) rather than silently substituting a config
// default — see DESIGN.md and engine.go's clampLimit for why that can't
// happen inside Execute.
func buildQuery(o options, cfg *vizql.EngineConfig) *vizql.Query {
	q := vizql.NewQuery()
	if !o.groupBy {
		pageSize := o.pageSize
		if pageSize < 1 {
			pageSize = cfg.Query.DefaultPageSize
		}
		if pageSize > cfg.Query.MaxPageSize {
			pageSize = cfg.Query.MaxPageSize
		}
		q.Select = []vizql.AbstractColumn{
			&vizql.SimpleColumn{ColumnID: "Region"},
			&vizql.SimpleColumn{ColumnID: "Revenue"},
		}
		q.OrderBy = []vizql.SortColumn{{Column: &vizql.SimpleColumn{ColumnID: "Revenue"}, Order: vizql.SortDescending}}
		q.Limit = pageSize
		return q
	}
	region := &vizql.SimpleColumn{ColumnID: "Region"}
	q.Select = []vizql.AbstractColumn{
		region,
		&vizql.AggregationColumn{Aggregation: vizql.AggSum, Column: &vizql.SimpleColumn{ColumnID: "Revenue"}},
		&vizql.AggregationColumn{Aggregation: vizql.AggAvg, Column: &vizql.SimpleColumn{ColumnID: "Quantity"}},
	}
	q.GroupBy = []vizql.AbstractColumn{region}
	return q
}

func main() {
	log.SetFlags(0)
	o := parseFlags()

	cfg := vizql.DefaultEngineConfig()
	table := buildTable(o)
	q := buildQuery(o, cfg)
	if err := q.Validate(table); err != nil {
		log.Fatalf("invalid benchmark query: %v", err)
	}

	eng := engine.New(cfg)
	ctx := context.Background()

	var total time.Duration
	for i := 0; i < o.iterations; i++ {
		input := table.Clone()
		start := time.Now()
		out, err := eng.Execute(ctx, q, input, language.English)
		elapsed := time.Since(start)
		if err != nil {
			log.Fatalf("execute: %v", err)
		}
		total += elapsed
		fmt.Printf("iteration %d: %v (%d output rows)\n", i+1, elapsed, len(out.Rows))
	}
	fmt.Printf("rows=%d group_by=%v avg=%v\n", o.rows, o.groupBy, total/time.Duration(o.iterations))
}
