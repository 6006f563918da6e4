// Package datasource provides the external-collaborator implementations
// referenced by spec.md §6 and wired through internal/splitter: concrete
// executors that can run a pushdown Query against an external store and
// hand back a *vizql.DataTable for the engine to complete.
package datasource

import (
	"context"

	"github.com/lychee-technology/vizql"
)

// DataSource executes a pushdown query produced by internal/splitter.Split
// and returns the resulting table. A nil pushdown query (the NONE
// capability) is never passed to a DataSource; callers short-circuit to
// running the completion query directly against the original table.
type DataSource interface {
	// Capability reports what this source can execute, driving
	// internal/splitter.Split's behavior.
	Capability() vizql.Capability
	// Execute runs pushdown against the source and returns a table shaped
	// per pushdown's Select list (or the source's native columns, for the
	// ALL capability).
	Execute(ctx context.Context, pushdown *vizql.Query) (*vizql.DataTable, error)
}
