// Package aggregate implements the aggregation tree and value aggregators
// described in §4.6: an arena-backed trie keyed on group-by++pivot-by
// values, one ValueAggregator per aggregated column at every node.
//
// The arena pattern (nodes stored in a slice, children/parent referenced by
// index rather than pointer) is grounded on the Design Notes §9 guidance
// ("Cyclic-looking parent pointers... use an arena with node indices") and
// on the teacher's generic Set[T] (internal/collections.go) for the
// ordered, dedup-preserving accumulation of distinct child keys.
package aggregate

import (
	"sort"
	"strconv"

	"github.com/lychee-technology/vizql"
)

// nodeIndex is a back-reference into Tree.nodes; the root occupies index 0,
// and its parent field holds noParent since it has no parent of its own.
type nodeIndex int

const noParent nodeIndex = -1

type node struct {
	parent   nodeIndex
	value    vizql.Value // zero Value for the root
	hasValue bool
	children map[valueKey]nodeIndex
	// childOrder preserves first-insertion order, independent of the Go
	// map's hash order, so DFS over it is deterministic before the final
	// lex-order re-sort described in §4.6 "Tie-breaks & determinism". It
	// stores child node indices rather than keys so the walk never needs to
	// round-trip through the (possibly lossy) map key.
	childOrder []nodeIndex
	aggs       map[string]*ValueAggregator // keyed by AggregationColumn.ID()
}

// valueKey is the map key used for node.children. vizql.Value is a
// comparable struct and so can be used as a raw map key, but Go's map
// equality on the struct's float64 field treats NaN != NaN, while
// Value.Compare (and the hashing contract of spec.md §4.1) treats NaN as
// equal to itself. Keying on the raw struct would therefore split rows
// sharing an identical NaN group/pivot value across multiple spurious child
// nodes. valueKeyOf instead projects a Value onto a string built from its
// type, its canonical String() rendering (which normalizes every NaN bit
// pattern to the literal "NaN"), and its null flag — consistent with
// Value.Compare/Equal.
type valueKey = string

func valueKeyOf(v vizql.Value) valueKey {
	return string(v.Type()) + "\x1f" + v.String() + "\x1f" + strconv.FormatBool(v.IsNull())
}

// Tree is the aggregation tree for one (group-by ++ pivot-by) key list of
// length L. It has L+1 levels, the root at level 0.
type Tree struct {
	nodes    []*node
	aggCols  []*vizql.AggregationColumn
	keyCount int
}

// New creates an empty tree for the given ordered key columns (group-by ids
// followed by pivot-by ids) and the aggregation columns to accumulate at
// every node.
func New(keyCount int, aggCols []*vizql.AggregationColumn) *Tree {
	t := &Tree{aggCols: aggCols, keyCount: keyCount}
	t.nodes = []*node{{parent: noParent, children: make(map[valueKey]nodeIndex), aggs: newAggs(aggCols)}}
	return t
}

func newAggs(cols []*vizql.AggregationColumn) map[string]*ValueAggregator {
	m := make(map[string]*ValueAggregator, len(cols))
	for _, c := range cols {
		m[c.ID()] = NewValueAggregator(c.Aggregation)
	}
	return m
}

// Insert walks the tree along keys (length must equal t.keyCount), creating
// missing children on demand, and feeds aggValues (one per t.aggCols, same
// order) into every visited node's aggregators — including the root, which
// accumulates the grand total.
func (t *Tree) Insert(keys []vizql.Value, aggValues []vizql.Value) {
	cur := nodeIndex(0)
	t.feed(cur, aggValues)
	for _, k := range keys {
		n := t.nodes[cur]
		mk := valueKeyOf(k)
		child, ok := n.children[mk]
		if !ok {
			child = nodeIndex(len(t.nodes))
			t.nodes = append(t.nodes, &node{
				parent:   cur,
				value:    k,
				hasValue: true,
				children: make(map[valueKey]nodeIndex),
				aggs:     newAggs(t.aggCols),
			})
			n.children[mk] = child
			n.childOrder = append(n.childOrder, child)
		}
		cur = child
		t.feed(cur, aggValues)
	}
}

func (t *Tree) feed(idx nodeIndex, aggValues []vizql.Value) {
	n := t.nodes[idx]
	for i, c := range t.aggCols {
		n.aggs[c.ID()].Add(aggValues[i])
	}
}

// Leaf is one fully-keyed path from the root to a leaf: the L values
// contributed by a visited row, plus the index of that leaf node, whose
// per-aggregation results Tree.Result reads.
type Leaf struct {
	Path nodeIndex
	Keys []vizql.Value
}

// Leaves performs the depth-first enumeration described in §4.6, then
// re-sorts by the canonical lexicographic value-list order (shorter prefix
// element-wise compare, ties broken by length) per "Tie-breaks &
// determinism" — the tree's own DFS order follows each node's childOrder,
// i.e. first-insertion order, not value order.
func (t *Tree) Leaves() []Leaf {
	var out []Leaf
	var walk func(idx nodeIndex, path []vizql.Value)
	walk = func(idx nodeIndex, path []vizql.Value) {
		n := t.nodes[idx]
		if len(n.childOrder) == 0 {
			if idx != 0 { // skip the root when it's also a leaf (empty key list)
				cp := append([]vizql.Value{}, path...)
				out = append(out, Leaf{Path: idx, Keys: cp})
			}
			return
		}
		for _, child := range n.childOrder {
			walk(child, append(path, t.nodes[child].value))
		}
	}
	if t.keyCount == 0 {
		out = append(out, Leaf{Path: 0, Keys: nil})
	} else {
		walk(0, nil)
	}
	sort.SliceStable(out, func(i, j int) bool {
		less, _ := CompareValueList(out[i].Keys, out[j].Keys)
		return less < 0
	})
	return out
}

// Result returns the computed value for aggCol at the given leaf. innerType
// is the ValueType of aggCol's inner column in the source table, used to
// build a correctly-typed null when the bucket has no non-null inputs.
func (t *Tree) Result(leaf Leaf, aggCol *vizql.AggregationColumn, innerType vizql.ValueType) (vizql.Value, error) {
	n := t.nodes[leaf.Path]
	agg, ok := n.aggs[aggCol.ID()]
	if !ok {
		return vizql.Value{}, vizql.NewInternalError("aggregation column not tracked by this tree", nil)
	}
	return agg.Result(aggCol.Aggregation, innerType)
}

// CompareValueList implements the shared value-list comparator from
// Design Notes §9: element-wise compare on the shorter common prefix, ties
// broken by length (longer > shorter). Used for aggregation leaves, output
// column ordering, and pivot-tuple set order alike.
func CompareValueList(a, b []vizql.Value) (int, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		cmp, err := a[i].Compare(b[i])
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	switch {
	case len(a) < len(b):
		return -1, nil
	case len(a) > len(b):
		return 1, nil
	default:
		return 0, nil
	}
}
