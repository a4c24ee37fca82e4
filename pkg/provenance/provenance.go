// Package provenance tracks, per IR temp, which memory region a
// pointer-valued value refers to — Global or Stack — so the code generator
// can pick the matching bank register at every Load/Store instead of
// guessing. Region is a four-point lattice with Unknown as bottom and
// Mixed as top; see Join.
package provenance

import (
	"fmt"
	"sort"

	"github.com/rcc-project/rcc/pkg/source"
)

// RegionTag is the provenance lattice element attached to a pointer-valued
// IR temp.
type RegionTag int

const (
	// Unknown is the lattice bottom: no information yet, or information
	// deliberately discarded (a pointer loaded from memory, a function
	// parameter with no --assume-pointer-params override).
	Unknown RegionTag = iota
	// Global is a pointer into the global/read-only data region.
	Global
	// Stack is a pointer into the current function's frame.
	Stack
	// Mixed is the lattice top: two incompatible concrete regions reached
	// this temp, most often through a Phi.
	Mixed
)

func (r RegionTag) String() string {
	switch r {
	case Unknown:
		return "unknown"
	case Global:
		return "global"
	case Stack:
		return "stack"
	case Mixed:
		return "mixed"
	default:
		return fmt.Sprintf("RegionTag(%d)", int(r))
	}
}

// Join computes a ∨ b per the lattice: Unknown is the identity, a region
// joined with itself is unchanged, two distinct concrete regions produce
// Mixed, and anything joined with Mixed stays Mixed.
func Join(a, b RegionTag) RegionTag {
	if a == Unknown {
		return b
	}
	if b == Unknown {
		return a
	}
	if a == b {
		return a
	}
	return Mixed
}

// Provenance is the record stored per pointer-valued temp: its region and
// the source span(s) that established it. OriginSpans holds one entry for
// a direct assignment (Alloca, address-of) and one per incoming edge for a
// Phi/Select join, so a Mixed or Unknown diagnostic can cite every
// contributing site.
type Provenance struct {
	Region      RegionTag
	OriginSpans []source.Span
}

// Origin is a convenience constructor for a single-site provenance record.
func Origin(region RegionTag, span source.Span) Provenance {
	return Provenance{Region: region, OriginSpans: []source.Span{span}}
}

// TempID identifies an SSA temp within one function. Defined here rather
// than imported from pkg/ir to avoid a cyclic dependency: pkg/ir depends on
// pkg/provenance, not the other way around.
type TempID uint32

// Table owns the provenance record of every pointer-valued temp in one
// function. One Table per ir.Function; never shared across functions or
// translation units (spec.md §5: no compiler state crosses TU boundaries).
type Table struct {
	entries map[TempID]Provenance
}

// NewTable returns an empty provenance table.
func NewTable() *Table {
	return &Table{entries: make(map[TempID]Provenance)}
}

// Set records the provenance of temp, overwriting any previous entry. Used
// for instructions that establish a fresh, non-joined region: Alloca
// (Stack), address-of a global or string literal (Global), GEP/PtrAdd/
// Cast(ptr→ptr) (same as base), and Unknown for loaded-pointer and
// plain-parameter defaults.
func (t *Table) Set(temp TempID, p Provenance) {
	t.entries[temp] = p
}

// Get returns the provenance of temp. Calling Get for a temp with no entry
// is a builder bug — every pointer-typed temp must get an entry at its
// defining instruction (spec.md §3.2 invariant) — so it panics rather than
// returning a zero value that would silently masquerade as Unknown.
func (t *Table) Get(temp TempID) Provenance {
	p, ok := t.entries[temp]
	if !ok {
		panic(fmt.Sprintf("provenance: temp %d has no entry", temp))
	}
	return p
}

// Lookup is the non-panicking form of Get, for callers (diagnostics,
// tests) that need to distinguish "no entry yet" from "Unknown region".
func (t *Table) Lookup(temp TempID) (Provenance, bool) {
	p, ok := t.entries[temp]
	return p, ok
}

// JoinPhi computes and records the provenance of a Phi/Select result as the
// pairwise join of its incoming provenances, and sets it as result's entry.
// The origin spans of every incoming value are preserved in incoming order
// (not deduplicated: a diagnostic citing "both branches assign a pointer"
// needs each branch's own span even when two branches share a region).
func (t *Table) JoinPhi(result TempID, incoming []Provenance) Provenance {
	joined := Provenance{Region: Unknown}
	for _, in := range incoming {
		joined.Region = Join(joined.Region, in.Region)
		joined.OriginSpans = append(joined.OriginSpans, in.OriginSpans...)
	}
	t.entries[result] = joined
	return joined
}

// AssumeParam applies the --assume-pointer-params escape hatch to a
// parameter temp: it only overrides an entry that is still Unknown (no
// stronger evidence — an Alloca or global address-of reaching the
// parameter through a Phi — has already set it), per SUPPLEMENTED FEATURES.
// Returns true if the override actually took effect, so the caller can
// decide whether to emit the mandatory warning.
func (t *Table) AssumeParam(temp TempID, region RegionTag, span source.Span) bool {
	existing, ok := t.entries[temp]
	if ok && existing.Region != Unknown {
		return false
	}
	t.entries[temp] = Origin(region, span)
	return true
}

// Temps returns every temp with a recorded entry, sorted, for deterministic
// iteration in trace dumps and tests.
func (t *Table) Temps() []TempID {
	out := make([]TempID, 0, len(t.entries))
	for id := range t.entries {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
