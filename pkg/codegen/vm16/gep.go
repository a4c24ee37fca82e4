// GEP offset computation: how many cells an index or field step moves a
// pointer (spec.md §4.6). A step's offset is either fully static (struct
// fields, constant array indices) or carries one dynamic cell-count term
// (a variable array index) that emit.go's emitAddressCompute multiplies
// by the element size at emission time.
package vm16

import (
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/types"
)

// Offset is the result of walking one ir.GEP's Steps: a compile-time
// constant cell count (Static) plus, for a variable index, the per-
// element cell size the generator must multiply the runtime index by
// (DynamicScale; zero means no dynamic term).
type Offset struct {
	Static       int
	DynamicScale int // 0 if there is no dynamic term
}

// Add combines two offsets from successive GEP steps. Only one step in
// this target's GEP chain may carry a dynamic term in practice (an array
// index step), but Add stays general so nested array-of-struct-of-array
// chains still fold correctly.
func (o Offset) Add(other Offset) Offset {
	if o.DynamicScale != 0 && other.DynamicScale != 0 {
		// Two live dynamic terms at once never arises from this grammar
		// (each GEP instruction is exactly one step, per pkg/ir's design —
		// see ir.go's GEP doc), but summing scales keeps Add total instead
		// of silently dropping one.
		return Offset{Static: o.Static + other.Static, DynamicScale: o.DynamicScale + other.DynamicScale}
	}
	return Offset{
		Static:       o.Static + other.Static,
		DynamicScale: o.DynamicScale + other.DynamicScale,
	}
}

// StepOffset computes the Offset of one GEPStep (spec.md §4.6 step 1):
// a struct field step uses field_offset; an array/pointer element step
// multiplies its (possibly dynamic) index by the element's cell size.
func StepOffset(containerType types.Type, kind ir.GEPStepKind, field int, constIndex *int64) Offset {
	switch kind {
	case ir.GEPField:
		st, ok := containerType.(*types.Struct)
		if !ok {
			panic("StepOffset: GEPField step against non-struct container")
		}
		if field < 0 || field >= len(st.Fields) {
			panic("StepOffset: field index out of range")
		}
		return Offset{Static: types.FieldOffset(st, st.Fields[field].Name)}
	default: // ir.GEPElement
		elemSize := elementSizeOf(containerType)
		if constIndex != nil {
			return Offset{Static: int(*constIndex) * elemSize}
		}
		return Offset{DynamicScale: elemSize}
	}
}

// elementSizeOf returns the cell size of one element of an array type, or
// of the pointee when containerType is itself a pointer (the case when a
// GEP's base is a loaded pointer value rather than an array lvalue).
func elementSizeOf(containerType types.Type) int {
	switch t := containerType.(type) {
	case types.Array:
		return types.SizeCells(t.Element)
	case types.Pointer:
		return types.SizeCells(t.Target)
	default:
		panic("elementSizeOf: GEPElement step against non-array, non-pointer container")
	}
}

// BankSize is the target's fixed per-bank cell count; a power of two so
// bank-overflow arithmetic (spec.md §4.6 step 2) lowers to shift and mask
// rather than a general division.
const BankSize = 1 << 12 // 4096 cells per bank, the reference target's value

// BankLog2 is log2(BankSize), the shift amount for bank-delta computation.
const BankLog2 = 12

// FitsInBank reports whether a statically-known offset added to an
// address no greater than baseAddrUpperBound stays below BankSize, i.e.
// never crosses a bank boundary. The generator does not call it:
// emitAddressCompute emits the full shift/mask bank-overflow sequence for
// every register-carried address, whatever the size of the offset.
func FitsInBank(baseAddrUpperBound, offset int) bool {
	return baseAddrUpperBound+offset < BankSize
}
