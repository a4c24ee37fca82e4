// Memory-operand helpers (spec.md §4.6): bank selection by provenance
// region, GEP offset folding, bank-overflow splitting, and the
// register-addressed LOAD/STORE emitters. emit.go also emits LOAD/STORE
// itself for label-addressed operands, and its resolveOperandAddress is
// where the generator refuses an Unknown/Mixed pointer with a diagnostic,
// the final backstop after the builder's own deref check in pkg/ir.
// ResolveBank below makes the same check but has no caller in this
// package.
package vm16

import (
	"github.com/rcc-project/rcc/pkg/codegen/regalloc"
	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/provenance"
	"github.com/rcc-project/rcc/pkg/source"
	"github.com/rcc-project/rcc/pkg/types"
)

// Address is a resolved memory operand: a bank register (GB, SB, or a
// value register pair for a computed fat pointer) plus either a static
// frame offset (for an Alloca-rooted address, spec.md §4.6 "synthesize
// (FP + offset, SB) directly") or a dynamic address register.
type Address struct {
	Bank        regalloc.Register
	FrameOffset int  // meaningful iff IsFrameRelative
	AddrReg     regalloc.Register
	IsFrameRelative bool
}

// bankForRegion maps a pointer's provenance to its fixed bank register
// (spec.md §4.6 step 1): Global data lives behind GB, Stack data behind
// SB. Unknown/Mixed is an error the caller must have already diagnosed in
// pkg/ir — ResolveBank reports it again defensively since memory.go is the
// backstop, not the only check.
func bankForRegion(region provenance.RegionTag) (regalloc.Register, bool) {
	switch region {
	case provenance.Global:
		return regalloc.GB, true
	case provenance.Stack:
		return regalloc.SB, true
	default:
		return "", false
	}
}

// ResolveBank determines the bank register for a pointer temp, reporting
// the ABI/bank diagnostic (spec.md §7 "attempting to load/store through a
// pointer with no region") if provenance never settled on Global or
// Stack. Diagnosing here (rather than trusting the builder already
// caught it) keeps this package correct even if called on IR built by
// something other than pkg/ir's Builder.
func ResolveBank(prov *provenance.Table, temp ir.TempID, span source.Span, diags *diag.Collector) (regalloc.Register, bool) {
	p := prov.Get(provenance.TempID(temp))
	bank, ok := bankForRegion(p.Region)
	if !ok {
		diags.Errorf(diag.CodeDerefUnknown, span, "load/store through pointer with no resolved region (%s)", p.Region)
		return "", false
	}
	return bank, true
}

// GEPOffset walks one ir.GEP's Steps end to end, computing the total
// static cell offset and, if present, the single dynamic scale term
// (spec.md §4.6 step 1 "Combine static and dynamic parts; fold
// constants").
func GEPOffset(g ir.GEP) Offset {
	var total Offset
	container := g.ContainerType
	for _, step := range g.Steps {
		var constIdx *int64
		if step.Kind == ir.GEPElement {
			if c, ok := step.Index.(ir.ConstInt); ok {
				v := c.Val
				constIdx = &v
			}
		}
		total = total.Add(StepOffset(container, step.Kind, step.Field, constIdx))
		container = elementContainerAfterStep(container, step)
	}
	return total
}

// elementContainerAfterStep is unused beyond the first step in this
// target's grammar (pkg/ir never emits multi-step GEPs, see ir.go's GEP
// doc), but keeping the walk general means a future multi-step GEP needs
// no change here.
func elementContainerAfterStep(container types.Type, step ir.GEPStep) types.Type {
	switch step.Kind {
	case ir.GEPField:
		st, ok := container.(*types.Struct)
		if !ok {
			return container
		}
		t, _ := types.FieldType(st, st.Fields[step.Field].Name)
		return t
	default:
		switch t := container.(type) {
		case types.Array:
			return t.Element
		case types.Pointer:
			return t.Target
		default:
			return container
		}
	}
}

// BankDelta computes the new-bank/new-address split of a total offset
// against BankSize (spec.md §4.6 step 2), as a shift-and-mask pair since
// BankSize is a power of two in the reference target.
func BankDelta(total int) (bankDelta, addr int) {
	return total >> BankLog2, total & (BankSize - 1)
}

// emitLoad appends the assembly line(s) for an ir.Load whose address has
// already resolved to a bank register. width is 2 for a fat-pointer
// result (both cells must move together, spec.md §4.6 step 3), else 1.
func (g *Generator) emitLoad(dest []regalloc.Register, bank regalloc.Register, addr regalloc.Register, width int) {
	for i := 0; i < width; i++ {
		g.emitf("LOAD %s, %s[%s+%d]", dest[i], bank, addr, i)
	}
}

func (g *Generator) emitStore(bank regalloc.Register, addr regalloc.Register, src []regalloc.Register, width int) {
	for i := 0; i < width; i++ {
		g.emitf("STORE %s[%s+%d], %s", bank, addr, i, src[i])
	}
}

// resultWidth reports how many registers/cells a value of typ occupies at
// runtime — 2 for a fat pointer, 1 otherwise.
func resultWidth(typ types.Type) int {
	if _, ok := typ.(types.Pointer); ok {
		return 2
	}
	return 1
}
