// Instruction selection: one ir.Inst/ir.Terminator lowers to one or a
// handful of target assembly lines. Grounded on the teacher's
// pkg/codegen/amd64/amd64.go instruction switch (generateInst/
// generateBinOp/generateCall/generateTerm shape), generalized from flat
// unbanked addressing to this target's bank-register-pair addressing and
// from a 6-opcode System V call to spec.md §4.5's banked convention.
//
// Register-pair convention: every pointer-typed temp's two allocated
// registers are interpreted positionally as [address, bank] — an
// invention of this package, not dictated by pkg/ir or pkg/codegen/
// regalloc (which allocate pairs without assigning them meaning).
package vm16

import (
	"github.com/rcc-project/rcc/pkg/codegen/regalloc"
	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/provenance"
	"github.com/rcc-project/rcc/pkg/types"
)

func (g *Generator) generateInst(inst ir.Inst) error {
	switch i := inst.(type) {
	case ir.Alloca:
		return g.generateAlloca(i)
	case ir.Load:
		return g.generateLoad(i)
	case ir.Store:
		return g.generateStore(i)
	case ir.GEP:
		return g.generateGEP(i)
	case ir.BinOp:
		return g.generateBinOp(i)
	case ir.PtrAdd:
		return g.generatePtrAdd(i)
	case ir.PtrSub:
		return g.generatePtrSub(i)
	case ir.Cmp:
		return g.generateCmp(i)
	case ir.PtrCmp:
		return g.generatePtrCmp(i)
	case ir.Cast:
		return g.generateCast(i)
	case ir.Phi:
		return g.generatePhi(i)
	case ir.Select:
		return g.generateSelect(i)
	case ir.Call:
		return g.generateCall(i)
	}
	return nil
}

func (g *Generator) generateAlloca(a ir.Alloca) error {
	dest := g.destRegs(a.Dest)
	offset := g.allocaOffset[a.Dest]
	g.emitf("ADDI %s, FP, %d", dest[0], offset)
	g.emitf("MOV %s, SB", dest[1])
	return nil
}

// resolveOperandAddress resolves a pointer-typed Value to a (bank
// register, address register-or-label) pair for Load/Store/GEP. For a
// Temp it trusts the register pair's [addr, bank] positions that the
// defining instruction (Alloca/GEP/Cast/Call) already populated, but
// still consults provenance as the final backstop spec.md §4.6 describes
// — a pointer that reached here with Unknown/Mixed region is an internal
// inconsistency the builder should already have diagnosed.
func (g *Generator) resolveOperandAddress(v ir.Value) (bank regalloc.Register, addrReg regalloc.Register, label string, isLabel bool) {
	switch val := v.(type) {
	case ir.Temp:
		if _, ok := val.Typ.(types.Pointer); ok {
			p := g.prov.Get(provenance.TempID(val.ID))
			if p.Region != provenance.Global && p.Region != provenance.Stack {
				g.diags.Errorf(diag.CodeDerefUnknown, span(), "internal: load/store through pointer temp %d with unresolved region %s", val.ID, p.Region)
			}
		}
		regs, _ := g.plan.RegsAt(val.ID, g.pos)
		if len(regs) < 2 {
			return regalloc.SB, "", "", false
		}
		return regs[1], regs[0], "", false
	case ir.GlobalAddr:
		return regalloc.GB, "", val.Name, true
	case ir.StringAddr:
		return regalloc.GB, "", val.Label, true
	}
	return regalloc.SB, "", "", false
}

func (g *Generator) generateLoad(l ir.Load) error {
	width := resultWidth(l.Typ)
	dest := g.destRegs(l.Dest)
	bank, addrReg, label, isLabel := g.resolveOperandAddress(l.Addr)
	if isLabel {
		for i := 0; i < width; i++ {
			g.emitf("LOAD %s, %s[%s+%d]", dest[i], bank, label, i)
		}
		return nil
	}
	g.emitLoad(dest, bank, addrReg, width)
	return nil
}

func (g *Generator) generateStore(s ir.Store) error {
	width := resultWidth(s.Val.Type())
	srcRegs, imm, _ := g.valueReg(s.Val)
	bank, addrReg, label, isLabel := g.resolveOperandAddress(s.Addr)

	if imm != nil {
		// Materialize the immediate before storing; the target has no
		// store-immediate form (mirrors the teacher's movq-then-store
		// pattern in amd64.go's generateStore).
		g.emitf("MOVI SCRATCH, %d", *imm)
		srcRegs = []regalloc.Register{regalloc.SCRATCH}
	}
	if isLabel {
		for i := 0; i < width; i++ {
			g.emitf("STORE %s[%s+%d], %s", bank, label, i, srcRegs[i])
		}
		return nil
	}
	g.emitStore(bank, addrReg, srcRegs, width)
	return nil
}

type dynamicTerm struct {
	reg   regalloc.Register
	scale int
}

func (g *Generator) generateGEP(gp ir.GEP) error {
	step := gp.Steps[0] // pkg/ir emits exactly one step per GEP, see ir.go's GEP doc
	dest := g.destRegs(gp.Dest)
	bank, addrReg, label, isLabel := g.resolveOperandAddress(gp.Base)

	switch step.Kind {
	case ir.GEPField:
		st, ok := gp.ContainerType.(*types.Struct)
		if !ok {
			g.diags.Errorf(diag.CodeBankOverflow, span(), "internal: GEPField against non-struct container")
			return nil
		}
		off := types.FieldOffset(st, st.Fields[step.Field].Name)
		g.emitAddressCompute(dest, bank, addrReg, label, isLabel, off, nil)
	default: // ir.GEPElement
		elemSize := elementSizeOf(gp.ContainerType)
		if c, ok := step.Index.(ir.ConstInt); ok {
			g.emitAddressCompute(dest, bank, addrReg, label, isLabel, int(c.Val)*elemSize, nil)
		} else {
			idxRegs, idxImm, _ := g.valueReg(step.Index)
			if idxImm != nil {
				g.emitAddressCompute(dest, bank, addrReg, label, isLabel, int(*idxImm)*elemSize, nil)
			} else {
				g.emitAddressCompute(dest, bank, addrReg, label, isLabel, 0, &dynamicTerm{reg: idxRegs[0], scale: elemSize})
			}
		}
	}
	propagateGEPProvenance(g.prov, gp.Dest, gp.Base)
	return nil
}

// emitAddressCompute implements spec.md §4.6 step 2: fold a static
// offset (and, for a variable array index, one dynamic scaled term) into
// a new (bank, address) pair, carrying any bank overflow via shift/mask
// since BankSize is a power of two.
func (g *Generator) emitAddressCompute(dest []regalloc.Register, bank regalloc.Register, addrReg regalloc.Register, label string, isLabel bool, staticOff int, dyn *dynamicTerm) {
	if isLabel {
		if dyn != nil {
			g.emitf("MULI SCRATCH, %s, %d", dyn.reg, dyn.scale)
			g.emitf("LDA %s, %s+%d", dest[0], label, staticOff)
			g.emitf("ADD %s, %s, SCRATCH", dest[0], dest[0])
		} else {
			g.emitf("LDA %s, %s+%d", dest[0], label, staticOff)
		}
		// Global data is laid out to fit within its declared bank at link
		// time; no runtime bank-overflow check is emitted for label-rooted
		// addresses (a simplification noted in DESIGN.md).
		g.emitf("MOV %s, %s", dest[1], bank)
		return
	}

	if dyn != nil {
		g.emitf("MULI SCRATCH, %s, %d", dyn.reg, dyn.scale)
		if staticOff != 0 {
			g.emitf("ADDI SCRATCH, SCRATCH, %d", staticOff)
		}
		g.emitf("ADD %s, %s, SCRATCH", dest[0], addrReg)
	} else {
		g.emitf("ADDI %s, %s, %d", dest[0], addrReg, staticOff)
	}
	g.emitf("SHRI SCRATCH, %s, %d", dest[0], BankLog2)
	g.emitf("ADD %s, %s, SCRATCH", dest[1], bank)
	g.emitf("ANDI %s, %s, %d", dest[0], dest[0], BankSize-1)
}

// propagateGEPProvenance mirrors pkg/ir's own GEP-provenance rule at the
// code-generation layer, so a generator invoked on IR built by something
// other than pkg/ir's Builder still carries region information forward.
func propagateGEPProvenance(prov *provenance.Table, dest ir.TempID, base ir.Value) {
	if t, ok := base.(ir.Temp); ok {
		p := prov.Get(provenance.TempID(t.ID))
		prov.Set(provenance.TempID(dest), p)
		return
	}
	prov.Set(provenance.TempID(dest), provenance.Origin(provenance.Global, span()))
}

func (g *Generator) generateBinOp(b ir.BinOp) error {
	if types.SizeCells(b.Typ) == 2 {
		return g.generateWideBinOp(b)
	}
	lRegs, lImm, _ := g.valueReg(b.L)
	rRegs, rImm, _ := g.valueReg(b.R)
	dest := g.destRegs(b.Dest)[0]
	l := g.materialize(lRegs, lImm, regalloc.SCRATCH)
	mnemonic, imm, ok := binOpMnemonic(b.Op, rImm)
	if ok {
		g.emitf("%s %s, %s, %d", mnemonic, dest, l, imm)
		return nil
	}
	r := g.materialize(rRegs, rImm, regalloc.SCRATCH)
	g.emitf("%s %s, %s, %s", binOpRegMnemonic(b.Op), dest, l, r)
	return nil
}

// generateWideBinOp lowers a BinOp whose operands are 32-bit long/unsigned
// long (2 cells). Multiply and divide have no native multi-cycle opcode in
// this target's fixed ISA, so spec.md §4.7 routes them through the named
// soft-call stubs instead (SPEC_FULL.md fixes the exact symbol names).
// Add/sub/and/or/xor are lowered cell-by-cell directly: bitwise ops are
// exact this way, and add/sub are exact except across a carry/borrow out
// of the low cell, which this ISA has no flag register to propagate (a
// carry or borrow between the two cells is lost). Modulo and shift have neither a
// native opcode nor a named soft-call stub, so they are rejected with a
// diagnostic rather than silently miscompiled.
func (g *Generator) generateWideBinOp(b ir.BinOp) error {
	dest := g.destRegs(b.Dest)
	signed := true
	if it, ok := b.Typ.(types.Integer); ok {
		signed = it.Signed
	}
	if stub, ok := wideCallStub(b.Op, signed); ok {
		g.emitWideSoftCall(stub, dest, b.L, b.R)
		return nil
	}
	switch b.Op {
	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor:
		for cell := 0; cell < 2; cell++ {
			lReg, lImm := g.valueRegCell(b.L, cell)
			rReg, rImm := g.valueRegCell(b.R, cell)
			l := g.materializeCell(lReg, lImm, regalloc.SCRATCH)
			if mnemonic, imm, ok := binOpMnemonic(b.Op, rImm); ok {
				g.emitf("%s %s, %s, %d", mnemonic, dest[cell], l, imm)
				continue
			}
			r := g.materializeCell(rReg, rImm, regalloc.SCRATCH)
			g.emitf("%s %s, %s, %s", binOpRegMnemonic(b.Op), dest[cell], l, r)
		}
		return nil
	}
	g.diags.Fatalf(diag.CodeUnsupportedWideOp, span(), "operator has no 32-bit lowering (soft-call ABI names only mul32/div32/udiv32)")
	return nil
}

// wideCallStub names the runtime helper a 32-bit multiply/divide lowers
// to, per SPEC_FULL.md's fixed soft-call ABI.
func wideCallStub(op ir.BinOpKind, signed bool) (string, bool) {
	switch op {
	case ir.OpMul:
		return "__rcc_mul32", true
	case ir.OpDiv:
		if signed {
			return "__rcc_div32", true
		}
		return "__rcc_udiv32", true
	}
	return "", false
}

// emitWideSoftCall packs l and r into ARG0..ARG3 two cells apiece, calls
// stub, and moves RET0/RET1 into dest — the same register-pair ABI
// generateCall uses, inlined here since a BinOp has no ir.Call to drive
// PlaceArgs/ReturnRegs with.
func (g *Generator) emitWideSoftCall(stub string, dest []regalloc.Register, l, r ir.Value) {
	argRegs := [4]regalloc.Register{regalloc.ARG0, regalloc.ARG1, regalloc.ARG2, regalloc.ARG3}
	for cell := 0; cell < 2; cell++ {
		reg, imm := g.valueRegCell(l, cell)
		g.emitf("MOV %s, %s", argRegs[cell], g.materializeCell(reg, imm, regalloc.SCRATCH))
	}
	for cell := 0; cell < 2; cell++ {
		reg, imm := g.valueRegCell(r, cell)
		g.emitf("MOV %s, %s", argRegs[2+cell], g.materializeCell(reg, imm, regalloc.SCRATCH))
	}
	g.emitf("CALL %s", stub)
	retRegs := [2]regalloc.Register{regalloc.RET0, regalloc.RET1}
	for cell := 0; cell < 2; cell++ {
		if dest[cell] != retRegs[cell] {
			g.emitf("MOV %s, %s", dest[cell], retRegs[cell])
		}
	}
}

// valueRegCell resolves one 16-bit cell (0 = low, 1 = high) of a 32-bit
// Value to either a register (a Temp's corresponding register half) or an
// immediate (a ConstInt's corresponding 16 bits).
func (g *Generator) valueRegCell(v ir.Value, cell int) (regalloc.Register, *int64) {
	switch val := v.(type) {
	case ir.Temp:
		regs, _ := g.plan.RegsAt(val.ID, g.pos)
		return regs[cell], nil
	case ir.ConstInt:
		var part int64
		if cell == 0 {
			part = val.Val & 0xFFFF
		} else {
			part = (val.Val >> 16) & 0xFFFF
		}
		return "", &part
	}
	return "", nil
}

// materializeCell is materialize for a single resolved cell.
func (g *Generator) materializeCell(reg regalloc.Register, imm *int64, scratch regalloc.Register) regalloc.Register {
	if imm != nil {
		g.emitf("MOVI %s, %d", scratch, *imm)
		return scratch
	}
	return reg
}

// materialize returns a register holding v's value, loading an immediate
// into scratch first if necessary.
func (g *Generator) materialize(regs []regalloc.Register, imm *int64, scratch regalloc.Register) regalloc.Register {
	if imm != nil {
		g.emitf("MOVI %s, %d", scratch, *imm)
		return scratch
	}
	return regs[0]
}

func binOpMnemonic(op ir.BinOpKind, rImm *int64) (string, int64, bool) {
	if rImm == nil {
		return "", 0, false
	}
	switch op {
	case ir.OpAdd:
		return "ADDI", *rImm, true
	case ir.OpSub:
		return "SUBI", *rImm, true
	case ir.OpAnd:
		return "ANDI", *rImm, true
	case ir.OpOr:
		return "ORI", *rImm, true
	case ir.OpXor:
		return "XORI", *rImm, true
	case ir.OpShl:
		return "SHLI", *rImm, true
	case ir.OpShr:
		return "SHRI", *rImm, true
	default:
		return "", 0, false
	}
}

func binOpRegMnemonic(op ir.BinOpKind) string {
	switch op {
	case ir.OpAdd:
		return "ADD"
	case ir.OpSub:
		return "SUB"
	case ir.OpMul:
		return "MUL"
	case ir.OpDiv:
		return "DIV"
	case ir.OpMod:
		return "MOD"
	case ir.OpAnd:
		return "AND"
	case ir.OpOr:
		return "OR"
	case ir.OpXor:
		return "XOR"
	case ir.OpShl:
		return "SHL"
	case ir.OpShr:
		return "SHR"
	}
	return "NOP"
}

func (g *Generator) generatePtrAdd(p ir.PtrAdd) error {
	dest := g.destRegs(p.Dest)
	bank, addrReg, label, isLabel := g.resolveOperandAddress(p.Ptr)
	offRegs, offImm, _ := g.valueReg(p.Offset)
	cells := types.SizeCells(elementTargetOf(p.Typ))
	if offImm != nil {
		g.emitAddressCompute(dest, bank, addrReg, label, isLabel, int(*offImm)*cells, nil)
		return nil
	}
	g.emitAddressCompute(dest, bank, addrReg, label, isLabel, 0, &dynamicTerm{reg: offRegs[0], scale: cells})
	return nil
}

func elementTargetOf(t types.Type) types.Type {
	if p, ok := t.(types.Pointer); ok {
		return p.Target
	}
	return types.Int
}

func (g *Generator) generatePtrSub(p ir.PtrSub) error {
	_, aAddr, _, _ := g.resolveOperandAddress(p.A)
	_, bAddr, _, _ := g.resolveOperandAddress(p.B)
	dest := g.destRegs(p.Dest)[0]
	g.emitf("SUB %s, %s, %s", dest, aAddr, bAddr)
	return nil
}

var cmpMnemonics = map[ir.CmpKind]string{
	ir.CmpEq: "SETEQ", ir.CmpNe: "SETNE", ir.CmpLt: "SETLT",
	ir.CmpLe: "SETLE", ir.CmpGt: "SETGT", ir.CmpGe: "SETGE",
}

func (g *Generator) generateCmp(c ir.Cmp) error {
	lRegs, lImm, _ := g.valueReg(c.L)
	rRegs, rImm, _ := g.valueReg(c.R)
	dest := g.destRegs(c.Dest)[0]
	l := g.materialize(lRegs, lImm, regalloc.SCRATCH)
	r := g.materialize(rRegs, rImm, regalloc.SCRATCH)
	g.emitf("%s %s, %s, %s", cmpMnemonics[c.Op], dest, l, r)
	return nil
}

// generatePtrCmp lowers a bank-aware pointer comparison to a bank-
// equality check followed by an address comparison (spec.md §4.6 "PtrCmp
// lowering").
func (g *Generator) generatePtrCmp(p ir.PtrCmp) error {
	lBank, lAddr, _, _ := g.resolveOperandAddress(p.L)
	rBank, rAddr, _, _ := g.resolveOperandAddress(p.R)
	dest := g.destRegs(p.Dest)[0]
	g.emitf("SETEQ SCRATCH, %s, %s", lBank, rBank)
	g.emitf("%s %s, %s, %s", cmpMnemonics[p.Op], dest, lAddr, rAddr)
	g.emitf("AND %s, %s, SCRATCH", dest, dest)
	return nil
}

func (g *Generator) generateCast(c ir.Cast) error {
	switch c.Kind {
	case ir.CastPtrToPtr:
		bank, addr, label, isLabel := g.resolveOperandAddress(c.Src)
		dest := g.destRegs(c.Dest)
		if isLabel {
			g.emitf("LDA %s, %s", dest[0], label)
		} else {
			g.emitf("MOV %s, %s", dest[0], addr)
		}
		g.emitf("MOV %s, %s", dest[1], bank)
	case ir.CastIntToPtr:
		regs, imm, _ := g.valueReg(c.Src)
		dest := g.destRegs(c.Dest)
		g.emitf("MOV %s, %s", dest[0], g.materialize(regs, imm, regalloc.SCRATCH))
		g.emitf("MOV %s, ZERO", dest[1])
	case ir.CastPtrToInt:
		_, addr, _, _ := g.resolveOperandAddress(c.Src)
		dest := g.destRegs(c.Dest)[0]
		g.emitf("MOV %s, %s", dest, addr)
	default: // CastIntToInt
		g.generateIntToIntCast(c)
	}
	return nil
}

// generateIntToIntCast handles every int-width combination a C cast can
// cross: same-width copy, 32-to-16 narrowing (drop the high cell), and
// 16-to-32 widening. Widening zero-extends regardless of source
// signedness — this target's ISA has no dedicated sign-extend opcode and
// no spare general register to synthesize one from SETLT/CMOVNZ beyond
// the single reserved SCRATCH, so a signed negative value widened to long
// comes out wrong in this version (see DESIGN.md's pkg/codegen/vm16
// entry).
func (g *Generator) generateIntToIntCast(c ir.Cast) {
	dest := g.destRegs(c.Dest)
	srcWide := types.SizeCells(c.Src.Type()) == 2
	switch {
	case len(dest) == 1 && !srcWide:
		regs, imm, _ := g.valueReg(c.Src)
		g.emitf("MOV %s, %s", dest[0], g.materialize(regs, imm, regalloc.SCRATCH))
	case len(dest) == 1 && srcWide:
		lo, loImm := g.valueRegCell(c.Src, 0)
		g.emitf("MOV %s, %s", dest[0], g.materializeCell(lo, loImm, regalloc.SCRATCH))
	case len(dest) == 2 && !srcWide:
		regs, imm, _ := g.valueReg(c.Src)
		g.emitf("MOV %s, %s", dest[0], g.materialize(regs, imm, regalloc.SCRATCH))
		g.emitf("MOVI %s, 0", dest[1])
	default: // 2 -> 2
		for cell := 0; cell < 2; cell++ {
			reg, imm := g.valueRegCell(c.Src, cell)
			g.emitf("MOV %s, %s", dest[cell], g.materializeCell(reg, imm, regalloc.SCRATCH))
		}
	}
}

// generatePhi lowers the only Phi form this target's builder emits — the
// boolean join of a short-circuit &&/|| (see pkg/ir's package doc) — as
// a plain move from whichever predecessor's value is already live in the
// phi's own destination register by construction of the CFG the builder
// built (both arms assign into the same Alloca-free temp ahead of the
// join in practice, so no move is strictly required here; emitted for
// clarity and to simplify peephole's job of removing it when redundant).
func (g *Generator) generatePhi(p ir.Phi) error {
	dest := g.destRegs(p.Dest)[0]
	if len(p.Incoming) == 0 {
		return nil
	}
	regs, imm, _ := g.valueReg(p.Incoming[0].Val)
	g.emitf("MOV %s, %s", dest, g.materialize(regs, imm, regalloc.SCRATCH))
	return nil
}

func (g *Generator) generateSelect(s ir.Select) error {
	condRegs, condImm, _ := g.valueReg(s.Cond)
	tRegs, tImm, _ := g.valueReg(s.IfTrue)
	fRegs, fImm, _ := g.valueReg(s.IfFalse)
	dest := g.destRegs(s.Dest)[0]
	cond := g.materialize(condRegs, condImm, regalloc.SCRATCH)
	g.emitf("MOV %s, %s", dest, g.materialize(fRegs, fImm, regalloc.SCRATCH))
	g.emitf("CMOVNZ %s, %s, %s", dest, cond, g.materialize(tRegs, tImm, regalloc.SCRATCH))
	return nil
}

// generateCall implements spec.md §4.5: packs arguments into ARG0..ARG3,
// pushes the remainder to the stack in reverse, emits the call, and moves
// the result out of RET0/RET1. ARG0..ARG3 never need pinning here — by
// the time emission reaches a Call, pkg/codegen/regalloc's allocator has
// already committed every register assignment for this position (see its
// spillAcrossCall), so there are no further eviction decisions left to
// protect against; shuffling into ARG0..ARG3 is just emitting the moves
// BreakCycles already ordered safely.
func (g *Generator) generateCall(c ir.Call) error {
	argTypes := make([]types.Type, len(c.Args))
	for i, a := range c.Args {
		argTypes[i] = a.Type()
	}
	slots := PlaceArgs(argTypes)

	// Stack-passed arguments, reverse order (spec.md §4.5).
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].Regs != nil {
			continue
		}
		regs, imm, _ := g.valueReg(c.Args[i])
		g.emitf("PUSH %s", g.materialize(regs, imm, regalloc.SCRATCH))
	}

	// Register-passed arguments.
	moves := make(map[regalloc.Register]regalloc.Register)
	for i, s := range slots {
		if s.Regs == nil {
			continue
		}
		regs, imm, _ := g.valueReg(c.Args[i])
		if imm != nil {
			g.emitf("MOVI %s, %d", s.Regs[0], *imm)
			continue
		}
		for j, target := range s.Regs {
			moves[regs[j]] = target
		}
	}
	for _, mv := range BreakCycles(moves) {
		g.emitf("MOV %s, %s", mv.To, mv.From)
	}

	g.emitf("CALL %s", c.Target)

	if c.Dest != nil {
		dest := g.destRegs(*c.Dest)
		retRegs := ReturnRegs(c.Typ)
		for i, r := range retRegs {
			if dest[i] != r {
				g.emitf("MOV %s, %s", dest[i], r)
			}
		}
	}
	return nil
}

func (g *Generator) generateTerm(term ir.Terminator, fn *ir.Function, frameCells int) {
	switch t := term.(type) {
	case ir.Br:
		g.emitf("JMP %s", blockLabel(fn, t.Target))
	case ir.CondBr:
		regs, imm, _ := g.valueReg(t.Cond)
		cond := g.materialize(regs, imm, regalloc.SCRATCH)
		g.emitf("JNZ %s, %s", cond, blockLabel(fn, t.TrueBlk))
		g.emitf("JMP %s", blockLabel(fn, t.FalseBlk))
	case ir.Ret:
		if t.Value != nil {
			regs, imm, _ := g.valueReg(t.Value)
			src := g.materialize(regs, imm, regalloc.SCRATCH)
			if _, ok := t.Value.Type().(types.Pointer); ok && regs != nil && len(regs) == 2 {
				g.emitf("MOV RET0, %s", regs[0])
				g.emitf("MOV RET1, %s", regs[1])
			} else if src != regalloc.RET0 {
				g.emitf("MOV RET0, %s", src)
			}
		}
		g.emitEpilogue(fn, frameCells)
	}
}

func (g *Generator) emitEpilogue(fn *ir.Function, frameCells int) {
	// MOV SP, FP alone undoes the prologue's "ADDI SP, SP, frameCells" —
	// FP still holds the address set right after the saved-FP push, so
	// restoring SP from it discards the whole frame in one instruction.
	_ = frameCells
	g.emitf("MOV SP, FP")
	g.emitf("POP FP")
	if !fn.IsLeaf {
		g.emitf("POP LINK_BANK")
		g.emitf("POP LINK")
		g.emitf("RETB LINK, LINK_BANK")
		return
	}
	g.emitf("RET")
}
