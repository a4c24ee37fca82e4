// Package vm16 generates assembly for the target's banked 16-bit virtual
// machine: a register-allocated, bank-aware code generator built on
// pkg/codegen/regalloc's allocation plan and pkg/provenance's region
// table.
//
// Design: direct textual assembly emission, no intermediate assembler IR
// of its own — same shape as the teacher's pkg/codegen/amd64 (a
// Generator holding a writer, an allocator, and per-function state),
// generalized from the teacher's flat unbanked register file and System V
// convention to this target's banked register classes and the convention
// in spec.md §4.5.
package vm16

import (
	"fmt"
	"io"
	"strings"

	"github.com/rcc-project/rcc/pkg/codegen/regalloc"
	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/logger"
	"github.com/rcc-project/rcc/pkg/provenance"
	"github.com/rcc-project/rcc/pkg/source"
	"github.com/rcc-project/rcc/pkg/types"
)

// Generator emits assembly for one ir.Module at a time.
type Generator struct {
	w     io.Writer
	diags *diag.Collector

	fn           *ir.Function
	prov         *provenance.Table
	plan         *regalloc.Plan
	pos          int
	allocaOffset map[ir.TempID]int
	localCells   int
	spillsAt     map[int][]regalloc.SpillEvent
	reloadsAt    map[int][]regalloc.ReloadEvent
}

func NewGenerator(w io.Writer, diags *diag.Collector) *Generator {
	return &Generator{w: w, diags: diags}
}

// Generate emits every function and global in mod, in declaration order
// (spec.md §6 "`.data`/`.bss` layout produced in the same order as C
// source declarations").
func (g *Generator) Generate(mod *ir.Module, provByFunc map[string]*provenance.Table) error {
	logger.Debug("generating vm16 assembly", "functions", len(mod.Functions))

	g.emitSection(".rodata")
	for _, s := range mod.Strings.Entries() {
		g.emitf("%s: .string %q", s.Label, s.Value)
	}

	g.emitDataSections(mod.Globals)

	g.emitSection(".text")
	for _, fn := range mod.Functions {
		g.prov = provByFunc[fn.Name]
		if g.prov == nil {
			g.prov = provenance.NewTable()
		}
		if err := g.generateFunction(fn); err != nil {
			return fmt.Errorf("generating %s: %w", fn.Name, err)
		}
	}
	logger.Info("vm16 code generation complete", "functions", len(mod.Functions))
	return nil
}

// GenerateToString runs Generate against an in-memory buffer and runs the
// assembly validator over the result before returning it.
func GenerateToString(mod *ir.Module, provByFunc map[string]*provenance.Table, diags *diag.Collector) (string, error) {
	var buf strings.Builder
	g := NewGenerator(&buf, diags)
	if err := g.Generate(mod, provByFunc); err != nil {
		return "", err
	}
	out := Peephole(buf.String())
	if err := Validate(out); err != nil {
		return out, fmt.Errorf("assembly validation failed: %w", err)
	}
	return out, nil
}

func (g *Generator) emitDataSections(globals []*ir.Global) {
	var data, bss []*ir.Global
	for _, gl := range globals {
		if gl.ReadOnly {
			continue // read-only initialized globals join .rodata, emitted by the builder alongside string literals in practice
		}
		if gl.Init == nil {
			bss = append(bss, gl)
		} else {
			data = append(data, gl)
		}
	}
	if len(data) > 0 {
		g.emitSection(".data")
		for _, gl := range data {
			g.emitf("%s:", gl.Name)
			for _, cell := range gl.Init {
				g.emitf("  .word %d", cell)
			}
		}
	}
	if len(bss) > 0 {
		g.emitSection(".bss")
		for _, gl := range bss {
			g.emitf("%s: .zero %d", gl.Name, types.SizeCells(gl.Type))
		}
	}
}

func (g *Generator) emitSection(name string) { fmt.Fprintf(g.w, "%s\n", name) }

func (g *Generator) emitf(format string, args ...any) {
	fmt.Fprintf(g.w, "\t"+format+"\n", args...)
}

func (g *Generator) label(s string) { fmt.Fprintf(g.w, "%s:\n", s) }

// generateFunction lays out the frame, runs register allocation, and
// emits the prologue, body, and epilogue per spec.md §4.5.
func (g *Generator) generateFunction(fn *ir.Function) error {
	g.fn = fn
	g.pos = 0
	g.allocaOffset = make(map[ir.TempID]int)
	g.localCells = 0

	allocator := regalloc.NewAllocator(fn, g.prov, g.diags)
	plan := allocator.Allocate()
	g.plan = plan
	g.spillsAt = indexSpills(plan)
	g.reloadsAt = indexReloads(plan)

	g.layoutFrame(fn)
	frameCells := g.localCells + plan.StackSlots

	g.label(fn.Name)
	if !fn.IsLeaf {
		g.emitf("PUSH LINK")
		g.emitf("PUSH LINK_BANK")
	}
	g.emitf("PUSH FP")
	g.emitf("MOV FP, SP")
	if frameCells > 0 {
		g.emitf("ADDI SP, SP, %d", frameCells)
	}

	g.emitParamPrologue(fn)

	for _, blk := range fn.Blocks {
		if blk.ID != fn.Blocks[0].ID {
			g.label(blockLabel(fn, blk.ID))
		}
		for _, inst := range blk.Insts {
			g.emitSpillsReloads(g.pos)
			if err := g.generateInst(inst); err != nil {
				return err
			}
			g.pos++
		}
		if blk.Term != nil {
			g.emitSpillsReloads(g.pos)
			g.generateTerm(blk.Term, fn, frameCells)
			g.pos++
		}
	}
	return nil
}

// layoutFrame assigns each Alloca a frame-relative cell offset, in
// program order, and records the total local-cell count L (spec.md §3.4).
func (g *Generator) layoutFrame(fn *ir.Function) {
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if a, ok := inst.(ir.Alloca); ok {
				g.allocaOffset[a.Dest] = g.localCells
				g.localCells += types.SizeCells(a.ElemType)
			}
		}
	}
}

// emitParamPrologue moves each incoming ARG*/stack argument into the
// register pkg/codegen/regalloc assigned to that parameter's value temp
// (fn.Params[i].Temp). build.go's buildFunction never emits a defining
// instruction for a parameter — it is only ever used, first by the
// Alloca+Store pair build.go emits right at function entry to give the
// parameter its addressable stack slot — so the allocator opens that
// temp's one and only window at the position of that first use, and
// Plan.FirstRegs resolves it regardless of the exact position.
func (g *Generator) emitParamPrologue(fn *ir.Function) {
	argTypes := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		argTypes[i] = p.Type
	}
	slots := PlaceArgs(argTypes)
	for i, p := range fn.Params {
		regs, ok := g.plan.FirstRegs(p.Temp)
		if !ok {
			continue // parameter never read anywhere in the body
		}
		slot := slots[i]
		if slot.Regs != nil {
			for j, reg := range regs {
				if j < len(slot.Regs) && slot.Regs[j] != reg {
					g.emitf("MOV %s, %s", reg, slot.Regs[j])
				}
			}
		} else {
			for j, reg := range regs {
				g.emitf("LOAD %s, SB[SP+%d]", reg, slot.StackOffset+j)
			}
		}
	}
}

func indexSpills(plan *regalloc.Plan) map[int][]regalloc.SpillEvent {
	idx := make(map[int][]regalloc.SpillEvent)
	for _, s := range plan.Spills {
		idx[s.Position] = append(idx[s.Position], s)
	}
	return idx
}

func indexReloads(plan *regalloc.Plan) map[int][]regalloc.ReloadEvent {
	idx := make(map[int][]regalloc.ReloadEvent)
	for _, r := range plan.Reloads {
		idx[r.Position] = append(idx[r.Position], r)
	}
	return idx
}

func (g *Generator) emitSpillsReloads(pos int) {
	for _, r := range g.reloadsAt[pos] {
		for i, reg := range r.Regs {
			g.emitf("LOAD %s, SB[FP+%d]", reg, g.localCells+r.Slot+i)
		}
	}
	for _, s := range g.spillsAt[pos] {
		for i, reg := range s.Regs {
			g.emitf("STORE SB[FP+%d], %s", g.localCells+s.Slot+i, reg)
		}
	}
}

func blockLabel(fn *ir.Function, id ir.BlockID) string {
	return fmt.Sprintf(".L%s_%d", fn.Name, id)
}

// valueReg resolves a Value used at the current instruction position to
// its register (for a Temp) or reports that it's an immediate.
func (g *Generator) valueReg(v ir.Value) (regs []regalloc.Register, imm *int64, label string) {
	switch val := v.(type) {
	case ir.Temp:
		r, _ := g.plan.RegsAt(val.ID, g.pos)
		return r, nil, ""
	case ir.ConstInt:
		n := val.Val
		return nil, &n, ""
	case ir.GlobalAddr:
		return nil, nil, val.Name
	case ir.StringAddr:
		return nil, nil, val.Label
	}
	return nil, nil, ""
}

func (g *Generator) destRegs(temp ir.TempID) []regalloc.Register {
	regs, _ := g.plan.RegsAt(temp, g.pos)
	return regs
}

// span is a placeholder zero span: this package runs after type checking
// and IR lowering have already attached spans to every diagnostic they
// raise; any diagnostic raised here is a defensive backstop (see
// ResolveBank) that does not have a source span of its own to cite.
func span() source.Span { return source.Span{} }
