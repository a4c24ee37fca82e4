// Allocation policy: greedy LRU with spill, per spec.md §4.4 — not the
// graph-coloring strategy in the teacher's original pkg/codegen/regalloc
// (see graph.go's removal note in DESIGN.md). The use/def traversal and
// per-instruction liveness bookkeeping below is kept in the shape of the
// teacher's regalloc.go (numberInstructions/getUses/getDef), rewritten
// against this target's IR instruction set instead of the teacher's
// class/closure one.
package regalloc

import (
	"sort"

	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/logger"
	"github.com/rcc-project/rcc/pkg/provenance"
	"github.com/rcc-project/rcc/pkg/source"
	"github.com/rcc-project/rcc/pkg/types"
)

// Window is the program-position range during which a temp lived in Regs.
type Window struct {
	Temp  ir.TempID
	Start int
	End   int
	Regs  []Register
}

// SpillEvent records a value being written from Regs to its frame slot at
// Position — because the allocator needed the registers back, or because
// the value's lifetime crosses a call (spec.md §4.4 "across a call").
type SpillEvent struct {
	Temp     ir.TempID
	Position int
	Slot     int
	Regs     []Register
}

// ReloadEvent records a value being read back from its frame slot into
// Regs at Position.
type ReloadEvent struct {
	Temp     ir.TempID
	Position int
	Slot     int
	Regs     []Register
}

// Plan is the allocator's output: every register window a temp occupied,
// every spill/reload the code generator must emit, and the total spill
// slot count (the S term in the frame layout, spec.md §3.4).
type Plan struct {
	Windows    []Window
	Spills     []SpillEvent
	Reloads    []ReloadEvent
	StackSlots int
}

type binding struct {
	regs        []Register
	windowStart int
}

// Allocator runs the greedy-LRU-with-spill algorithm over one function's
// instruction stream, in program order.
type Allocator struct {
	fn    *ir.Function
	prov  *provenance.Table
	diags *diag.Collector

	free   []Register
	lru    []Register // occupied registers, least-recently-used first
	owner  map[Register]ir.TempID
	pinned map[Register]bool

	current map[ir.TempID]*binding
	slotOf  map[ir.TempID]int // last spill slot used by a temp, for reuse on re-spill
	lastUse map[ir.TempID]int

	freeSlotsBySize map[int][]int
	nextSlot        int

	plan *Plan
}

func NewAllocator(fn *ir.Function, prov *provenance.Table, diags *diag.Collector) *Allocator {
	return &Allocator{
		fn:              fn,
		prov:            prov,
		diags:           diags,
		free:            append([]Register{}, AllocPool...),
		owner:           make(map[Register]ir.TempID),
		pinned:          make(map[Register]bool),
		current:         make(map[ir.TempID]*binding),
		slotOf:          make(map[ir.TempID]int),
		freeSlotsBySize: make(map[int][]int),
		plan:            &Plan{},
	}
}

// RegsAt returns the register(s) temp occupied at program position pos, for
// the code generator to resolve a use or definition to a concrete operand.
func (p *Plan) RegsAt(temp ir.TempID, pos int) ([]Register, bool) {
	for _, w := range p.Windows {
		if w.Temp == temp && pos >= w.Start && pos <= w.End {
			return w.Regs, true
		}
	}
	return nil, false
}

// FirstRegs returns the registers of the earliest window recorded for
// temp. Used by the code generator to place an incoming parameter value
// into its assigned register ahead of the parameter's first real use (a
// function parameter has no defining instruction of its own — its first
// window opens at whatever instruction first reads it, per ensure's
// first-use handling below — so the call site can't yet know that
// position when emitting the function prologue).
func (p *Plan) FirstRegs(temp ir.TempID) ([]Register, bool) {
	best := -1
	var regs []Register
	for _, w := range p.Windows {
		if w.Temp == temp && (best == -1 || w.Start < best) {
			best = w.Start
			regs = w.Regs
		}
	}
	return regs, best != -1
}

// Pin prevents reg from being chosen as a spill victim until Unpin is
// called. pkg/codegen/vm16 does not call it.
func (a *Allocator) Pin(reg Register) { a.pinned[reg] = true }

// Unpin releases a previously pinned register.
func (a *Allocator) Unpin(reg Register) { delete(a.pinned, reg) }

// Allocate runs the algorithm over every block in layout order and
// returns the resulting Plan.
func (a *Allocator) Allocate() *Plan {
	logger.Debug("starting register allocation", "function", a.fn.Name)
	positions, callPositions := numberInstructions(a.fn)
	a.lastUse = computeLastUse(a.fn, positions)

	pos := 0
	for _, blk := range a.fn.Blocks {
		for _, inst := range blk.Insts {
			a.step(inst, pos)
			if callPositions[pos] {
				def, _, hasDef := defOf(inst)
				a.spillAcrossCall(pos, def, hasDef)
			}
			pos++
		}
		if blk.Term != nil {
			a.stepTerm(blk.Term, pos)
			pos++
		}
	}
	a.closeRemaining(pos)
	logger.Debug("register allocation complete", "windows", len(a.plan.Windows), "spills", len(a.plan.Spills), "slots", a.nextSlot)
	return a.plan
}

func (a *Allocator) step(inst ir.Inst, pos int) {
	for _, v := range usesOf(inst) {
		if t, ok := v.(ir.Temp); ok {
			a.ensure(t.ID, t.Typ, pos)
		}
	}
	if def, typ, ok := defOf(inst); ok {
		a.define(def, typ, pos)
	}
	a.releaseDeadAt(pos)
}

func (a *Allocator) stepTerm(term ir.Terminator, pos int) {
	for _, v := range termUsesOf(term) {
		if t, ok := v.(ir.Temp); ok {
			a.ensure(t.ID, t.Typ, pos)
		}
	}
	a.releaseDeadAt(pos)
}

// isFatPointer reports whether typ occupies the atomic two-register form
// (spec.md §4.4 "fat-pointer atomicity").
func isFatPointer(typ types.Type) bool {
	_, ok := typ.(types.Pointer)
	return ok
}

// regCells reports how many consecutive registers typ needs: 2 for a fat
// pointer or a 32-bit long/unsigned long (types.SizeCells == 2), 1
// otherwise. A struct wider than 2 cells never reaches the allocator
// directly — it is always passed/returned by reference (spec.md §4.5) —
// so 2 is the ceiling here, not a general SizeCells passthrough.
func regCells(typ types.Type) int {
	if isFatPointer(typ) || types.SizeCells(typ) == 2 {
		return 2
	}
	return 1
}

// ensure makes temp's value available in a register, reloading from its
// spill slot first if it was previously spilled, and marks the register(s)
// as just used.
func (a *Allocator) ensure(temp ir.TempID, typ types.Type, pos int) []Register {
	if b, ok := a.current[temp]; ok {
		a.touch(b.regs)
		return b.regs
	}
	regs := a.acquire(regCells(typ), pos)
	b := &binding{regs: regs, windowStart: pos}
	if slot, wasSpilled := a.slotOf[temp]; wasSpilled {
		a.plan.Reloads = append(a.plan.Reloads, ReloadEvent{Temp: temp, Position: pos, Slot: slot, Regs: regs})
	}
	a.current[temp] = b
	for _, r := range regs {
		a.owner[r] = temp
	}
	return regs
}

// define opens a fresh binding for a newly produced value (every temp is
// defined exactly once, per the IR's single-assignment temp numbering).
func (a *Allocator) define(temp ir.TempID, typ types.Type, pos int) {
	regs := a.acquire(regCells(typ), pos)
	a.current[temp] = &binding{regs: regs, windowStart: pos}
	for _, r := range regs {
		a.owner[r] = temp
	}
}

// acquire returns n registers: from the free list first, evicting a
// least-recently-used occupied register only once the free list is
// exhausted (spec.md §4.4 steps 2-3).
func (a *Allocator) acquire(n int, pos int) []Register {
	var regs []Register
	for len(regs) < n {
		if len(a.free) > 0 {
			reg := a.free[len(a.free)-1]
			a.free = a.free[:len(a.free)-1]
			regs = append(regs, reg)
			a.touch([]Register{reg})
			continue
		}
		victim, ok := a.evictOne()
		if !ok {
			a.diags.Fatalf(diag.CodeSpillPinned, source.Span{}, "no unpinned register available to spill in function %q", a.fn.Name)
			for r := range a.pinned {
				regs = append(regs, r)
				break
			}
			continue
		}
		a.spill(victim, pos)
		regs = append(regs, victim)
		a.touch([]Register{victim})
	}
	return regs
}

// evictOne finds the least-recently-used non-pinned occupied register.
func (a *Allocator) evictOne() (Register, bool) {
	for i, reg := range a.lru {
		if a.pinned[reg] {
			continue
		}
		a.lru = append(a.lru[:i], a.lru[i+1:]...)
		return reg, true
	}
	return "", false
}

// touch moves regs to the most-recently-used end of the LRU order.
func (a *Allocator) touch(regs []Register) {
	for _, reg := range regs {
		for i, r := range a.lru {
			if r == reg {
				a.lru = append(a.lru[:i], a.lru[i+1:]...)
				break
			}
		}
		a.lru = append(a.lru, reg)
	}
}

// spill writes reg's occupant to its frame slot, spilling every register
// of a fat-pointer binding together even though only reg was needed back
// — the atomicity rule.
func (a *Allocator) spill(reg Register, pos int) {
	temp, ok := a.owner[reg]
	if !ok {
		return
	}
	b := a.current[temp]
	slot, hadSlot := a.slotOf[temp]
	if !hadSlot {
		slot = a.allocSlot(len(b.regs))
	}

	a.plan.Windows = append(a.plan.Windows, Window{Temp: temp, Start: b.windowStart, End: pos - 1, Regs: b.regs})
	a.plan.Spills = append(a.plan.Spills, SpillEvent{Temp: temp, Position: pos, Slot: slot, Regs: b.regs})

	for _, r := range b.regs {
		delete(a.owner, r)
		if r != reg {
			a.removeFromLRU(r)
			a.free = append(a.free, r)
		}
	}
	delete(a.current, temp)
	a.slotOf[temp] = slot
}

func (a *Allocator) removeFromLRU(reg Register) {
	for i, r := range a.lru {
		if r == reg {
			a.lru = append(a.lru[:i], a.lru[i+1:]...)
			return
		}
	}
}

// spillAcrossCall forcibly spills every pool register still holding a
// value whose lifetime extends past the call (spec.md §4.4 "across a
// call": registers live across a call boundary are always spilled before
// the call, reloaded after only if still used). The call's own result
// (def, when hasDef) is produced by the call, not live across it, and is
// left in its register.
func (a *Allocator) spillAcrossCall(pos int, def ir.TempID, hasDef bool) {
	var live []ir.TempID
	for temp := range a.current {
		if a.lastUse[temp] > pos && !(hasDef && temp == def) {
			live = append(live, temp)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })
	for _, temp := range live {
		b := a.current[temp]
		a.spill(b.regs[0], pos)
	}
}

// releaseDeadAt frees (without spilling) the registers of every temp whose
// last use was pos, and returns its spill slot, if it has one, for reuse.
func (a *Allocator) releaseDeadAt(pos int) {
	var dead []ir.TempID
	for temp, b := range a.current {
		if a.lastUse[temp] == pos {
			dead = append(dead, temp)
			a.plan.Windows = append(a.plan.Windows, Window{Temp: temp, Start: b.windowStart, End: pos, Regs: b.regs})
			for _, r := range b.regs {
				delete(a.owner, r)
				a.removeFromLRU(r)
				a.free = append(a.free, r)
			}
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i] < dead[j] })
	for _, temp := range dead {
		if slot, ok := a.slotOf[temp]; ok {
			n := len(a.current[temp].regs)
			a.freeSlotsBySize[n] = append(a.freeSlotsBySize[n], slot)
			delete(a.slotOf, temp)
		}
		delete(a.current, temp)
	}
}

// closeRemaining flushes any binding still open at the end of the
// function (a value used only by the final terminator, or an unused
// return value).
func (a *Allocator) closeRemaining(pos int) {
	var temps []ir.TempID
	for temp := range a.current {
		temps = append(temps, temp)
	}
	sort.Slice(temps, func(i, j int) bool { return temps[i] < temps[j] })
	for _, temp := range temps {
		b := a.current[temp]
		a.plan.Windows = append(a.plan.Windows, Window{Temp: temp, Start: b.windowStart, End: pos, Regs: b.regs})
	}
	a.plan.StackSlots = a.nextSlot
}

// allocSlot reserves n consecutive cells in the spill area, reusing a
// freed slot of the same size when one is available (spec.md §4.4 "spill
// slots are reused once their occupant dies").
func (a *Allocator) allocSlot(n int) int {
	if free := a.freeSlotsBySize[n]; len(free) > 0 {
		slot := free[len(free)-1]
		a.freeSlotsBySize[n] = free[:len(free)-1]
		return slot
	}
	slot := a.nextSlot
	a.nextSlot += n
	return slot
}

// isWideSoftCallBinOp reports whether inst is a 32-bit multiply/divide
// that the code generator lowers to a call to a soft-call runtime stub
// (see pkg/codegen/vm16's wideCallStub) rather than a native opcode — a
// call boundary the allocator must spill across exactly like ir.Call,
// even though it is still an ir.BinOp here.
func isWideSoftCallBinOp(inst ir.Inst) bool {
	b, ok := inst.(ir.BinOp)
	if !ok || types.SizeCells(b.Typ) != 2 {
		return false
	}
	return b.Op == ir.OpMul || b.Op == ir.OpDiv
}

// numberInstructions assigns each instruction and terminator a dense
// program position in layout order, and records which positions are Call
// instructions (the mandatory-spill boundary).
func numberInstructions(fn *ir.Function) (map[ir.TempID]int, map[int]bool) {
	positions := make(map[ir.TempID]int)
	calls := make(map[int]bool)
	pos := 0
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if def, _, ok := defOf(inst); ok {
				positions[def] = pos
			}
			if _, ok := inst.(ir.Call); ok || isWideSoftCallBinOp(inst) {
				calls[pos] = true
			}
			pos++
		}
		if blk.Term != nil {
			pos++
		}
	}
	return positions, calls
}

// computeLastUse walks every instruction and terminator once, recording
// the highest program position at which each temp is read. A temp never
// used after its definition has lastUse equal to its definition position.
func computeLastUse(fn *ir.Function, defPos map[ir.TempID]int) map[ir.TempID]int {
	last := make(map[ir.TempID]int)
	for temp, pos := range defPos {
		last[temp] = pos
	}
	pos := 0
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			for _, v := range usesOf(inst) {
				if t, ok := v.(ir.Temp); ok {
					if pos > last[t.ID] {
						last[t.ID] = pos
					}
				}
			}
			pos++
		}
		if blk.Term != nil {
			for _, v := range termUsesOf(blk.Term) {
				if t, ok := v.(ir.Temp); ok {
					if pos > last[t.ID] {
						last[t.ID] = pos
					}
				}
			}
			pos++
		}
	}
	return last
}

// usesOf returns every Value an instruction reads (excluding its own
// definition).
func usesOf(inst ir.Inst) []ir.Value {
	switch i := inst.(type) {
	case ir.Alloca:
		return nil
	case ir.Load:
		return []ir.Value{i.Addr}
	case ir.Store:
		return []ir.Value{i.Addr, i.Val}
	case ir.GEP:
		uses := []ir.Value{i.Base}
		for _, step := range i.Steps {
			if step.Kind == ir.GEPElement && step.Index != nil {
				uses = append(uses, step.Index)
			}
		}
		return uses
	case ir.BinOp:
		return []ir.Value{i.L, i.R}
	case ir.PtrAdd:
		return []ir.Value{i.Ptr, i.Offset}
	case ir.PtrSub:
		return []ir.Value{i.A, i.B}
	case ir.Cmp:
		return []ir.Value{i.L, i.R}
	case ir.PtrCmp:
		return []ir.Value{i.L, i.R}
	case ir.Cast:
		return []ir.Value{i.Src}
	case ir.Phi:
		uses := make([]ir.Value, 0, len(i.Incoming))
		for _, edge := range i.Incoming {
			uses = append(uses, edge.Val)
		}
		return uses
	case ir.Select:
		return []ir.Value{i.Cond, i.IfTrue, i.IfFalse}
	case ir.Call:
		return i.Args
	}
	return nil
}

// defOf returns the temp an instruction defines, if any.
func defOf(inst ir.Inst) (ir.TempID, types.Type, bool) {
	switch i := inst.(type) {
	case ir.Alloca:
		return i.Dest, types.Pointer{Target: i.ElemType}, true
	case ir.Load:
		return i.Dest, i.Typ, true
	case ir.GEP:
		return i.Dest, types.Pointer{Target: i.ResultType}, true
	case ir.BinOp:
		return i.Dest, i.Typ, true
	case ir.PtrAdd:
		return i.Dest, i.Typ, true
	case ir.PtrSub:
		return i.Dest, types.Int, true
	case ir.Cmp:
		return i.Dest, types.Bool, true
	case ir.PtrCmp:
		return i.Dest, types.Bool, true
	case ir.Cast:
		return i.Dest, i.Typ, true
	case ir.Phi:
		return i.Dest, i.Typ, true
	case ir.Select:
		return i.Dest, i.Typ, true
	case ir.Call:
		if i.Dest != nil {
			return *i.Dest, i.Typ, true
		}
		return 0, nil, false
	}
	return 0, nil, false
}

// termUsesOf returns every Value a terminator reads.
func termUsesOf(term ir.Terminator) []ir.Value {
	switch t := term.(type) {
	case ir.CondBr:
		return []ir.Value{t.Cond}
	case ir.Ret:
		if t.Value != nil {
			return []ir.Value{t.Value}
		}
	}
	return nil
}
