// AST-to-IR lowering: single pass, explicit control flow, typed
// temporaries — the same shape as the teacher's original build.go (a
// Builder walking one function at a time with a locals map and a loop
// stack for break/continue), generalized from Python's dynamically-typed
// values to this target's Alloca+Load+Store memory model and GEP-based
// address computation.
//
// Mutable local variables are always stack slots (Alloca), read and
// written through Load/Store; Phi is reserved for short-circuit &&/||
// joins only (spec.md §4.2), not for general control-flow merges — the
// same strategy an unoptimized LLVM frontend uses, left for the optimizer
// to clean up later.
package ir

import (
	"fmt"

	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/frontend"
	"github.com/rcc-project/rcc/pkg/logger"
	"github.com/rcc-project/rcc/pkg/provenance"
	"github.com/rcc-project/rcc/pkg/source"
	"github.com/rcc-project/rcc/pkg/types"
)

// localVar is one name visible in the current function: the address of
// its stack slot and whether it was a parameter (relevant only for the
// --assume-pointer-params override).
type localVar struct {
	Addr    Value
	Type    types.Type
	IsParam bool
	Name    string
}

type loopCtx struct {
	breakBlk, continueBlk BlockID
}

// Builder lowers one translation unit's typed AST into an IR Module. A
// fresh Builder (or at least a fresh per-function scope) is used per
// function — see BuildProgram.
type Builder struct {
	checker  *frontend.Checker
	diags    *diag.Collector
	module   *Module
	fn       *Function
	prov       *provenance.Table
	provByFunc map[string]*provenance.Table
	block      *BasicBlock
	locals     map[string]localVar
	loop       []loopCtx
	labelSeq   int

	// AssumeParamRegion implements --assume-pointer-params: non-nil means
	// pointer parameters lacking stronger evidence are weakened to this
	// region, with a one-time warning per affected parameter
	// (SUPPLEMENTED FEATURES).
	AssumeParamRegion *provenance.RegionTag
	warnedParams      map[string]bool

	globals map[string]*Global
}

func NewBuilder(checker *frontend.Checker, diags *diag.Collector) *Builder {
	return &Builder{
		checker:    checker,
		diags:      diags,
		module:     &Module{Strings: NewStringPool()},
		globals:    make(map[string]*Global),
		provByFunc: make(map[string]*provenance.Table),
	}
}

// BuildProgram lowers every declaration in prog into b.module.
func (b *Builder) BuildProgram(prog *frontend.Program) *Module {
	logger.Debug("building IR from AST", "decls", len(prog.Decls))
	for _, d := range prog.Decls {
		if vd, ok := d.(*frontend.VarDecl); ok {
			b.buildGlobal(vd)
		}
	}
	for _, d := range prog.Decls {
		if fd, ok := d.(*frontend.FuncDecl); ok && fd.Body != nil {
			logger.Debug("building function", "name", fd.Name)
			b.buildFunction(fd)
		}
	}
	logger.Info("IR build complete", "functions", len(b.module.Functions))
	return b.module
}

func (b *Builder) buildGlobal(vd *frontend.VarDecl) {
	g := &Global{Name: vd.Name, Type: vd.ResolvedType}
	if vd.Init != nil {
		if lit, ok := vd.Init.(*frontend.IntLit); ok {
			g.Init = []int64{lit.Value}
		}
	}
	b.module.Globals = append(b.module.Globals, g)
	b.globals[vd.Name] = g
}

func (b *Builder) buildFunction(fd *frontend.FuncDecl) {
	fn := NewFunction(fd.Name, fd.ResolvedType.Return)
	b.fn = fn
	b.prov = provenance.NewTable()
	b.locals = make(map[string]localVar)
	b.loop = nil
	b.warnedParams = make(map[string]bool)

	entry := fn.NewBlock("entry")
	b.block = entry

	for i, p := range fd.Params {
		pt := fd.ResolvedType.Params[i]
		argTemp := fn.NewTemp(pt)
		fn.Params = append(fn.Params, Param{Name: p.Name, Temp: argTemp, Type: pt})
		if _, isPtr := pt.(types.Pointer); isPtr {
			b.prov.Set(provenance.TempID(argTemp), provenance.Origin(provenance.Unknown, p.Sp))
		}

		slot := fn.NewTemp(types.Pointer{Target: pt})
		b.block.emit(Alloca{Dest: slot, ElemType: pt})
		b.prov.Set(provenance.TempID(slot), provenance.Origin(provenance.Stack, p.Sp))
		b.block.emit(Store{Addr: Temp{ID: slot, Typ: types.Pointer{Target: pt}}, Val: Temp{ID: argTemp, Typ: pt}})
		b.locals[p.Name] = localVar{Addr: Temp{ID: slot, Typ: types.Pointer{Target: pt}}, Type: pt, IsParam: true, Name: p.Name}
	}

	b.buildBlock(fd.Body)

	if b.block.Term == nil {
		if _, void := fn.ReturnType.(types.Void); void {
			b.block.Term = Ret{}
		} else {
			// Malformed input (missing return on a non-void function) —
			// still emit a terminator so every block is well-formed;
			// the diagnostic is the user's to fix, not a builder crash.
			b.block.Term = Ret{Value: ConstInt{Val: 0, Typ: fn.ReturnType}}
		}
	}

	b.module.Functions = append(b.module.Functions, fn)
	b.provByFunc[fn.Name] = b.prov
}

func (b *Builder) newLabel(prefix string) string {
	b.labelSeq++
	return fmt.Sprintf("%s.%d", prefix, b.labelSeq)
}

func (b *Builder) buildBlock(blk *frontend.Block) {
	for _, st := range blk.Stmts {
		if b.block.Term != nil {
			break // unreachable code after a terminator (return/break/continue)
		}
		b.buildStmt(st)
	}
}

func (b *Builder) buildStmt(st frontend.Stmt) {
	switch v := st.(type) {
	case *frontend.Block:
		b.buildBlock(v)
	case *frontend.ExprStmt:
		b.emitExpr(v.X)
	case *frontend.DeclStmt:
		b.buildDeclStmt(v.Decl)
	case *frontend.If:
		b.buildIf(v)
	case *frontend.While:
		b.buildWhile(v)
	case *frontend.For:
		b.buildFor(v)
	case *frontend.Return:
		b.buildReturn(v)
	case *frontend.Break:
		if len(b.loop) > 0 {
			b.block.Term = Br{Target: b.loop[len(b.loop)-1].breakBlk}
		}
	case *frontend.Continue:
		if len(b.loop) > 0 {
			b.block.Term = Br{Target: b.loop[len(b.loop)-1].continueBlk}
		}
	case *frontend.Switch:
		b.buildSwitch(v)
	}
}

func (b *Builder) buildDeclStmt(vd *frontend.VarDecl) {
	ptrTy := types.Pointer{Target: vd.ResolvedType}
	slot := b.fn.NewTemp(ptrTy)
	b.block.emit(Alloca{Dest: slot, ElemType: vd.ResolvedType})
	b.prov.Set(provenance.TempID(slot), provenance.Origin(provenance.Stack, vd.Sp))
	addr := Temp{ID: slot, Typ: ptrTy}
	b.locals[vd.Name] = localVar{Addr: addr, Type: vd.ResolvedType, Name: vd.Name}
	if vd.Init != nil {
		val := b.emitExpr(vd.Init)
		b.block.emit(Store{Addr: addr, Val: val})
	}
}

func (b *Builder) buildReturn(r *frontend.Return) {
	if r.Value == nil {
		b.block.Term = Ret{}
		return
	}
	v := b.emitExpr(r.Value)
	b.block.Term = Ret{Value: v}
}

func (b *Builder) buildIf(i *frontend.If) {
	cond := b.emitExpr(i.Cond)
	thenBlk := b.fn.NewBlock(b.newLabel("if.then"))
	joinBlk := b.fn.NewBlock(b.newLabel("if.end"))
	elseBlk := joinBlk
	if i.Else != nil {
		elseBlk = b.fn.NewBlock(b.newLabel("if.else"))
	}
	b.block.Term = CondBr{Cond: cond, TrueBlk: thenBlk.ID, FalseBlk: elseBlk.ID}

	b.block = thenBlk
	b.buildStmt(i.Then)
	if b.block.Term == nil {
		b.block.Term = Br{Target: joinBlk.ID}
	}

	if i.Else != nil {
		b.block = elseBlk
		b.buildStmt(i.Else)
		if b.block.Term == nil {
			b.block.Term = Br{Target: joinBlk.ID}
		}
	}

	b.block = joinBlk
}

func (b *Builder) buildWhile(w *frontend.While) {
	condBlk := b.fn.NewBlock(b.newLabel("while.cond"))
	bodyBlk := b.fn.NewBlock(b.newLabel("while.body"))
	endBlk := b.fn.NewBlock(b.newLabel("while.end"))

	b.block.Term = Br{Target: condBlk.ID}

	b.block = condBlk
	cond := b.emitExpr(w.Cond)
	b.block.Term = CondBr{Cond: cond, TrueBlk: bodyBlk.ID, FalseBlk: endBlk.ID}

	b.loop = append(b.loop, loopCtx{breakBlk: endBlk.ID, continueBlk: condBlk.ID})
	b.block = bodyBlk
	b.buildStmt(w.Body)
	if b.block.Term == nil {
		b.block.Term = Br{Target: condBlk.ID}
	}
	b.loop = b.loop[:len(b.loop)-1]

	b.block = endBlk
}

func (b *Builder) buildFor(f *frontend.For) {
	if f.Init != nil {
		b.buildStmt(f.Init)
	}
	condBlk := b.fn.NewBlock(b.newLabel("for.cond"))
	bodyBlk := b.fn.NewBlock(b.newLabel("for.body"))
	postBlk := b.fn.NewBlock(b.newLabel("for.post"))
	endBlk := b.fn.NewBlock(b.newLabel("for.end"))

	b.block.Term = Br{Target: condBlk.ID}

	b.block = condBlk
	if f.Cond != nil {
		cond := b.emitExpr(f.Cond)
		b.block.Term = CondBr{Cond: cond, TrueBlk: bodyBlk.ID, FalseBlk: endBlk.ID}
	} else {
		b.block.Term = Br{Target: bodyBlk.ID}
	}

	b.loop = append(b.loop, loopCtx{breakBlk: endBlk.ID, continueBlk: postBlk.ID})
	b.block = bodyBlk
	b.buildStmt(f.Body)
	if b.block.Term == nil {
		b.block.Term = Br{Target: postBlk.ID}
	}
	b.loop = b.loop[:len(b.loop)-1]

	b.block = postBlk
	if f.Post != nil {
		b.emitExpr(f.Post)
	}
	b.block.Term = Br{Target: condBlk.ID}

	b.block = endBlk
}

// buildSwitch lowers to a chain of Cmp+CondBr, one per case, tested against
// the same tag value — this is the form spec.md §3.2's closed instruction
// set supports, and it is what pkg/optimizer and pkg/diag already know how
// to analyze (no switch-specific Inst/Terminator case needed in either).
//
// SPEC_FULL.md's jump-table density heuristic (caseCount >= 4 &&
// maxCase-minCase <= 4*caseCount) is not implemented on top of this chain:
// pkg/codegen/regalloc.Allocate computes its register plan once, up front,
// over a function's full original block/instruction position sequence, and
// pkg/codegen/vm16.Generator's emission walk (g.pos) is required to visit
// every position that plan was built against, in the same order. Recognizing
// a dense chain and replacing it with an indexed dispatch — skipping the
// interior test blocks' positions entirely — would desynchronize the two
// without a matching change to the allocator's position space, and a
// register-allocation desync is silent: it produces assembly that reads as
// plausible but reuses a register still live across the jump. Given no
// toolchain is available this session to catch that class of bug by
// execution, the chain form is kept uniformly; see DESIGN.md's pkg/ir entry.
func (b *Builder) buildSwitch(sw *frontend.Switch) {
	tag := b.emitExpr(sw.Tag)
	endBlk := b.fn.NewBlock(b.newLabel("switch.end"))

	var defaultBody []frontend.Stmt
	nextTest := b.block
	for _, cs := range sw.Cases {
		if len(cs.Values) == 0 {
			defaultBody = cs.Body
			continue
		}
		testBlk := nextTest
		bodyBlk := b.fn.NewBlock(b.newLabel("switch.case"))
		nextTest = b.fn.NewBlock(b.newLabel("switch.test"))

		b.block = testBlk
		eq := b.fn.NewTemp(types.Bool)
		b.block.emit(Cmp{Dest: eq, Op: CmpEq, L: tag, R: ConstInt{Val: cs.Values[0], Typ: tag.Type()}})
		b.block.Term = CondBr{Cond: Temp{ID: eq, Typ: types.Bool}, TrueBlk: bodyBlk.ID, FalseBlk: nextTest.ID}

		b.block = bodyBlk
		for _, s := range cs.Body {
			b.buildStmt(s)
		}
		if b.block.Term == nil {
			b.block.Term = Br{Target: endBlk.ID}
		}
	}

	b.block = nextTest
	for _, s := range defaultBody {
		b.buildStmt(s)
	}
	if b.block.Term == nil {
		b.block.Term = Br{Target: endBlk.ID}
	}

	b.block = endBlk
}

// emitExpr lowers e and returns its r-value.
func (b *Builder) emitExpr(e frontend.Expr) Value {
	switch v := e.(type) {
	case *frontend.IntLit:
		return ConstInt{Val: v.Value, Typ: v.ExprType()}
	case *frontend.StringLit:
		label := b.module.Strings.Intern(v.Value)
		return StringAddr{Label: label, Typ: v.ExprType()}
	case *frontend.Ident:
		return b.emitIdentLoad(v)
	case *frontend.AddrOf:
		addr, _ := b.emitAddr(v.X)
		return addr
	case *frontend.Deref:
		ptr := b.emitExpr(v.X)
		return b.emitLoadThrough(ptr, v.ExprType(), v.Sp)
	case *frontend.Index:
		addr := b.emitIndexAddr(v)
		return b.emitLoadThrough(addr, v.ExprType(), v.Sp)
	case *frontend.Field:
		addr := b.emitFieldAddr(v)
		return b.emitLoadThrough(addr, v.ExprType(), v.Sp)
	case *frontend.BinaryOp:
		return b.emitBinary(v)
	case *frontend.LogicalOp:
		return b.emitLogical(v)
	case *frontend.UnaryOp:
		return b.emitUnary(v)
	case *frontend.Assign:
		return b.emitAssign(v)
	case *frontend.Call:
		return b.emitCall(v)
	case *frontend.Cast:
		return b.emitCast(v)
	}
	panic(fmt.Sprintf("ir: unhandled expression %T", e))
}

func (b *Builder) emitIdentLoad(id *frontend.Ident) Value {
	if lv, ok := b.locals[id.Name]; ok {
		dest := b.fn.NewTemp(lv.Type)
		b.block.emit(Load{Dest: dest, Addr: lv.Addr, Typ: lv.Type})
		if _, isPtr := lv.Type.(types.Pointer); isPtr {
			b.assignLoadedPointerProvenance(dest, lv, id.Sp)
		}
		return Temp{ID: dest, Typ: lv.Type}
	}
	if g, ok := b.globals[id.Name]; ok {
		addr := GlobalAddr{Name: g.Name, Typ: types.Pointer{Target: g.Type}}
		dest := b.fn.NewTemp(g.Type)
		b.block.emit(Load{Dest: dest, Addr: addr, Typ: g.Type})
		if _, isPtr := g.Type.(types.Pointer); isPtr {
			b.prov.Set(provenance.TempID(dest), provenance.Origin(provenance.Unknown, id.Sp))
		}
		return Temp{ID: dest, Typ: g.Type}
	}
	// Checker already reported this as undeclared; emit a dummy constant
	// so lowering can continue for the rest of the function.
	return ConstInt{Val: 0, Typ: id.ExprType()}
}

// assignLoadedPointerProvenance implements spec.md §3.3's default for
// "pointers loaded from memory": Unknown, unless this is a parameter and
// --assume-pointer-params names a region (SUPPLEMENTED FEATURES), in
// which case the override applies once and a warning is recorded the
// first time it fires for this parameter in this function.
func (b *Builder) assignLoadedPointerProvenance(dest TempID, lv localVar, span source.Span) {
	if lv.IsParam && b.AssumeParamRegion != nil {
		applied := b.prov.AssumeParam(provenance.TempID(dest), *b.AssumeParamRegion, span)
		if applied && !b.warnedParams[lv.Name] {
			b.warnedParams[lv.Name] = true
			b.diags.Warnf(diag.CodeAssumePointerParam, span,
				"parameter %q provenance assumed %s via --assume-pointer-params", lv.Name, *b.AssumeParamRegion)
		}
		return
	}
	b.prov.Set(provenance.TempID(dest), provenance.Origin(provenance.Unknown, span))
}

// emitLoadThrough loads typ from address ptr, diagnosing (rather than
// silently defaulting) when ptr's provenance is Unknown or Mixed
// (spec.md §3.3, §4.3).
func (b *Builder) emitLoadThrough(ptr Value, typ types.Type, span source.Span) Value {
	b.checkDerefProvenance(ptr, span)
	dest := b.fn.NewTemp(typ)
	b.block.emit(Load{Dest: dest, Addr: ptr, Typ: typ})
	if _, isPtr := typ.(types.Pointer); isPtr {
		b.prov.Set(provenance.TempID(dest), provenance.Origin(provenance.Unknown, span))
	}
	return Temp{ID: dest, Typ: typ}
}

func (b *Builder) checkDerefProvenance(ptr Value, span source.Span) {
	p := b.resolveProvenance(ptr)
	switch p.Region {
	case provenance.Mixed:
		d := diag.Diagnostic{Severity: diag.Error, Code: diag.CodeDerefMixed, Message: "dereference of pointer with conflicting (mixed) provenance", PrimarySpan: span}
		for _, origin := range p.OriginSpans {
			d.Notes = append(d.Notes, diag.Note2{Span: origin, Text: "region established here"})
		}
		b.diags.Add(d)
	case provenance.Unknown:
		d := diag.Diagnostic{Severity: diag.Error, Code: diag.CodeDerefUnknown, Message: "dereference of pointer with unknown provenance", PrimarySpan: span}
		for _, origin := range p.OriginSpans {
			d.Notes = append(d.Notes, diag.Note2{Span: origin, Text: "pointer introduced here"})
		}
		b.diags.Add(d)
	}
}

func (b *Builder) resolveProvenance(v Value) provenance.Provenance {
	switch val := v.(type) {
	case Temp:
		if p, ok := b.prov.Lookup(provenance.TempID(val.ID)); ok {
			return p
		}
		return provenance.Provenance{Region: provenance.Unknown}
	case GlobalAddr, StringAddr:
		return provenance.Provenance{Region: provenance.Global}
	default:
		return provenance.Provenance{Region: provenance.Unknown}
	}
}

// emitAddr returns the address of an l-value expression, i.e. a pointer
// Value suitable as a GEP/Load/Store base — never materialized through a
// Load itself.
func (b *Builder) emitAddr(e frontend.Expr) (Value, bool) {
	switch v := e.(type) {
	case *frontend.Ident:
		if lv, ok := b.locals[v.Name]; ok {
			return lv.Addr, true
		}
		if g, ok := b.globals[v.Name]; ok {
			return GlobalAddr{Name: g.Name, Typ: types.Pointer{Target: g.Type}}, true
		}
		return ConstInt{Val: 0, Typ: types.Pointer{Target: v.ExprType()}}, false
	case *frontend.Deref:
		return b.emitExpr(v.X), true
	case *frontend.Index:
		return b.emitIndexAddr(v), true
	case *frontend.Field:
		return b.emitFieldAddr(v), true
	}
	return ConstInt{Val: 0, Typ: types.Pointer{Target: e.ExprType()}}, false
}

func (b *Builder) emitIndexAddr(idx *frontend.Index) Value {
	baseAddr, _ := b.emitAddr(idx.Base)
	baseTy := idx.Base.ExprType()

	var container types.Type
	var base Value
	if arr, ok := baseTy.(types.Array); ok {
		container = arr
		base = baseAddr
	} else {
		// pointer value being indexed: load the pointer itself, then GEP
		// from it directly (decayed array-to-pointer case included).
		container = baseTy
		base = b.emitExpr(idx.Base)
	}

	idxVal := b.emitExpr(idx.Idx)
	dest := b.fn.NewTemp(types.Pointer{Target: idx.ExprType()})
	b.block.emit(GEP{
		Dest:          dest,
		Base:          base,
		ContainerType: container,
		Steps:         []GEPStep{{Kind: GEPElement, Index: idxVal}},
		ResultType:    idx.ExprType(),
	})
	b.propagateGEPProvenance(dest, base, idx.Sp)
	return Temp{ID: dest, Typ: types.Pointer{Target: idx.ExprType()}}
}

func (b *Builder) emitFieldAddr(f *frontend.Field) Value {
	var base Value
	var st *types.Struct
	if f.Arrow {
		base = b.emitExpr(f.Base)
		if p, ok := f.Base.ExprType().(types.Pointer); ok {
			st, _ = p.Target.(*types.Struct)
		}
	} else {
		base, _ = b.emitAddr(f.Base)
		st, _ = f.Base.ExprType().(*types.Struct)
	}
	fieldNum := 0
	if st != nil {
		for i, field := range st.Fields {
			if field.Name == f.Name {
				fieldNum = i
				break
			}
		}
	}
	dest := b.fn.NewTemp(types.Pointer{Target: f.ExprType()})
	b.block.emit(GEP{
		Dest:          dest,
		Base:          base,
		ContainerType: st,
		Steps:         []GEPStep{{Kind: GEPField, Field: fieldNum}},
		ResultType:    f.ExprType(),
	})
	b.propagateGEPProvenance(dest, base, f.Sp)
	return Temp{ID: dest, Typ: types.Pointer{Target: f.ExprType()}}
}

// propagateGEPProvenance implements "GEP ... → same region as base"
// (spec.md §3.3).
func (b *Builder) propagateGEPProvenance(dest TempID, base Value, span source.Span) {
	baseP := b.resolveProvenance(base)
	b.prov.Set(provenance.TempID(dest), provenance.Provenance{Region: baseP.Region, OriginSpans: append(append([]source.Span{}, baseP.OriginSpans...), span)})
}

func (b *Builder) emitAssign(a *frontend.Assign) Value {
	val := b.emitExpr(a.Value)
	addr, ok := b.emitAddr(a.Target)
	if !ok {
		return val
	}
	b.checkDerefProvenance(addr, a.Sp)
	b.block.emit(Store{Addr: addr, Val: val})
	return val
}

func binOpKindOf(op string) (BinOpKind, bool) {
	switch op {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return OpDiv, true
	case "%":
		return OpMod, true
	case "&":
		return OpAnd, true
	case "|":
		return OpOr, true
	case "^":
		return OpXor, true
	case "<<":
		return OpShl, true
	case ">>":
		return OpShr, true
	}
	return 0, false
}

func cmpKindOf(op string) (CmpKind, bool) {
	switch op {
	case "==":
		return CmpEq, true
	case "!=":
		return CmpNe, true
	case "<":
		return CmpLt, true
	case "<=":
		return CmpLe, true
	case ">":
		return CmpGt, true
	case ">=":
		return CmpGe, true
	}
	return 0, false
}

func (b *Builder) emitBinary(bo *frontend.BinaryOp) Value {
	l := b.emitExpr(bo.Left)
	r := b.emitExpr(bo.Right)

	_, lPtr := l.Type().(types.Pointer)
	_, rPtr := r.Type().(types.Pointer)

	if lPtr && rPtr && bo.Op == "-" {
		dest := b.fn.NewTemp(types.Int)
		b.block.emit(PtrSub{Dest: dest, A: l, B: r})
		return Temp{ID: dest, Typ: types.Int}
	}
	if lPtr && (bo.Op == "+" || bo.Op == "-") {
		offset := r
		if bo.Op == "-" {
			neg := b.fn.NewTemp(types.Int)
			b.block.emit(BinOp{Dest: neg, Op: OpSub, L: ConstInt{Val: 0, Typ: types.Int}, R: r, Typ: types.Int})
			offset = Temp{ID: neg, Typ: types.Int}
		}
		dest := b.fn.NewTemp(l.Type())
		b.block.emit(PtrAdd{Dest: dest, Ptr: l, Offset: offset, Typ: l.Type()})
		b.propagateGEPProvenance(dest, l, bo.Sp)
		return Temp{ID: dest, Typ: l.Type()}
	}

	if cmpKind, ok := cmpKindOf(bo.Op); ok {
		dest := b.fn.NewTemp(types.Bool)
		if lPtr || rPtr {
			b.block.emit(PtrCmp{Dest: dest, Op: cmpKind, L: l, R: r})
		} else {
			b.block.emit(Cmp{Dest: dest, Op: cmpKind, L: l, R: r})
		}
		return Temp{ID: dest, Typ: types.Bool}
	}

	kind, _ := binOpKindOf(bo.Op)
	typ := bo.ExprType()
	dest := b.fn.NewTemp(typ)
	b.block.emit(BinOp{Dest: dest, Op: kind, L: l, R: r, Typ: typ})
	return Temp{ID: dest, Typ: typ}
}

// emitLogical lowers && and || to CFG with a Phi of i1 (spec.md §4.2).
func (b *Builder) emitLogical(lo *frontend.LogicalOp) Value {
	lhsVal := b.emitExpr(lo.Left)
	lhsBlk := b.block

	rhsBlk := b.fn.NewBlock(b.newLabel("logic.rhs"))
	joinBlk := b.fn.NewBlock(b.newLabel("logic.end"))

	if lo.Op == "&&" {
		b.block.Term = CondBr{Cond: lhsVal, TrueBlk: rhsBlk.ID, FalseBlk: joinBlk.ID}
	} else {
		b.block.Term = CondBr{Cond: lhsVal, TrueBlk: joinBlk.ID, FalseBlk: rhsBlk.ID}
	}

	b.block = rhsBlk
	rhsVal := b.emitExpr(lo.Right)
	rhsEndBlk := b.block
	rhsEndBlk.Term = Br{Target: joinBlk.ID}

	b.block = joinBlk
	dest := b.fn.NewTemp(types.Bool)
	b.block.emit(Phi{Dest: dest, Typ: types.Bool, Incoming: []PhiEdge{
		{Block: lhsBlk.ID, Val: ConstInt{Val: shortCircuitValue(lo.Op), Typ: types.Bool}},
		{Block: rhsEndBlk.ID, Val: rhsVal},
	}})
	return Temp{ID: dest, Typ: types.Bool}
}

func shortCircuitValue(op string) int64 {
	if op == "&&" {
		return 0
	}
	return 1
}

func (b *Builder) emitUnary(u *frontend.UnaryOp) Value {
	switch u.Op {
	case "-":
		x := b.emitExpr(u.X)
		dest := b.fn.NewTemp(x.Type())
		b.block.emit(BinOp{Dest: dest, Op: OpSub, L: ConstInt{Val: 0, Typ: x.Type()}, R: x, Typ: x.Type()})
		return Temp{ID: dest, Typ: x.Type()}
	case "!":
		x := b.emitExpr(u.X)
		dest := b.fn.NewTemp(types.Bool)
		b.block.emit(Cmp{Dest: dest, Op: CmpEq, L: x, R: ConstInt{Val: 0, Typ: x.Type()}})
		return Temp{ID: dest, Typ: types.Bool}
	case "~":
		x := b.emitExpr(u.X)
		dest := b.fn.NewTemp(x.Type())
		b.block.emit(BinOp{Dest: dest, Op: OpXor, L: x, R: ConstInt{Val: -1, Typ: x.Type()}, Typ: x.Type()})
		return Temp{ID: dest, Typ: x.Type()}
	case "++", "--":
		return b.emitIncDec(u)
	}
	panic("ir: unhandled unary operator " + u.Op)
}

func (b *Builder) emitIncDec(u *frontend.UnaryOp) Value {
	addr, _ := b.emitAddr(u.X)
	old := b.emitExpr(u.X)
	delta := int64(1)
	if u.Op == "--" {
		delta = -1
	}
	var updated Value
	if _, isPtr := old.Type().(types.Pointer); isPtr {
		dest := b.fn.NewTemp(old.Type())
		b.block.emit(PtrAdd{Dest: dest, Ptr: old, Offset: ConstInt{Val: delta, Typ: types.Int}, Typ: old.Type()})
		b.propagateGEPProvenance(dest, old, u.Sp)
		updated = Temp{ID: dest, Typ: old.Type()}
	} else {
		dest := b.fn.NewTemp(old.Type())
		b.block.emit(BinOp{Dest: dest, Op: OpAdd, L: old, R: ConstInt{Val: delta, Typ: old.Type()}, Typ: old.Type()})
		updated = Temp{ID: dest, Typ: old.Type()}
	}
	b.block.emit(Store{Addr: addr, Val: updated})
	if u.Postfix {
		return old
	}
	return updated
}

func (b *Builder) emitCall(c *frontend.Call) Value {
	b.fn.IsLeaf = false
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		args[i] = b.emitExpr(a)
	}
	retTy := c.ExprType()
	if _, void := retTy.(types.Void); void {
		b.block.emit(Call{Target: c.Callee, Args: args})
		return ConstInt{Val: 0, Typ: types.Void{}}
	}
	dest := b.fn.NewTemp(retTy)
	destPtr := dest
	b.block.emit(Call{Dest: &destPtr, Target: c.Callee, Args: args, Typ: retTy})
	if _, isPtr := retTy.(types.Pointer); isPtr {
		b.prov.Set(provenance.TempID(dest), provenance.Origin(provenance.Unknown, c.Sp))
	}
	return Temp{ID: dest, Typ: retTy}
}

func (b *Builder) emitCast(c *frontend.Cast) Value {
	x := b.emitExpr(c.X)
	targetTy := c.ExprType()
	_, xPtr := x.Type().(types.Pointer)
	_, tPtr := targetTy.(types.Pointer)

	var kind CastKind
	switch {
	case xPtr && tPtr:
		kind = CastPtrToPtr
	case xPtr && !tPtr:
		kind = CastPtrToInt
	case !xPtr && tPtr:
		kind = CastIntToPtr
	default:
		kind = CastIntToInt
	}
	dest := b.fn.NewTemp(targetTy)
	b.block.emit(Cast{Dest: dest, Kind: kind, Src: x, Typ: targetTy})
	if kind == CastPtrToPtr {
		b.propagateGEPProvenance(dest, x, c.Sp)
	} else if kind == CastIntToPtr {
		b.prov.Set(provenance.TempID(dest), provenance.Origin(provenance.Unknown, c.Sp))
	}
	return Temp{ID: dest, Typ: targetTy}
}

// Provenance returns the provenance table built for the most recently
// lowered function — used by the driver's --trace dump for the function
// currently being traced.
func (b *Builder) Provenance() *provenance.Table { return b.prov }

// ProvenanceByFunction returns every function's provenance table, keyed
// by function name. Each buildFunction call gets its own fresh Table
// (spec.md §5: "no shared mutable compiler state crosses translation-
// unit boundaries" — the same discipline applies one level down, across
// function boundaries within one unit), so the per-function table must
// be captured here before the next buildFunction call starts and
// discards b.prov. The code generator needs all of them at once, not
// just the last one lowered.
func (b *Builder) ProvenanceByFunction() map[string]*provenance.Table { return b.provByFunc }
