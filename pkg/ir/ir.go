// Package ir implements the typed, SSA-form intermediate representation:
// explicit control flow over basic blocks, GEP as the sole address-
// computation instruction, and a provenance entry for every pointer-typed
// temp.
//
// Design: sum types via tagged interfaces (Inst, Terminator, Value), dense
// integer handles (TempID, BlockID, FunctionID) into arena-style tables
// rather than pointer-heavy node graphs — same shape as the teacher's
// three-address-code IR (pkg/ir/ir.go), generalized from its dynamic
// Type union to pkg/types.Type and from its class/closure instruction set
// to this target's memory/pointer instruction set.
package ir

import "github.com/rcc-project/rcc/pkg/types"

// TempID identifies an SSA temp within one function. Matches
// provenance.TempID's underlying representation so the two packages agree
// without importing each other.
type TempID uint32

// BlockID identifies a basic block within one function.
type BlockID uint32

// FunctionID identifies a function within a module.
type FunctionID uint32

// Module owns every function, global, and the interned string-literal
// pool of one translation unit (spec.md §3.2, §3.5).
type Module struct {
	Functions []*Function
	Globals   []*Global
	Strings   *StringPool
}

// Global is a file-scope variable, partitioned by spec.md §3.5 into
// read-only (ReadOnly), initialized writable (.data), or zero-initialized
// (.bss, when Init is nil and ReadOnly is false).
type Global struct {
	Name     string
	Type     types.Type
	Init     []int64 // flattened cell-wise initializer; nil means zero-init
	ReadOnly bool
}

// StringPool interns string literals: equal literals share one label
// (spec.md §6 "String literal pooling: equal literals share one label").
type StringPool struct {
	labels  map[string]string
	order   []string
	nextID  int
}

func NewStringPool() *StringPool {
	return &StringPool{labels: make(map[string]string)}
}

// Intern returns the label for s, creating one if this is the first time s
// has been seen.
func (p *StringPool) Intern(s string) string {
	if label, ok := p.labels[s]; ok {
		return label
	}
	label := stringLabel(p.nextID)
	p.nextID++
	p.labels[s] = label
	p.order = append(p.order, s)
	return label
}

// Entries returns (label, value) pairs in first-interned order, the
// deterministic order spec.md §3.5 requires for the layout.
func (p *StringPool) Entries() []StringEntry {
	out := make([]StringEntry, 0, len(p.order))
	for _, s := range p.order {
		out = append(out, StringEntry{Label: p.labels[s], Value: s})
	}
	return out
}

type StringEntry struct {
	Label string
	Value string
}

func stringLabel(id int) string {
	const digits = "0123456789"
	if id == 0 {
		return ".L.str.0"
	}
	buf := make([]byte, 0, 4)
	for id > 0 {
		buf = append([]byte{digits[id%10]}, buf...)
		id /= 10
	}
	return ".L.str." + string(buf)
}

// Param is one function parameter: a name (for the builder's symbol
// table) and the temp id that holds its value at function entry.
type Param struct {
	Name string
	Temp TempID
	Type types.Type
}

// Function is one compiled function: its signature, its basic blocks in
// layout order (the first is the entry block), and the dense type table
// for every temp it defines.
type Function struct {
	Name       string
	Params     []Param
	ReturnType types.Type
	Blocks     []*BasicBlock
	TempTypes  map[TempID]types.Type
	IsLeaf     bool // no Call instruction anywhere in the body
	nextTemp   TempID
	nextBlock  BlockID
}

func NewFunction(name string, ret types.Type) *Function {
	return &Function{Name: name, ReturnType: ret, TempTypes: make(map[TempID]types.Type), IsLeaf: true}
}

// NewTemp allocates a fresh temp id of the given type.
func (f *Function) NewTemp(t types.Type) TempID {
	id := f.nextTemp
	f.nextTemp++
	f.TempTypes[id] = t
	return id
}

// NewBlock appends and returns a fresh basic block.
func (f *Function) NewBlock(label string) *BasicBlock {
	b := &BasicBlock{ID: f.nextBlock, Label: label}
	f.nextBlock++
	f.Blocks = append(f.Blocks, b)
	return b
}

// BasicBlock is a straight-line instruction sequence ending in exactly one
// terminator.
type BasicBlock struct {
	ID   BlockID
	Label string
	Insts []Inst
	Term  Terminator
}

func (b *BasicBlock) emit(i Inst) { b.Insts = append(b.Insts, i) }

// Value is an IR operand: a Temp reference or a compile-time constant.
type Value interface {
	value()
	Type() types.Type
}

// Temp references a previously defined SSA temp.
type Temp struct {
	ID  TempID
	Typ types.Type
}

func (Temp) value()            {}
func (t Temp) Type() types.Type { return t.Typ }

// ConstInt is an integer (or pointer-sized) compile-time constant.
type ConstInt struct {
	Val int64
	Typ types.Type
}

func (ConstInt) value()            {}
func (c ConstInt) Type() types.Type { return c.Typ }

// GlobalAddr is the address of a module-level Global, used as a GEP/Alloca
// base. Its provenance is always Global (spec.md §3.3).
type GlobalAddr struct {
	Name string
	Typ  types.Type // pointer-to-global's-element-type
}

func (GlobalAddr) value()            {}
func (g GlobalAddr) Type() types.Type { return g.Typ }

// StringAddr is the address of a pooled string literal, also Global
// provenance.
type StringAddr struct {
	Label string
	Typ   types.Type
}

func (StringAddr) value()            {}
func (s StringAddr) Type() types.Type { return s.Typ }

// Inst is an IR instruction (non-terminating).
type Inst interface{ inst() }

// Alloca allocates one object of ElemType in the current frame. Result
// region is always Stack.
type Alloca struct {
	Dest     TempID
	ElemType types.Type
}

func (Alloca) inst() {}

// Load reads Typ from the address Addr.
type Load struct {
	Dest TempID
	Addr Value
	Typ  types.Type
}

func (Load) inst() {}

// Store writes Val to the address Addr.
type Store struct {
	Addr Value
	Val  Value
}

func (Store) inst() {}

// GEPStepKind distinguishes an array/pointer element step (the offset is
// Index * element_size, computed at lowering time, §4.6) from a struct
// field step (the offset is the field's static cell offset, looked up by
// Field number, never multiplied by anything).
type GEPStepKind int

const (
	GEPElement GEPStepKind = iota
	GEPField
)

// GEPStep is one layer of a GEP walk.
type GEPStep struct {
	Kind  GEPStepKind
	Index Value // meaningful iff Kind == GEPElement
	Field int   // meaningful iff Kind == GEPField: the field's position in the struct
}

// GEP computes an address by walking Steps through ContainerType, LLVM-
// style: each step selects through one array or struct layer. The result
// pointer has the same provenance region as Base (spec.md §3.2, §3.3).
// This is the only instruction that may compute a pointer offset; array
// indexing and struct field access both lower to GEP, never a bare
// integer Add — the invariant that makes bank-overflow handling correct
// in one place only (§4.2).
type GEP struct {
	Dest          TempID
	Base          Value
	ContainerType types.Type // the Array or *Struct type Base points into
	Steps         []GEPStep
	ResultType    types.Type // pointee type of the GEP result
}

func (GEP) inst() {}

// BinOpKind is an integer arithmetic/bitwise operator.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

// BinOp is an integer-only arithmetic or bitwise operation.
type BinOp struct {
	Dest TempID
	Op   BinOpKind
	L, R Value
	Typ  types.Type
}

func (BinOp) inst() {}

// PtrAdd is pointer ± integer, the only integer-pointer mixed op besides
// PtrSub/PtrCmp/Cast/GEP (spec.md §3.2 invariant). The integer operand is
// an element count; scaling by element size happens at lowering (§4.6).
type PtrAdd struct {
	Dest   TempID
	Ptr    Value
	Offset Value // signed; negative for pointer subtraction-by-int
	Typ    types.Type
}

func (PtrAdd) inst() {}

// PtrSub is pointer − pointer on the same element type, producing an
// element count.
type PtrSub struct {
	Dest TempID
	A, B Value
}

func (PtrSub) inst() {}

// CmpKind is a relational operator.
type CmpKind int

const (
	CmpEq CmpKind = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// Cmp is an integer relational comparison, producing an i1 (Bool) result.
type Cmp struct {
	Dest TempID
	Op   CmpKind
	L, R Value
}

func (Cmp) inst() {}

// PtrCmp is a bank-aware pointer relational comparison (spec.md §4.6):
// lowers to a bank-equality check plus an address comparison.
type PtrCmp struct {
	Dest TempID
	Op   CmpKind
	L, R Value
}

func (PtrCmp) inst() {}

// CastKind distinguishes the three cast families the type system allows
// (spec.md §3.2): int↔int (widen/narrow, sign change), int↔ptr, ptr↔ptr.
type CastKind int

const (
	CastIntToInt CastKind = iota
	CastIntToPtr
	CastPtrToInt
	CastPtrToPtr
)

// Cast converts Src to Typ per Kind.
type Cast struct {
	Dest TempID
	Kind CastKind
	Src  Value
	Typ  types.Type
}

func (Cast) inst() {}

// PhiEdge is one incoming value of a Phi, tagged with the predecessor it
// arrives from.
type PhiEdge struct {
	Block BlockID
	Val   Value
}

// Phi joins values from multiple predecessors — the only way two
// different definitions may reach one temp (spec.md §3.2 invariant). Used
// by this builder exclusively for short-circuit &&/|| results (§4.2);
// ordinary mutable locals go through Alloca+Load+Store instead.
type Phi struct {
	Dest     TempID
	Incoming []PhiEdge
	Typ      types.Type
}

func (Phi) inst() {}

// Select is a branchless two-way value join (cond ? a : b lowered without
// control flow). No pass in this compiler produces it; the code generator
// still lowers it.
type Select struct {
	Dest            TempID
	Cond            Value
	IfTrue, IfFalse Value
	Typ             types.Type
}

func (Select) inst() {}

// Call invokes Target with Args. Dest is nil for a void call.
type Call struct {
	Dest   *TempID
	Target string
	Args   []Value
	Typ    types.Type // meaningful only if Dest != nil
}

func (Call) inst() {}

// Terminator ends a basic block.
type Terminator interface{ term() }

// Br is an unconditional jump.
type Br struct {
	Target BlockID
}

func (Br) term() {}

// CondBr is a two-way conditional jump.
type CondBr struct {
	Cond              Value
	TrueBlk, FalseBlk BlockID
}

func (CondBr) term() {}

// Ret returns from the function. Value is nil for a void return.
type Ret struct {
	Value Value
}

func (Ret) term() {}
