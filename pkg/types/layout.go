package types

import "fmt"

// SizeCells returns the size of T in cells (spec.md §3.1 / §4.1). A fat
// pointer (Pointer) occupies two cells: address and bank.
func SizeCells(t Type) int {
	switch v := t.(type) {
	case Void:
		return 0
	case Integer:
		if v.Width <= CellBits {
			return 1
		}
		return v.Width / CellBits
	case Pointer:
		return 2 // address + bank, spec.md §3.1 "fat pointer value occupies 2 cells"
	case Array:
		return SizeCells(v.Element) * v.Length
	case *Struct:
		if !v.complete {
			panic(&IncompleteTypeError{Name: v.Name, Use: "size_in_cells"})
		}
		return v.sizeCells
	case Function:
		return 0 // functions are not sized as values; only pointers to them are
	case TypeName:
		panic(fmt.Sprintf("SizeCells: unresolved typedef %q reached layout", v.Name))
	default:
		panic(fmt.Sprintf("SizeCells: unhandled type %T", t))
	}
}

// AlignCells is always 1 in this target: every type aligns to a whole cell,
// there is no sub-cell or over-cell alignment requirement (spec.md §4.1).
func AlignCells(Type) int { return 1 }

// FieldOffset returns the cell offset of a named field within a completed
// struct. Panics if the struct is not yet completed or the field does not
// exist — both are invariant violations the type checker (external) must
// have already ruled out by the time IR construction calls this.
func FieldOffset(s *Struct, name string) int {
	if !s.complete {
		panic(&IncompleteTypeError{Name: s.Name, Use: "field_offset"})
	}
	for i, f := range s.Fields {
		if f.Name == name {
			return s.offsets[i]
		}
	}
	panic(fmt.Sprintf("FieldOffset: struct %q has no field %q", s.Name, name))
}

// FieldType returns the type of a named field, or (nil, false).
func FieldType(s *Struct, name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Complete finalizes a struct's layout: computes and caches field offsets
// and total size, in declaration order, with no padding beyond cell
// alignment (spec.md §3.1). Every field must already be a complete type;
// a field whose type is the struct itself (by value) is rejected as
// IncompleteType — only pointers to the struct may be self-referential
// (spec.md §4.1: "Self-referential via pointers is allowed; by-value
// recursion fails with IncompleteType").
//
// Struct registration is two-pass: DeclareStruct(name) creates an incomplete
// placeholder so mutually-referencing pointer fields can resolve before
// either struct is completed, then Complete fills in the layout.
func (s *Struct) Complete() error {
	if s.complete {
		return nil
	}
	offsets := make([]int, len(s.Fields))
	seen := make(map[string]bool, len(s.Fields))
	total := 0
	for i, f := range s.Fields {
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q in struct %q", f.Name, s.Name)
		}
		seen[f.Name] = true

		if inner, ok := f.Type.(*Struct); ok && inner == s {
			return &IncompleteTypeError{Name: s.Name, Use: "by-value field (self-reference)"}
		}
		if inner, ok := f.Type.(*Struct); ok && !inner.complete {
			return &IncompleteTypeError{Name: inner.Name, Use: fmt.Sprintf("field %q of struct %q", f.Name, s.Name)}
		}

		offsets[i] = total
		total += SizeCells(f.Type)
	}
	s.offsets = offsets
	s.sizeCells = total
	s.complete = true
	return nil
}

// IsComplete reports whether Complete has run successfully.
func (s *Struct) IsComplete() bool { return s.complete }

// Registry resolves typedef names to types and owns named struct
// declarations so that forward references between structs (through
// pointer fields) can be registered before either is completed.
type Registry struct {
	typedefs map[string]Type
	structs  map[string]*Struct
}

// NewRegistry creates an empty typedef/struct registry, one per
// translation unit (spec.md §5: no shared mutable state across TUs).
func NewRegistry() *Registry {
	return &Registry{
		typedefs: make(map[string]Type),
		structs:  make(map[string]*Struct),
	}
}

// Typedef records name as an alias for underlying.
func (r *Registry) Typedef(name string, underlying Type) {
	r.typedefs[name] = underlying
}

// DeclareStruct registers an incomplete struct by name, returning the
// shared placeholder that forward pointer references resolve to. Calling
// it twice for the same name returns the same placeholder.
func (r *Registry) DeclareStruct(name string) *Struct {
	if s, ok := r.structs[name]; ok {
		return s
	}
	s := &Struct{Name: name}
	r.structs[name] = s
	return s
}

// LookupStruct returns a previously declared struct by name.
func (r *Registry) LookupStruct(name string) (*Struct, bool) {
	s, ok := r.structs[name]
	return s, ok
}

// ResolveTypedef fully expands a typedef chain, erroring on a cycle. Every
// expression's type must have passed through this (or never needed to)
// before IR construction (spec.md §3.1 invariant).
func (r *Registry) ResolveTypedef(t Type) (Type, error) {
	seen := make(map[string]bool)
	for {
		name, ok := t.(TypeName)
		if !ok {
			return t, nil
		}
		if seen[name.Name] {
			return nil, fmt.Errorf("cyclic typedef chain at %q", name.Name)
		}
		seen[name.Name] = true
		next, ok := r.typedefs[name.Name]
		if !ok {
			return nil, fmt.Errorf("undefined typedef %q", name.Name)
		}
		t = next
	}
}

// IntegerPromote implements C's integer promotion: anything narrower than
// int promotes to (signed) int; int and wider are unchanged.
func IntegerPromote(t Type) Type {
	i, ok := t.(Integer)
	if !ok {
		return t
	}
	if i.Width < Int.Width {
		return Int
	}
	return i
}

// PointerDecay converts an array type to a pointer to its element, the
// conversion applied whenever an array is used as an r-value (function
// argument, assignment source, operand of arithmetic).
func PointerDecay(t Type) Type {
	if a, ok := t.(Array); ok {
		return Pointer{Target: a.Element}
	}
	return t
}

// IsAssignable reports whether a value of type from may be assigned to a
// storage location of type to without an explicit cast. Integer widths may
// narrow or widen freely (C allows implicit conversion among arithmetic
// types); pointer types must match target types exactly, except that a
// pointer to any type may be assigned from/to `void*`.
func IsAssignable(from, to Type) bool {
	if typesEqual(from, to) {
		return true
	}
	if _, ok := from.(Integer); ok {
		if _, ok := to.(Integer); ok {
			return true
		}
	}
	fp, fok := from.(Pointer)
	tp, tok := to.(Pointer)
	if fok && tok {
		if _, void := fp.Target.(Void); void {
			return true
		}
		if _, void := tp.Target.(Void); void {
			return true
		}
		return typesEqual(fp.Target, tp.Target)
	}
	return false
}

func typesEqual(a, b Type) bool {
	switch av := a.(type) {
	case Void:
		_, ok := b.(Void)
		return ok
	case Integer:
		bv, ok := b.(Integer)
		return ok && av == bv
	case Pointer:
		bv, ok := b.(Pointer)
		return ok && typesEqual(av.Target, bv.Target)
	case Array:
		bv, ok := b.(Array)
		return ok && av.Length == bv.Length && typesEqual(av.Element, bv.Element)
	case *Struct:
		bv, ok := b.(*Struct)
		return ok && av == bv
	case Function:
		bv, ok := b.(Function)
		if !ok || len(av.Params) != len(bv.Params) || !typesEqual(av.Return, bv.Return) {
			return false
		}
		for i := range av.Params {
			if !typesEqual(av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
