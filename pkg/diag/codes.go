package diag

// Stable diagnostic codes referenced by both the IR builder and the code
// generator so a single taxonomy survives across phases (spec.md §7).
const (
	CodeUndeclaredIdent   = "E0101"
	CodeIncompatibleTypes = "E0102"
	CodeInvalidOperands   = "E0103"
	CodeIncompleteType    = "E0104"
	CodeRecursiveStruct   = "E0105"
	CodeNotAnLValue       = "E0106"
	CodeInvalidCast       = "E0107"

	CodeDerefMixed   = "E0201"
	CodeDerefUnknown = "E0202"
	CodeBankOverflow = "E0203"
	CodePtrDiffTypes = "E0204"

	CodeAssumePointerParam = "W0301" // warning: --assume-pointer-params used

	CodeSpillPinned   = "F0401" // fatal: attempted to spill a pinned register
	CodeSretMismatch  = "E0402"
	CodeNoRegion      = "F0403" // fatal: load/store through a pointer with no provenance entry
	CodeMisalignedCall = "E0404"
	CodeUnsupportedWideOp = "E0405" // 32-bit modulo/shift: no soft-call ABI defined (spec.md §4.7 names only mul32/div32/udiv32)

	CodeParseError    = "E0001" // syntax error, reported by pkg/frontend.Parser
	CodeSemanticError = "E0002" // type/scope error, reported by pkg/frontend.Checker
)
