// Package driver is the single orchestration point that wires
// pkg/frontend, pkg/ir, pkg/optimizer, and pkg/codegen/vm16 into the
// pipeline spec.md §6 exposes as `rcc compile`. Design follows the
// teacher's cmd/typthon/main.go compileProgram: one function walking the
// phases in order, logger.LogPhase/LogPhaseComplete bracketing each,
// returning on the first hard failure rather than pressing on with a
// broken intermediate result.
package driver

import "github.com/rcc-project/rcc/pkg/provenance"

// Config is the flattened form of every flag spec.md §6 names for
// `rcc compile`. No package-level state backs any of these — cmd/rcc
// parses flags into a Config and hands it to Compile, so Compile itself
// stays a pure function of (source, Config) to (assembly, diagnostics).
type Config struct {
	// InputPath is the translation unit to compile. Required.
	InputPath string
	// OutputPath is where the generated assembly is written ("-o"). Empty
	// means "derive from InputPath by replacing its extension with .s".
	OutputPath string

	// OptLevel is 0 (no optimization) or 1 (constant folding, dead-code
	// elimination, peephole strength reduction) per spec.md §5 — "-O0"/"-O1".
	OptLevel int
	// Debug prefixes the emitted assembly with a "; source: <input>" banner
	// line ("-g"); no per-instruction source annotations are emitted.
	Debug bool
	// Trace requests the five self-describing pipeline-stage artifacts
	// spec.md §6 names (<stem>.tokens/.ast/.sem/.tast/.ir), written
	// alongside OutputPath ("--trace").
	Trace bool

	// IncludeDirs are additional search directories for `#include` ("-I
	// dir", repeatable). This frontend's reduced grammar has no
	// preprocessor (see DESIGN.md's pkg/driver entry), so these are
	// accepted and recorded for CLI-surface fidelity but otherwise unused.
	IncludeDirs []string
	// Defines are preprocessor-style name/value pairs ("-D name[=value]",
	// repeatable). A bare "-D FOO" maps to Defines["FOO"] == "". Unused for
	// the same reason as IncludeDirs.
	Defines map[string]string
	// IncludeFiles are files force-included before the translation unit
	// ("--include file", repeatable). Unused for the same reason.
	IncludeFiles []string

	// StackBank and StackBase ("--stack-bank N", "--stack-base ADDR") are
	// passed through to the output as .stack_bank/.stack_base directives by
	// applyStackDirectives, only when given (zero means not given). The
	// code generator itself does not read them.
	StackBank int
	StackBase int
	// HasStackBank/HasStackBase distinguish "flag not given" from
	// "--stack-bank 0" / "--stack-base 0", both legal values.
	HasStackBank bool
	HasStackBase bool

	// AssumePointerParams implements "--assume-pointer-params=global|stack":
	// every pointer-typed function parameter is seeded with this
	// provenance region instead of Unknown. Nil means the flag was not
	// given, so parameters get no seeded region.
	AssumePointerParams *provenance.RegionTag
}

// OutputStem returns OutputPath with its extension removed, the basename
// trace artifact files are built from (<stem>.tokens, <stem>.ast, ...).
func (c Config) OutputStem() string {
	out := c.OutputPath
	for i := len(out) - 1; i >= 0 && out[i] != '/'; i-- {
		if out[i] == '.' {
			return out[:i]
		}
	}
	return out
}
