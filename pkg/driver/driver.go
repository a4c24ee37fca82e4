package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/rcc-project/rcc/pkg/codegen/vm16"
	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/frontend"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/logger"
	"github.com/rcc-project/rcc/pkg/optimizer"
	"github.com/rcc-project/rcc/pkg/source"
)

// Result is everything Compile produces: the generated assembly and the
// full diagnostic record. Assembly is empty when parse or type-check
// errors, a fatal IR diagnostic or a code generation error stop the
// pipeline; other error diagnostics still leave it filled in. Exit-code selection (spec.md §6: 0 clean, 1
// diagnosed compile error, 2 internal/toolchain failure) is cmd/rcc's job,
// driven off Diagnostics.
type Result struct {
	Assembly    string
	Diagnostics *diag.Collector
}

// Compile runs the full pipeline — lex, parse, type-check, build IR,
// optimize, generate — against one translation unit's source text.
// Mirrors the teacher's cmd/typthon/main.go compileProgram phase
// structure (parse -> IR -> optimize -> codegen), generalized from its
// hardcoded amd64/arm64 dispatch to this target's single vm16 backend and
// from its ssa.Convert step to pkg/optimizer's constant-fold/DCE/peephole
// passes (spec.md §5).
func Compile(src string, cfg Config) (Result, error) {
	diags := diag.NewCollector()

	logger.LogPhase("parsing")
	parser := frontend.NewParser(cfg.InputPath, src)
	prog, err := parser.Parse()
	if err != nil && len(parser.Errors()) == 0 {
		return Result{}, errors.Wrap(err, "internal parser failure")
	}
	for _, msg := range parser.Errors() {
		diags.Errorf(diag.CodeParseError, source.Synthetic(), "%s", msg)
	}
	logger.LogParsing(cfg.InputPath, countDecls(prog))
	logger.LogPhaseComplete("parsing")

	if diags.HasErrors() {
		return Result{Diagnostics: diags}, nil
	}

	logger.LogPhase("type checking")
	checker := frontend.NewChecker()
	checker.Check(prog)
	for _, msg := range checker.Errors() {
		diags.Errorf(diag.CodeSemanticError, source.Synthetic(), "%s", msg)
	}
	logger.LogPhaseComplete("type checking")

	if diags.HasErrors() {
		return Result{Diagnostics: diags}, nil
	}

	logger.LogPhase("IR generation")
	builder := ir.NewBuilder(checker, diags)
	builder.AssumeParamRegion = cfg.AssumePointerParams
	mod := builder.BuildProgram(prog)
	logger.LogIRGeneration(cfg.InputPath, len(mod.Functions))
	logger.LogPhaseComplete("IR generation")

	if cfg.Trace {
		if err := writeTraceArtifacts(cfg, src, prog, checker, mod); err != nil {
			return Result{}, errors.Wrap(err, "writing trace artifacts")
		}
	}

	if diags.HasFatal() {
		return Result{Diagnostics: diags}, nil
	}

	logger.LogPhase("optimization")
	mod = optimizer.Optimize(mod, cfg.OptLevel)
	logger.LogOptimization("constant-fold+dce+peephole", cfg.OptLevel)
	logger.LogPhaseComplete("optimization")

	logger.LogPhase("code generation")
	asm, err := vm16.GenerateToString(mod, builder.ProvenanceByFunction(), diags)
	if err != nil {
		if diags.HasErrors() {
			return Result{Diagnostics: diags}, nil
		}
		return Result{}, errors.Wrap(err, "internal code generator failure")
	}
	logger.LogCodeGen("vm16", cfg.InputPath, -1)
	logger.LogPhaseComplete("code generation")

	asm = applyStackDirectives(asm, cfg)
	return Result{Assembly: asm, Diagnostics: diags}, nil
}

// applyStackDirectives prepends the assembler directives an external
// assembler (pkg/toolchain) reads to place the stack segment, when
// --stack-bank/--stack-base were given. The generator itself never needs
// these values — they govern where the external linker lays out the
// stack bank, outside this compiler's concern (spec.md §4.8) — so they are
// carried as directives rather than generator state.
func applyStackDirectives(asm string, cfg Config) string {
	var b strings.Builder
	if cfg.Debug {
		// Full per-instruction source-line annotations would need every
		// pkg/codegen/vm16 emit site to carry its originating source.Span
		// through to the assembly writer; not done here (see DESIGN.md).
		// "-g" currently only banners the unit being compiled.
		fmt.Fprintf(&b, "; source: %s\n", cfg.InputPath)
	}
	if cfg.HasStackBank {
		fmt.Fprintf(&b, ".stack_bank %d\n", cfg.StackBank)
	}
	if cfg.HasStackBase {
		fmt.Fprintf(&b, ".stack_base %d\n", cfg.StackBase)
	}
	b.WriteString(asm)
	return b.String()
}

func countDecls(prog *frontend.Program) int {
	if prog == nil {
		return 0
	}
	return len(prog.Decls)
}

// writeTraceArtifacts emits the five self-describing pipeline-stage files
// spec.md §6 names: <stem>.tokens, .ast, .sem, .tast, .ir. The checked AST
// (prog) doubles as both .ast and .tast — sema.Check mutates expr_type in
// place rather than building a second tree, so by this point in the
// pipeline there is only one tree to describe, already carrying expr_type.
func writeTraceArtifacts(cfg Config, src string, prog *frontend.Program, checker *frontend.Checker, mod *ir.Module) error {
	stem := cfg.OutputStem()

	lexer := frontend.NewLexer(cfg.InputPath, src)
	var toks []frontend.Token
	for {
		t := lexer.Next()
		toks = append(toks, t)
		if t.Type == frontend.TokEOF {
			break
		}
	}
	if err := writeJSON(stem+".tokens", tokenRecords(toks)); err != nil {
		return err
	}

	astTree := describeNode(prog)
	if err := writeJSON(stem+".ast", astTree); err != nil {
		return err
	}
	// .tast is the same tree: every Expr's expr_type field is already
	// populated because Checker.Check mutated it in place before this runs.
	if err := writeJSON(stem+".tast", astTree); err != nil {
		return err
	}

	if err := writeJSON(stem+".sem", semRecords(checker)); err != nil {
		return err
	}

	return writeJSON(stem+".ir", irRecords(mod))
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating trace artifact %s", path)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "encoding trace artifact %s", path)
	}
	return nil
}
