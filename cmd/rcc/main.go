// Command rcc is the compiler driver binary: a thin cobra/pflag CLI
// wrapping pkg/driver.Compile. Replaces the teacher's hand-rolled
// os.Args-switch cmd/typthon/main.go with a cobra.Command tree, the shape
// spec.md §6's flag surface (long options, repeatable -I/-D/--include)
// fits more naturally than a manual arg scan.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcc-project/rcc/pkg/driver"
	"github.com/rcc-project/rcc/pkg/logger"
	"github.com/rcc-project/rcc/pkg/provenance"
)

const version = "0.1.0"

func main() {
	root := newRootCmd()
	err := root.Execute()
	if err == nil {
		return
	}
	if ec, ok := err.(exitCode); ok {
		if ec.err != nil {
			fmt.Fprintln(os.Stderr, ec.err)
		}
		os.Exit(ec.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(2)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rcc",
		Short:         "Compiler for the reduced C subset targeting the banked 16-bit VM",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	var (
		output       string
		optLevel     int
		debug        bool
		trace        bool
		includeDirs  []string
		defines      []string
		includeFiles []string
		stackBank    int
		stackBase    int
		assumeParams string
	)

	cmd := &cobra.Command{
		Use:   "compile <input.c>",
		Short: "Compile one translation unit to target assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitDev()
			logger.LogCompilerStart(os.Args)

			inputPath := args[0]

			cfg := driver.Config{
				InputPath:    inputPath,
				OutputPath:   resolveOutput(output, inputPath),
				OptLevel:     optLevel,
				Debug:        debug,
				Trace:        trace,
				IncludeDirs:  includeDirs,
				Defines:      parseDefines(defines),
				IncludeFiles: includeFiles,
				StackBank:    stackBank,
				StackBase:    stackBase,
				HasStackBank: cmd.Flags().Changed("stack-bank"),
				HasStackBase: cmd.Flags().Changed("stack-base"),
			}
			if assumeParams != "" {
				region, err := parseRegion(assumeParams)
				if err != nil {
					return err
				}
				cfg.AssumePointerParams = &region
			}

			src, err := os.ReadFile(inputPath)
			if err != nil {
				logger.LogError("read", inputPath, 0, err.Error())
				return exitCode{2, fmt.Errorf("reading %s: %w", inputPath, err)}
			}
			logger.LogFileProcessing(inputPath)

			result, err := driver.Compile(string(src), cfg)
			if err != nil {
				logger.LogCompilerComplete(false, "")
				return exitCode{2, err}
			}

			if result.Diagnostics.HasErrors() {
				fmt.Fprint(os.Stderr, result.Diagnostics.Render())
				logger.LogCompilerComplete(false, "")
				return exitCode{1, fmt.Errorf("compilation failed")}
			}
			if msgs := result.Diagnostics.Render(); msgs != "" {
				fmt.Fprint(os.Stderr, msgs) // warnings, e.g. CodeAssumePointerParam
			}

			if err := os.WriteFile(cfg.OutputPath, []byte(result.Assembly), 0644); err != nil {
				return exitCode{2, fmt.Errorf("writing %s: %w", cfg.OutputPath, err)}
			}
			logger.LogCompilerComplete(true, "")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "assembly output path (default: input with .s extension)")
	flags.IntVarP(&optLevel, "opt", "O", 0, "optimization level: 0 or 1")
	flags.BoolVarP(&debug, "debug", "g", false, "prefix the output with a '; source: <input>' banner line")
	flags.BoolVar(&trace, "trace", false, "emit <stem>.tokens/.ast/.sem/.tast/.ir pipeline artifacts")
	flags.StringArrayVarP(&includeDirs, "include-dir", "I", nil, "add a directory to the include search path (repeatable)")
	flags.StringArrayVarP(&defines, "define", "D", nil, "predefine a macro name[=value] (repeatable)")
	flags.StringArrayVar(&includeFiles, "include", nil, "force-include a file before the translation unit (repeatable)")
	flags.IntVar(&stackBank, "stack-bank", 0, "override the stack segment's bank number")
	flags.IntVar(&stackBase, "stack-base", 0, "override the stack segment's base address")
	flags.StringVar(&assumeParams, "assume-pointer-params", "", "seed every pointer parameter's provenance: global|stack")

	return cmd
}

// resolveOutput implements "-o out.s" defaulting to the input's stem with
// a .s extension, same convention as the teacher's getOutputFile.
func resolveOutput(output, input string) string {
	if output != "" {
		return output
	}
	if i := strings.LastIndexByte(input, '.'); i >= 0 {
		return input[:i] + ".s"
	}
	return input + ".s"
}

func parseDefines(defines []string) map[string]string {
	out := make(map[string]string, len(defines))
	for _, d := range defines {
		if i := strings.IndexByte(d, '='); i >= 0 {
			out[d[:i]] = d[i+1:]
		} else {
			out[d] = ""
		}
	}
	return out
}

func parseRegion(s string) (provenance.RegionTag, error) {
	switch s {
	case "global":
		return provenance.Global, nil
	case "stack":
		return provenance.Stack, nil
	default:
		return provenance.Unknown, fmt.Errorf("--assume-pointer-params: expected global or stack, got %q", s)
	}
}

// exitCode carries the process exit code spec.md §6 fixes (1: diagnosed
// compile error, 2: internal/toolchain failure) through cobra's RunE,
// which otherwise only distinguishes success from failure.
type exitCode struct {
	code int
	err  error
}

func (e exitCode) Error() string { return e.err.Error() }
