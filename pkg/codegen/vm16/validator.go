// Assembly validation: a battery of line-oriented sanity checks run over
// the generated text before it is handed to the toolchain. Grounded on
// the teacher's pkg/codegen/amd64/validator.go (same overall shape — a
// Validator accumulating errors/warnings across line-pattern passes),
// generalized from x86-64 mnemonics/registers to this target's bank-aware
// instruction set and register file.
package vm16

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rcc-project/rcc/pkg/codegen/regalloc"
	"github.com/rcc-project/rcc/pkg/logger"
)

type ValidationError struct {
	Line    int
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s\n  %s", e.Line, e.Message, e.Code)
}

type Validator struct {
	errors []ValidationError
	warns  []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

var validRegisters = func() map[string]bool {
	m := map[string]bool{
		string(regalloc.ZERO): true, string(regalloc.LINK): true, string(regalloc.LINK_BANK): true,
		string(regalloc.SB): true, string(regalloc.GB): true, string(regalloc.SP): true,
		string(regalloc.FP): true, string(regalloc.SCRATCH): true,
		string(regalloc.ARG0): true, string(regalloc.ARG1): true, string(regalloc.ARG2): true, string(regalloc.ARG3): true,
		string(regalloc.RET0): true, string(regalloc.RET1): true,
	}
	for _, r := range regalloc.AllocPool {
		m[string(r)] = true
	}
	return m
}()

var validMnemonics = []string{
	"MOV", "MOVI", "ADD", "ADDI", "SUB", "SUBI", "MUL", "MULI", "DIV", "MOD",
	"AND", "ANDI", "OR", "ORI", "XOR", "XORI", "SHL", "SHLI", "SHR", "SHRI",
	"SETEQ", "SETNE", "SETLT", "SETLE", "SETGT", "SETGE", "CMOVNZ",
	"LOAD", "STORE", "LDA", "PUSH", "POP", "JMP", "JNZ", "JZ", "CALL",
	"RET", "RETB",
}

// Validate runs every pass and returns a combined error if any line
// failed a hard check.
func (v *Validator) Validate(assembly string) error {
	lines := strings.Split(assembly, "\n")

	v.validateSyntax(lines)
	v.validateRegisters(lines)
	v.validateStackBalance(lines)
	v.validateMemoryAddressing(lines)
	v.validatePrologueEpilogueBalance(lines)
	v.detectRedundantMoves(lines)

	if len(v.errors) > 0 {
		return v.formatErrors()
	}
	if len(v.warns) > 0 {
		v.logWarnings()
	}
	return nil
}

func (v *Validator) validateSyntax(lines []string) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ".") {
			continue
		}
		if strings.HasSuffix(trimmed, ":") {
			if strings.Contains(strings.TrimSuffix(trimmed, ":"), " ") {
				v.addError(i+1, "invalid label format (contains spaces)", trimmed)
			}
			continue
		}
		if strings.HasPrefix(line, "\t") && !isValidMnemonicLine(trimmed) {
			v.addError(i+1, "unrecognized mnemonic", trimmed)
		}
	}
}

func isValidMnemonicLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	for _, m := range validMnemonics {
		if fields[0] == m {
			return true
		}
	}
	return false
}

var regPattern = regexp.MustCompile(`\b(R[0-6]|ZERO|LINK_BANK|LINK|SB|GB|SP|FP|SCRATCH|ARG[0-3]|RET[01])\b`)

func (v *Validator) validateRegisters(lines []string) {
	for i, line := range lines {
		for _, reg := range regPattern.FindAllString(line, -1) {
			if !validRegisters[reg] {
				v.addError(i+1, fmt.Sprintf("unknown register: %s", reg), line)
			}
		}
	}
}

// validateStackBalance checks PUSH/POP/ADDI-SP/SUBI-SP balance within a
// function (spec.md §4.5's prologue/epilogue discipline).
func (v *Validator) validateStackBalance(lines []string) {
	depth := 0
	inFunc := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") && !strings.HasPrefix(trimmed, ".") {
			inFunc = true
			depth = 0
			continue
		}
		if !inFunc {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "PUSH "):
			depth++
		case strings.HasPrefix(trimmed, "POP "):
			depth--
		case strings.HasPrefix(trimmed, "ADDI SP, SP,"):
			depth++
		case strings.HasPrefix(trimmed, "SUBI SP, SP,"):
			depth--
		case strings.HasPrefix(trimmed, "RET") :
			if depth < 0 {
				v.addError(i+1, "stack underflow detected before return", trimmed)
			}
			inFunc = false
		}
	}
}

// validatePrologueEpilogueBalance checks that every PUSH LINK/LINK_BANK
// pair in a non-leaf prologue has a matching POP before its RETB.
func (v *Validator) validatePrologueEpilogueBalance(lines []string) {
	inFunc := false
	savedLink := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") && !strings.HasPrefix(trimmed, ".") {
			inFunc = true
			savedLink = false
			continue
		}
		if !inFunc {
			continue
		}
		if trimmed == "PUSH LINK" {
			savedLink = true
		}
		if trimmed == "POP LINK" {
			savedLink = false
		}
		if trimmed == "RETB LINK, LINK_BANK" && !savedLink {
			v.addError(i+1, "RETB with no matching LINK save in this function", trimmed)
		}
		if strings.HasPrefix(trimmed, "RET") {
			inFunc = false
		}
	}
}

func (v *Validator) validateMemoryAddressing(lines []string) {
	loadStorePattern := regexp.MustCompile(`^(LOAD|STORE)\b`)
	bankedOperand := regexp.MustCompile(`\w+\[[^\]]+\]`)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !loadStorePattern.MatchString(trimmed) {
			continue
		}
		if !bankedOperand.MatchString(trimmed) {
			v.addError(i+1, "LOAD/STORE missing bank[addr] operand", trimmed)
		}
	}
}

func (v *Validator) detectRedundantMoves(lines []string) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "MOV ") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(trimmed, "MOV "), ",", 2)
		if len(parts) != 2 {
			continue
		}
		dest := strings.TrimSpace(parts[0])
		src := strings.TrimSpace(parts[1])
		if dest == src {
			v.addWarn(i+1, fmt.Sprintf("redundant move: %s to itself", dest), line)
		}
	}
}

func (v *Validator) addError(line int, msg, code string) {
	v.errors = append(v.errors, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) addWarn(line int, msg, code string) {
	v.warns = append(v.warns, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) formatErrors() error {
	var sb strings.Builder
	sb.WriteString("assembly validation failed:\n")
	for _, e := range v.errors {
		sb.WriteString("  " + e.Error() + "\n")
	}
	return fmt.Errorf("%s", sb.String())
}

func (v *Validator) logWarnings() {
	for _, w := range v.warns {
		logger.Warn("assembly validation warning", "line", w.Line, "msg", w.Message)
	}
}

// Validate is the package-level entry point GenerateToString calls.
func Validate(assembly string) error {
	return NewValidator().Validate(assembly)
}
