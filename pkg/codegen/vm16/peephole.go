// Peephole strength reductions over emitted assembly text (spec.md
// §4.7): `* 2^k` -> shift left, `x + 0` -> copy (dropped entirely when
// source and destination are the same register), `add r, r, ZERO` ->
// nop-eliminate, and self-move elimination. Division by a power of two is
// not reduced. Grounded on the teacher's pkg/codegen/arm64/peephole.go (a
// Pattern{Match,Replace} list applied over a sliding window of lines),
// generalized from ARM64 mnemonics to this target's — no madd/stp-fusion
// analogue exists on this target.
package vm16

import (
	"strconv"
	"strings"

	"github.com/rcc-project/rcc/pkg/logger"
)

type peepholePattern struct {
	name    string
	window  int
	match   func([]string) bool
	replace func([]string) []string
}

// Peephole applies every registered reduction to assembly once, in a
// single left-to-right pass (no fixpoint iteration: the reductions below
// don't expose new opportunities for each other once applied).
func Peephole(assembly string) string {
	lines := strings.Split(assembly, "\n")
	patterns := peepholePatterns()

	var out []string
	i := 0
	for i < len(lines) {
		matched := false
		for _, p := range patterns {
			if i+p.window > len(lines) {
				continue
			}
			window := lines[i : i+p.window]
			if p.match(window) {
				out = append(out, p.replace(window)...)
				i += p.window
				matched = true
				logger.Debug("applied peephole reduction", "pattern", p.name)
				break
			}
		}
		if !matched {
			out = append(out, lines[i])
			i++
		}
	}
	return strings.Join(out, "\n")
}

func peepholePatterns() []peepholePattern {
	return []peepholePattern{
		{
			name:   "self_move_elimination",
			window: 1,
			match: func(l []string) bool {
				dst, src, ok := parseMov(l[0])
				return ok && dst == src
			},
			replace: func(l []string) []string { return nil },
		},
		{
			name:   "mul_immediate_power_of_two_to_shift",
			window: 2,
			match: func(l []string) bool {
				imm, dst, ok := parseMovI(l[0])
				if !ok || !isPowerOfTwo(imm) {
					return false
				}
				_, a, b, ok := parseTriOp(l[1], "MUL")
				return ok && (a == dst || b == dst)
			},
			replace: func(l []string) []string {
				imm, dst, _ := parseMovI(l[0])
				mulDst, a, b, _ := parseTriOp(l[1], "MUL")
				other := a
				if a == dst {
					other = b
				}
				return []string{"\tSHLI " + mulDst + ", " + other + ", " + strconv.Itoa(log2(imm))}
			},
		},
		{
			name:   "add_zero_to_copy",
			window: 1,
			match: func(l []string) bool {
				_, _, imm, ok := parseAddI(l[0])
				return ok && imm == 0
			},
			replace: func(l []string) []string {
				dst, src, _, _ := parseAddI(l[0])
				if dst == src {
					return nil
				}
				return []string{"\tMOV " + dst + ", " + src}
			},
		},
		{
			name:   "add_zero_register_elimination",
			window: 1,
			match: func(l []string) bool {
				dst, a, b, ok := parseTriOp(l[0], "ADD")
				return ok && dst == a && b == "ZERO"
			},
			replace: func(l []string) []string { return nil },
		},
	}
}

func parseMov(line string) (dst, src string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "MOV ") {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(trimmed, "MOV "), ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func parseMovI(line string) (imm int64, dst string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "MOVI ") {
		return 0, "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(trimmed, "MOVI "), ",", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(parts[0]), true
}

// parseTriOp parses "<op> dst, a, b".
func parseTriOp(line, op string) (dst, a, b string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, op+" ") {
		return "", "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(trimmed, op+" "), ",")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), true
}

// parseAddI parses "ADDI dst, src, imm".
func parseAddI(line string) (dst, src string, imm int64, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "ADDI ") {
		return "", "", 0, false
	}
	parts := strings.Split(strings.TrimPrefix(trimmed, "ADDI "), ",")
	if len(parts) != 3 {
		return "", "", 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return "", "", 0, false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), n, true
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int64) int {
	k := 0
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}
