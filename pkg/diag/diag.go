// Package diag implements diagnostics as first-class values (spec.md §7):
// collected in source order, never thrown as Go errors, so one malformed
// function does not abort a translation unit (local recovery) and the
// user sees every problem in one pass.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcc-project/rcc/pkg/source"
)

// Severity is one of note, warning, error, fatal (spec.md §7).
type Severity int

const (
	Note Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Note2 is one annotated note attached to a diagnostic — its own span and
// explanatory text. Named Note2 to avoid colliding with the Severity
// constant Note.
type Note2 struct {
	Span source.Span
	Text string
}

// Diagnostic is one compiler-reported problem.
type Diagnostic struct {
	Severity    Severity
	Code        string // e.g. "E0301" — stable, greppable identifier
	Message     string
	PrimarySpan source.Span
	Notes       []Note2
	Help        string // optional suggestion, empty if none
}

// Format renders one diagnostic as
// "file:line:col: severity[code]: message", followed by indented note
// lines each with their own span (spec.md §7).
func (d Diagnostic) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s[%s]: %s", d.PrimarySpan.Start, d.Severity, d.Code, d.Message)
	for _, n := range d.Notes {
		fmt.Fprintf(&sb, "\n    note at %s: %s", n.Span.Start, n.Text)
	}
	if d.Help != "" {
		fmt.Fprintf(&sb, "\n    help: %s", d.Help)
	}
	return sb.String()
}

// Collector accumulates diagnostics across a translation unit and emits
// them in source order (spec.md §7: "Errors are collected and emitted in
// source order").
type Collector struct {
	diags []Diagnostic
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Add(d Diagnostic) { c.diags = append(c.diags, d) }

// Errorf appends an error-severity diagnostic.
func (c *Collector) Errorf(code string, span source.Span, format string, args ...any) {
	c.Add(Diagnostic{Severity: Error, Code: code, Message: fmt.Sprintf(format, args...), PrimarySpan: span})
}

// Warnf appends a warning-severity diagnostic.
func (c *Collector) Warnf(code string, span source.Span, format string, args ...any) {
	c.Add(Diagnostic{Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...), PrimarySpan: span})
}

// Fatalf appends a fatal-severity diagnostic — an internal invariant
// violation rather than a user source error (spec.md §7: "Register
// allocation ... Internal errors ... are fatal").
func (c *Collector) Fatalf(code string, span source.Span, format string, args ...any) {
	c.Add(Diagnostic{Severity: Fatal, Code: code, Message: fmt.Sprintf(format, args...), PrimarySpan: span})
}

// HasErrors reports whether any Error- or Fatal-severity diagnostic was
// collected — the condition that should make the driver exit 1.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == Error || d.Severity == Fatal {
			return true
		}
	}
	return false
}

// HasFatal reports whether any Fatal diagnostic was collected — the
// condition that halts the current phase immediately (spec.md §7).
func (c *Collector) HasFatal() bool {
	for _, d := range c.diags {
		if d.Severity == Fatal {
			return true
		}
	}
	return false
}

// All returns every collected diagnostic, sorted in source order (by
// primary span start position) — a stable sort so diagnostics reported at
// the same position keep their collection order.
func (c *Collector) All() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PrimarySpan.Start, out[j].PrimarySpan.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return out
}

// Render formats every diagnostic, one per line (plus note/help lines),
// in source order.
func (c *Collector) Render() string {
	var sb strings.Builder
	for i, d := range c.All() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.Format())
	}
	return sb.String()
}
