// Package diag implements the compiler's diagnostic reporter: collecting
// warnings and errors during a compilation phase, classifying errors into
// the kinds of §7's error model, and rendering diagnostics to an output
// stream in either text or JSON form.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
)

// Kind classifies an error for exit-code purposes.
type Kind int

const (
	// KindNone is not an error.
	KindNone Kind = iota
	// KindInvalidArgument covers malformed input: missing required field,
	// wrong tag, bad flag value.
	KindInvalidArgument
	// KindNotFound covers a missing input file or named entity.
	KindNotFound
	// KindUnimplemented covers a feature gate not satisfied by the input
	// (e.g. the sequential generator invoked on a non-counted-for).
	KindUnimplemented
	// KindResourceExhausted covers scheduling infeasibility.
	KindResourceExhausted
	// KindInternal covers invariant violations: non-integer LP solution,
	// provenance mismatch, lowering verifier failure.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindUnimplemented:
		return "Unimplemented"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindInternal:
		return "Internal"
	default:
		return "None"
	}
}

// ExitCode returns the process exit code for k, per §7's table.
func (k Kind) ExitCode() int {
	switch k {
	case KindInvalidArgument, KindNotFound:
		return 1
	case KindResourceExhausted:
		return 2
	case KindUnimplemented:
		return 3
	case KindInternal:
		return 4
	default:
		return 0
	}
}

// Error is a classified, value-returning compiler error (§7: "value-returning
// results, not control-flow exceptions").
type Error struct {
	Kind    Kind
	Message string
	// Node, when non-empty, names the offending node (its printed form or a
	// provenance path) for inclusion in the diagnostic.
	Node string
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a classified *Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithNode returns a copy of e with Node set.
func (e *Error) WithNode(node string) *Error {
	cp := *e
	cp.Node = node
	return &cp
}

// Severity distinguishes warnings from errors in a Diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a single reported warning or error, with optional
// provenance (a node's path within the source JSON or AST, not a Go
// go/token.Pos, since the input is JSON, not Go source).
type Diagnostic struct {
	Severity Severity
	Message  string
	Pos      string
}

// Reporter accumulates diagnostics during a compilation phase and renders
// them to an output stream on demand. Modeled on the teacher's
// diag.Reporter (NewReporter(w, format), Warning/Errorf/HasErrors).
type Reporter struct {
	w        io.Writer
	format   string // "text" or "json"
	diags    []Diagnostic
	errCount int
}

// NewReporter creates a Reporter writing rendered diagnostics to w in the
// given format ("text" or "json").
func NewReporter(w io.Writer, format string) *Reporter {
	return &Reporter{w: w, format: format}
}

// SetProvenance is a no-op hook retained for symmetry with the teacher's
// SetFileSet; diagnostics in this package carry their own Pos strings
// rather than a shared file-set, so there is nothing to install.
func (r *Reporter) SetProvenance(string) {}

// Warning records a warning-severity diagnostic and immediately renders it.
func (r *Reporter) Warning(pos, format string, args ...any) {
	d := Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Pos: pos}
	r.diags = append(r.diags, d)
	r.render(d)
}

// Error records an error-severity diagnostic and immediately renders it.
func (r *Reporter) Error(pos, format string, args ...any) {
	d := Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), Pos: pos}
	r.diags = append(r.diags, d)
	r.errCount++
	r.render(d)
}

// Errorf is an alias for Error with no positional provenance, matching the
// teacher's reporter.Errorf(fmt, args...) call shape.
func (r *Reporter) Errorf(format string, args ...any) {
	r.Error("", format, args...)
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (r *Reporter) HasErrors() bool { return r.errCount > 0 }

// Diagnostics returns all recorded diagnostics in emission order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }

func (r *Reporter) render(d Diagnostic) {
	if r.w == nil {
		return
	}
	switch r.format {
	case "json":
		enc := json.NewEncoder(r.w)
		_ = enc.Encode(d)
	default:
		if d.Pos != "" {
			fmt.Fprintf(r.w, "%s: %s: %s\n", d.Pos, d.Severity, d.Message)
		} else {
			fmt.Fprintf(r.w, "%s: %s\n", d.Severity, d.Message)
		}
	}
}
