package ast

import (
	"bytes"
	"testing"

	"github.com/hlsc-project/hlsc/internal/diag"
)

func TestDecodeTrivialIdentity(t *testing.T) {
	// out = in; return;  with IDENT references, matching §8 scenario 1's shape.
	src := `{
		"TYNAME": "BLOCK",
		"OP0": {"TYNAME": "IDENT", "STRING": "top"},
		"OP1": {"TYNAME": "LIST", "VALUES": [
			{"TYNAME": "ASSIGN", "OP0": {"TYNAME": "IDENT", "STRING": "out"}, "OP1": {"TYNAME": "IDENT", "STRING": "in"}},
			{"TYNAME": "RETURN"}
		]}
	}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	a, mod, err := Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if r.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", buf.String())
	}
	body := a.Get(a.Get(mod).(*Module).Body).(*Block)
	if len(body.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(body.Stmts))
	}
	assign, ok := a.Get(body.Stmts[0]).(*Assign)
	if !ok {
		t.Fatalf("expected first statement to be Assign")
	}
	lv := a.Get(assign.Lvalue).(*NameRef)
	if lv.Name != "out" {
		t.Fatalf("expected lvalue out, got %s", lv.Name)
	}
}

func TestDecodeNestedIf(t *testing.T) {
	// if(a) { if(b) { x = 1; } }
	src := `{"TYNAME": "BLOCK", "OP0": {"TYNAME": "IDENT", "STRING": "top"}, "OP1": {"TYNAME": "LIST", "VALUES": [{"TYNAME": "IF", "OP0": {"TYNAME": "IDENT", "STRING": "a"}, "OP1": {"TYNAME": "BLOCK", "OP0": {"TYNAME": "IDENT", "STRING": ""}, "OP1": {"TYNAME": "LIST", "VALUES": [{"TYNAME": "IF", "OP0": {"TYNAME": "IDENT", "STRING": "b"}, "OP1": {"TYNAME": "BLOCK", "OP0": {"TYNAME": "IDENT", "STRING": ""}, "OP1": {"TYNAME": "LIST", "VALUES": [{"TYNAME": "ASSIGN", "OP0": {"TYNAME": "IDENT", "STRING": "x"}, "OP1": {"TYNAME": "INT_LIT", "INT": "1", "SIZE": 32}}]}}}]}}}]}}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	a, mod, err := Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	body := a.Get(a.Get(mod).(*Module).Body).(*Block)
	outerIf, ok := a.Get(body.Stmts[0]).(*If)
	if !ok {
		t.Fatalf("expected outer If")
	}
	thenBlk := a.Get(outerIf.Then).(*Block)
	if len(thenBlk.Stmts) != 1 {
		t.Fatalf("expected single inner if")
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	src := `{"TYNAME": "BLOCK", "OP0": {"TYNAME": "IDENT", "STRING": "top"}, "OP1": {"TYNAME": "LIST", "VALUES": [{"TYNAME": "WHATEVER"}]}}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	_, _, err := Decode([]byte(src), r)
	if err == nil {
		t.Fatalf("expected decode error on unknown tag")
	}
}

func TestDecodeNonIntegerSliceBoundsCollapsesToFull(t *testing.T) {
	src := `{"TYNAME": "SLICE", "OP0": {"TYNAME": "IDENT", "STRING": "a"}, "OP1": {"TYNAME": "IDENT", "STRING": "hi"}, "OP2": {"TYNAME": "IDENT", "STRING": "lo"}}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	a, mod, err := Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	// top-level is an ExprEval wrapping the collapsed NameRef "a"
	body := a.Get(mod).(*Module)
	ee, ok := a.Get(body.Body).(*ExprEval)
	if !ok {
		t.Fatalf("expected ExprEval at top level, got %T", a.Get(body.Body))
	}
	if _, ok := a.Get(ee.Expr).(*NameRef); !ok {
		t.Fatalf("expected collapsed slice to reduce to the bare NameRef")
	}
}

func TestDecodeDotReadsOP1FieldNameAndSizeNotTypeSize(t *testing.T) {
	// a.c, annotated with the (struct_var, offset, size, is_global)
	// flattening tuple; TYPESIZE is deliberately included with a
	// different value to catch the decoder reading the wrong field.
	src := `{"TYNAME": "DOT", "OP0": {"TYNAME": "IDENT", "STRING": "a"}, "OP1": {"TYNAME": "IDENT", "STRING": "c"}, "STRUCT": "a", "OFFSET": 4, "SIZE": 8, "GLOBAL": true, "TYPESIZE": 99}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	a, mod, err := Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	body := a.Get(mod).(*Module)
	ee, ok := a.Get(body.Body).(*ExprEval)
	if !ok {
		t.Fatalf("expected ExprEval at top level, got %T", a.Get(body.Body))
	}
	fa, ok := a.Get(ee.Expr).(*FieldAccess)
	if !ok {
		t.Fatalf("expected FieldAccess, got %T", a.Get(ee.Expr))
	}
	if fa.Field != "c" {
		t.Fatalf("expected field name %q decoded from OP1, got %q", "c", fa.Field)
	}
	if fa.StructVar != "a" || fa.Offset != 4 || fa.Size != 8 || !fa.Global {
		t.Fatalf("expected annotation (struct=a, off=4, size=8, global=true), got (struct=%s, off=%d, size=%d, global=%v)",
			fa.StructVar, fa.Offset, fa.Size, fa.Global)
	}
}

func TestDecodeFunctionCallReadsOP0NameAndOP1Args(t *testing.T) {
	src := `{"TYNAME": "FUNCTION_CALL", "OP0": {"TYNAME": "IDENT", "STRING": "_valid"}, "OP1": {"TYNAME": "LIST", "VALUES": [{"TYNAME": "IDENT", "STRING": "x"}]}}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	a, mod, err := Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	body := a.Get(mod).(*Module)
	ee, ok := a.Get(body.Body).(*ExprEval)
	if !ok {
		t.Fatalf("expected ExprEval at top level, got %T", a.Get(body.Body))
	}
	bc, ok := a.Get(ee.Expr).(*BuiltinCall)
	if !ok {
		t.Fatalf("expected BuiltinCall, got %T", a.Get(ee.Expr))
	}
	if bc.Name != "_valid" {
		t.Fatalf("expected callee name %q decoded from OP0, got %q", "_valid", bc.Name)
	}
	if len(bc.Args) != 1 {
		t.Fatalf("expected 1 arg decoded from OP1's VALUES, got %d", len(bc.Args))
	}
	if nr, ok := a.Get(bc.Args[0]).(*NameRef); !ok || nr.Name != "x" {
		t.Fatalf("expected arg NameRef(x), got %#v", a.Get(bc.Args[0]))
	}
}

func TestDecodeEmptyBlockHasNoStatements(t *testing.T) {
	src := `{"TYNAME": "BLOCK", "OP0": {"TYNAME": "IDENT", "STRING": "empty"}}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	a, mod, err := Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	body := a.Get(a.Get(mod).(*Module).Body).(*Block)
	if body.Name != "empty" {
		t.Fatalf("expected block name %q, got %q", "empty", body.Name)
	}
	if len(body.Stmts) != 0 {
		t.Fatalf("expected no statements in an OP1-less BLOCK, got %d", len(body.Stmts))
	}
}
