package irtext

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hlsc-project/hlsc/internal/ir"
)

func TestEmitListsParamsNodesAndRet(t *testing.T) {
	fn := ir.NewFunction("top")
	a := fn.NewParam("a", 8)
	b := fn.NewParam("b", 8)
	fn.Return = fn.NewAdd(a, b)

	var buf bytes.Buffer
	if err := Emit(fn, &buf); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "fn top(a: bits[8], b: bits[8])") {
		t.Fatalf("missing parameter signature, got:\n%s", out)
	}
	if !strings.Contains(out, "= add(") {
		t.Fatalf("missing add node, got:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "}") {
		t.Fatalf("expected the emitted text to close with a brace, got:\n%s", out)
	}
	if !strings.Contains(out, "ret %") {
		t.Fatalf("missing ret line, got:\n%s", out)
	}
}
