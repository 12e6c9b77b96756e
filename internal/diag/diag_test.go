package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestExitCodes(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidArgument:   1,
		KindNotFound:          1,
		KindResourceExhausted: 2,
		KindUnimplemented:     3,
		KindInternal:          4,
	}
	for k, want := range cases {
		if got := k.ExitCode(); got != want {
			t.Errorf("%s: exit code %d, want %d", k, got, want)
		}
	}
}

func TestReporterTracksErrors(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "text")
	r.Warning("node#3", "missing width annotation, defaulting to 32")
	if r.HasErrors() {
		t.Fatalf("warning must not count as an error")
	}
	r.Error("node#7", "malformed tag %q", "FOO")
	if !r.HasErrors() {
		t.Fatalf("expected HasErrors to be true")
	}
	out := buf.String()
	if !strings.Contains(out, "warning") || !strings.Contains(out, "error") {
		t.Fatalf("expected both severities rendered, got %q", out)
	}
}

func TestErrorfFormatsAndClassifies(t *testing.T) {
	err := Errorf(KindResourceExhausted, "scheduling infeasible: lower bound %d exceeds stage count %d", 4, 2)
	if err.Kind != KindResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %s", err.Kind)
	}
	if !strings.Contains(err.Error(), "lower bound 4") {
		t.Fatalf("expected message detail, got %q", err.Error())
	}
}
