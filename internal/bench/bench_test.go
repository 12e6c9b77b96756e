package bench

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRunPreservesInputOrderAndRecordsPerInputErrors(t *testing.T) {
	paths := []string{"a.json", "b.json", "c.json"}
	compile := func(ctx context.Context, path string) (int, error) {
		if path == "b.json" {
			return 0, fmt.Errorf("malformed fixture")
		}
		return 3, nil
	}

	results := Run(context.Background(), paths, compile, Options{Jobs: 2})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range paths {
		if results[i].Path != want {
			t.Fatalf("result %d: expected path %s, got %s", i, want, results[i].Path)
		}
	}
	if results[1].Err == nil {
		t.Fatalf("expected b.json's compile error to be recorded")
	}
	if results[0].Err != nil || results[0].NumStages != 3 {
		t.Fatalf("expected a.json to succeed with 3 stages, got %+v", results[0])
	}
}

func TestSummarizeComputesMinMedianMaxOverSuccesses(t *testing.T) {
	results := []Result{
		{Path: "a", Duration: 30 * time.Millisecond},
		{Path: "b", Duration: 10 * time.Millisecond},
		{Path: "c", Duration: 20 * time.Millisecond},
		{Path: "d", Err: fmt.Errorf("boom")},
	}
	s := Summarize(results)
	if s.Total != 4 || s.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.Min != 10*time.Millisecond || s.Max != 30*time.Millisecond || s.Median != 20*time.Millisecond {
		t.Fatalf("unexpected min/median/max: %+v", s)
	}
}

func TestRunHandlesEmptyCorpus(t *testing.T) {
	results := Run(context.Background(), nil, func(ctx context.Context, path string) (int, error) {
		t.Fatalf("compile should not be called for an empty corpus")
		return 0, nil
	}, Options{})
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}
