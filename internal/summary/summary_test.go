package summary

import (
	"strings"
	"testing"
)

func TestSummarizeScalars(t *testing.T) {
	s := New()
	if got := s.Summarize(nil); got != "null" {
		t.Fatalf("nil: %q", got)
	}
	if got := s.Summarize(true); got != "true" {
		t.Fatalf("bool: %q", got)
	}
	if got := s.Summarize(42); got != "42" {
		t.Fatalf("int: %q", got)
	}
	if got := s.Summarize("hello"); got != `"hello"` {
		t.Fatalf("string: %q", got)
	}
}

func TestSummarizeTruncatesLongStrings(t *testing.T) {
	s := New()
	long := strings.Repeat("a", 200)
	got := s.Summarize(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker: %q", got)
	}
	if len(got) > s.MaxStringLen+10 {
		t.Fatalf("summary too long: %d chars", len(got))
	}
}

func TestSummarizeMapLimitsItems(t *testing.T) {
	s := New()
	m := map[string]any{}
	for _, k := range []string{"a", "b", "c", "d", "e", "f"} {
		m[k] = k
	}
	got := s.Summarize(m)
	if !strings.Contains(got, "(6 items)") {
		t.Fatalf("expected item count: %q", got)
	}
	if !strings.Contains(got, "...") {
		t.Fatalf("expected elision marker: %q", got)
	}
}

func TestSummarizeRespectsDepth(t *testing.T) {
	s := New()
	nested := map[string]any{
		"l1": map[string]any{
			"l2": map[string]any{
				"l3": map[string]any{"secret": "deep"},
			},
		},
	}
	got := s.Summarize(nested)
	if strings.Contains(got, "deep") {
		t.Fatalf("expected depth cutoff before leaf values: %q", got)
	}
}

func TestSummarizeListCounts(t *testing.T) {
	s := New()
	list := make([]any, 10)
	for i := range list {
		list[i] = i
	}
	got := s.Summarize(list)
	if !strings.Contains(got, "(10 items)") {
		t.Fatalf("expected count: %q", got)
	}
}

func TestSliceRendersEmptyMarker(t *testing.T) {
	s := New()
	if got := s.Slice("profile", nil); got != "profile: (empty)" {
		t.Fatalf("nil slice: %q", got)
	}
	if got := s.Slice("profile", map[string]any{}); got != "profile: (empty)" {
		t.Fatalf("empty slice: %q", got)
	}
	got := s.Slice("request", map[string]any{"action": "ask"})
	if !strings.HasPrefix(got, "request: ") || !strings.Contains(got, "ask") {
		t.Fatalf("populated slice: %q", got)
	}
}
