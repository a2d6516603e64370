// Package summary renders nested state values into short human-readable
// strings for arbiter context. Depth, item count, and string length are all
// bounded so a large state slice never overwhelms the prompt.
package summary

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Summarizer bounds the rendering of a nested value.
type Summarizer struct {
	MaxDepth     int
	MaxMapItems  int
	MaxListItems int
	MaxStringLen int
}

// New returns a summarizer with defaults tuned for arbiter prompts.
func New() *Summarizer {
	return &Summarizer{
		MaxDepth:     2,
		MaxMapItems:  3,
		MaxListItems: 2,
		MaxStringLen: 50,
	}
}

// Summarize renders a value recursively within the configured bounds.
func (s *Summarizer) Summarize(value any) string {
	return s.summarizeValue(value, 0)
}

// Slice renders a named state slice as a one-line "name: summary" entry.
// Empty slices render as "name: (empty)".
func (s *Summarizer) Slice(name string, value any) string {
	if value == nil {
		return name + ": (empty)"
	}
	if m, ok := value.(map[string]any); ok && len(m) == 0 {
		return name + ": (empty)"
	}
	return name + ": " + s.Summarize(value)
}

func (s *Summarizer) summarizeValue(value any, depth int) string {
	switch t := value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return s.summarizeString(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case map[string]any:
		return s.summarizeMap(t, depth)
	case []any:
		return s.summarizeList(t, depth)
	default:
		return s.summarizeString(fmt.Sprintf("%v", t))
	}
}

func (s *Summarizer) summarizeString(value string) string {
	if len(value) <= s.MaxStringLen {
		return strconv.Quote(value)
	}
	return strconv.Quote(value[:s.MaxStringLen]) + "..."
}

func (s *Summarizer) summarizeMap(value map[string]any, depth int) string {
	if len(value) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := len(keys)
	shown := keys
	if total > s.MaxMapItems {
		shown = keys[:s.MaxMapItems]
	}

	// At max depth only the keys are listed; the values would add noise.
	items := make([]string, 0, len(shown))
	for _, k := range shown {
		if depth >= s.MaxDepth {
			items = append(items, strconv.Quote(k))
		} else {
			items = append(items, strconv.Quote(k)+": "+s.summarizeValue(value[k], depth+1))
		}
	}

	body := strings.Join(items, ", ")
	if total > s.MaxMapItems {
		return fmt.Sprintf("{%s, ...} (%d items)", body, total)
	}
	if depth >= s.MaxDepth {
		return fmt.Sprintf("{%s} (%d items)", body, total)
	}
	return "{" + body + "}"
}

func (s *Summarizer) summarizeList(value []any, depth int) string {
	if len(value) == 0 {
		return "[]"
	}
	total := len(value)
	if depth >= s.MaxDepth && total > s.MaxListItems {
		return fmt.Sprintf("[...] (%d items)", total)
	}

	shown := value
	if total > s.MaxListItems {
		shown = value[:s.MaxListItems]
	}
	items := make([]string, 0, len(shown))
	for _, item := range shown {
		items = append(items, s.summarizeValue(item, depth+1))
	}
	body := strings.Join(items, ", ")
	if total > s.MaxListItems {
		return fmt.Sprintf("[%s, ...] (%d items)", body, total)
	}
	return "[" + body + "]"
}
