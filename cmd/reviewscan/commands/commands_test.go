package commands

import (
	"bytes"
	"strings"
	"testing"

	"ReviewScanner/internal/domain"
)

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, domain.Report{
		ProductName:       "Phone",
		Total:             3,
		FakeCount:         1,
		GenuineCount:      2,
		FakePercentage:    33.33,
		GenuinePercentage: 66.67,
	})

	out := buf.String()
	for _, want := range []string{"Phone", "33.33%", "66.67%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReadLinesSkipsBlank(t *testing.T) {
	lines, err := readLines(strings.NewReader("great phone\n\n  \nbad battery\n"))
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	if len(lines) != 2 || lines[1] != "bad battery" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestWaitForEnterAcceptsEOF(t *testing.T) {
	if err := waitForEnter(strings.NewReader("")); err != nil {
		t.Fatalf("waitForEnter: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := []rune(truncate(strings.Repeat("a", 100), 10)); len(got) != 10 {
		t.Fatalf("expected 10 runes, got %d", len(got))
	}
}
