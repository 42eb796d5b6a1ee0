package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"NAME", "TYPE", "STATUS"}, true)

	table.AddRow("wall-width", "distance", "satisfied")
	table.AddRow("floor-level", "coplanar", "violated")

	table.Render()

	output := buf.String()

	for _, want := range []string{"NAME", "TYPE", "STATUS", "wall-width", "distance", "floor-level", "violated"} {
		if !strings.Contains(output, want) {
			t.Errorf("Table output missing %q", want)
		}
	}
	if !strings.Contains(output, "─") {
		t.Errorf("Table output missing separator")
	}
}

func TestTableEmpty(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{}, true)
	table.Render()

	if buf.Len() != 0 {
		t.Errorf("Table with no headers should render nothing, got %q", buf.String())
	}
}

func TestTableColumnAlignment(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"NAME", "VALUE"}, true)
	table.AddRow("a", "1.25")
	table.AddRow("much-longer-name", "0.5")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}

	// Every VALUE cell should start at the same column.
	col := strings.Index(lines[0], "VALUE")
	if col < 0 {
		t.Fatal("header row missing VALUE")
	}
	if got := strings.Index(lines[2], "1.25"); got != col {
		t.Errorf("first value at column %d, want %d", got, col)
	}
	if got := strings.Index(lines[3], "0.5"); got != col {
		t.Errorf("second value at column %d, want %d", got, col)
	}
}

func TestTableRightAlign(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"NAME", "VALUE"}, true)
	table.AlignRight(1)
	table.AddRow("a", "1.25")
	table.AddRow("b", "10.125")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}

	// Right-aligned numerics end at the same column.
	if len(lines[2]) != len(lines[3]) {
		t.Errorf("right-aligned rows have different widths: %q vs %q", lines[2], lines[3])
	}
	if !strings.HasSuffix(lines[2], "1.25") || !strings.HasSuffix(lines[3], "10.125") {
		t.Errorf("values not flushed right: %q / %q", lines[2], lines[3])
	}
}

func TestTableColoredCellWidth(t *testing.T) {
	// Color sequences in a cell must not count toward its width,
	// otherwise the columns after a colored STATUS cell drift.
	color.NoColor = false
	defer func() { color.NoColor = false }()

	green := color.New(color.FgGreen)
	green.EnableColor()
	colored := green.Sprint("satisfied")
	if !strings.Contains(colored, "\x1b[") {
		t.Skip("color output disabled in this environment")
	}

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"STATUS", "VALUE"}, false)
	table.AddRow(colored, "1.5")
	table.AddRow("violated", "2.5")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	plain := stripANSI(lines[2])
	ref := stripANSI(lines[3])
	if strings.Index(plain, "1.5") != strings.Index(ref, "2.5") {
		t.Errorf("colored cell skewed column alignment:\n%q\n%q", plain, ref)
	}
}

func TestTableShortRow(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"NAME", "TYPE", "STATUS"}, true)
	table.AddRow("origin-lock")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[2], "origin-lock") {
		t.Errorf("row missing its one cell: %q", lines[2])
	}
}

func TestVisibleWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"distance", 8},
		{"\x1b[32msatisfied\x1b[0m", 9},
		{"\x1b[1;31mviolated\x1b[0m", 8},
		{"résumé", 6},
	}
	for _, tt := range tests {
		if got := visibleWidth(tt.in); got != tt.want {
			t.Errorf("visibleWidth(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestKeyValueTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Iterations", "12")
	kv.AddRow("Residual", "3.2e-09")
	kv.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if strings.Index(lines[0], "12") != strings.Index(lines[1], "3.2e-09") {
		t.Errorf("values not aligned:\n%q\n%q", lines[0], lines[1])
	}
	if !strings.Contains(lines[0], "Iterations:") {
		t.Errorf("key missing colon: %q", lines[0])
	}
}

func TestKeyValueTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.Render()

	if buf.Len() != 0 {
		t.Errorf("empty key-value table should render nothing, got %q", buf.String())
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			i += 2
			for i < len(s) && (s[i] < 0x40 || s[i] > 0x7e) {
				i++
			}
			if i < len(s) {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
