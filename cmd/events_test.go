package cmd

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestPrintEvent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		line   string
		runID  string
		want   []string
		reject bool
	}{
		{
			name: "warning",
			line: `{"ts":"2026-01-01T10:00:00Z","kind":"namespace_collision","run":"0123456789abcdef","pass":"android","message":"Multiple R classes\n  //x:m1"}`,
			want: []string{"namespace_collision", "run=01234567", "pass=android", "Multiple R classes   //x:m1"},
		},
		{
			name: "data map sorted",
			line: `{"ts":"2026-01-01T10:00:00Z","kind":"import_done","data":{"warnings":2,"modules":1}}`,
			want: []string{"import_done", "modules=1 warnings=2"},
		},
		{
			name: "undecodable",
			line: `not json`,
			want: []string{"??? not json"},
		},
		{
			name:   "other run filtered",
			line:   `{"ts":"2026-01-01T10:00:00Z","kind":"import_start","run":"aaaa"}`,
			runID:  "bbbb",
			reject: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			printEvent(&buf, tt.line, tt.runID)
			if tt.reject {
				if buf.Len() != 0 {
					t.Errorf("expected no output, got %q", buf.String())
				}
				return
			}
			for _, substr := range tt.want {
				if !strings.Contains(buf.String(), substr) {
					t.Errorf("output %q missing %q", buf.String(), substr)
				}
			}
		})
	}
}

func TestEventTailHoldsPartialLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	input := `{"kind":"import_start"}` + "\n" + `{"kind":"import_do`
	tail := &eventTail{w: &buf, reader: bufio.NewReader(strings.NewReader(input))}

	tail.printAvailable()
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Fatalf("printed %d lines before the partial line completed, want 1:\n%s", got, buf.String())
	}
	if tail.partial != `{"kind":"import_do` {
		t.Errorf("partial = %q", tail.partial)
	}

	tail.reader = bufio.NewReader(strings.NewReader(`ne"}` + "\n"))
	tail.printAvailable()
	if !strings.Contains(buf.String(), "import_done") {
		t.Errorf("completed line not printed:\n%s", buf.String())
	}
}
