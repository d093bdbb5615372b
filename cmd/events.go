package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/resgraph/internal/telemetry"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "View the JSONL warning and run event stream",
	Long: `Reads and formats the JSONL events file written by import and watch
(--events or events_path).

With --follow (-f), watches the file for new events (like tail -f).
With --run, only events of that run are shown.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	eventsCmd.Flags().String("run", "", "only show events of this run ID")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	runID, _ := cmd.Flags().GetString("run")

	path := viper.GetString("events_path")
	if path == "" {
		return errors.New("events: no events file configured (use --events or events_path)")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("events: open %s: %w", path, err)
	}
	defer f.Close()

	t := &eventTail{w: cmd.OutOrStdout(), reader: bufio.NewReader(f), runID: runID}
	t.printAvailable()
	if !follow {
		t.flush()
		return nil
	}
	return tailFollow(cmd, t, path)
}

// eventTail prints complete lines as they become readable. A trailing line
// without a newline is held back until the writer finishes it.
type eventTail struct {
	w       io.Writer
	reader  *bufio.Reader
	runID   string
	partial string
}

func (t *eventTail) printAvailable() {
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			t.partial += line
			return
		}
		line = strings.TrimSpace(t.partial + line)
		t.partial = ""
		if line != "" {
			printEvent(t.w, line, t.runID)
		}
	}
}

func (t *eventTail) flush() {
	if line := strings.TrimSpace(t.partial); line != "" {
		printEvent(t.w, line, t.runID)
	}
	t.partial = ""
}

// tailFollow watches the file for new data using fsnotify and prints new
// events until the command's context is done.
func tailFollow(cmd *cobra.Command, t *eventTail, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("events: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("events: watch %s: %w", path, err)
	}

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				t.printAvailable()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("events: watch %s: %w", path, err)
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
func printEvent(w io.Writer, line, runID string) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if runID != "" && !strings.HasPrefix(evt.RunID, runID) {
		return
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Local().Format(time.TimeOnly)), evt.Kind}
	if evt.RunID != "" {
		parts = append(parts, "run="+shortID(evt.RunID))
	}
	if evt.Pass != "" {
		parts = append(parts, "pass="+evt.Pass)
	}
	if evt.Message != "" {
		parts = append(parts, strings.ReplaceAll(evt.Message, "\n", " "))
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}
