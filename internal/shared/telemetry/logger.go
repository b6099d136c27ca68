package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Fields carries structured key/value context for one log line.
type Fields = map[string]any

var (
	mu  sync.Mutex
	out io.Writer // nil means os.Stdout, resolved per write
)

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields Fields) {
	write("info", msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields Fields) {
	write("error", msg, fields)
}

// write emits one JSON object per line. Reserved keys (ts, level, msg) win
// over caller fields of the same name.
func write(level, msg string, fields Fields) {
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	mu.Lock()
	defer mu.Unlock()
	w := out
	if w == nil {
		w = os.Stdout
	}
	if err != nil {
		fmt.Fprintf(w, `{"ts":"%s","level":"error","msg":"logger marshal failed","err":%q}`+"\n", time.Now().UTC().Format(time.RFC3339), err.Error())
		return
	}
	fmt.Fprintln(w, string(data))
}
