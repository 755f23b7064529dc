// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// TimestampLayout is the layout used to stamp object names. It sorts lexicographically and contains no characters
// that need escaping in object keys or file paths.
const TimestampLayout = "2006-01-02T15-04-05.000000"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel converts a level name (debug, info, warn, error, fatal) to a [log.Level], falling back to info.
func ParseLogLevel(level string) log.Level {
	ll, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return ll
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// Timestamp formats t in UTC with [TimestampLayout].
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ObjectName builds "<prefix><stem>_<timestamp><ext>", e.g. "raw_data/to_processed/spotify_raw_2025-01-02T03-04-05.000000.json"
func ObjectName(prefix, stem string, t time.Time, ext string) string {
	return prefix + stem + "_" + Timestamp(t) + ext
}
