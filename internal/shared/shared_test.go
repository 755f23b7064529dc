package shared

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2025, 3, 9, 14, 5, 7, 123456000, time.UTC)

	tc := []struct {
		name   string
		prefix string
		stem   string
		ext    string
		want   string
	}{
		{
			name:   "raw payload",
			prefix: "raw_data/to_processed/",
			stem:   "spotify_raw",
			ext:    ".json",
			want:   "raw_data/to_processed/spotify_raw_2025-03-09T14-05-07.123456.json",
		},
		{
			name:   "song dataset",
			prefix: "transformed_data/songs_data/",
			stem:   "song_transformed",
			ext:    ".csv",
			want:   "transformed_data/songs_data/song_transformed_2025-03-09T14-05-07.123456.csv",
		},
		{
			name:   "empty prefix",
			prefix: "",
			stem:   "x",
			ext:    ".csv",
			want:   "x_2025-03-09T14-05-07.123456.csv",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := ObjectName(tt.prefix, tt.stem, at, tt.ext)
			if got != tt.want {
				t.Errorf("ObjectName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	t.Run("converts to UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		at := time.Date(2025, 1, 1, 2, 0, 0, 0, loc)

		if got := Timestamp(at); got != "2025-01-01T00-00-00.000000" {
			t.Errorf("Timestamp() = %v", got)
		}
	})

	t.Run("sorts chronologically", func(t *testing.T) {
		a := Timestamp(time.Date(2025, 1, 1, 9, 59, 59, 0, time.UTC))
		b := Timestamp(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
		if a >= b {
			t.Errorf("expected %s < %s", a, b)
		}
	})
}

func TestLogger(t *testing.T) {
	t.Run("WithLogger adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "stage", "transform")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "stage=transform") {
			t.Errorf("expected stage field in output, got %q", buf.String())
		}
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		if got := ParseLogLevel("debug"); got != log.DebugLevel {
			t.Errorf("expected debug level, got %v", got)
		}
		if got := ParseLogLevel("nonsense"); got != log.InfoLevel {
			t.Errorf("expected info fallback, got %v", got)
		}
	})

	t.Run("GenerateID is unique", func(t *testing.T) {
		if GenerateID() == GenerateID() {
			t.Error("expected distinct ids")
		}
	})
}
