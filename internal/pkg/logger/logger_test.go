package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		" WARN ":  WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfigureJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: DebugLevel, Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel, Pretty: true}) })

	lgr := WithField("examID", 42)
	lgr.Info().Msg("exam created")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "exam created" {
		t.Errorf("Expected message field, got %v", entry["message"])
	}
	if entry["examID"] != float64(42) {
		t.Errorf("Expected examID field 42, got %v", entry["examID"])
	}
	if entry["level"] != "info" {
		t.Errorf("Expected level info, got %v", entry["level"])
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: DebugLevel, Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel, Pretty: true}) })

	lgr := WithFields(map[string]interface{}{"submissionID": 7, "problemID": 3})
	lgr.Debug().Msg("solution graded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["submissionID"] != float64(7) || entry["problemID"] != float64(3) {
		t.Errorf("Expected both fields, got %v", entry)
	}
}

func TestConfigureFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: ErrorLevel, Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: InfoLevel, Pretty: true}) })

	Debug().Msg("hidden")
	Warn().Msg("hidden too")
	if buf.Len() != 0 {
		t.Errorf("Expected no output below error level, got %q", buf.String())
	}

	Error().Msg("shown")
	if buf.Len() == 0 {
		t.Error("Expected error level output")
	}
}
