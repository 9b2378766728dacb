package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(config.LogConfig{Level: "debug"}, &buf), "dune")
	logger.Debug().Str("query", "eth_price").Msg("polling")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "dune" || entry["query"] != "eth_price" || entry["level"] != "debug" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)
	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
}

func TestNewWithWriterBadLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LogConfig{Level: "loud"}, &buf)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) || bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
