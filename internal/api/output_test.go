package api

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputTo(t *testing.T) {
	data := map[string]any{"mode": "teaching", "current_page": 4}

	var buf bytes.Buffer
	if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"mode": "teaching"`) {
		t.Errorf("json output = %s", buf.String())
	}

	buf.Reset()
	if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "mode: teaching") {
		t.Errorf("yaml output = %s", buf.String())
	}

	if err := OutputTo(&buf, OutputFormat("toml"), data); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSetOutputFormat(t *testing.T) {
	defer SetOutputFormat("yaml")

	SetOutputFormat("json")
	if GetOutputFormat() != OutputFormatJSON {
		t.Errorf("format = %s, want json", GetOutputFormat())
	}
	SetOutputFormat("bogus")
	if GetOutputFormat() != DefaultOutput {
		t.Errorf("format = %s, want default", GetOutputFormat())
	}
}

func TestOutputToFile(t *testing.T) {
	defer SetOutputFormat("yaml")
	SetOutputFormat("json")

	path := filepath.Join(t.TempDir(), "swagger.json")
	if err := OutputToFile(map[string]string{"swagger": "2.0"}, path); err != nil {
		t.Fatalf("OutputToFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"swagger": "2.0"`) {
		t.Errorf("file = %s", data)
	}
}
