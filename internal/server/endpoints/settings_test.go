package endpoints

import (
	"net/http"
	"strings"
	"testing"
)

func TestListSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/settings?prefix=speech.", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[SettingsResponse](t, rec)
	if len(resp.Settings) == 0 {
		t.Fatal("no speech settings")
	}
	for _, s := range resp.Settings {
		if !strings.HasPrefix(s.Key, "speech.") {
			t.Errorf("unexpected key %s", s.Key)
		}
		if s.Key == "speech.api_key" && s.Value != "${OPENAI_API_KEY}" {
			t.Errorf("env reference should be shown as is, got %v", s.Value)
		}
	}
	if resp.ConfigFile == "" {
		t.Error("config file not reported")
	}
}

func TestGetSetting(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/settings/lesson.batch_size", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	s := decode[Setting](t, rec)
	if s.Value != float64(5) || s.Modified {
		t.Errorf("setting = %+v", s)
	}

	if rec := env.do(t, "GET", "/api/settings/lesson.nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown key: status %d, want 404", rec.Code)
	}
}

func TestRedact(t *testing.T) {
	tests := map[any]any{
		"":                  "",
		"${GEMINI_API_KEY}": "${GEMINI_API_KEY}",
		"sk-live-123":       redacted,
	}
	for in, want := range tests {
		if got := redact(in); got != want {
			t.Errorf("redact(%v) = %v, want %v", in, got, want)
		}
	}
}
