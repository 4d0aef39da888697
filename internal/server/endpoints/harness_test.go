package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/lesson"
	"github.com/jackzampolin/lectern/internal/packet"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/prompts"
	lessonprompts "github.com/jackzampolin/lectern/internal/prompts/lesson"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/svcctx"
	"github.com/jackzampolin/lectern/internal/testutil"
)

const lessonText = "【知識點總結】光合作用。\n[[VOICE_START]]今天我們學光合作用。植物需要陽光！[[VOICE_END]]"

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, path string, pageIndex int, scale float64) ([]byte, error) {
	return testutil.PNG(8, 8), nil
}

// noTicks keeps caption timers from firing so tests see stable state.
func noTicks(time.Duration, func()) func() { return func() {} }

type testEnv struct {
	svc    *svcctx.Services
	gen    *providers.MockGenerator
	tts    *providers.MockTTS
	mux    *http.ServeMux
	libDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testutil.Logger()

	libDir := t.TempDir()
	testutil.WritePDF(t, libDir, "physics_1.pdf", 3)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.WriteDefault(cfgPath); err != nil {
		t.Fatal(err)
	}
	cm, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	factory := providers.NewFactory(logger)
	factory.Reload(providers.FactoryConfig{
		Generation: providers.GenerationConfig{Type: "gemini", Model: "gemini-2.5-flash"},
		Speech:     providers.SpeechConfig{Type: "openai", Model: "gpt-4o-mini-tts", Voice: "nova", APIKey: "test-key"},
	})

	resolver := prompts.NewResolver(logger)
	lessonprompts.RegisterPrompts(resolver)

	env := &testEnv{
		gen:    providers.NewMockGenerator(lessonText),
		tts:    providers.NewMockTTS(testutil.MP3(40)),
		libDir: libDir,
	}
	source := &providers.MockSource{Gen: env.gen, TTS: env.tts}
	builder := packet.NewBuilder(packet.Config{
		Renderer:   stubRenderer{},
		Generators: source,
		Speech:     source,
		Prompts:    resolver,
		Logger:     logger,
	})
	sessions := lesson.NewManager(builder, lesson.ManagerConfig{BatchSize: 2, Scheduler: noTicks}, logger)
	t.Cleanup(sessions.CloseAll)

	env.svc = &svcctx.Services{
		Sessions:  sessions,
		Library:   pdfsource.NewLibrary(libDir),
		Factory:   factory,
		Builder:   builder,
		Prompts:   resolver,
		ConfigMgr: cm,
		Logger:    logger,
	}

	registry := api.NewRegistry()
	for _, ep := range All(Config{}) {
		registry.Register(ep)
	}
	env.mux = http.NewServeMux()
	registry.RegisterRoutes(env.mux, func(h http.HandlerFunc) http.HandlerFunc { return h })
	return env
}

// do sends a request through the mux with services attached.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req = req.WithContext(svcctx.WithServices(req.Context(), e.svc))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, rec.Body.String())
	}
	return v
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, "POST", "/api/sessions", CreateSessionRequest{Volume: "physics", Chapter: "1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d body %s", rec.Code, rec.Body.String())
	}
	return decode[SessionResponse](t, rec).ID
}

func newServicesRequest(e *testEnv, method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(svcctx.WithServices(req.Context(), e.svc))
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}
