package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/lectern/internal/buildcfg"
	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/home"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/testutil"
)

const lessonText = "【知識點總結】牛頓第一定律。\n[[VOICE_START]]物體會保持原來的運動狀態。除非受到外力！[[VOICE_END]]"

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, path string, pageIndex int, scale float64) ([]byte, error) {
	return testutil.PNG(8, 8), nil
}

// testServer holds what a test needs to drive a running server.
type testServer struct {
	srv    *Server
	url    string
	home   *home.Dir
	gen    *providers.MockGenerator
	cfgMgr *config.Manager
	cancel context.CancelFunc
	done   chan error

	stopOnce sync.Once
	stopErr  error
}

// newTestConfig writes a config file with a free port and extra YAML and
// a library with one three-page document.
func newTestConfig(t *testing.T, extra string) (*config.Manager, *home.Dir, string) {
	t.Helper()

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatal(err)
	}
	testutil.WritePDF(t, h.LibraryPath(), "physics_1.pdf", 3)

	port, err := testutil.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	yaml := fmt.Sprintf("server:\n  host: 127.0.0.1\n  port: \"%s\"\nlesson:\n  batch_size: 2\n%s", port, extra)
	path := filepath.Join(h.Path(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cm, err := config.NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	return cm, h, "http://127.0.0.1:" + port
}

// startServer starts a server with mock providers and waits until it
// answers /health. The server is stopped on cleanup.
func startServer(t *testing.T, extra string) *testServer {
	t.Helper()

	cm, h, url := newTestConfig(t, extra)
	gen := providers.NewMockGenerator(lessonText)
	source := &providers.MockSource{Gen: gen, TTS: providers.NewMockTTS(testutil.MP3(40))}

	srv, err := New(Config{
		ConfigManager: cm,
		Home:          h,
		Logger:        testutil.Logger(),
		Overrides: buildcfg.Overrides{
			Renderer:   stubRenderer{},
			Generators: source,
			Speech:     source,
		},
		Scheduler: func(time.Duration, func()) func() { return func() {} },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{srv: srv, url: url, home: h, gen: gen, cfgMgr: cm, cancel: cancel, done: make(chan error, 1)}
	go func() { ts.done <- srv.Start(ctx) }()

	if err := testutil.WaitForServer(url, 10*time.Second); err != nil {
		cancel()
		t.Fatalf("server did not start: %v", err)
	}
	t.Cleanup(ts.stop)
	return ts
}

// stop cancels the server and returns what Start returned. Safe to call
// more than once.
func (ts *testServer) stop() {
	ts.stopOnce.Do(func() {
		ts.cancel()
		ts.stopErr = testutil.WaitForShutdown(ts.done, 30*time.Second)
	})
}
