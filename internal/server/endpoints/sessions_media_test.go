package endpoints

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/jackzampolin/lectern/internal/testutil"
)

func TestPacketMedia(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	// No packet before the lesson starts.
	if rec := env.do(t, "GET", "/api/sessions/"+id+"/image", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("image before start: status %d, want 404", rec.Code)
	}

	rec := env.do(t, "POST", "/api/sessions/"+id+"/start", StartLessonRequest{Credential: "key", StartPage: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, "GET", "/api/sessions/"+id+"/image", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("image: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("image content type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), testutil.PNG(8, 8)) {
		t.Error("image body differs from rendered page")
	}

	rec = env.do(t, "GET", "/api/sessions/"+id+"/audio", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audio: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("audio content type = %q", ct)
	}
	audio := testutil.MP3(40)
	if !bytes.Equal(rec.Body.Bytes(), audio) {
		t.Error("audio body differs from synthesized narration")
	}
}

func TestPacketAudioRange(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.do(t, "POST", "/api/sessions/"+id+"/start", StartLessonRequest{Credential: "key", StartPage: 1})

	req := newServicesRequest(env, "GET", "/api/sessions/"+id+"/audio")
	req.Header.Set("Range", "bytes=0-9")
	rec := serve(env, req)
	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if rec.Body.Len() != 10 {
		t.Errorf("range body = %d bytes, want 10", rec.Body.Len())
	}
}
