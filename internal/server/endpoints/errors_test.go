package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackzampolin/lectern/internal/failure"
	"github.com/jackzampolin/lectern/internal/lesson"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/providers"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unknown session", lesson.ErrUnknownSession, http.StatusNotFound},
		{"no cover", pdfsource.ErrNoCover, http.StatusNotFound},
		{"invalid transition", fmt.Errorf("%w: start from teaching", lesson.ErrInvalidTransition), http.StatusConflict},
		{"busy", lesson.ErrBusy, http.StatusConflict},
		{"stopped", lesson.ErrStopped, http.StatusConflict},
		{"speech not configured", failure.Configuration("build packet", providers.ErrSpeechNotConfigured), http.StatusServiceUnavailable},
		{"missing credential", failure.Configuration("build packet", providers.ErrMissingCredential), http.StatusBadRequest},
		{"range", failure.Range("build packet", errors.New("page 9 outside 1-3")), http.StatusUnprocessableEntity},
		{"asset", failure.Asset("render", errors.New("corrupt")), http.StatusUnprocessableEntity},
		{"upstream", failure.Upstream("generate", errors.New("503")), http.StatusBadGateway},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
