package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// VoiceResponse represents a voice in API responses.
type VoiceResponse struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"is_default"`
}

// ListVoicesResponse contains the voices of the configured speech provider.
type ListVoicesResponse struct {
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
	Voice    string          `json:"voice"`
	Speed    float64         `json:"speed"`
	Voices   []VoiceResponse `json:"voices"`
}

// ListVoicesEndpoint handles GET /api/tts/voices.
type ListVoicesEndpoint struct{}

func (e *ListVoicesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/tts/voices", e.handler
}

func (e *ListVoicesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List TTS voices
//	@Description	List the voices of the configured speech provider and mark the narration voice
//	@Tags			tts
//	@Produce		json
//	@Success		200	{object}	ListVoicesResponse
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/tts/voices [get]
func (e *ListVoicesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	factory := svcctx.FactoryFrom(r.Context())
	if factory == nil {
		writeError(w, http.StatusServiceUnavailable, "providers not initialized")
		return
	}

	voiceList, err := factory.Voices(r.Context())
	if err != nil {
		if StatusFor(err) == http.StatusInternalServerError {
			writeError(w, http.StatusBadGateway, "failed to list voices: "+err.Error())
			return
		}
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, voicesResponse(factory.SpeechConfig(), voiceList))
}

func voicesResponse(cfg providers.SpeechConfig, voiceList []providers.Voice) ListVoicesResponse {
	resp := ListVoicesResponse{
		Provider: cfg.Type,
		Model:    cfg.Model,
		Voice:    cfg.Voice,
		Speed:    cfg.Speed,
		Voices:   make([]VoiceResponse, len(voiceList)),
	}
	for i, v := range voiceList {
		resp.Voices[i] = VoiceResponse{
			VoiceID:     v.VoiceID,
			Name:        v.Name,
			Description: v.Description,
			IsDefault:   v.VoiceID == cfg.Voice,
		}
	}
	return resp
}

func (e *ListVoicesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List voices of the configured speech provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListVoicesResponse
			if err := client.Get(cmd.Context(), "/api/tts/voices", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
