package endpoints

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// redacted replaces credentials that are not ${ENV_VAR} references.
const redacted = "********"

// Setting is one effective configuration value.
type Setting struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Default     any    `json:"default"`
	Description string `json:"description"`
	Modified    bool   `json:"modified"`
}

// SettingsResponse contains the effective configuration.
type SettingsResponse struct {
	ConfigFile  string    `json:"config_file,omitempty"`
	ReloadError string    `json:"reload_error,omitempty"`
	Settings    []Setting `json:"settings"`
}

// ListSettingsEndpoint handles GET /api/settings.
type ListSettingsEndpoint struct{}

func (e *ListSettingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/settings", e.handler
}

func (e *ListSettingsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List all settings
//	@Description	Get the effective configuration. Credentials are redacted.
//	@Tags			settings
//	@Produce		json
//	@Param			prefix	query		string	false	"Only keys with this prefix (e.g., speech.)"
//	@Success		200		{object}	SettingsResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/settings [get]
func (e *ListSettingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cm := svcctx.ConfigFrom(r.Context())
	if cm == nil {
		writeError(w, http.StatusServiceUnavailable, "config not available")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	resp := SettingsResponse{ConfigFile: cm.ConfigFile()}
	if err := cm.ReloadError(); err != nil {
		resp.ReloadError = err.Error()
	}
	for _, s := range settings(cm.Get()) {
		if strings.HasPrefix(s.Key, prefix) {
			resp.Settings = append(resp.Settings, s)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListSettingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/settings"
			if prefix != "" {
				path += "?prefix=" + url.QueryEscape(prefix)
			}
			var resp SettingsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Filter by key prefix (e.g., 'speech.')")
	return cmd
}

// GetSettingEndpoint handles GET /api/settings/{key...}.
type GetSettingEndpoint struct{}

func (e *GetSettingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/settings/{key...}", e.handler
}

func (e *GetSettingEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a setting
//	@Description	Get one effective setting with its default
//	@Tags			settings
//	@Produce		json
//	@Param			key	path		string	true	"Setting key (e.g., lesson.batch_size)"
//	@Success		200	{object}	Setting
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/settings/{key} [get]
func (e *GetSettingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "invalid setting key")
		return
	}

	cm := svcctx.ConfigFrom(r.Context())
	if cm == nil {
		writeError(w, http.StatusServiceUnavailable, "config not available")
		return
	}

	for _, s := range settings(cm.Get()) {
		if s.Key == key {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown setting: "+key)
}

func (e *GetSettingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a setting by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp Setting
			if err := client.Get(cmd.Context(), "/api/settings/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// settings pairs each effective value with its default.
func settings(cfg *config.Config) []Setting {
	defaults := config.DefaultEntries()
	current := cfg.Entries()
	out := make([]Setting, len(current))
	for i, e := range current {
		s := Setting{
			Key:         e.Key,
			Value:       e.Value,
			Default:     defaults[i].Value,
			Description: e.Description,
			Modified:    e.Value != defaults[i].Value,
		}
		if config.IsSecret(e.Key) {
			s.Value = redact(e.Value)
		}
		out[i] = s
	}
	return out
}

func redact(v any) any {
	s, _ := v.(string)
	if s == "" || strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return s
	}
	return redacted
}
