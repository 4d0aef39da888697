package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/cache"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/svcctx"
	"github.com/jackzampolin/lectern/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Library string `json:"library,omitempty"`
	Cache   string `json:"cache,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Liveness check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Ready when the library has documents and the packet cache, if enabled, answers
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := HealthResponse{Status: "ok", Library: "ok", Cache: "disabled"}

	library := svcctx.LibraryFrom(ctx)
	if library == nil {
		resp.Status = "degraded"
		resp.Library = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if err := library.Validate(); err != nil {
		resp.Status = "degraded"
		resp.Library = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	// The cache is optional; a failing cache degrades without blocking lessons.
	if c := svcctx.CacheFrom(ctx); c != nil {
		if err := c.Ping(ctx); err != nil {
			resp.Cache = "unhealthy"
		} else {
			resp.Cache = "ok"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (library and cache)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:  %s\n", resp.Status)
			fmt.Printf("Library: %s\n", resp.Library)
			fmt.Printf("Cache:   %s\n", resp.Cache)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string                   `json:"server"`
	Version   string                   `json:"version"`
	Library   LibraryStatus            `json:"library"`
	Providers *providers.FactoryStatus `json:"providers,omitempty"`
	Sessions  int                      `json:"sessions"`
	Cache     CacheStatus              `json:"cache"`
	Config    string                   `json:"config,omitempty"`
}

// LibraryStatus shows where documents are read from.
type LibraryStatus struct {
	Dir       string `json:"dir"`
	Documents int    `json:"documents"`
}

// CacheStatus shows the packet cache container and connection.
type CacheStatus struct {
	Enabled   bool   `json:"enabled"`
	Container string `json:"container,omitempty"`
	Addr      string `json:"addr,omitempty"`
	Health    string `json:"health"`
	Packets   int64  `json:"packets,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// CacheManager is set by server since it's not in Services
	CacheManager *cache.DockerManager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Library, provider, session and cache status
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
	}

	if library := svcctx.LibraryFrom(ctx); library != nil {
		resp.Library.Dir = library.Dir()
		if docs, err := library.List(); err == nil {
			resp.Library.Documents = len(docs)
		}
	}

	if factory := svcctx.FactoryFrom(ctx); factory != nil {
		st := factory.Status()
		resp.Providers = &st
	}

	if sessions := svcctx.SessionsFrom(ctx); sessions != nil {
		resp.Sessions = sessions.Count()
	}

	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		resp.Config = cm.ConfigFile()
		resp.Cache.Enabled = cm.Get().Cache.Enabled
	}

	if e.CacheManager != nil {
		status, err := e.CacheManager.Status(ctx)
		if err != nil {
			resp.Cache.Container = "error"
		} else {
			resp.Cache.Container = string(status)
		}
	}

	resp.Cache.Health = "disabled"
	if c := svcctx.CacheFrom(ctx); c != nil {
		stats, err := c.Stats(ctx)
		if err != nil {
			resp.Cache.Health = "unhealthy"
		} else {
			resp.Cache.Health = "healthy"
			resp.Cache.Addr = stats.Addr
			resp.Cache.Packets = stats.Packets
		}
	} else if resp.Cache.Enabled {
		resp.Cache.Health = "unavailable"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
