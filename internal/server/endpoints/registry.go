package endpoints

import (
	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/cache"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	CacheManager    *cache.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{CacheManager: cfg.CacheManager},

		// Library endpoints
		&ListLibraryEndpoint{},
		&CoverEndpoint{},

		// Session endpoints
		&CreateSessionEndpoint{},
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&EndSessionEndpoint{},
		&StartLessonEndpoint{},
		&StopLessonEndpoint{},
		&NextBatchEndpoint{},
		&PreviewEndpoint{},
		&PageImageEndpoint{},
		&PageAudioEndpoint{},

		// TTS endpoints
		&ListVoicesEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Settings endpoints
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}

// LibraryCommands groups library commands under "library".
func LibraryCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListLibraryEndpoint{},
		&CoverEndpoint{},
	}
}

// SessionCommands groups session and lesson commands under "sessions".
func SessionCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateSessionEndpoint{},
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&EndSessionEndpoint{},
		&StartLessonEndpoint{},
		&StopLessonEndpoint{},
		&NextBatchEndpoint{},
		&PreviewEndpoint{},
		&PageImageEndpoint{},
		&PageAudioEndpoint{},
	}
}

// PromptsCommands groups prompt commands under "prompts".
func PromptsCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},
	}
}

// SettingsCommands groups settings commands under "settings".
func SettingsCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListSettingsEndpoint{},
		&GetSettingEndpoint{},
	}
}

// TopLevelCommands are attached directly under "api".
func TopLevelCommands(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{CacheManager: cfg.CacheManager},
		&ListVoicesEndpoint{},
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}
