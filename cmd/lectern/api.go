package main

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/home"
	"github.com/jackzampolin/lectern/internal/server/endpoints"
)

const defaultServerURL = "http://localhost:8080"

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Lectern server via HTTP.

These commands require a running server (lectern serve).
Use --server to specify a custom server URL; by default the address
comes from server.host and server.port in config.

Examples:
  lectern api health                         # Check server health
  lectern api library list                   # List chapter PDFs
  lectern api sessions create physics 1      # Open a session
  lectern api sessions start <id> --page 3   # Start the lesson at page 3
  lectern api sessions image <id> -f p.png   # Save the current page image`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	h, err := home.New(homeDir)
	if err != nil {
		return defaultServerURL
	}
	cm, err := loadConfig(h)
	if err != nil {
		return defaultServerURL
	}
	return serverURLFor(cm.Get().Server.Host, cm.Get().Server.Port)
}

// serverURLFor turns a listen address into one a client can dial.
func serverURLFor(host, port string) string {
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func init() {
	// Persistent so all subcommands inherit it
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "", "Server URL (default: from server.host and server.port)",
	)

	for _, c := range endpoints.TopLevelCommands(endpoints.Config{}) {
		if cmd := c.Command(getServerURL); cmd != nil {
			apiCmd.AddCommand(cmd)
		}
	}

	apiCmd.AddCommand(api.Group("library", "Textbook library commands", endpoints.LibraryCommands(), getServerURL))
	apiCmd.AddCommand(api.Group("sessions", "Lesson session commands", endpoints.SessionCommands(), getServerURL))
	apiCmd.AddCommand(api.Group("prompts", "Prompt template commands", endpoints.PromptsCommands(), getServerURL))
	apiCmd.AddCommand(api.Group("settings", "Configuration settings commands", endpoints.SettingsCommands(), getServerURL))

	rootCmd.AddCommand(apiCmd)
}
