package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/cache"
	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/home"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the packet cache container",
	Long: `Manage the local Redis container that caches built packets.

The server starts and stops this container itself when cache.enabled is
set. These commands are for inspecting it or running it independently.
Data is persisted to ~/.lectern/cache/.

Examples:
  lectern cache start   # Start the Redis container
  lectern cache stop    # Stop the container (data preserved)
  lectern cache status  # Check container status and packet count
  lectern cache clear   # Delete every cached packet
  lectern cache logs    # View container logs`,
}

var cacheStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Redis container",
	Long: `Start the Redis container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, cfg, mgr, err := cacheSetup()
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.ValidateExisting(ctx); err != nil {
			return err
		}
		fmt.Println("Starting packet cache...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start cache: %w", err)
		}

		fmt.Printf("Packet cache is running at %s\n", mgr.Addr())
		if !cfg.Cache.Enabled {
			fmt.Println("Note: cache.enabled is false, the server will not use it")
		}
		return nil
	},
}

var cacheStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Redis container",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, mgr, err := cacheSetup()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping packet cache...")
		if err := mgr.Stop(cmd.Context()); err != nil {
			return fmt.Errorf("failed to stop cache: %w", err)
		}

		fmt.Println("Packet cache stopped")
		return nil
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, cfg, mgr, err := cacheSetup()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case cache.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("Addr: %s\n", mgr.Addr())

			rc, err := openRedis(cmd, cfg, mgr.Addr())
			if err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
				return nil
			}
			defer rc.Close()
			stats, err := rc.Stats(ctx)
			if err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
				return nil
			}
			fmt.Println("Health: healthy")
			fmt.Printf("Packets: %d\n", stats.Packets)
		case cache.StatusStopped:
			fmt.Printf("Status: %s (use 'lectern cache start' to start)\n", status)
		case cache.StatusNotFound:
			fmt.Printf("Status: %s (use 'lectern cache start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}
		return nil
	},
}

var logsTail string

var cacheLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show cache container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, mgr, err := cacheSetup()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), logsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the cache container",
	Long: `Remove the Redis container.

This stops and removes the container. Data in ~/.lectern/cache/
is NOT deleted - only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, mgr, err := cacheSetup()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing cache container...")
		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Cache container removed (data preserved)")
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached packet",
	Long: `Delete every cached packet from the configured Redis.

Works against cache.addr, so it also clears an externally run Redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := cm.Get()

		rc, err := openRedis(cmd, cfg, cfg.Cache.Addr)
		if err != nil {
			return err
		}
		defer rc.Close()

		n, err := rc.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d cached packets\n", n)
		return nil
	},
}

var cacheWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the cache to be ready",
	Long: `Wait for Redis to accept connections.

This is useful in scripts to ensure the cache is fully started
before running other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, mgr, err := cacheSetup()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for packet cache (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(cmd.Context(), timeout); err != nil {
			return fmt.Errorf("packet cache not ready: %w", err)
		}

		fmt.Println("Packet cache is ready")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStartCmd)
	cacheCmd.AddCommand(cacheStopCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheLogsCmd)
	cacheCmd.AddCommand(cacheRemoveCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWaitCmd)

	cacheLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")
	cacheWaitCmd.Flags().Duration("timeout", 30*time.Second, "Timeout waiting for the cache")

	rootCmd.AddCommand(cacheCmd)
}

// cacheSetup loads config and creates a DockerManager for the configured
// container, the same one the server manages.
func cacheSetup() (*home.Dir, *config.Config, *cache.DockerManager, error) {
	h, err := getHome()
	if err != nil {
		return nil, nil, nil, err
	}
	cm, err := loadConfig(h)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := cm.Get()

	mgr, err := cache.NewDockerManager(cache.DockerConfig{
		ContainerName: cfg.Cache.ContainerName,
		Image:         cfg.Cache.Image,
		DataPath:      h.CachePath(),
		HostPort:      cfg.Cache.Port,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return h, cfg, mgr, nil
}

func openRedis(cmd *cobra.Command, cfg *config.Config, addr string) (*cache.RedisCache, error) {
	return cache.NewRedisCache(cmd.Context(), cache.RedisConfig{
		Addr:     addr,
		Password: config.ResolveEnvVars(cfg.Cache.Password),
		DB:       cfg.Cache.DB,
		TTL:      cfg.CacheTTL(),
	}, nil)
}
