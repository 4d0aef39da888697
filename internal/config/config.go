package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment override, e.g.
// LECTERN_GENERATION_MODEL overrides generation.model.
const EnvPrefix = "LECTERN"

// Manager owns the live Config. Readers call Get; a watched file that
// changes is re-validated and swapped in, then the OnChange callbacks run.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	reloadErr error
	callbacks []func(*Config)
}

// NewManager reads cfgFile, or config.yaml from the working directory or
// ~/.lectern when cfgFile is empty. A missing file leaves defaults and
// LECTERN_ environment overrides in effect.
func NewManager(cfgFile string) (*Manager, error) {
	v := viper.New()
	for _, e := range DefaultEntries() {
		v.SetDefault(e.Key, e.Value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lectern")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cm := &Manager{v: v}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) load() (*Config, error) {
	cfg := new(Config)
	if err := cm.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Get returns the active config. Callers must not modify it.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile is the file in use, empty when running on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// ReloadError is the error from the last rejected reload, nil once a later
// reload succeeds. The previous config stays active meanwhile.
func (cm *Manager) ReloadError() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.reloadErr
}

// OnChange registers fn to run after each accepted reload.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	cm.callbacks = append(cm.callbacks, fn)
	cm.mu.Unlock()
}

// WatchConfig reloads whenever the config file changes on disk.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(fsnotify.Event) { cm.reload() })
	cm.v.WatchConfig()
}

func (cm *Manager) reload() {
	cfg, err := cm.load()

	cm.mu.Lock()
	cm.reloadErr = err
	if err != nil {
		cm.mu.Unlock()
		return
	}
	cm.config = cfg
	callbacks := slices.Clone(cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	return envPattern.ReplaceAllStringFunc(value, func(ref string) string {
		return os.Getenv(envPattern.FindStringSubmatch(ref)[1])
	})
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Lectern configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export GEMINI_API_KEY=xxx OPENAI_API_KEY=xxx
# Any key can also be overridden with LECTERN_<SECTION>_<KEY>, e.g. LECTERN_SPEECH_VOICE=alloy

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
