package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

type Config struct {
	Checker struct {
		ProxyLimit    uint32 `json:"proxy_limit"`
		ProtocolLimit uint32 `json:"protocol_limit"`
		Timeout       uint32 `json:"timeout"` // seconds, per probe

		JudgesTimeout  uint32   `json:"judges_timeout"` // seconds, liveness and real address lookups
		Judges         []string `json:"judges"`
		JudgeBlocklist []string `json:"judge_blocklist"`

		ProxyHeader []string `json:"proxy_header"`
	} `json:"checker"`

	GeoLite struct {
		Database string `json:"database"`
	} `json:"geolite"`

	LogLevel string `json:"log_level"`
}

const DefaultSettingsPath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex
)

func init() {
	cfg, err := DefaultConfig()
	if err != nil {
		panic(fmt.Sprintf("config: embedded default settings are invalid: %v", err))
	}
	configValue.Store(cfg)
	updateJudgeBlocklist(cfg.Checker.JudgeBlocklist)
}

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() (Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfig, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadSettings loads the settings file at path and makes it the active
// configuration. A missing file is created from the embedded defaults.
func ReadSettings(path string) error {
	if path == "" {
		path = DefaultSettingsPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read settings file: %w", err)
		}

		log.Warn("Settings file not found, creating with default configuration", "path", path)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
		if err := os.WriteFile(path, defaultConfig, 0o644); err != nil {
			return fmt.Errorf("write default settings file: %w", err)
		}

		data = defaultConfig
	}

	// Start from the defaults so a partial file only overrides what it names.
	newConfig, err := DefaultConfig()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &newConfig); err != nil {
		return fmt.Errorf("unmarshal settings file: %w", err)
	}

	SetConfig(newConfig)
	log.Debug("Settings file loaded successfully", "path", path)

	return nil
}

func SetConfig(newConfig Config) {
	configMu.Lock()
	defer configMu.Unlock()

	newConfig.Checker.JudgeBlocklist = NormalizeJudgeBlocklist(newConfig.Checker.JudgeBlocklist)
	configValue.Store(newConfig)
	updateJudgeBlocklist(newConfig.Checker.JudgeBlocklist)
}

func GetConfig() Config {
	return configValue.Load().(Config)
}
