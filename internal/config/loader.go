package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. INSTRUCTSHEET_STYLE_FONT_SIZE.
const EnvPrefix = "INSTRUCTSHEET"

// Loader handles loading the configuration.
type Loader struct {
	Version      string // Build version, used to determine dev mode
	OverridePath string // Set at compile time or by flag
}

// NewLoader creates a new Loader.
func NewLoader(version string, overridePath string) *Loader {
	return &Loader{
		Version:      version,
		OverridePath: overridePath,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	d := New()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("save_dir", d.SaveDir)

	v.SetDefault("style.font_size", d.Style.FontSize)
	v.SetDefault("style.font_family", d.Style.FontFamily)
	v.SetDefault("style.arrow_color", d.Style.ArrowColor)

	v.SetDefault("notify.export", d.Notify.Export)
	v.SetDefault("notify.copy", d.Notify.Copy)
	v.SetDefault("notify.analyze", d.Notify.Analyze)

	v.SetDefault("inference.endpoint", d.Inference.Endpoint)
	v.SetDefault("inference.model", d.Inference.Model)
	v.SetDefault("inference.api_key_env", d.Inference.APIKeyEnv)
	v.SetDefault("inference.timeout", d.Inference.Timeout)
	v.SetDefault("inference.retries", d.Inference.Retries)
	v.SetDefault("inference.max_image_edge", d.Inference.MaxImageEdge)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.max_pixels", d.Server.MaxPixels)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("toml")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Parse reads TOML configuration from r on top of the defaults and
// environment overrides.
func Parse(r io.Reader) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

// Load attempts to load the configuration.
func (l *Loader) Load() (*Config, error) {
	path := l.GetConfigPath()
	if path == "" {
		return decode(newViper()) // No config file found, defaults and env only
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// DefaultPath is where `config save` writes when no override is given.
func DefaultPath() string {
	home, _ := homedir.Dir()
	return filepath.Join(home, ".config", "instructsheet", "config.toml")
}

// GetConfigPath returns the path to the configuration file, or empty string if not found.
func (l *Loader) GetConfigPath() string {
	// 1. Variable override path
	if l.OverridePath != "" {
		if p, err := homedir.Expand(l.OverridePath); err == nil {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	// 2. Local run directory (dev mode)
	if l.Version == "dev" {
		wd, _ := os.Getwd()
		localPath := filepath.Join(wd, ".instructsheet.toml")
		if _, err := os.Stat(localPath); err == nil {
			return localPath
		}
	}

	// 3. XDG Config Path
	if p := DefaultPath(); fileExists(p) {
		return p
	}
	return ""
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
