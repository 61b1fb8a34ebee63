// Package config loads the instructsheet configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/theme"
)

// Style holds the initial sheet style.
type Style struct {
	FontSize   float64 `mapstructure:"font_size" toml:"font_size"`
	FontFamily string  `mapstructure:"font_family" toml:"font_family"`
	ArrowColor string  `mapstructure:"arrow_color" toml:"arrow_color"`
}

// Notify holds notification settings.
type Notify struct {
	Export  bool `mapstructure:"export" toml:"export"`
	Copy    bool `mapstructure:"copy" toml:"copy"`
	Analyze bool `mapstructure:"analyze" toml:"analyze"`
}

// Inference holds the model client settings. The API key itself is never
// stored; APIKeyEnv names the environment variable holding it.
type Inference struct {
	Endpoint     string `mapstructure:"endpoint" toml:"endpoint"`
	Model        string `mapstructure:"model" toml:"model"`
	APIKeyEnv    string `mapstructure:"api_key_env" toml:"api_key_env"`
	Timeout      string `mapstructure:"timeout" toml:"timeout"`
	Retries      int    `mapstructure:"retries" toml:"retries"`
	MaxImageEdge int    `mapstructure:"max_image_edge" toml:"max_image_edge"`
}

// Server holds the HTTP API settings.
type Server struct {
	Addr         string `mapstructure:"addr" toml:"addr"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" toml:"max_body_bytes"`
	MaxPixels    int    `mapstructure:"max_pixels" toml:"max_pixels"`
}

// Config holds the application configuration.
type Config struct {
	LogLevel  string                       `mapstructure:"log_level" toml:"log_level"`
	Theme     string                       `mapstructure:"theme" toml:"theme"`
	SaveDir   string                       `mapstructure:"save_dir" toml:"save_dir"`
	Style     Style                        `mapstructure:"style" toml:"style"`
	Notify    Notify                       `mapstructure:"notify" toml:"notify"`
	Inference Inference                    `mapstructure:"inference" toml:"inference"`
	Server    Server                       `mapstructure:"server" toml:"server"`
	Themes    map[string]map[string]string `mapstructure:"theme_defs" toml:"theme_defs,omitempty"`
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Theme:    "", // Default to empty to allow fallback to the built-in theme
		Style: Style{
			FontSize:   render.DefaultFontSize,
			FontFamily: render.DefaultFontFamily,
			ArrowColor: "cycle",
		},
		Inference: Inference{
			Model:        "gemini-2.0-flash",
			APIKeyEnv:    "GEMINI_API_KEY",
			Timeout:      "2m",
			Retries:      1,
			MaxImageEdge: 2048,
		},
		Server: Server{
			Addr:         ":8080",
			MaxBodyBytes: 20 << 20,
			MaxPixels:    imageio.DefaultMaxPixels,
		},
	}
}

// String implements fmt.Stringer and returns the configuration as TOML.
func (c *Config) String() string {
	b, err := toml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# config: %v\n", err)
	}
	return string(b)
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(c.String()), 0o644)
}

// RenderStyle converts the style section.
func (c *Config) RenderStyle() (render.Style, error) {
	arrow, err := render.ParseArrowColor(c.Style.ArrowColor)
	if err != nil {
		return render.Style{}, err
	}
	return render.Style{
		FontSize:   c.Style.FontSize,
		FontFamily: c.Style.FontFamily,
		ArrowColor: arrow,
	}.Normalized(), nil
}

// APIKey reads the key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.Inference.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Inference.APIKeyEnv)
}

// Timeout parses the inference timeout, defaulting to two minutes.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Inference.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// ThemeNames lists the themes defined inline, sorted.
func (c *Config) ThemeNames() []string {
	names := make([]string, 0, len(c.Themes))
	for name := range c.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveTheme returns the theme called name. Inline definitions win over
// the loader's search path; an empty name uses the configured theme.
func (c *Config) ResolveTheme(name string, l *theme.Loader) (*theme.Theme, error) {
	if name == "" {
		name = c.Theme
	}
	// keys of inline tables are lower-cased when read
	if values, ok := c.Themes[strings.ToLower(name)]; ok {
		return theme.FromMap(name, values)
	}
	if l == nil {
		l = theme.NewLoader()
	}
	return l.Load(name)
}
