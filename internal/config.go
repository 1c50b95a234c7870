package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/focus"
	"github.com/starford/walletgraph/internal/graphstore"
	"github.com/starford/walletgraph/internal/layout"
	"github.com/starford/walletgraph/internal/render"
	"github.com/starford/walletgraph/internal/telemetry"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Dataset DatasetConfig     `yaml:"dataset"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Focus   FocusConfig       `yaml:"focus"`
	Layout  LayoutConfig      `yaml:"layout"`
	Render  RenderConfig      `yaml:"render"`
	Prompt  PromptConfig      `yaml:"prompt"`
	Auth    AuthConfig        `yaml:"auth"`
	Tracing TracingConfig     `yaml:"tracing"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Dataset, &c.SQLite, &c.Focus, &c.Layout, &c.Prompt, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DatasetConfig selects where wallet datasets come from.
//
// With an empty Dir the built-in dataset is served and Name must be
// "default.yaml". With a Dir, Name is a file in it and Watch reloads the
// graph when that file changes.
type DatasetConfig struct {
	Dir   string `yaml:"dir"`
	Name  string `yaml:"name"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the dataset configuration.
func (c *DatasetConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, validation.By(func(any) error {
			if !dataset.IsDatasetFile(c.Name) {
				return errors.New("must be a .yaml or .yml file")
			}
			if c.Dir == "" && c.Name != dataset.DefaultName {
				return fmt.Errorf("must be %q when dir is empty", dataset.DefaultName)
			}
			return nil
		})),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// FocusConfig configures focus mode.
type FocusConfig struct {
	Policy      string        `yaml:"policy"`
	FitPadding  float64       `yaml:"fit_padding"`
	FitDuration time.Duration `yaml:"fit_duration"`
}

// Validate validates the focus configuration.
func (c *FocusConfig) Validate() error {
	policies := make([]any, len(focus.Policies))
	for i, p := range focus.Policies {
		policies[i] = string(p)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Policy, validation.Required, validation.In(policies...)),
		validation.Field(&c.FitPadding, validation.Min(0.0)),
		validation.Field(&c.FitDuration, validation.Min(time.Duration(0))),
	)
}

// LayoutConfig configures the startup overlap pass.
type LayoutConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Spread     float64 `yaml:"spread"`
	CardWidth  float64 `yaml:"card_width"`
	CardHeight float64 `yaml:"card_height"`
	Padding    float64 `yaml:"padding"`
	MaxPasses  int     `yaml:"max_passes"`
}

// Validate validates the layout configuration. Disabled layouts are not
// checked.
func (c *LayoutConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Spread, validation.Required, validation.By(func(any) error {
			if c.Spread <= 1 {
				return errors.New("must be greater than 1")
			}
			return nil
		})),
		validation.Field(&c.CardWidth, validation.Required, validation.Min(1.0)),
		validation.Field(&c.CardHeight, validation.Required, validation.Min(1.0)),
		validation.Field(&c.Padding, validation.Min(0.0)),
		validation.Field(&c.MaxPasses, validation.Required, validation.Min(1)),
	)
}

// Options returns the layout options, or nil when the pass is disabled.
func (c *LayoutConfig) Options() *layout.Options {
	if !c.Enabled {
		return nil
	}
	return &layout.Options{
		Spread:     c.Spread,
		CardWidth:  c.CardWidth,
		CardHeight: c.CardHeight,
		Padding:    c.Padding,
		MaxPasses:  c.MaxPasses,
	}
}

// RenderConfig holds card colors. Empty palette fields keep the default.
type RenderConfig struct {
	Palette   render.Palette    `yaml:"palette"`
	Overrides map[string]string `yaml:"overrides"`
}

// ResolvedPalette fills empty fields from the default palette.
func (c *RenderConfig) ResolvedPalette() render.Palette {
	p := render.DefaultPalette()
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&p.Border, c.Palette.Border)
	set(&p.Background, c.Palette.Background)
	set(&p.HeaderBackground, c.Palette.HeaderBackground)
	set(&p.HeaderForeground, c.Palette.HeaderForeground)
	set(&p.BalanceForeground, c.Palette.BalanceForeground)
	return p
}

// PromptConfig configures amount prompts.
type PromptConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the prompt configuration.
func (c *PromptConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TracingConfig configures OpenTelemetry export. An empty endpoint disables
// export.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Options converts the section to telemetry options.
func (c *TracingConfig) Options() telemetry.Options {
	return telemetry.Options{
		Endpoint:    c.Endpoint,
		ServiceName: c.ServiceName,
		Insecure:    c.Insecure,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	lo := layout.DefaultOptions()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Dataset: DatasetConfig{
			Name: dataset.DefaultName,
		},
		SQLite: SQLiteConfig{
			Path: graphstore.MemoryDSN,
		},
		Focus: FocusConfig{
			Policy:      string(focus.OneHopUndirected),
			FitPadding:  0.2,
			FitDuration: 500 * time.Millisecond,
		},
		Layout: LayoutConfig{
			Spread:     lo.Spread,
			CardWidth:  lo.CardWidth,
			CardHeight: lo.CardHeight,
			Padding:    lo.Padding,
			MaxPasses:  lo.MaxPasses,
		},
		Prompt: PromptConfig{
			Timeout: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Tracing: TracingConfig{
			ServiceName: "walletgraph",
		},
	}
}
