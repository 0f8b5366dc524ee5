package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration. Render behaviour lives
// in the separately persisted settings file, not here.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Settings SettingsConfig    `yaml:"settings"`
}

// Validate validates every section. Sections validate through pointers
// because AuthConfig normalises its mode in place.
func (c *Config) Validate() error {
	for _, section := range []validation.Validatable{&c.App, &c.Vault, &c.SQLite, &c.Auth, &c.Settings} {
		if err := section.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds process-level options.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// VaultConfig locates the Markdown vault. Watch turns off the fsnotify
// watcher, which also disables auto-render and document events.
type VaultConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c, validation.Field(&c.Path, validation.Required))
}

// SQLiteConfig locates the document index and render journal.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c, validation.Field(&c.Path, validation.Required))
}

// SettingsConfig locates the persisted render settings. The file is created
// on the first settings change.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

func (c *SettingsConfig) Validate() error {
	return validation.ValidateStruct(c, validation.Field(&c.Path, validation.Required))
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
		validation.Field(&c.Token, validation.When(c.Mode == AuthModeToken,
			validation.Required.Error("mode is "+AuthModeToken+" but token is empty"))),
	)
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a Config suitable for a vault in the working directory.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		Vault: VaultConfig{
			Path:  "./vault",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./temple.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Settings: SettingsConfig{
			Path: "./vault/.temple/settings.yaml",
		},
	}
}
