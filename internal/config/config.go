// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// AppName names the per-user config, state and runtime directories.
const AppName = "nopickie"

// Default configuration values.
const (
	DefaultTransport      = TransportProcess
	DefaultTimeout        = 10 * time.Second
	DefaultDismissAfter   = 3000 * time.Millisecond
	DefaultShakeFor       = 500 * time.Millisecond
	DefaultWidth          = 320
	DefaultOffset         = 16
	DefaultVolume         = 80
	DefaultLogCapacity    = 50
	DefaultRefresh        = time.Minute
	DefaultAlertTitle     = "NoPickie"
	DefaultAlertMessage   = "Hands away from your face!"
	DefaultLogLevel       = "warn"
	DefaultBackendCommand = "nopickie-detector"
)

// Config represents the nopickie configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Alert   AlertConfig   `toml:"alert"`
	Audio   AudioConfig   `toml:"audio"`
	TUI     TUIConfig     `toml:"tui"`
	Log     LogConfig     `toml:"log"`
}

// Transport selects how the backend is reached.
type Transport string

const (
	TransportProcess Transport = "process"
	TransportSocket  Transport = "socket"
	TransportDBus    Transport = "dbus"
)

// ValidTransports returns all valid transport values.
func ValidTransports() []Transport {
	return []Transport{TransportProcess, TransportSocket, TransportDBus}
}

// BackendConfig describes the backend connection.
type BackendConfig struct {
	Transport string   `toml:"transport"` // process, socket, dbus
	Command   []string `toml:"command"`   // argv for the process transport
	Dir       string   `toml:"dir"`
	Socket    string   `toml:"socket"` // Empty = $XDG_RUNTIME_DIR/nopickie/backend.sock
	Timeout   Duration `toml:"timeout"`
}

// SurfaceKind selects the alert surface.
type SurfaceKind string

const (
	SurfaceGTK          SurfaceKind = "gtk"
	SurfaceNotification SurfaceKind = "notification"
)

// ValidSurfaces returns all valid surface values.
func ValidSurfaces() []SurfaceKind {
	return []SurfaceKind{SurfaceGTK, SurfaceNotification}
}

// AlertConfig holds popup settings for nopickie-alert.
type AlertConfig struct {
	Surface      string   `toml:"surface"`
	DismissAfter Duration `toml:"dismiss_after"`
	ShakeFor     Duration `toml:"shake_for"`
	Position     string   `toml:"position"` // "top-right", "top-left", etc.
	OffsetX      int      `toml:"offset_x"`
	OffsetY      int      `toml:"offset_y"`
	Monitor      int      `toml:"monitor"` // 0 = compositor default, 1+ = monitor index
	Width        int      `toml:"width"`
	Title        string   `toml:"title"`
	Message      string   `toml:"message"`
	ColorScheme  string   `toml:"color_scheme"` // "system", "light", or "dark"
	Theme        string   `toml:"theme"`        // Path to an extra stylesheet, empty = built-in
}

// AudioConfig holds the alert sound settings.
type AudioConfig struct {
	Enabled bool   `toml:"enabled"`
	Volume  int    `toml:"volume"` // 0-100
	Sound   string `toml:"sound"`  // wav, ogg or mp3 file
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp        bool     `toml:"show_help"`
	ShowDebug       bool     `toml:"show_debug"`
	RefreshInterval Duration `toml:"refresh_interval"`
	LogCapacity     int      `toml:"log_capacity"`

	// ClipboardCommand receives copied text on stdin. Empty = auto-detect.
	ClipboardCommand string `toml:"clipboard_command"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	File  string `toml:"file"`  // Empty = stderr
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// Position represents a popup position on screen.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
	PositionCenter       Position = "center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
		PositionCenter,
	}
}

// Edges is the set of screen edges a popup is anchored to.
type Edges struct {
	Top, Bottom, Left, Right bool
}

// Edges returns the anchors for p. Centred positions leave the horizontal
// edges unset and PositionCenter leaves all four unset.
func (p Position) Edges() Edges {
	var e Edges
	switch p {
	case PositionTopLeft, PositionTopRight, PositionTopCenter:
		e.Top = true
	case PositionBottomLeft, PositionBottomRight, PositionBottomCenter:
		e.Bottom = true
	}
	switch p {
	case PositionTopLeft, PositionBottomLeft:
		e.Left = true
	case PositionTopRight, PositionBottomRight:
		e.Right = true
	}
	return e
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Transport: string(DefaultTransport),
			Command:   []string{DefaultBackendCommand},
			Timeout:   Duration(DefaultTimeout),
		},
		Alert: AlertConfig{
			Surface:      string(SurfaceGTK),
			DismissAfter: Duration(DefaultDismissAfter),
			ShakeFor:     Duration(DefaultShakeFor),
			Position:     string(PositionTopCenter),
			OffsetX:      DefaultOffset,
			OffsetY:      DefaultOffset,
			Width:        DefaultWidth,
			Title:        DefaultAlertTitle,
			Message:      DefaultAlertMessage,
			ColorScheme:  string(ColorSchemeSystem),
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  DefaultVolume,
		},
		TUI: TUIConfig{
			ShowHelp:        true,
			RefreshInterval: Duration(DefaultRefresh),
			LogCapacity:     DefaultLogCapacity,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// DefaultSocketPath returns where the socket transport looks for the backend.
func DefaultSocketPath() string {
	return filepath.Join(xdg.RuntimeDir, AppName, "backend.sock")
}

// DefaultLogPath returns the log file used when the TUI owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, AppName, "nopickie.log")
}

// LoadConfig loads the configuration from path, or ConfigPath() when path is
// empty. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, or ConfigPath() when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(ValidTransports(), Transport(c.Backend.Transport)) {
		return fmt.Errorf("invalid transport %q, must be one of: %v", c.Backend.Transport, ValidTransports())
	}
	if Transport(c.Backend.Transport) == TransportProcess && len(c.Backend.Command) == 0 {
		return errors.New("backend command must not be empty for the process transport")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend timeout must not be negative, got %s", c.Backend.Timeout.Duration())
	}

	if !slices.Contains(ValidSurfaces(), SurfaceKind(c.Alert.Surface)) {
		return fmt.Errorf("invalid surface %q, must be one of: %v", c.Alert.Surface, ValidSurfaces())
	}
	if !slices.Contains(ValidPositions(), Position(c.Alert.Position)) {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Alert.Position, ValidPositions())
	}
	if !slices.Contains(ValidColorSchemes(), ColorScheme(c.Alert.ColorScheme)) {
		return fmt.Errorf("invalid color scheme %q, must be one of: %v", c.Alert.ColorScheme, ValidColorSchemes())
	}
	if c.Alert.DismissAfter <= 0 {
		return fmt.Errorf("dismiss_after must be positive, got %s", c.Alert.DismissAfter.Duration())
	}
	if c.Alert.ShakeFor <= 0 {
		return fmt.Errorf("shake_for must be positive, got %s", c.Alert.ShakeFor.Duration())
	}
	if c.Alert.Width < 100 || c.Alert.Width > 1000 {
		return fmt.Errorf("width must be between 100 and 1000, got %d", c.Alert.Width)
	}

	if c.Alert.Monitor < 0 {
		return fmt.Errorf("monitor must not be negative, got %d", c.Alert.Monitor)
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	if c.TUI.LogCapacity < 1 {
		return fmt.Errorf("log_capacity must be at least 1, got %d", c.TUI.LogCapacity)
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level %q, must be one of: %v", c.Log.Level, validLogLevels)
	}

	return nil
}

// SocketPath returns the configured socket, or the default one.
func (c *Config) SocketPath() string {
	if c.Backend.Socket == "" {
		return DefaultSocketPath()
	}
	return expandPath(c.Backend.Socket)
}

// SoundPath returns the alert sound with ~ expanded.
func (c *Config) SoundPath() string {
	return expandPath(c.Audio.Sound)
}

// ThemePath returns the extra stylesheet with ~ expanded.
func (c *Config) ThemePath() string {
	return expandPath(c.Alert.Theme)
}

// LogFilePath returns the log file with ~ expanded; empty means stderr.
func (c *Config) LogFilePath() string {
	return expandPath(c.Log.File)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
