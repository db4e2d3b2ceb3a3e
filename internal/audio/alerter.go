package audio

import (
	"log/slog"
	"sync"

	"github.com/nopickie/nopickie/internal/config"
)

// Alerter plays the configured alert sound.
type Alerter struct {
	mu     sync.RWMutex
	logger *slog.Logger
	player *Player
	cfg    config.AudioConfig
	path   string
}

// NewAlerter creates an alerter for cfg. Nothing is decoded until Start or Play.
func NewAlerter(cfg config.AudioConfig, path string, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Alerter{logger: logger, player: NewPlayer(logger)}
	a.apply(cfg, path)
	return a
}

func (a *Alerter) apply(cfg config.AudioConfig, path string) {
	a.mu.Lock()
	a.cfg = cfg
	a.path = path
	a.mu.Unlock()
	a.player.SetVolume(float64(cfg.Volume) / 100.0)
}

// Enabled reports whether a sound will be played.
func (a *Alerter) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.Enabled && a.path != ""
}

// Start preloads the sound. Failures are logged; alerts then stay silent.
func (a *Alerter) Start() {
	if !a.Enabled() {
		return
	}
	a.mu.RLock()
	path := a.path
	a.mu.RUnlock()
	if err := a.player.Preload(path); err != nil {
		a.logger.Warn("failed to preload alert sound", "path", path, "error", err)
	}
}

// Play plays the alert sound when audio is enabled.
func (a *Alerter) Play() error {
	if !a.Enabled() {
		return nil
	}
	a.mu.RLock()
	path := a.path
	a.mu.RUnlock()
	return a.player.Play(path)
}

// UpdateConfig applies a reloaded [audio] section.
func (a *Alerter) UpdateConfig(cfg config.AudioConfig, path string) {
	a.apply(cfg, path)
	a.logger.Debug("audio config updated", "enabled", cfg.Enabled, "volume", cfg.Volume)
	a.Start()
}

// Close releases the audio device.
func (a *Alerter) Close() {
	a.player.Close()
}
