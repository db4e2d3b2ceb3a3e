package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/nopickie/nopickie/internal/alert"
	"github.com/nopickie/nopickie/internal/audio"
	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/backend/transport"
	"github.com/nopickie/nopickie/internal/config"
	"github.com/nopickie/nopickie/internal/daemon"
	"github.com/nopickie/nopickie/internal/display"
	"github.com/nopickie/nopickie/internal/event"
	"github.com/nopickie/nopickie/internal/notify"
	"github.com/nopickie/nopickie/internal/stats"
	"github.com/nopickie/nopickie/internal/theme"
)

// alertDaemon owns every component of the popup process. Fields are only
// touched on the GTK main thread unless noted.
type alertDaemon struct {
	app        *adw.Application
	ctx        context.Context
	cfg        *config.Config
	configPath string
	logger     *slog.Logger

	running atomic.Bool

	notifier      *notify.Notifier
	notices       *daemon.InternalNotifier
	popup         *display.Popup
	themeLoader   *theme.Loader
	controller    *alert.Controller
	sound         *audio.Alerter
	client        backend.Client
	recorder      *stats.Recorder
	configWatcher *daemon.ConfigWatcher
	unsubscribe   func()

	errMu sync.Mutex
	err   error
}

func newDaemon(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) *alertDaemon {
	d := &alertDaemon{
		app:        adw.NewApplication(appID, 0),
		ctx:        ctx,
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
	}
	d.app.ConnectActivate(d.activate)
	d.app.ConnectShutdown(d.shutdown)
	return d
}

// quit stops the application. Safe from any goroutine.
func (d *alertDaemon) quit() {
	glib.IdleAdd(func() {
		d.app.Quit()
	})
}

// fail records err as the exit reason and quits.
func (d *alertDaemon) fail(err error) {
	d.errMu.Lock()
	if d.err == nil {
		d.err = err
	}
	d.errMu.Unlock()
	d.quit()
}

// Err returns the reason the daemon stopped, if it was not a clean quit.
func (d *alertDaemon) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

func (d *alertDaemon) activate() {
	if d.running.Load() {
		d.logger.Warn("application already running")
		return
	}
	d.running.Store(true)

	display.ApplyColorScheme(config.ColorScheme(d.cfg.Alert.ColorScheme))

	// Internal notices go through the notification server regardless of the surface
	notifier, err := notify.Connect(d.cfg.Alert, d.logger)
	if err != nil {
		d.logger.Warn("desktop notifications unavailable", "error", err)
	} else {
		d.notifier = notifier
	}
	var sender daemon.Sender
	if d.notifier != nil {
		sender = d.notifier
	}
	d.notices = daemon.NewInternalNotifier(sender, d.logger)

	surface, err := d.buildSurface()
	if err != nil {
		d.fail(err)
		return
	}

	d.controller = alert.New(surface, alert.Config{
		DismissAfter: d.cfg.Alert.DismissAfter.Duration(),
		ShakeFor:     d.cfg.Alert.ShakeFor.Duration(),
	}, d.logger)
	d.controller.SetDismissHandler(func(reason alert.Reason) {
		d.logger.Debug("alert dismissed", "reason", reason)
	})

	d.sound = audio.NewAlerter(d.cfg.Audio, d.cfg.SoundPath(), d.logger)
	d.sound.Start()

	bus := event.NewBus(d.logger)
	d.unsubscribe = daemon.NewDispatcher(d.controller, d.sound, d.notices, d.logger).Subscribe(bus)

	client, err := transport.Open(d.ctx, d.cfg, bus, d.logger)
	if err != nil {
		d.notices.NotifyBackendLost(err)
		d.fail(fmt.Errorf("failed to connect to backend: %w", err))
		return
	}
	d.client = client
	if transport.OwnsDetector(d.cfg) {
		d.recorder = stats.NewRecorder(client, bus, d.cfg.Backend.Timeout.Duration(), d.logger)
		d.recorder.Start()
	}
	d.watchBackend()

	d.startConfigWatcher()

	if d.popup == nil {
		// GTK applications quit when their last window goes away
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&d.app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	}

	d.logger.Info(appName+" ready", "surface", d.cfg.Alert.Surface)
}

// buildSurface creates the configured alert surface. A popup that cannot be
// created falls back to desktop notifications when they are available.
func (d *alertDaemon) buildSurface() (alert.Surface, error) {
	if config.SurfaceKind(d.cfg.Alert.Surface) == config.SurfaceGTK {
		popup, err := display.NewPopup(&d.app.Application, d.cfg.Alert, d.logger)
		if err == nil {
			d.popup = popup
			d.themeLoader = theme.NewLoader(d.logger)
			d.themeLoader.Load(d.cfg.ThemePath())
			d.themeLoader.Apply(nil)
			d.themeLoader.StartHotReload(d.ctx)
			return popup, nil
		}
		if d.notifier == nil {
			return nil, fmt.Errorf("failed to create popup: %w", err)
		}
		d.logger.Warn("failed to create popup, using desktop notifications", "error", err)
	}

	if d.notifier == nil {
		return nil, errors.New("notification surface needs a notification server")
	}
	return d.notifier, nil
}

// watchBackend quits once the backend connection ends.
func (d *alertDaemon) watchBackend() {
	lt, ok := d.client.(backend.Lifetime)
	if !ok {
		return
	}
	go func() {
		select {
		case <-d.ctx.Done():
		case <-lt.Done():
			if !d.running.Load() {
				return
			}
			err := lt.Err()
			d.logger.Error("backend connection closed", "error", err)
			d.notices.NotifyBackendLost(err)
			if err == nil {
				err = errors.New("backend connection closed")
			}
			d.fail(err)
		}
	}()
}

func (d *alertDaemon) startConfigWatcher() {
	d.configWatcher = daemon.NewConfigWatcher(d.configPath, d.logger)
	d.configWatcher.SetReloadCallback(func(next *config.Config) {
		glib.IdleAdd(func() {
			d.applyConfig(next)
		})
	})
	d.configWatcher.SetErrorCallback(d.notices.NotifyConfigError)
	if err := d.configWatcher.Start(d.ctx, d.cfg); err != nil {
		d.logger.Warn("failed to start config watcher", "error", err)
		d.configWatcher = nil
	}
}

// applyConfig applies a reloaded config. The backend section and the surface
// kind only take effect on restart. GTK main thread only.
func (d *alertDaemon) applyConfig(next *config.Config) {
	if next.Backend.Transport != d.cfg.Backend.Transport || next.Alert.Surface != d.cfg.Alert.Surface {
		d.logger.Warn("backend and surface changes need a restart")
	}

	display.ApplyColorScheme(config.ColorScheme(next.Alert.ColorScheme))
	if d.popup != nil {
		d.popup.UpdateConfig(next.Alert)
	}
	if d.notifier != nil {
		d.notifier.UpdateConfig(next.Alert)
	}
	if d.themeLoader != nil && next.ThemePath() != d.cfg.ThemePath() {
		d.themeLoader.Load(next.ThemePath())
		d.themeLoader.StartHotReload(d.ctx)
	}
	d.sound.UpdateConfig(next.Audio, next.SoundPath())
	d.controller.SetTimings(next.Alert.DismissAfter.Duration(), next.Alert.ShakeFor.Duration())

	// Keep the flag override
	next.Backend = d.cfg.Backend
	d.cfg = next
	d.logger.Info("configuration reloaded")
}

func (d *alertDaemon) shutdown() {
	d.logger.Info("application shutting down")
	d.running.Store(false)

	if d.configWatcher != nil {
		d.configWatcher.Stop()
	}
	if d.unsubscribe != nil {
		d.unsubscribe()
	}
	if d.recorder != nil {
		d.recorder.Stop()
	}
	if d.client != nil {
		if err := d.client.Close(); err != nil {
			d.logger.Debug("failed to close backend", "error", err)
		}
	}
	if d.controller != nil {
		d.controller.Close()
	}
	if d.sound != nil {
		d.sound.Close()
	}
	if d.themeLoader != nil {
		d.themeLoader.StopHotReload()
	}
	if d.popup != nil {
		d.popup.Destroy()
	}
	if d.notifier != nil {
		_ = d.notifier.Hide()
		_ = d.notifier.Close()
	}
}
