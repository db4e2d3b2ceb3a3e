package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nopickie/nopickie/internal/alert"
	"github.com/nopickie/nopickie/internal/config"
)

type recordedCall struct {
	method string
	args   []any
}

// fakeServer answers Notify with increasing IDs.
type fakeServer struct {
	mu     sync.Mutex
	calls  []recordedCall
	nextID uint32
	err    error
}

func (f *fakeServer) Call(method string, _ dbus.Flags, args ...any) *dbus.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{method: method, args: args})
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	if method == dbusNotifyInterface+".Notify" {
		replaces := args[1].(uint32)
		if replaces != 0 {
			return &dbus.Call{Body: []any{replaces}}
		}
		f.nextID++
		return &dbus.Call{Body: []any{f.nextID}}
	}
	return &dbus.Call{}
}

func (f *fakeServer) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method)
	}
	return out
}

func (f *fakeServer) last() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestNotifier() (*Notifier, *fakeServer) {
	srv := &fakeServer{}
	cfg := config.DefaultConfig().Alert
	return newNotifier(srv, cfg, nil), srv
}

func TestNotifier_ShowAndHide(t *testing.T) {
	n, srv := newTestNotifier()

	require.NoError(t, n.Show())
	call := srv.last()
	assert.Equal(t, dbusNotifyInterface+".Notify", call.method)
	assert.Equal(t, appName, call.args[0])
	assert.Equal(t, uint32(0), call.args[1])
	assert.Equal(t, config.DefaultAlertTitle, call.args[3])
	assert.Equal(t, config.DefaultAlertMessage, call.args[4])
	assert.Equal(t, []string{ActionDismiss, "Dismiss"}, call.args[5])
	assert.Equal(t, int32(0), call.args[7], "the controller owns expiry")

	require.NoError(t, n.Hide())
	call = srv.last()
	assert.Equal(t, dbusNotifyInterface+".CloseNotification", call.method)
	assert.Equal(t, uint32(1), call.args[0])

	require.NoError(t, n.Hide())
	assert.Len(t, srv.methods(), 2, "nothing left to close")
}

func TestNotifier_ShakeReplacesInPlace(t *testing.T) {
	n, srv := newTestNotifier()

	n.AddCSSClass(alert.ShakeClass)
	assert.Empty(t, srv.methods(), "no notification open yet")

	require.NoError(t, n.Show())
	n.RemoveCSSClass(alert.ShakeClass)
	n.AddCSSClass(alert.ShakeClass)
	n.AddCSSClass("other")

	require.Len(t, srv.methods(), 2)
	assert.Equal(t, uint32(1), srv.last().args[1])
}

func TestNotifier_ShowError(t *testing.T) {
	n, srv := newTestNotifier()
	srv.err = errors.New("no notification daemon")

	err := n.Show()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send notification")
}

func TestNotifier_DismissSignals(t *testing.T) {
	tests := []struct {
		name      string
		signal    func(id uint32) *dbus.Signal
		wantClose bool
		wantOpen  bool
	}{
		{"user dismissed", func(id uint32) *dbus.Signal {
			return &dbus.Signal{Name: dbusNotifyInterface + ".NotificationClosed", Body: []any{id, uint32(CloseReasonDismissed)}}
		}, true, false},
		{"expired", func(id uint32) *dbus.Signal {
			return &dbus.Signal{Name: dbusNotifyInterface + ".NotificationClosed", Body: []any{id, uint32(CloseReasonExpired)}}
		}, false, false},
		{"dismiss action", func(id uint32) *dbus.Signal {
			return &dbus.Signal{Name: dbusNotifyInterface + ".ActionInvoked", Body: []any{id, ActionDismiss}}
		}, true, true},
		{"other action", func(id uint32) *dbus.Signal {
			return &dbus.Signal{Name: dbusNotifyInterface + ".ActionInvoked", Body: []any{id, "default"}}
		}, false, true},
		{"someone else's notification", func(id uint32) *dbus.Signal {
			return &dbus.Signal{Name: dbusNotifyInterface + ".NotificationClosed", Body: []any{id + 100, uint32(CloseReasonDismissed)}}
		}, false, true},
		{"short body", func(uint32) *dbus.Signal {
			return &dbus.Signal{Name: dbusNotifyInterface + ".NotificationClosed", Body: []any{uint32(1)}}
		}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := newTestNotifier()
			closed := 0
			n.OnCloseClicked(func() { closed++ })
			require.NoError(t, n.Show())

			n.handleSignal(tt.signal(1))

			assert.Equal(t, tt.wantClose, closed == 1)
			n.mu.Lock()
			open := n.id != 0
			n.mu.Unlock()
			assert.Equal(t, tt.wantOpen, open)
		})
	}
}

func TestNotifier_DrivesController(t *testing.T) {
	n, srv := newTestNotifier()
	c := alert.New(n, alert.Config{}, nil)
	defer c.Close()

	c.Alert()
	require.Equal(t, alert.Visible, c.State())

	n.handleSignal(&dbus.Signal{Name: dbusNotifyInterface + ".NotificationClosed", Body: []any{uint32(1), uint32(CloseReasonDismissed)}})
	assert.Equal(t, alert.Hidden, c.State())
	assert.NotContains(t, srv.methods(), dbusNotifyInterface+".CloseNotification", "already closed by the server")
}

func TestNotifier_UpdateConfig(t *testing.T) {
	n, srv := newTestNotifier()
	cfg := config.DefaultConfig().Alert
	cfg.Title = "Heads up"
	cfg.Message = "Hands down"
	n.UpdateConfig(cfg)

	require.NoError(t, n.Show())
	assert.Equal(t, "Heads up", srv.last().args[3])
	assert.Equal(t, "Hands down", srv.last().args[4])
}
