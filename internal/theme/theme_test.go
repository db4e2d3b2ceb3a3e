package theme

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessImports_NoImports(t *testing.T) {
	css := `.alert-popup { color: red; }`
	assert.Equal(t, css, ProcessImports(css, "", nil))
}

func TestProcessImports_FileImport(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_colors.css"), []byte(`:root { --accent: #ff0000; }`), 0644))

	result := ProcessImports(`@import "_colors.css";
.alert-popup { color: var(--accent); }`, tmpDir, nil)

	assert.Contains(t, result, "/* imported: _colors.css */")
	assert.Contains(t, result, "--accent: #ff0000")
	assert.Contains(t, result, ".alert-popup")
}

func TestProcessImports_FallsBackToEmbeddedPartial(t *testing.T) {
	result := ProcessImports(`@import url("_shake.css");`, t.TempDir(), nil)
	assert.Contains(t, result, "/* imported (embedded): _shake.css */")
	assert.Contains(t, result, "@keyframes alert-shake")
}

func TestProcessImports_CircularPrevention(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_a.css"), []byte("@import \"_b.css\";\n.a {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "_b.css"), []byte("@import \"_a.css\";\n.b {}"), 0644))

	result := ProcessImports(`@import "_a.css";`, tmpDir, nil)

	assert.Contains(t, result, ".a {}")
	assert.Contains(t, result, ".b {}")
	assert.Contains(t, result, "circular import prevented")
}

func TestProcessImports_Missing(t *testing.T) {
	result := ProcessImports(`@import "nowhere.css";`, t.TempDir(), nil)
	assert.Equal(t, "/* import failed: nowhere.css */", result)
}

func TestLoad_Default(t *testing.T) {
	th, err := Load("")
	require.NoError(t, err)
	assert.True(t, th.IsDefault())
	assert.Equal(t, DefaultCSS(), th.CSS)

	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestLoad_UserThemeLayersOnDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`.alert-title { color: pink; }`), 0644))

	th, err := Load(path)
	require.NoError(t, err)
	assert.False(t, th.IsDefault())
	assert.Contains(t, th.CSS, "@keyframes alert-shake")
	assert.Contains(t, th.CSS, "color: pink")
	assert.Less(t, len(DefaultCSS()), len(th.CSS))
}

func TestLoad_MissingUserTheme(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "gone.css"))
	assert.Error(t, err)
}

func TestTheme_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`.a {}`), 0644))
	th, err := Load(path)
	require.NoError(t, err)

	changed, err := th.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte(`.b {}`), 0644))
	changed, err = th.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, th.CSS, ".b {}")
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.css")
	require.NoError(t, os.WriteFile(path, []byte(`.a {}`), 0644))
	th, err := Load(path)
	require.NoError(t, err)

	var mu sync.Mutex
	var got string
	w := NewWatcher(th, func(css string) {
		mu.Lock()
		got = css
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`.changed {}`), 0644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != ""
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Contains(t, got, ".changed {}")
	mu.Unlock()
}

func TestWatcher_IgnoresDefault(t *testing.T) {
	th, err := Load("")
	require.NoError(t, err)

	w := NewWatcher(th, nil, nil)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
}
