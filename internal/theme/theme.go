package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is the stylesheet applied to the popup: the built-in CSS followed by
// an optional user file.
type Theme struct {
	Path    string // User stylesheet, empty for the built-in one only
	CSS     string
	ModTime time.Time
}

// IsDefault reports whether no user stylesheet is layered on top.
func (t *Theme) IsDefault() bool {
	return t.Path == ""
}

// Load builds the theme for path. An empty path yields the built-in theme.
func Load(path string) (*Theme, error) {
	t := &Theme{Path: path}
	if path == "" {
		t.CSS = DefaultCSS()
		return t, nil
	}
	if _, err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload rereads the user stylesheet and reports whether the CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.IsDefault() {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, fmt.Errorf("failed to stat theme: %w", err)
	}
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read theme: %w", err)
	}

	css := DefaultCSS() + "\n/* user: " + filepath.Base(t.Path) + " */\n" +
		ProcessImports(string(data), filepath.Dir(t.Path), nil)

	changed := css != t.CSS
	t.CSS = css
	t.ModTime = info.ModTime()
	return changed, nil
}

// ProcessImports inlines @import statements, resolving them against baseDir
// first and the embedded partials second. seen guards against cycles.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		sub := importRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		name := sub[1]

		full := name
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, name)
		}
		if seen[full] {
			return "/* circular import prevented: " + name + " */"
		}
		seen[full] = true

		if baseDir != "" || filepath.IsAbs(name) {
			if data, err := os.ReadFile(full); err == nil {
				return "/* imported: " + name + " */\n" +
					ProcessImports(string(data), filepath.Dir(full), seen)
			}
		}

		base := filepath.Base(name)
		if strings.HasPrefix(base, "_") || strings.TrimSuffix(base, ".css") == DefaultThemeName {
			if css, ok := EmbeddedCSS(base); ok {
				return "/* imported (embedded): " + name + " */\n" + ProcessImports(css, "", seen)
			}
		}
		return "/* import failed: " + name + " */"
	})
}
