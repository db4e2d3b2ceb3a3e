package theme

import (
	"embed"
	"strings"
)

//go:embed themes/*.css
var embedded embed.FS

// DefaultThemeName is the name of the built-in stylesheet.
const DefaultThemeName = "default"

// EmbeddedCSS returns a bundled stylesheet or partial by name, with or
// without the .css extension.
func EmbeddedCSS(name string) (string, bool) {
	if !strings.HasSuffix(name, ".css") {
		name += ".css"
	}
	data, err := embedded.ReadFile("themes/" + name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// DefaultCSS returns the built-in stylesheet with its imports inlined.
func DefaultCSS() string {
	css, _ := EmbeddedCSS(DefaultThemeName)
	return ProcessImports(css, "", nil)
}
