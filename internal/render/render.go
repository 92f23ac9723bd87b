// Package render turns aggregated shopping lists into downloadable documents.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRender is returned, wrapped, for every failure to produce a document.
var ErrRender = errors.New("render failed")

var pageSizes = map[string]struct{}{
	"a3": {}, "a4": {}, "a5": {}, "a6": {},
	"letter": {}, "legal": {}, "tabloid": {},
}

// Config is passed explicitly to the renderer; nothing is read from globals.
type Config struct {
	PageSize    string
	Orientation string
	// FontDir and FontFile point at a UTF-8 TrueType font under the media root.
	// When FontFile is empty a core font is used and non Latin-1 text degrades.
	FontDir  string
	FontFile string
	Title    string
}

func DefaultConfig() Config {
	return Config{
		PageSize:    "A4",
		Orientation: "P",
		Title:       "Shopping list",
	}
}

func (c Config) Validate() error {
	if _, ok := pageSizes[strings.ToLower(c.PageSize)]; !ok {
		return fmt.Errorf("unknown page size %q", c.PageSize)
	}
	switch strings.ToUpper(c.Orientation) {
	case "P", "L":
	default:
		return fmt.Errorf("unknown orientation %q", c.Orientation)
	}
	return nil
}

func (c Config) fontPath() string {
	if c.FontFile == "" {
		return ""
	}
	return filepath.Join(c.FontDir, c.FontFile)
}

func (c Config) checkFont() error {
	path := c.fontPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	return nil
}
