// Package catalog holds the set of font families that can be installed from
// the Nerd Fonts aggregator, together with the URL template and directory
// suffix used for them.
//
// The catalog is declared in a Lua file (embedded by default) evaluated in
// the luavm sandbox with the platform table available, so entries may be
// platform conditional:
//
//	catalog = {
//	  base_url = "https://github.com/ryanoasis/nerd-fonts/releases/download/v3.2.1",
//	  suffix = "NerdFont",
//	  fonts = { "FiraCode", platform.when(platform.is_linux, "Ubuntu") },
//	}
//
// A Catalog is immutable once loaded.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/fontman/internal/luavm"
	"github.com/ZebulonRouseFrantzich/fontman/internal/platform"
	"github.com/sahilm/fuzzy"
	lua "github.com/yuin/gopher-lua"
)

//go:embed catalog.lua
var defaultCatalog string

// Catalog is the read-only set of aggregator font names.
type Catalog struct {
	baseURL string
	suffix  string
	names   []string
	set     map[string]struct{}
}

// Load parses the embedded catalog.
func Load(ctx context.Context, detector platform.Detector) (*Catalog, error) {
	info, err := detect(ctx, detector)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, defaultCatalog, info)
}

// LoadFile parses a catalog override file.
func LoadFile(ctx context.Context, path string, detector platform.Detector) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	info, err := detect(ctx, detector)
	if err != nil {
		return nil, err
	}

	c, err := Parse(ctx, string(data), info)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func detect(ctx context.Context, detector platform.Detector) (*platform.Info, error) {
	if detector == nil {
		return nil, nil
	}
	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	return info, nil
}

// Parse evaluates catalog Lua source. info may be nil, in which case the
// platform table is not available to the source.
func Parse(ctx context.Context, src string, info *platform.Info) (*Catalog, error) {
	c := &Catalog{set: make(map[string]struct{})}

	err := luavm.Run(ctx, info, "catalog", src, func(t *lua.LTable) error {
		c.baseURL = strings.TrimRight(luavm.StringField(t, "base_url", ""), "/")
		c.suffix = luavm.StringField(t, "suffix", "")

		fonts, ok := t.RawGetString("fonts").(*lua.LTable)
		if !ok {
			return &luavm.ParseError{Message: "invalid catalog", Detail: "fonts must be a table"}
		}
		names, err := luavm.StringList(fonts)
		if err != nil {
			return &luavm.ParseError{Message: "invalid catalog fonts", Detail: err.Error()}
		}

		for _, name := range names {
			if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
				return &luavm.ParseError{Message: "invalid catalog fonts", Detail: fmt.Sprintf("invalid font name %q", name)}
			}
			if _, dup := c.set[name]; dup {
				continue
			}
			c.set[name] = struct{}{}
			c.names = append(c.names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.baseURL == "" {
		return nil, &luavm.ParseError{Message: "invalid catalog", Detail: "base_url is required"}
	}
	if len(c.names) == 0 {
		return nil, &luavm.ParseError{Message: "invalid catalog", Detail: "fonts must not be empty"}
	}

	return c, nil
}

// Contains reports whether name is a catalog font.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.set[name]
	return ok
}

// Names returns the catalog fonts in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// BaseURL returns the aggregator release URL without a trailing slash.
func (c *Catalog) BaseURL() string {
	return c.baseURL
}

// Suffix returns the string appended to catalog names to form directory names.
func (c *Catalog) Suffix() string {
	return c.suffix
}

// ArchiveURL returns the download URL of a catalog font archive.
func (c *Catalog) ArchiveURL(name string) string {
	return fmt.Sprintf("%s/%s.zip", c.baseURL, name)
}

// DirectoryName returns the font directory name for a catalog font.
func (c *Catalog) DirectoryName(name string) string {
	return name + c.suffix
}

// Resolve maps an uninstall argument to a font directory name. It accepts a
// catalog name ("FiraCode"), a suffixed catalog name ("FiraCodeNerdFont"),
// or any other directory name, which is returned unchanged with aggregator
// set to false.
func (c *Catalog) Resolve(name string) (dir string, aggregator bool) {
	if c.Contains(name) {
		return c.DirectoryName(name), true
	}
	if c.suffix != "" && strings.HasSuffix(name, c.suffix) && c.Contains(strings.TrimSuffix(name, c.suffix)) {
		return name, true
	}
	return name, false
}

// Suggest returns up to limit catalog names that fuzzily match name, best
// match first.
func (c *Catalog) Suggest(name string, limit int) []string {
	if name == "" || limit <= 0 {
		return nil
	}
	var out []string
	for _, m := range fuzzy.Find(name, c.names) {
		out = append(out, m.Str)
		if len(out) == limit {
			break
		}
	}
	return out
}
