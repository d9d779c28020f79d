package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/fontman/internal/fontcache"
	"github.com/ZebulonRouseFrantzich/fontman/internal/fontdir"
	"github.com/ZebulonRouseFrantzich/fontman/internal/luavm"
	"github.com/ZebulonRouseFrantzich/fontman/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// EnvConfig names the environment variable that points at a config file.
const EnvConfig = "FONTMAN_CONFIG"

// Lua schema names.
const (
	luaGlobal       = "fontman"
	luaFontsDir     = "fonts_dir"
	luaDownloadDir  = "download_dir"
	luaCatalogFile  = "catalog_file"
	luaRefresh      = "refresh"
	luaRefreshCmd   = "command"
	luaRefreshArgs  = "args"
	luaRefreshOnOff = "enabled"
)

// ParseError reports an invalid config file.
type ParseError = luavm.ParseError

// Refresh configures the font cache refresh.
type Refresh struct {
	Command string
	Args    []string
	Enabled bool
}

// Config is the resolved user configuration.
type Config struct {
	// FontsDir is the font root, relative to the home directory unless absolute.
	FontsDir string
	// DownloadDir receives fetched archives.
	DownloadDir string
	// CatalogFile replaces the embedded catalog when set.
	CatalogFile string
	Refresh     Refresh
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		FontsDir:    fontdir.DefaultDir,
		DownloadDir: ".",
		Refresh: Refresh{
			Command: fontcache.DefaultCommand,
			Args:    append([]string(nil), fontcache.DefaultArgs...),
			Enabled: true,
		},
	}
}

// Parser evaluates config files with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a parser. A nil detector leaves the platform table out.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseString evaluates a config from source.
func (p *Parser) ParseString(ctx context.Context, src string) (*Config, error) {
	var info *platform.Info
	if p.detector != nil {
		detected, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		info = detected
	}

	cfg := Default()
	err := luavm.Run(ctx, info, luaGlobal, src, func(t *lua.LTable) error {
		return extract(t, cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseFile evaluates the config file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := p.ParseString(ctx, string(data))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns $FONTMAN_CONFIG, or fontman/config.lua under the
// user configuration directory. explicit reports whether the environment
// variable chose the path.
func DefaultPath() (path string, explicit bool, err error) {
	if env := os.Getenv(EnvConfig); env != "" {
		return env, true, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false, fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "fontman", "config.lua"), false, nil
}

// Load reads the configuration. An empty path selects DefaultPath. A
// missing file is an error only when it was named explicitly.
func Load(ctx context.Context, path string, detector platform.Detector) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, explicit, err = DefaultPath()
		if err != nil {
			return Default(), nil
		}
	}

	cfg, err := NewParser(detector).ParseFile(ctx, path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	home, herr := os.UserHomeDir()
	if herr == nil {
		cfg.DownloadDir = ExpandHome(cfg.DownloadDir, home)
		cfg.CatalogFile = ExpandHome(cfg.CatalogFile, home)
		cfg.FontsDir = ExpandHome(cfg.FontsDir, home)
	}
	return cfg, nil
}

// ExpandHome replaces a leading "~" path component with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func extract(t *lua.LTable, cfg *Config) error {
	var err error
	if cfg.FontsDir, err = stringField(t, luaFontsDir, cfg.FontsDir); err != nil {
		return err
	}
	if cfg.FontsDir == "" {
		return &ParseError{Message: "invalid config", Detail: "fonts_dir must not be empty"}
	}
	if cfg.DownloadDir, err = stringField(t, luaDownloadDir, cfg.DownloadDir); err != nil {
		return err
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "."
	}
	if cfg.CatalogFile, err = stringField(t, luaCatalogFile, cfg.CatalogFile); err != nil {
		return err
	}

	switch v := t.RawGetString(luaRefresh).(type) {
	case *lua.LTable:
		return extractRefresh(v, &cfg.Refresh)
	case lua.LBool:
		cfg.Refresh.Enabled = bool(v)
	default:
		if v != lua.LNil {
			return fieldError(luaRefresh, "table or boolean", v)
		}
	}
	return nil
}

func extractRefresh(t *lua.LTable, r *Refresh) error {
	command, err := stringField(t, luaRefreshCmd, r.Command)
	if err != nil {
		return err
	}
	if command != r.Command {
		// Default arguments belong to the default command.
		r.Command = command
		r.Args = nil
	}

	switch v := t.RawGetString(luaRefreshArgs).(type) {
	case *lua.LTable:
		args, err := luavm.StringList(v)
		if err != nil {
			return &ParseError{Message: "invalid 'refresh.args'", Detail: err.Error()}
		}
		r.Args = args
	default:
		if v != lua.LNil {
			return fieldError("refresh.args", "table", v)
		}
	}

	switch v := t.RawGetString(luaRefreshOnOff).(type) {
	case lua.LBool:
		r.Enabled = bool(v)
	default:
		if v != lua.LNil {
			return fieldError("refresh.enabled", "boolean", v)
		}
	}

	if r.Enabled && r.Command == "" {
		return &ParseError{Message: "invalid config", Detail: "refresh.command must not be empty"}
	}
	return nil
}

func stringField(t *lua.LTable, key, def string) (string, error) {
	switch v := t.RawGetString(key).(type) {
	case lua.LString:
		return string(v), nil
	default:
		if v == lua.LNil {
			return def, nil
		}
		return "", fieldError(key, "string", v)
	}
}

func fieldError(key, want string, got lua.LValue) error {
	return &ParseError{
		Message: fmt.Sprintf("invalid '%s'", key),
		Detail:  fmt.Sprintf("expected %s, got %s", want, got.Type()),
	}
}
