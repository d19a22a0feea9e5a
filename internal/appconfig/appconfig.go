// Package appconfig reads env/.env settings shared by the api and worker binaries
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/UnendingLoop/TextWatermark/internal/fontcatalog"
	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/spf13/cast"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

const defaultLogLevel = "info"

// Load enables env lookups and merges the optional .env files over them.
func Load(envFiles ...string) (*config.Config, error) {
	cfg := config.New()
	cfg.EnableEnv("")

	// отсутствующий .env не ошибка: в контейнере все приходит через окружение
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := cfg.LoadEnvFiles(f); err != nil {
			return nil, fmt.Errorf("failed to load envs from %q: %w", f, err)
		}
	}
	return cfg, nil
}

// InitLogger starts the console logger with LOG_LEVEL (info by default).
func InitLogger(cfg *config.Config) error {
	zlog.InitConsole()
	level := strings.TrimSpace(cfg.GetString("LOG_LEVEL"))
	if level == "" {
		level = defaultLogLevel
	}
	if err := zlog.SetLevel(level); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	return nil
}

// Int reads a numeric key, falling back to def when it is empty.
func Int(cfg *config.Config, key string, def int) (int, error) {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def, nil
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Viewport is VIEWPORT_WIDTH x VIEWPORT_HEIGHT, 750x700 when unset.
func Viewport(cfg *config.Config) (imageproc.Viewport, error) {
	w, err := Int(cfg, "VIEWPORT_WIDTH", imageproc.DefaultViewport.Width)
	if err != nil {
		return imageproc.Viewport{}, err
	}
	h, err := Int(cfg, "VIEWPORT_HEIGHT", imageproc.DefaultViewport.Height)
	if err != nil {
		return imageproc.Viewport{}, err
	}
	vp := imageproc.Viewport{Width: w, Height: h}
	if err := vp.Validate(); err != nil {
		return imageproc.Viewport{}, fmt.Errorf("viewport %dx%d: %w", w, h, err)
	}
	return vp, nil
}

// FontCatalog loads FONT_CATALOG when set, otherwise the builtin fonts.
func FontCatalog(cfg *config.Config) (*fontcatalog.Catalog, error) {
	path := strings.TrimSpace(cfg.GetString("FONT_CATALOG"))
	if path == "" {
		return fontcatalog.Default(), nil
	}
	cat, err := fontcatalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("font catalog %q: %w", path, err)
	}
	return cat, nil
}

// Required returns an error naming every listed key that is empty.
func Required(cfg *config.Config, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if strings.TrimSpace(cfg.GetString(k)) == "" {
			errs = append(errs, fmt.Errorf("%s is not set", k))
		}
	}
	return errors.Join(errs...)
}
