package imageproc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontRef identifies a font file: a filesystem path or one of the builtin:* names.
type FontRef string

const (
	BuiltinRegular FontRef = "builtin:goregular"
	BuiltinBold    FontRef = "builtin:gobold"
	BuiltinItalic  FontRef = "builtin:goitalic"
	BuiltinMono    FontRef = "builtin:gomono"
)

const builtinPrefix = "builtin:"

var builtinFonts = map[FontRef][]byte{
	BuiltinRegular: goregular.TTF,
	BuiltinBold:    gobold.TTF,
	BuiltinItalic:  goitalic.TTF,
	BuiltinMono:    gomono.TTF,
}

var (
	errBadFontSize    = errors.New("font size must be positive")
	errUnknownBuiltin = errors.New("unknown builtin font")
	errFontIsDir      = errors.New("font path is a directory")
)

// FaceResolver turns a font reference and a pixel size into a ready face.
type FaceResolver interface {
	Face(ref FontRef, size int) (font.Face, error)
}

// FontLoader parses font files once and keeps them in an LRU cache.
// Faces are created per call: opentype faces hold scratch buffers and are not
// safe for concurrent use, parsed fonts are.
type FontLoader struct {
	fonts *lru.Cache[FontRef, *opentype.Font]
}

func NewFontLoader(cacheSize int) *FontLoader {
	if cacheSize <= 0 {
		cacheSize = 16
	}
	cache, err := lru.New[FontRef, *opentype.Font](cacheSize)
	if err != nil {
		// lru.New fails only on non-positive size
		panic(err)
	}
	return &FontLoader{fonts: cache}
}

func (l *FontLoader) Face(ref FontRef, size int) (font.Face, error) {
	if size <= 0 {
		return nil, &FontResolutionError{Font: ref, Size: size, Err: errBadFontSize}
	}

	f, err := l.parsed(ref)
	if err != nil {
		return nil, &FontResolutionError{Font: ref, Size: size, Err: err}
	}

	// DPI 72: размер в пунктах == размер в пикселях
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, &FontResolutionError{Font: ref, Size: size, Err: err}
	}
	return face, nil
}

func (l *FontLoader) parsed(ref FontRef) (*opentype.Font, error) {
	if f, ok := l.fonts.Get(ref); ok {
		return f, nil
	}

	data, err := readFont(ref)
	if err != nil {
		return nil, err
	}

	var f *opentype.Font
	if isCollection(ref) {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parse font collection: %w", err)
		}
		if f, err = coll.Font(0); err != nil {
			return nil, fmt.Errorf("read first font of collection: %w", err)
		}
	} else {
		if f, err = opentype.Parse(data); err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
	}

	l.fonts.Add(ref, f)
	return f, nil
}

func readFont(ref FontRef) ([]byte, error) {
	if strings.HasPrefix(string(ref), builtinPrefix) {
		data, ok := builtinFonts[ref]
		if !ok {
			return nil, errUnknownBuiltin
		}
		return data, nil
	}

	info, err := os.Stat(string(ref))
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errFontIsDir
	}
	return os.ReadFile(string(ref))
}

func isCollection(ref FontRef) bool {
	switch strings.ToLower(filepath.Ext(string(ref))) {
	case ".ttc", ".otc":
		return true
	}
	return false
}
