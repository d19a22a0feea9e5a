// Package fontcatalog maps human readable font names to font references
// understood by the watermark engine.
package fontcatalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"gopkg.in/yaml.v3"
)

const DefaultName = "Go Regular"

var ErrUnknownFont = errors.New("font is not in the catalog")

var fontExtensions = map[string]struct{}{
	".ttf": {},
	".otf": {},
	".ttc": {},
	".otc": {},
}

// Entry is one font of the catalog file. Name may be omitted, then it is
// derived from the file name.
type Entry struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

type catalogFile struct {
	Fonts []Entry  `yaml:"fonts"`
	Dirs  []string `yaml:"dirs"`
}

// Catalog is immutable once built and can be shared between goroutines.
type Catalog struct {
	fonts map[string]imageproc.FontRef
}

// Default returns the fonts compiled into the binary.
func Default() *Catalog {
	return &Catalog{fonts: map[string]imageproc.FontRef{
		"Go Regular": imageproc.BuiltinRegular,
		"Go Bold":    imageproc.BuiltinBold,
		"Go Italic":  imageproc.BuiltinItalic,
		"Go Mono":    imageproc.BuiltinMono,
	}}
}

// Load reads a YAML catalog and merges it over Default. Relative paths are
// resolved against the directory of the catalog file.
//
//	fonts:
//	  - name: Roboto
//	    file: fonts/Roboto-Regular.ttf
//	  - file: /usr/share/fonts/DejaVuSans.ttf
//	dirs:
//	  - /usr/share/fonts/truetype
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font catalog: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse font catalog %q: %w", path, err)
	}

	base := filepath.Dir(path)
	c := Default()
	for i, e := range cf.Fonts {
		if strings.TrimSpace(e.File) == "" {
			return nil, fmt.Errorf("font catalog %q: entry %d has no file", path, i)
		}
		c.add(e.Name, resolvePath(base, e.File))
	}
	for _, dir := range cf.Dirs {
		if err := c.addDir(resolvePath(base, dir)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// FromDir is Default plus every font file found directly in dir.
func FromDir(dir string) (*Catalog, error) {
	c := Default()
	if err := c.addDir(dir); err != nil {
		return nil, err
	}
	return c, nil
}

// DisplayName derives a catalog name from a font file: "Roboto-Bold.ttf" -> "Roboto-Bold".
func DisplayName(file string) string {
	base := filepath.Base(file)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

func (c *Catalog) Resolve(name string) (imageproc.FontRef, error) {
	ref, ok := c.fonts[strings.TrimSpace(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFont, name)
	}
	return ref, nil
}

// Names returns catalog names sorted alphabetically.
func (c *Catalog) Names() []string {
	res := make([]string, 0, len(c.fonts))
	for name := range c.fonts {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func (c *Catalog) Len() int {
	return len(c.fonts)
}

func (c *Catalog) add(name, file string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DisplayName(file)
	}
	c.fonts[name] = imageproc.FontRef(file)
}

func (c *Catalog) addDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan font dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := fontExtensions[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		c.add("", filepath.Join(dir, e.Name()))
	}
	return nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
