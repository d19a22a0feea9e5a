package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/UnendingLoop/TextWatermark/internal/editor"
	"github.com/UnendingLoop/TextWatermark/internal/fontcatalog"
	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/urfave/cli/v2"
	"github.com/wb-go/wbf/zlog"
)

// Значения по умолчанию - как в окне редактора
const (
	defaultSize     = 90
	defaultOpacity  = 50
	defaultColor    = "#ffffff"
	defaultViewport = "750x700"
)

var errBadViewport = errors.New("viewport must look like 750x700")

func newApp(stdout, stderr io.Writer) *cli.App {
	catalogFlag := &cli.StringFlag{
		Name:    "catalog",
		Usage:   "YAML font catalog merged over the builtin fonts",
		EnvVars: []string{"FONT_CATALOG"},
	}
	viewportFlag := &cli.StringFlag{
		Name:  "viewport",
		Usage: "preview area as WIDTHxHEIGHT",
		Value: defaultViewport,
	}

	return &cli.App{
		Name:      "wmark",
		Usage:     "put a text watermark on an image",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
		},
		Before: func(c *cli.Context) error {
			zlog.InitConsole()
			return zlog.SetLevel(c.String("log-level"))
		},
		Commands: []*cli.Command{
			{
				Name:  "apply",
				Usage: "watermark --in and write the full resolution result to --out",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
					&cli.StringFlag{Name: "text", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "font", Value: fontcatalog.DefaultName},
					&cli.IntFlag{Name: "size", Value: defaultSize},
					&cli.StringFlag{Name: "color", Value: defaultColor},
					&cli.IntFlag{Name: "opacity", Value: defaultOpacity, Usage: "0..100 percent"},
					&cli.StringFlag{Name: "anchor", Value: string(imageproc.AnchorCenter)},
					&cli.StringFlag{Name: "preview", Usage: "also write the display-scaled result here"},
					catalogFlag,
					viewportFlag,
				},
				Action: applyAction,
			},
			{
				Name:  "preview",
				Usage: "write --in fitted into the viewport to --out",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
					viewportFlag,
				},
				Action: previewAction,
			},
			{
				Name:   "fonts",
				Usage:  "list font names",
				Flags:  []cli.Flag{catalogFlag},
				Action: fontsAction,
			},
			{
				Name:  "anchors",
				Usage: "list anchor names",
				Action: func(c *cli.Context) error {
					for _, a := range imageproc.Anchors() {
						fmt.Fprintln(c.App.Writer, a)
					}
					return nil
				},
			},
		},
	}
}

func applyAction(c *cli.Context) error {
	vp, err := parseViewport(c.String("viewport"))
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(c.String("catalog"))
	if err != nil {
		return err
	}

	session := editor.NewSession(imageproc.NewCompositor(imageproc.NewFontLoader(4)), vp)
	if _, err := session.Open(c.String("in")); err != nil {
		return err
	}

	// без текста знак не накладывается, сохраняется оригинал
	view := imageproc.ScaledView{}
	if text := c.String("text"); text != "" {
		spec, err := specFromFlags(c, catalog)
		if err != nil {
			return err
		}
		res := <-session.ApplyAsync(c.Context, spec)
		if res.Err != nil {
			return res.Err
		}
		view = res.View
	}

	report, err := session.Save(c.String("out"))
	if err != nil {
		return err
	}
	if report.Fallback {
		fmt.Fprintln(c.App.ErrWriter, "warning:", report.Notice)
	}
	fmt.Fprintln(c.App.Writer, "saved", report.Path)

	if previewPath := c.String("preview"); previewPath != "" {
		if view.Image == nil {
			if view, err = session.Preview(); err != nil {
				return err
			}
		}
		if err := imageproc.Save(view.Image, previewPath); err != nil {
			return err
		}
		b := view.Image.Bounds()
		fmt.Fprintf(c.App.Writer, "preview %s %dx%d\n", previewPath, b.Dx(), b.Dy())
	}
	return nil
}

func previewAction(c *cli.Context) error {
	vp, err := parseViewport(c.String("viewport"))
	if err != nil {
		return err
	}

	session := editor.NewSession(imageproc.NewCompositor(nil), vp)
	view, err := session.Open(c.String("in"))
	if err != nil {
		return err
	}
	if err := imageproc.Save(view.Image, c.String("out")); err != nil {
		return err
	}

	b := view.Image.Bounds()
	fmt.Fprintf(c.App.Writer, "preview %s %dx%d scale %.3f\n", c.String("out"), b.Dx(), b.Dy(), view.Scale)
	return nil
}

func fontsAction(c *cli.Context) error {
	catalog, err := loadCatalog(c.String("catalog"))
	if err != nil {
		return err
	}
	for _, name := range catalog.Names() {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

func specFromFlags(c *cli.Context, catalog *fontcatalog.Catalog) (imageproc.WatermarkSpec, error) {
	ref, err := catalog.Resolve(c.String("font"))
	if err != nil {
		return imageproc.WatermarkSpec{}, err
	}
	rgb, err := imageproc.ParseHexColor(c.String("color"))
	if err != nil {
		return imageproc.WatermarkSpec{}, err
	}
	alpha, err := imageproc.OpacityFromPercent(c.Int("opacity"))
	if err != nil {
		return imageproc.WatermarkSpec{}, err
	}
	anchor, err := imageproc.ParseAnchor(c.String("anchor"))
	if err != nil {
		return imageproc.WatermarkSpec{}, err
	}
	return imageproc.NewWatermarkSpec(c.String("text"), ref, c.Int("size"), rgb, alpha, anchor)
}

func loadCatalog(path string) (*fontcatalog.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return fontcatalog.Default(), nil
	}
	return fontcatalog.Load(path)
}

func parseViewport(s string) (imageproc.Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return imageproc.Viewport{}, fmt.Errorf("%w: %q", errBadViewport, s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return imageproc.Viewport{}, fmt.Errorf("%w: %q", errBadViewport, s)
	}
	vp := imageproc.Viewport{Width: width, Height: height}
	if err := vp.Validate(); err != nil {
		return imageproc.Viewport{}, err
	}
	return vp, nil
}
