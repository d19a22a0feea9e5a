package imageproc

import (
	"fmt"
	"strings"

	"golang.org/x/image/math/fixed"
)

type (
	Anchor string
	HAlign int
	VAlign int
)

const (
	AnchorCenter       Anchor = "center"
	AnchorTopLeft      Anchor = "top left"
	AnchorTopCenter    Anchor = "top center"
	AnchorTopRight     Anchor = "top right"
	AnchorMiddleLeft   Anchor = "middle left"
	AnchorMiddleRight  Anchor = "middle right"
	AnchorBottomLeft   Anchor = "bottom left"
	AnchorBottomCenter Anchor = "bottom center"
	AnchorBottomRight  Anchor = "bottom right"
)

const (
	AlignLeft HAlign = iota
	AlignMiddle
	AlignRight
)

const (
	AlignAscender VAlign = iota
	AlignCenterLine
	AlignDescender
)

// EdgeInset is the margin in pixels between edge anchors and the image border.
const EdgeInset = 20

type axisRule int

const (
	fromStart axisRule = iota // EdgeInset
	fromMiddle                // size/2
	fromEnd                   // size - EdgeInset
	atEnd                     // size
)

type locationRule struct {
	x, y   axisRule
	halign HAlign
	valign VAlign
}

var locationTable = map[Anchor]locationRule{
	AnchorCenter:       {fromMiddle, fromMiddle, AlignMiddle, AlignCenterLine},
	AnchorTopLeft:      {fromStart, fromStart, AlignLeft, AlignAscender},
	AnchorTopCenter:    {fromMiddle, fromStart, AlignMiddle, AlignAscender},
	AnchorTopRight:     {fromEnd, fromStart, AlignRight, AlignAscender},
	AnchorMiddleLeft:   {fromStart, fromMiddle, AlignLeft, AlignCenterLine},
	AnchorMiddleRight:  {fromEnd, fromMiddle, AlignRight, AlignCenterLine},
	AnchorBottomLeft:   {fromStart, atEnd, AlignLeft, AlignDescender},
	AnchorBottomCenter: {fromMiddle, atEnd, AlignMiddle, AlignDescender},
	AnchorBottomRight:  {fromEnd, atEnd, AlignRight, AlignDescender},
}

var anchorOrder = []Anchor{
	AnchorCenter,
	AnchorTopLeft,
	AnchorTopCenter,
	AnchorTopRight,
	AnchorMiddleLeft,
	AnchorMiddleRight,
	AnchorBottomLeft,
	AnchorBottomCenter,
	AnchorBottomRight,
}

// Location is the reference point of the text in source pixels plus the part
// of the text line box that has to touch it.
type Location struct {
	Point  fixed.Point26_6
	HAlign HAlign
	VAlign VAlign
}

// Anchors returns all supported anchors in menu order.
func Anchors() []Anchor {
	res := make([]Anchor, len(anchorOrder))
	copy(res, anchorOrder)
	return res
}

// ParseAnchor accepts "Bottom Right", "bottom-right", "bottom_right" etc.
func ParseAnchor(name string) (Anchor, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")

	a := Anchor(norm)
	if _, ok := locationTable[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAnchor, name)
	}
	return a, nil
}

func (a Anchor) Valid() bool {
	_, ok := locationTable[a]
	return ok
}

// LocationFor computes the anchor point for an image of w x h pixels.
// Always pass the dimensions of the full resolution original.
func LocationFor(a Anchor, w, h int) (Location, error) {
	rule, ok := locationTable[a]
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrUnknownAnchor, string(a))
	}
	if err := checkDimensions("locate", w, h); err != nil {
		return Location{}, err
	}

	return Location{
		Point:  fixed.Point26_6{X: rule.x.resolve(w), Y: rule.y.resolve(h)},
		HAlign: rule.halign,
		VAlign: rule.valign,
	}, nil
}

func (r axisRule) resolve(size int) fixed.Int26_6 {
	switch r {
	case fromStart:
		return fixed.I(EdgeInset)
	case fromMiddle:
		return fixed.I(size) / 2
	case fromEnd:
		return fixed.I(size - EdgeInset)
	default:
		return fixed.I(size)
	}
}
