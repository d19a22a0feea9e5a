// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

// Значения по умолчанию - как в исходном окне редактора
const (
	DefaultFontSize = 90
	DefaultColor    = "#ffffff"
	DefaultOpacity  = 50
	DefaultAnchor   = imageproc.AnchorCenter

	MinFontSize   = 1
	MaxFontSize   = 1000
	MaxTextLength = 256
)

//---------------------

type Job struct {
	UID         uuid.UUID   `json:"uid"`
	SourceKey   string      `json:"-"`
	ResultKey   string      `json:"-"`
	ContentType string      `json:"content_type"`
	Text        string      `json:"text"`
	FontName    string      `json:"font"`
	FontRef     string      `json:"-"`
	FontSize    int         `json:"font_size"`
	Color       string      `json:"color"`
	Opacity     int         `json:"opacity"`
	Anchor      string      `json:"anchor"`
	Status      Status      `json:"status,omitempty"`
	ErrMsg      StringSlice `json:"error,omitempty"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// Spec builds the engine parameters of the job. Opacity is stored as a percentage.
func (j *Job) Spec() (imageproc.WatermarkSpec, error) {
	c, err := imageproc.ParseHexColor(j.Color)
	if err != nil {
		return imageproc.WatermarkSpec{}, fmt.Errorf("%w: %v", ErrIncorrectColor, err)
	}
	alpha, err := imageproc.OpacityFromPercent(j.Opacity)
	if err != nil {
		return imageproc.WatermarkSpec{}, fmt.Errorf("%w: %v", ErrIncorrectOpacity, err)
	}
	anchor, err := imageproc.ParseAnchor(j.Anchor)
	if err != nil {
		return imageproc.WatermarkSpec{}, fmt.Errorf("%w: %v", ErrIncorrectAnchor, err)
	}
	return imageproc.NewWatermarkSpec(j.Text, imageproc.FontRef(j.FontRef), j.FontSize, c, alpha, anchor)
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	ByStatus  = "status"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// JobCreateData - сырые данные multipart-формы. Пустые поля заменяются дефолтами.
type JobCreateData struct {
	Image       multipart.File
	ContentType string
	ImageSize   int64
	Text        string
	Font        string
	FontSize    *int
	Color       string
	Opacity     *int
	Anchor      string
}

// ImageFile - то, что отдается клиенту на /result и /preview
type ImageFile struct {
	Data        io.ReadCloser
	ContentType string
	Size        int64
	Fallback    bool // отдан оригинал, водяной знак еще не готов
}

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")   // 500
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")              // 400
	ErrIncorrectID       error = errors.New("incorrect job UUID")                      // 400
	ErrJobNotFound       error = errors.New("specified job UUID doesn't exist")        // 404
	ErrEmptySource       error = errors.New("empty/incorrect source image provided")   // 400
	ErrUnsupportedFormat error = errors.New("unsupported source image format")         // 400
	ErrIncorrectText     error = errors.New("watermark text is too long")              // 400
	ErrIncorrectFont     error = errors.New("unknown font")                            // 400
	ErrIncorrectSize     error = errors.New("font size must be within 1..1000")        // 400
	ErrIncorrectColor    error = errors.New("color must be #rrggbb or #rgb")           // 400
	ErrIncorrectOpacity  error = errors.New("opacity must be within 0..100 percent")   // 400
	ErrIncorrectAnchor   error = errors.New("unknown anchor")                          // 400
	ErrIncorrectStatus   error = errors.New("incorrect status provided")               // 400
	ErrJobBusy           error = errors.New("job is being processed, try again later") // 409
)

// ErrResultNotReady is not returned to clients: it marks a result response
// that carries the original instead of the composite.
var ErrResultNotReady = errors.New("watermark is not applied yet: original sent")

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
}

var GetFormat = map[string]imaging.Format{
	JPEG: imaging.JPEG,
	GIF:  imaging.GIF,
	PNG:  imaging.PNG,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
