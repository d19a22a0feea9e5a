package model

import (
	"testing"

	"github.com/UnendingLoop/TextWatermark/internal/imageproc"
	"github.com/stretchr/testify/require"
)

func validJob() *Job {
	return &Job{
		Text:     "© studio",
		FontName: "Go Regular",
		FontRef:  string(imageproc.BuiltinRegular),
		FontSize: DefaultFontSize,
		Color:    DefaultColor,
		Opacity:  DefaultOpacity,
		Anchor:   "bottom right",
	}
}

func TestJob_Spec(t *testing.T) {
	spec, err := validJob().Spec()
	require.NoError(t, err)
	require.Equal(t, imageproc.WatermarkSpec{
		Text:    "© studio",
		Font:    imageproc.BuiltinRegular,
		Size:    90,
		Color:   imageproc.RGB{R: 255, G: 255, B: 255},
		Opacity: 128,
		Anchor:  imageproc.AnchorBottomRight,
	}, spec)
}

func TestJob_Spec_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(j *Job)
		want   error
	}{
		{name: "bad color", mutate: func(j *Job) { j.Color = "red" }, want: ErrIncorrectColor},
		{name: "bad opacity", mutate: func(j *Job) { j.Opacity = 150 }, want: ErrIncorrectOpacity},
		{name: "bad anchor", mutate: func(j *Job) { j.Anchor = "upper left" }, want: ErrIncorrectAnchor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := validJob()
			tt.mutate(j)
			_, err := j.Spec()
			require.ErrorIs(t, err, tt.want)
		})
	}

	j := validJob()
	j.FontSize = 0
	_, err := j.Spec()
	var fontErr *imageproc.FontResolutionError
	require.ErrorAs(t, err, &fontErr)
}

func TestStringSlice(t *testing.T) {
	var s StringSlice
	require.NoError(t, s.Scan([]byte(`["a","b"]`)))
	require.Equal(t, StringSlice{"a", "b"}, s)

	require.NoError(t, s.Scan(nil))
	require.Empty(t, s)

	require.Error(t, s.Scan("not bytes"))

	v, err := StringSlice(nil).Value()
	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), v)

	v, err = StringSlice{"x"}.Value()
	require.NoError(t, err)
	require.Equal(t, []byte(`["x"]`), v)
}
