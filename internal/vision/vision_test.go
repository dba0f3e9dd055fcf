package vision

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/depth"
	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/testdata"
)

func TestParseView(t *testing.T) {
	tests := []struct {
		in      string
		want    View
		wantErr bool
	}{
		{"", ViewDepth, false},
		{"depth", ViewDepth, false},
		{"binary", ViewBinary, false},
		{"edges", ViewEdges, false},
		{"result", ViewResult, false},
		{"color", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseView(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownView)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProcessor_ROITooLarge(t *testing.T) {
	_, err := NewProcessor(100, 100, depth.ROIWidth, depth.ROIHeight)
	assert.ErrorIs(t, err, depth.ErrROIOutOfBounds)
}

func TestBinarize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	// left half 50, right half 200
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(50, 0, 0, 0), 10, 20, gocv.MatTypeCV8UC1)
	defer src.Close()
	right := src.Region(rect(10, 0, 20, 10))
	right.SetTo(gocv.NewScalar(200, 0, 0, 0))
	right.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	t.Run("otsu separates the two levels", func(t *testing.T) {
		th := Binarize(src, &dst, params.Binarize{})
		assert.GreaterOrEqual(t, th, float32(50))
		assert.Less(t, th, float32(200))
		assert.Equal(t, uint8(0), dst.GetUCharAt(5, 2))
		assert.Equal(t, uint8(255), dst.GetUCharAt(5, 15))
	})

	t.Run("manual threshold", func(t *testing.T) {
		th := Binarize(src, &dst, params.Binarize{Manual: true, Thresh: 230})
		assert.Equal(t, float32(230), th)
		assert.Equal(t, 0, gocv.CountNonZero(dst))
	})
}

func TestProcessor_Prepare(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	p, err := NewDefaultProcessor()
	require.NoError(t, err)
	defer p.Close()

	t.Run("invalid frame is skipped", func(t *testing.T) {
		_, ok := p.Prepare(&depth.Frame{Width: 10, Height: 10}, params.DefaultParams())
		assert.False(t, ok)

		_, err := p.Encode(ViewEdges, gocv.PNGFileExt)
		assert.True(t, errors.Is(err, ErrNoImage))
	})

	t.Run("disk produces a ring of edges", func(t *testing.T) {
		edges, ok := p.Prepare(testdata.Disk(100, 75, 40, testdata.ObjectMM), params.DefaultParams())
		require.True(t, ok)

		assert.Equal(t, depth.ROIHeight, edges.Rows())
		assert.Equal(t, depth.ROIWidth, edges.Cols())
		assert.Greater(t, gocv.CountNonZero(edges), 100)

		// centre and corner are not edges
		assert.Equal(t, uint8(0), edges.GetUCharAt(75, 100))
		assert.Equal(t, uint8(0), edges.GetUCharAt(0, 0))

		th := p.Threshold()
		assert.Greater(t, th, float32(depth.Intensity(testdata.BackgroundMM))-1)
		assert.Less(t, th, float32(depth.Intensity(testdata.ObjectMM)))
	})

	t.Run("views encode", func(t *testing.T) {
		for _, v := range []View{ViewDepth, ViewBinary, ViewEdges, ViewResult} {
			data, err := p.Encode(v, gocv.JPEGFileExt)
			require.NoError(t, err, v)
			assert.NotEmpty(t, data, v)
		}

		_, err := p.Encode("nope", gocv.JPEGFileExt)
		assert.ErrorIs(t, err, ErrUnknownView)
	})

	t.Run("write png", func(t *testing.T) {
		path := t.TempDir() + "/depth.png"
		require.NoError(t, p.WriteFile(ViewDepth, path))

		img := gocv.IMRead(path, gocv.IMReadGrayScale)
		defer img.Close()
		assert.Equal(t, depth.Height, img.Rows())
		assert.Equal(t, depth.Width, img.Cols())
	})
}

func rect(x0, y0, x1, y1 int) image.Rectangle {
	return image.Rect(x0, y0, x1, y1)
}
