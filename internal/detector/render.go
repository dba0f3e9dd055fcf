package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/stabilizer"
)

// Overlay colours on the single channel result canvas.
var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	black = gocv.NewScalar(0, 0, 0, 0)
)

// Render clears canvas and draws every detected line (1px, antialiased) and
// raw circle (1px). canvas must already be allocated at ROI size.
func Render(shapes Shapes, canvas *gocv.Mat) {
	canvas.SetTo(black)

	for _, l := range shapes.Lines {
		gocv.LineWithParams(canvas, l.P1, l.P2, white, 1, gocv.LineAA, 0)
	}
	for _, c := range shapes.Circles {
		gocv.Circle(canvas, c.Center(), c.Radius, white, 1)
	}
}

// RenderSignal draws the stabilized circle (2px) on top of canvas.
func RenderSignal(sig stabilizer.Signal, canvas *gocv.Mat) {
	gocv.Circle(canvas, image.Pt(sig.X, sig.Y), sig.Radius, white, 2)
}

func pt(x, y int) image.Point {
	return image.Point{X: x, Y: y}
}
