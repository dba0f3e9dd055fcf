package vision

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/depth"
	"github.com/ayusman/projmap/internal/params"
)

// View names one of the intermediate images kept by a Processor.
type View string

const (
	// ViewDepth is the full-frame 8-bit intensity image.
	ViewDepth View = "depth"
	// ViewBinary is the binarized region of interest.
	ViewBinary View = "binary"
	// ViewEdges is the Canny edge map of the region of interest.
	ViewEdges View = "edges"
	// ViewResult is the detection overlay canvas.
	ViewResult View = "result"
)

// ErrUnknownView is returned for a view name the processor does not keep.
var ErrUnknownView = errors.New("unknown view")

// ErrNoImage is returned when a view has not been produced yet.
var ErrNoImage = errors.New("no image available")

// ParseView validates a view name. An empty name selects the depth view.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case "":
		return ViewDepth, nil
	case ViewDepth, ViewBinary, ViewEdges, ViewResult:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
}

// Processor owns the working images of one pipeline. They are allocated once
// and reused for every frame.
type Processor struct {
	mu        sync.Mutex
	rect      image.Rectangle
	intensity gocv.Mat
	binary    gocv.Mat
	edges     gocv.Mat
	result    gocv.Mat
	threshold float32
	ready     bool
}

// NewProcessor creates a Processor cropping the rw x rh region centred in a
// w x h frame. It fails when the region does not fit.
func NewProcessor(w, h, rw, rh int) (*Processor, error) {
	rect, err := depth.CenterROI(w, h, rw, rh)
	if err != nil {
		return nil, err
	}
	return &Processor{
		rect:      rect,
		intensity: gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC1),
		binary:    gocv.NewMat(),
		edges:     gocv.NewMat(),
		result:    gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rh, rw, gocv.MatTypeCV8UC1),
	}, nil
}

// NewDefaultProcessor creates a Processor for sensor-sized frames and the
// default detection region.
func NewDefaultProcessor() (*Processor, error) {
	return NewProcessor(depth.Width, depth.Height, depth.ROIWidth, depth.ROIHeight)
}

// Rect returns the region of interest in frame coordinates.
func (p *Processor) Rect() image.Rectangle {
	return p.rect
}

// Prepare normalizes f, crops the region of interest, binarizes it and
// extracts edges. It returns false and leaves the previous images untouched
// when the frame cannot be normalized. The returned edge map is owned by the
// processor and stays valid until the next call.
func (p *Processor) Prepare(f *depth.Frame, prm params.Params) (gocv.Mat, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ok bool
	if prm.Depth.ReliabilityFilter && f != nil {
		ok = depth.NormalizeReliable(f, f.MinReliable, f.MaxReliable, &p.intensity)
	} else {
		ok = depth.Normalize(f, &p.intensity)
	}
	if !ok {
		return gocv.Mat{}, false
	}

	roi := depth.ROI(p.intensity, p.rect)
	defer roi.Close()

	p.threshold = Binarize(roi, &p.binary, prm.Binarize)
	Edges(p.binary, &p.edges, prm.Canny)
	p.ready = true

	return p.edges, true
}

// Draw runs fn with the result canvas while holding the processor lock.
func (p *Processor) Draw(fn func(canvas *gocv.Mat)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.result)
}

// Threshold returns the threshold applied to the last prepared frame.
func (p *Processor) Threshold() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threshold
}

// Encode encodes a copy of view in the format named by ext (".jpg", ".png").
func (p *Processor) Encode(view View, ext gocv.FileExt) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.view(view)
	if err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(ext, m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", view, err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// WriteFile saves view to path. The format follows the file extension.
func (p *Processor) WriteFile(view View, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, err := p.view(view)
	if err != nil {
		return err
	}
	if !gocv.IMWrite(path, m) {
		return fmt.Errorf("write %s to %s failed", view, path)
	}
	return nil
}

func (p *Processor) view(v View) (gocv.Mat, error) {
	var m gocv.Mat
	switch v {
	case ViewDepth:
		m = p.intensity
	case ViewBinary:
		m = p.binary
	case ViewEdges:
		m = p.edges
	case ViewResult:
		m = p.result
	default:
		return gocv.Mat{}, fmt.Errorf("%w: %q", ErrUnknownView, v)
	}
	if !p.ready || m.Empty() {
		return gocv.Mat{}, ErrNoImage
	}
	return m, nil
}

// Close releases the working images.
func (p *Processor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.intensity.Close()
	p.binary.Close()
	p.edges.Close()
	p.result.Close()
	p.ready = false
}
