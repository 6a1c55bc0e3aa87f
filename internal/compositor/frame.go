package compositor

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/koios/screenframe/pkg/models"
)

// aspectTolerance bounds how far an input's aspect ratio may drift from the
// screen area before resizing would distort it.
const aspectTolerance = 0.01

// composeFrame places the screenshot inside a bezel overlay: the input must
// fill the screen area exactly, the bezel (a full-canvas image with a
// transparent screen cutout) goes on top. Captures at a different aspect
// ratio are rejected rather than silently cropped or stretched.
func (e *ImagingEngine) composeFrame(ctx context.Context, src image.Image, spec *models.ResolvedSpec) (*image.NRGBA, error) {
	sw := src.Bounds().Dx()
	sh := src.Bounds().Dy()

	var screen *image.NRGBA
	switch {
	case sw == spec.ScreenWidth && sh == spec.ScreenHeight:
		screen = imaging.Clone(src)
	case sameAspect(sw, sh, spec.ScreenWidth, spec.ScreenHeight):
		screen = imaging.Resize(src, spec.ScreenWidth, spec.ScreenHeight, imaging.Lanczos)
	default:
		return nil, models.Errf(models.ErrorKindGeometry, "",
			"capture %dx%d does not match screen area %dx%d aspect ratio",
			sw, sh, spec.ScreenWidth, spec.ScreenHeight)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := imaging.Open(e.framePath(spec))
	if err != nil {
		return nil, models.Errf(models.ErrorKindTool, e.framePath(spec), "frame asset unreadable: %v", err)
	}
	fb := frame.Bounds()
	if fb.Dx() != spec.CanvasWidth || fb.Dy() != spec.CanvasHeight {
		return nil, models.Errf(models.ErrorKindGeometry, e.framePath(spec),
			"frame asset is %dx%d, want %dx%d", fb.Dx(), fb.Dy(), spec.CanvasWidth, spec.CanvasHeight)
	}

	canvas := imaging.New(spec.CanvasWidth, spec.CanvasHeight, color.NRGBA{})
	canvas = imaging.Paste(canvas, screen, image.Pt(spec.ScreenX, spec.ScreenY))
	canvas = imaging.Overlay(canvas, frame, image.Pt(0, 0), 1.0)
	return canvas, nil
}

func sameAspect(w1, h1, w2, h2 int) bool {
	if h1 == 0 || h2 == 0 {
		return false
	}
	r1 := float64(w1) / float64(h1)
	r2 := float64(w2) / float64(h2)
	return math.Abs(r1-r2) <= aspectTolerance
}
