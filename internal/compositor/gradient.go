package compositor

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/koios/screenframe/pkg/models"
)

// composeGradient places a scaled, drop-shadowed screenshot centered on a
// radial gradient canvas. The screenshot may occupy at most
// canvas * scale_policy in each dimension and is never upscaled past its
// native resolution.
func (e *ImagingEngine) composeGradient(ctx context.Context, src image.Image, spec *models.ResolvedSpec) (*image.NRGBA, error) {
	maxW := int(float64(spec.CanvasWidth) * spec.ScalePolicy)
	maxH := int(float64(spec.CanvasHeight) * spec.ScalePolicy)
	if maxW <= 0 || maxH <= 0 {
		return nil, models.Errf(models.ErrorKindGeometry, "",
			"scale policy %.2f leaves no room on a %dx%d canvas",
			spec.ScalePolicy, spec.CanvasWidth, spec.CanvasHeight)
	}

	// Fit preserves aspect ratio and leaves smaller images untouched.
	scaled := imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	sw := scaled.Bounds().Dx()
	sh := scaled.Bounds().Dy()
	if sw > maxW || sh > maxH {
		return nil, models.Errf(models.ErrorKindGeometry, "",
			"scaled screenshot %dx%d exceeds allowed %dx%d", sw, sh, maxW, maxH)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas := radialGradient(spec.CanvasWidth, spec.CanvasHeight, e.center, e.edge)

	// Centered placement on both axes.
	x := (spec.CanvasWidth - sw) / 2
	y := (spec.CanvasHeight - sh) / 2

	shadow, margin := e.shadow(sw, sh)
	canvas = imaging.Overlay(canvas, shadow,
		image.Pt(x-margin, y-margin+e.render.ShadowOffsetY), 1.0)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas = imaging.Paste(canvas, scaled, image.Pt(x, y))
	return canvas, nil
}

// shadow renders the drop-shadow layer: a blurred black silhouette of the
// screenshot at the configured opacity. The returned margin is the padding
// the blur needs on every side.
func (e *ImagingEngine) shadow(width, height int) (*image.NRGBA, int) {
	margin := int(math.Ceil(e.render.ShadowBlur * 3))
	layer := image.NewNRGBA(image.Rect(0, 0, width+2*margin, height+2*margin))
	alpha := uint8(math.Round(e.render.ShadowOpacity * 255))
	silhouette := color.NRGBA{A: alpha}
	for y := margin; y < margin+height; y++ {
		for x := margin; x < margin+width; x++ {
			layer.SetNRGBA(x, y, silhouette)
		}
	}
	if e.render.ShadowBlur > 0 {
		return imaging.Blur(layer, e.render.ShadowBlur), margin
	}
	return layer, margin
}

// radialGradient fills a canvas with a center-out blend from the lighter
// center color to the darker edge color.
func radialGradient(width, height int, center, edge color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	cx := float64(width) / 2
	cy := float64(height) / 2
	maxDist := math.Hypot(cx, cy)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			img.SetNRGBA(x, y, lerpColor(center, edge, t))
		}
	}
	return img
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return color.NRGBA{
		R: uint8(float64(a.R) + (float64(b.R)-float64(a.R))*t),
		G: uint8(float64(a.G) + (float64(b.G)-float64(a.G))*t),
		B: uint8(float64(a.B) + (float64(b.B)-float64(a.B))*t),
		A: 255,
	}
}
