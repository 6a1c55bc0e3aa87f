package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/koios/screenframe/internal/config"
	"github.com/koios/screenframe/pkg/models"
)

// Job is one composition request: a validated input file and the device spec
// resolved for it.
type Job struct {
	InputPath string
	Spec      *models.ResolvedSpec
	Input     *ImageInfo
}

// Engine is the raster-processing boundary. Compose returns the encoded
// output bytes; callers re-validate those bytes independently.
type Engine interface {
	// Preflight verifies the capability can be invoked at all. A failure is
	// fatal for the whole run, before any file is touched.
	Preflight(ctx context.Context) error
	Compose(ctx context.Context, job *Job) ([]byte, error)
}

// ImagingEngine composes store assets in-process.
type ImagingEngine struct {
	render    *config.RenderConfig
	assetsDir string
	logger    *zap.Logger

	center color.NRGBA
	edge   color.NRGBA
	matte  color.NRGBA

	// frame specs the engine must be able to serve, checked at preflight
	frameSpecs []*models.ResolvedSpec
}

// NewImagingEngine creates an engine bound to the render configuration and
// the set of frame devices it may be asked to serve.
func NewImagingEngine(render *config.RenderConfig, assetsDir string, specs []*models.ResolvedSpec, logger *zap.Logger) (*ImagingEngine, error) {
	e := &ImagingEngine{
		render:    render,
		assetsDir: assetsDir,
		logger:    logger,
	}
	var err error
	if e.center, err = parseColor(render.GradientCenter); err != nil {
		return nil, err
	}
	if e.edge, err = parseColor(render.GradientEdge); err != nil {
		return nil, err
	}
	if e.matte, err = parseColor(render.Matte); err != nil {
		return nil, err
	}
	for _, spec := range specs {
		if spec.Kind == models.KindFrame {
			e.frameSpecs = append(e.frameSpecs, spec)
		}
	}
	return e, nil
}

// Preflight confirms every bezel asset the catalog references exists and
// decodes at the expected canvas size. Discovering this after 90% of a long
// batch is the failure mode this guards against.
func (e *ImagingEngine) Preflight(ctx context.Context) error {
	for _, spec := range e.frameSpecs {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := e.framePath(spec)
		frame, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("%w: frame asset for %q: %v", models.ErrCapabilityUnavailable, spec.Name, err)
		}
		b := frame.Bounds()
		if b.Dx() != spec.CanvasWidth || b.Dy() != spec.CanvasHeight {
			return fmt.Errorf("%w: frame asset %s is %dx%d, want %dx%d",
				models.ErrCapabilityUnavailable, path, b.Dx(), b.Dy(), spec.CanvasWidth, spec.CanvasHeight)
		}
	}
	return nil
}

// Compose runs the algorithm selected by the spec's kind and returns the
// flattened PNG bytes. The result always measures exactly the canvas
// dimensions; that is checked here before the bytes are handed back.
func (e *ImagingEngine) Compose(ctx context.Context, job *Job) ([]byte, error) {
	src, err := imaging.Open(job.InputPath)
	if err != nil {
		return nil, models.Errf(models.ErrorKindInputInvalid, job.InputPath, "decode failed: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, models.WrapErr(models.ErrorKindComposition, job.InputPath, err)
	}

	var composed *image.NRGBA
	switch job.Spec.Kind {
	case models.KindGradient:
		composed, err = e.composeGradient(ctx, src, job.Spec)
	case models.KindFrame:
		composed, err = e.composeFrame(ctx, src, job.Spec)
	case models.KindNormalize:
		composed, err = e.composeNormalize(ctx, src, job.Spec)
	default:
		err = models.Errf(models.ErrorKindComposition, job.InputPath, "unknown device kind %q", job.Spec.Kind)
	}
	if err != nil {
		var pe *models.PipelineError
		if !errors.As(err, &pe) {
			err = models.WrapErr(models.ErrorKindComposition, job.InputPath, err)
		}
		return nil, err
	}

	b := composed.Bounds()
	if b.Dx() != job.Spec.CanvasWidth || b.Dy() != job.Spec.CanvasHeight {
		return nil, models.Errf(models.ErrorKindGeometry, job.InputPath,
			"composed %dx%d, want %dx%d", b.Dx(), b.Dy(), job.Spec.CanvasWidth, job.Spec.CanvasHeight)
	}
	if err := ctx.Err(); err != nil {
		return nil, models.WrapErr(models.ErrorKindComposition, job.InputPath, err)
	}

	flat := e.flatten(composed)
	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, models.WrapErr(models.ErrorKindComposition, job.InputPath, err)
	}

	e.logger.Debug("composed asset",
		zap.String("input", job.InputPath),
		zap.String("device", job.Spec.Name),
		zap.String("kind", string(job.Spec.Kind)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

// composeNormalize resizes the capture to exactly the canvas dimensions.
func (e *ImagingEngine) composeNormalize(_ context.Context, src image.Image, spec *models.ResolvedSpec) (*image.NRGBA, error) {
	b := src.Bounds()
	if b.Dx() == spec.CanvasWidth && b.Dy() == spec.CanvasHeight {
		return imaging.Clone(src), nil
	}
	return imaging.Resize(src, spec.CanvasWidth, spec.CanvasHeight, imaging.Lanczos), nil
}

// flatten composites the image over the opaque matte, removing any alpha.
// Encoding an opaque result also drops the alpha channel from the PNG itself.
func (e *ImagingEngine) flatten(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(e.matte), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// framePath resolves the bezel file for the configured finish variant. The
// variant name is appended before the extension; an unknown or empty variant
// falls back to the base asset.
func (e *ImagingEngine) framePath(spec *models.ResolvedSpec) string {
	base := filepath.Join(e.assetsDir, spec.FramePath)
	variant := e.render.FrameVariant
	if variant == "" {
		return base
	}
	for _, v := range spec.FrameVariants {
		if v == variant {
			ext := filepath.Ext(base)
			return strings.TrimSuffix(base, ext) + "-" + variant + ext
		}
	}
	return base
}

func parseColor(s string) (color.NRGBA, error) {
	r, g, b, err := parseHexColor(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
