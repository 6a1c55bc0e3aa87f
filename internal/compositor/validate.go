package compositor

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/koios/screenframe/internal/config"
	"github.com/koios/screenframe/pkg/models"
)

// ImageInfo describes a decoded raster header.
type ImageInfo struct {
	Width  int
	Height int
	Format string // "png" or "jpeg"
}

// ValidateInput checks a raw screenshot before any transform: the file must
// exist, be non-empty, decode as a raster image, and its extension must match
// the sniffed content format. Mislabeled or corrupt files fail here instead
// of producing garbage output downstream.
func ValidateInput(path string) (*ImageInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, models.WrapErr(models.ErrorKindInputInvalid, path, err)
	}
	if stat.Size() == 0 {
		return nil, models.Errf(models.ErrorKindInputInvalid, path, "file is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, models.WrapErr(models.ErrorKindIO, path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, models.Errf(models.ErrorKindInputInvalid, path, "not a decodable image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, models.Errf(models.ErrorKindInputInvalid, path, "degenerate dimensions %dx%d", cfg.Width, cfg.Height)
	}

	ext := normalizeExt(filepath.Ext(path))
	if ext != format {
		return nil, models.Errf(models.ErrorKindInputInvalid, path,
			"extension says %s but content is %s", ext, format)
	}

	return &ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// ValidateOutput re-measures a produced file from its actual bytes: exact
// canvas dimensions, full opacity, and size within the configured floor and
// ceiling. A clean return from the compositor is never taken as evidence of
// success on its own.
func ValidateOutput(path string, spec *models.ResolvedSpec, limits config.ValidateConfig) error {
	stat, err := os.Stat(path)
	if err != nil {
		return models.WrapErr(models.ErrorKindIO, path, err)
	}
	if stat.Size() < limits.MinOutputBytes {
		return models.Errf(models.ErrorKindComposition, path,
			"output is %d bytes, below the %d byte floor", stat.Size(), limits.MinOutputBytes)
	}
	if limits.MaxOutputBytes > 0 && stat.Size() > limits.MaxOutputBytes {
		return models.Errf(models.ErrorKindComposition, path,
			"output is %d bytes, above the %d byte ceiling", stat.Size(), limits.MaxOutputBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return models.WrapErr(models.ErrorKindIO, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return models.Errf(models.ErrorKindComposition, path, "output is not decodable: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != spec.CanvasWidth || bounds.Dy() != spec.CanvasHeight {
		return models.Errf(models.ErrorKindGeometry, path,
			"output is %dx%d, want exactly %dx%d",
			bounds.Dx(), bounds.Dy(), spec.CanvasWidth, spec.CanvasHeight)
	}

	if !isOpaque(img) {
		return models.Errf(models.ErrorKindComposition, path, "output carries an alpha channel")
	}

	return nil
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}

// parseHexColor parses "#RRGGBB" into an opaque color.
func parseHexColor(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", s)
	}
	var rv, gv, bv int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return uint8(rv), uint8(gv), uint8(bv), nil
}
