package compositor

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/koios/screenframe/internal/config"
	"github.com/koios/screenframe/pkg/models"
)

func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}
}

func testRenderConfig() *config.RenderConfig {
	return &config.RenderConfig{
		GradientCenter: "#F5F7FA",
		GradientEdge:   "#B8C4D0",
		ShadowBlur:     2.0,
		ShadowOpacity:  0.35,
		ShadowOffsetY:  2,
		Matte:          "#FFFFFF",
	}
}

func newTestEngine(t *testing.T, assetsDir string, specs []*models.ResolvedSpec) *ImagingEngine {
	t.Helper()
	engine, err := NewImagingEngine(testRenderConfig(), assetsDir, specs, zap.NewNop())
	if err != nil {
		t.Fatalf("NewImagingEngine: %v", err)
	}
	return engine
}
