package compositor

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/koios/screenframe/internal/config"
	"github.com/koios/screenframe/pkg/models"
)

func kindOf(t *testing.T, err error) models.ErrorKind {
	t.Helper()
	var pe *models.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %T: %v", err, err)
	}
	return pe.Kind
}

func TestValidateInput(t *testing.T) {
	dir := t.TempDir()
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	t.Run("valid png", func(t *testing.T) {
		path := filepath.Join(dir, "shot.png")
		writePNG(t, path, solidImage(64, 48, white))

		info, err := ValidateInput(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Width != 64 || info.Height != 48 || info.Format != "png" {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("valid jpeg with jpg extension", func(t *testing.T) {
		path := filepath.Join(dir, "shot.jpg")
		writeJPEG(t, path, solidImage(32, 32, white))

		info, err := ValidateInput(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Format != "jpeg" {
			t.Errorf("Format = %q, want jpeg", info.Format)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ValidateInput(filepath.Join(dir, "nope.png"))
		if err == nil {
			t.Fatal("expected error")
		}
		if kindOf(t, err) != models.ErrorKindInputInvalid {
			t.Errorf("kind = %q", kindOf(t, err))
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.png")
		os.WriteFile(path, nil, 0644)

		_, err := ValidateInput(path)
		if err == nil || kindOf(t, err) != models.ErrorKindInputInvalid {
			t.Errorf("expected input_invalid, got %v", err)
		}
	})

	t.Run("corrupt content", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.png")
		os.WriteFile(path, []byte("definitely not pixels"), 0644)

		_, err := ValidateInput(path)
		if err == nil || kindOf(t, err) != models.ErrorKindInputInvalid {
			t.Errorf("expected input_invalid, got %v", err)
		}
	})

	t.Run("mislabeled extension", func(t *testing.T) {
		// PNG bytes behind a .jpg name must be rejected, not guessed at.
		path := filepath.Join(dir, "mislabeled.jpg")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		writePNG(t, filepath.Join(dir, "real.png"), solidImage(8, 8, white))
		data, _ := os.ReadFile(filepath.Join(dir, "real.png"))
		f.Write(data)
		f.Close()

		_, err = ValidateInput(path)
		if err == nil || kindOf(t, err) != models.ErrorKindInputInvalid {
			t.Errorf("expected input_invalid, got %v", err)
		}
	})
}

func TestValidateOutput(t *testing.T) {
	dir := t.TempDir()
	spec := &models.ResolvedSpec{Name: "Test", CanvasWidth: 100, CanvasHeight: 80}
	limits := config.ValidateConfig{MinOutputBytes: 16, MaxOutputBytes: 1 << 20}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	t.Run("accepts exact opaque output", func(t *testing.T) {
		path := filepath.Join(dir, "good.png")
		writePNG(t, path, solidImage(100, 80, white))

		if err := ValidateOutput(path, spec, limits); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects wrong dimensions", func(t *testing.T) {
		path := filepath.Join(dir, "wrongsize.png")
		writePNG(t, path, solidImage(100, 81, white))

		err := ValidateOutput(path, spec, limits)
		if err == nil || kindOf(t, err) != models.ErrorKindGeometry {
			t.Errorf("expected geometry_mismatch, got %v", err)
		}
	})

	t.Run("rejects alpha channel", func(t *testing.T) {
		img := solidImage(100, 80, white)
		img.SetNRGBA(10, 10, color.NRGBA{R: 255, A: 128})
		path := filepath.Join(dir, "translucent.png")
		writePNG(t, path, img)

		err := ValidateOutput(path, spec, limits)
		if err == nil || kindOf(t, err) != models.ErrorKindComposition {
			t.Errorf("expected composition_failed, got %v", err)
		}
	})

	t.Run("rejects undersized file", func(t *testing.T) {
		path := filepath.Join(dir, "tiny.png")
		writePNG(t, path, solidImage(100, 80, white))

		err := ValidateOutput(path, spec, config.ValidateConfig{MinOutputBytes: 1 << 20, MaxOutputBytes: 1 << 22})
		if err == nil || kindOf(t, err) != models.ErrorKindComposition {
			t.Errorf("expected composition_failed for floor, got %v", err)
		}
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		path := filepath.Join(dir, "big.png")
		writePNG(t, path, solidImage(100, 80, white))

		err := ValidateOutput(path, spec, config.ValidateConfig{MinOutputBytes: 1, MaxOutputBytes: 8})
		if err == nil || kindOf(t, err) != models.ErrorKindComposition {
			t.Errorf("expected composition_failed for ceiling, got %v", err)
		}
	})

	t.Run("missing output is an io error", func(t *testing.T) {
		err := ValidateOutput(filepath.Join(dir, "never-written.png"), spec, limits)
		if err == nil || kindOf(t, err) != models.ErrorKindIO {
			t.Errorf("expected io_error, got %v", err)
		}
	})
}

func TestParseHexColor(t *testing.T) {
	r, g, b, err := parseHexColor("#F5F7FA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 0xF5 || g != 0xF7 || b != 0xFA {
		t.Errorf("got %02x%02x%02x", r, g, b)
	}

	if _, _, _, err := parseHexColor("red"); err == nil {
		t.Error("expected error for non-hex color")
	}
}
