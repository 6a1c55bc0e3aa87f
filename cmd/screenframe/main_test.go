package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeShot(t *testing.T, path string, width, height int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeTestCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	content := `
devices:
  - name: Shot
    canvas: { width: 64, height: 64 }
    capture: { width: 64, height: 64 }
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SCREENFRAME_INPUT", "SCREENFRAME_OUTPUT", "SCREENFRAME_MODE", "REDIS_ADDR"} {
		os.Unsetenv(key)
	}
	os.Setenv("SCREENFRAME_MIN_BYTES", "16")
	t.Cleanup(func() { os.Unsetenv("SCREENFRAME_MIN_BYTES") })
}

func TestRun_MissingInputIsUsageError(t *testing.T) {
	clearEnv(t)
	var out, errOut bytes.Buffer

	if code := run(nil, &out, &errOut); code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(errOut.String(), "--input is required") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestRun_UnknownModeIsUsageError(t *testing.T) {
	clearEnv(t)
	input := t.TempDir()
	var out, errOut bytes.Buffer

	code := run([]string{"--input", input, "--mode", "sometimes"}, &out, &errOut)
	if code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	output := filepath.Join(dir, "output")
	writeShot(t, filepath.Join(input, "en-US", "Shot-01.png"), 64, 64)
	catalog := writeTestCatalog(t)

	var out, errOut bytes.Buffer
	code := run([]string{
		"--input", input,
		"--output", output,
		"--catalog", catalog,
	}, &out, &errOut)

	if code != exitOK {
		t.Fatalf("exit code = %d, want %d (stderr: %s)", code, exitOK, errOut.String())
	}
	if _, err := os.Stat(filepath.Join(output, "en-US", "Shot-01.png")); err != nil {
		t.Errorf("promoted output missing: %v", err)
	}
	if !strings.Contains(out.String(), "1 succeeded") {
		t.Errorf("report = %q", out.String())
	}
}

func TestRun_FailuresExitThree(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	output := filepath.Join(dir, "output")
	if err := os.MkdirAll(filepath.Join(input, "en-US"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(input, "en-US", "Shot-01.png"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := run([]string{
		"--input", input,
		"--output", output,
		"--catalog", writeTestCatalog(t),
	}, &out, &errOut)

	if code != exitProcessing {
		t.Errorf("exit code = %d, want %d", code, exitProcessing)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("failed strict run must not create the output tree")
	}
	if !strings.Contains(out.String(), "FAILED en-US/Shot-01.png") {
		t.Errorf("report = %q", out.String())
	}
}

func TestRun_DryRun(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "input")
	output := filepath.Join(dir, "output")
	writeShot(t, filepath.Join(input, "en-US", "Shot-01.png"), 64, 64)

	var out, errOut bytes.Buffer
	code := run([]string{
		"--input", input,
		"--output", output,
		"--catalog", writeTestCatalog(t),
		"--dry-run",
	}, &out, &errOut)

	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("dry run must not write output")
	}
	if !strings.Contains(out.String(), "Dry run") {
		t.Errorf("report = %q", out.String())
	}
}
