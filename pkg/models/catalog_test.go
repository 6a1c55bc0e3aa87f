package models

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog_Valid(t *testing.T) {
	path := writeCatalog(t, `
devices:
  - name: Phone
    canvas: { width: 1290, height: 2796 }
    capture: { width: 1290, height: 2796 }
  - name: Desktop
    canvas: { width: 2880, height: 1800 }
    scale_policy: 0.85
  - name: Phone Framed
    canvas: { width: 1320, height: 2868 }
    screen_area: { x: 15, y: 36, width: 1290, height: 2796 }
    frame_asset:
      path: frames/phone.png
      variants: [black, silver]
`)

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.Devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(catalog.Devices))
	}
	if catalog.Devices[1].ScalePolicy != 0.85 {
		t.Errorf("scale_policy = %v, want 0.85", catalog.Devices[1].ScalePolicy)
	}
	if catalog.Devices[2].FrameAsset == nil || catalog.Devices[2].FrameAsset.Path != "frames/phone.png" {
		t.Errorf("frame_asset not parsed: %+v", catalog.Devices[2].FrameAsset)
	}
}

func TestLoadCatalog_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing file entirely", ""},
		{"no devices", "devices: []\n"},
		{"missing name", `
devices:
  - canvas: { width: 100, height: 100 }
`},
		{"non-positive canvas", `
devices:
  - name: Bad
    canvas: { width: 0, height: 100 }
`},
		{"screen area escapes canvas", `
devices:
  - name: Bad
    canvas: { width: 100, height: 100 }
    screen_area: { x: 50, y: 50, width: 60, height: 60 }
`},
		{"frame without screen area", `
devices:
  - name: Bad
    canvas: { width: 100, height: 100 }
    frame_asset: { path: frames/bad.png }
`},
		{"scale policy above one", `
devices:
  - name: Bad
    canvas: { width: 100, height: 100 }
    scale_policy: 1.5
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeCatalog(t, tc.content)
			_, err := LoadCatalog(path)
			if err == nil {
				t.Fatal("expected a catalog error")
			}
			var ce *CatalogError
			if tc.content != "" && !errors.As(err, &ce) {
				t.Errorf("expected CatalogError, got %T: %v", err, err)
			}
		})
	}
}

func TestLoadCatalog_NotYAML(t *testing.T) {
	path := writeCatalog(t, ": : bad yaml [[[")
	if _, err := LoadCatalog(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("embedded catalog must parse: %v", err)
	}
	if len(catalog.Devices) == 0 {
		t.Fatal("embedded catalog is empty")
	}
	if _, err := NewRegistry(catalog); err != nil {
		t.Fatalf("embedded catalog must build a registry: %v", err)
	}
}
