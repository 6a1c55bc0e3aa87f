package models

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed devices.yaml
var defaultCatalogYAML []byte

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// ScreenArea is the rectangle, in frame-canvas coordinates, where a raw
// screenshot is placed when overlaying a bezel frame.
type ScreenArea struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// FrameAsset references a bezel overlay image, optionally with a set of
// color-finish variants resolved at compose time.
type FrameAsset struct {
	Path     string   `yaml:"path" json:"path"`
	Variants []string `yaml:"variants,omitempty" json:"variants,omitempty"`
}

// DeviceEntry is the on-disk catalog representation of one output target.
// Geometry is stored nested for readability; consumers get the flat
// ResolvedSpec shape from the registry instead.
type DeviceEntry struct {
	Name        string      `yaml:"name" json:"name"`
	Canvas      Dimensions  `yaml:"canvas" json:"canvas"`
	Capture     *Dimensions `yaml:"capture,omitempty" json:"capture,omitempty"`
	ScreenArea  *ScreenArea `yaml:"screen_area,omitempty" json:"screenArea,omitempty"`
	FrameAsset  *FrameAsset `yaml:"frame_asset,omitempty" json:"frameAsset,omitempty"`
	ScalePolicy float64     `yaml:"scale_policy,omitempty" json:"scalePolicy,omitempty"`
}

// Catalog is the validated set of device entries loaded at startup.
type Catalog struct {
	Devices []DeviceEntry `yaml:"devices"`
}

// CatalogError reports a malformed catalog entry.
type CatalogError struct {
	Entry  string
	Reason string
}

func (e *CatalogError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("invalid device catalog: %s", e.Reason)
	}
	return fmt.Sprintf("invalid device catalog entry %q: %s", e.Entry, e.Reason)
}

// LoadCatalog loads and validates a device catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return parseCatalog(data)
}

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultCatalogYAML)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(catalog.Devices) == 0 {
		return nil, &CatalogError{Reason: "no devices defined"}
	}
	for i := range catalog.Devices {
		if err := validateEntry(&catalog.Devices[i]); err != nil {
			return nil, err
		}
	}
	return &catalog, nil
}

func validateEntry(entry *DeviceEntry) error {
	if entry.Name == "" {
		return &CatalogError{Reason: "entry missing name"}
	}
	if entry.Canvas.Width <= 0 || entry.Canvas.Height <= 0 {
		return &CatalogError{Entry: entry.Name, Reason: "canvas dimensions must be positive"}
	}
	if entry.Capture != nil && (entry.Capture.Width <= 0 || entry.Capture.Height <= 0) {
		return &CatalogError{Entry: entry.Name, Reason: "capture dimensions must be positive"}
	}
	if entry.ScalePolicy < 0 || entry.ScalePolicy > 1 {
		return &CatalogError{Entry: entry.Name, Reason: "scale_policy must be between 0 and 1"}
	}
	if entry.FrameAsset != nil {
		if entry.FrameAsset.Path == "" {
			return &CatalogError{Entry: entry.Name, Reason: "frame_asset missing path"}
		}
		if entry.ScreenArea == nil {
			return &CatalogError{Entry: entry.Name, Reason: "frame device missing screen_area"}
		}
	}
	if entry.ScreenArea != nil {
		sa := entry.ScreenArea
		if sa.Width <= 0 || sa.Height <= 0 {
			return &CatalogError{Entry: entry.Name, Reason: "screen_area dimensions must be positive"}
		}
		if sa.X < 0 || sa.Y < 0 ||
			sa.X+sa.Width > entry.Canvas.Width ||
			sa.Y+sa.Height > entry.Canvas.Height {
			return &CatalogError{Entry: entry.Name, Reason: "screen_area not contained in canvas"}
		}
	}
	if entry.FrameAsset != nil && entry.ScalePolicy > 0 {
		return &CatalogError{Entry: entry.Name, Reason: "frame_asset and scale_policy are mutually exclusive"}
	}
	return nil
}
