package models

import (
	"fmt"
	"strings"
)

// DeviceKind selects the composition algorithm for a resolved spec.
type DeviceKind string

const (
	// KindFrame places the screenshot inside a bezel overlay.
	KindFrame DeviceKind = "frame"
	// KindGradient places a scaled, shadowed screenshot on a gradient canvas.
	KindGradient DeviceKind = "gradient"
	// KindNormalize resizes the screenshot to the canvas dimensions as-is.
	KindNormalize DeviceKind = "normalize"
)

// ResolvedSpec is the flat device shape the compositing engine consumes.
// The nested catalog schema never leaks past the registry.
type ResolvedSpec struct {
	Name          string
	Kind          DeviceKind
	CanvasWidth   int
	CanvasHeight  int
	ScreenX       int
	ScreenY       int
	ScreenWidth   int
	ScreenHeight  int
	FramePath     string
	FrameVariants []string
	ScalePolicy   float64
}

// Registry resolves device specs by name, by filename convention, or by raw
// capture dimensions. It is immutable after construction.
type Registry struct {
	entries []DeviceEntry
	byName  map[string]int
	byDims  map[Dimensions]int
}

// NewRegistry builds a registry from a validated catalog. Duplicate names or
// duplicate recognized capture dimensions are a CatalogError: a dimension
// lookup must never have an ambiguous answer.
func NewRegistry(catalog *Catalog) (*Registry, error) {
	r := &Registry{
		entries: catalog.Devices,
		byName:  make(map[string]int, len(catalog.Devices)),
		byDims:  make(map[Dimensions]int),
	}
	for i, entry := range catalog.Devices {
		key := strings.ToLower(entry.Name)
		if _, exists := r.byName[key]; exists {
			return nil, &CatalogError{Entry: entry.Name, Reason: "duplicate device name"}
		}
		r.byName[key] = i

		if entry.Capture != nil {
			dims := *entry.Capture
			if prev, exists := r.byDims[dims]; exists {
				return nil, &CatalogError{
					Entry: entry.Name,
					Reason: fmt.Sprintf("capture %dx%d already recognized by %q",
						dims.Width, dims.Height, catalog.Devices[prev].Name),
				}
			}
			r.byDims[dims] = i
		}
	}
	return r, nil
}

// ResolveByName returns the spec for an exact (case-insensitive) device name.
func (r *Registry) ResolveByName(name string) (*ResolvedSpec, bool) {
	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return resolve(&r.entries[i]), true
}

// ResolveByFilename matches a screenshot base filename against the catalog
// using the longest device-name prefix (e.g. "iPhone 15 Pro Max-01_home.png").
func (r *Registry) ResolveByFilename(filename string) (*ResolvedSpec, bool) {
	lower := strings.ToLower(filename)
	best := -1
	bestLen := 0
	for name, i := range r.byName {
		if len(name) > bestLen && strings.HasPrefix(lower, name) {
			best = i
			bestLen = len(name)
		}
	}
	if best < 0 {
		return nil, false
	}
	return resolve(&r.entries[best]), true
}

// ResolveByDimensions returns the spec configured to recognize a raw capture
// of exactly width x height pixels.
func (r *Registry) ResolveByDimensions(width, height int) (*ResolvedSpec, bool) {
	i, ok := r.byDims[Dimensions{Width: width, Height: height}]
	if !ok {
		return nil, false
	}
	return resolve(&r.entries[i]), true
}

// Specs returns the resolved form of every catalog entry.
func (r *Registry) Specs() []*ResolvedSpec {
	specs := make([]*ResolvedSpec, 0, len(r.entries))
	for i := range r.entries {
		specs = append(specs, resolve(&r.entries[i]))
	}
	return specs
}

// resolve flattens one catalog entry into the internal spec shape and derives
// its composition kind.
func resolve(entry *DeviceEntry) *ResolvedSpec {
	spec := &ResolvedSpec{
		Name:         entry.Name,
		Kind:         KindNormalize,
		CanvasWidth:  entry.Canvas.Width,
		CanvasHeight: entry.Canvas.Height,
		ScalePolicy:  entry.ScalePolicy,
	}
	switch {
	case entry.FrameAsset != nil:
		spec.Kind = KindFrame
		spec.FramePath = entry.FrameAsset.Path
		spec.FrameVariants = append([]string(nil), entry.FrameAsset.Variants...)
	case entry.ScalePolicy > 0:
		spec.Kind = KindGradient
	}
	if entry.ScreenArea != nil {
		spec.ScreenX = entry.ScreenArea.X
		spec.ScreenY = entry.ScreenArea.Y
		spec.ScreenWidth = entry.ScreenArea.Width
		spec.ScreenHeight = entry.ScreenArea.Height
	}
	return spec
}
