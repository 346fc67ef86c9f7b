// Package mapdef loads map definition files (YAML or JSON) and turns them
// into navigator construction input.
package mapdef

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/zyedidia/generic/mapset"
	"gopkg.in/yaml.v3"

	"roomnav/internal/nav"
)

var (
	ErrInvalidDefinition = errors.New("mapdef: invalid definition")
	ErrUnsupportedFormat = errors.New("mapdef: unsupported format")
)

// Format names the encoding of a definition file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Rect is an axis-aligned rectangle in world units.
type Rect struct {
	X      float64 `json:"x" yaml:"x" jsonschema:"description=Left edge in world units"`
	Y      float64 `json:"y" yaml:"y" jsonschema:"description=Top edge in world units"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Door is a door rectangle with its stable identifier.
type Door struct {
	ID     string  `json:"id" yaml:"id" jsonschema:"pattern=^[A-Za-z0-9_\-]+$,description=Stable door identifier; becomes the portal id"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Definition is the on-disk map format.
type Definition struct {
	Name     string  `json:"name" yaml:"name" jsonschema:"title=Map name"`
	Width    int     `json:"width" yaml:"width" jsonschema:"minimum=1,maximum=4096,description=Grid width in tiles"`
	Height   int     `json:"height" yaml:"height" jsonschema:"minimum=1,maximum=4096,description=Grid height in tiles"`
	TileSize float64 `json:"tileSize,omitempty" yaml:"tileSize,omitempty" jsonschema:"description=World units per tile (default 32)"`
	Blocked  []Rect  `json:"blocked,omitempty" yaml:"blocked,omitempty" jsonschema:"description=Obstacle rectangles in world units"`
	Doors    []Door  `json:"doors,omitempty" yaml:"doors,omitempty" jsonschema:"description=Door rectangles; each connected run becomes a portal"`
	Indoor   []Rect  `json:"indoor,omitempty" yaml:"indoor,omitempty" jsonschema:"description=Regions overlapping any of these rectangles are marked indoor"`
}

// Load reads a definition, picking the decoder from the file extension.
func Load(path string) (Definition, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return Definition{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("mapdef: read %s: %w", path, err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a definition. Unknown fields are rejected.
func Parse(data []byte, format Format) (Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("mapdef: decode yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("mapdef: decode json: %w", err)
		}
	default:
		return Definition{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Validate checks the parts of a definition the navigator cannot: names,
// duplicate door ids and degenerate rectangles.
func (d Definition) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidDefinition, d.Width, d.Height)
	}
	if d.Width > nav.MaxGridDim || d.Height > nav.MaxGridDim {
		return fmt.Errorf("%w: grid %dx%d exceeds %d", ErrInvalidDefinition, d.Width, d.Height, nav.MaxGridDim)
	}
	if d.TileSize < 0 || math.IsNaN(d.TileSize) || math.IsInf(d.TileSize, 0) {
		return fmt.Errorf("%w: tile size %v", ErrInvalidDefinition, d.TileSize)
	}
	for i, r := range d.Blocked {
		if !(r.Width > 0 && r.Height > 0) {
			return fmt.Errorf("%w: blocked[%d] is empty", ErrInvalidDefinition, i)
		}
	}
	ids := mapset.New[string]()
	for i, door := range d.Doors {
		if door.ID == "" {
			return fmt.Errorf("%w: doors[%d] missing id", ErrInvalidDefinition, i)
		}
		if ids.Has(door.ID) {
			return fmt.Errorf("%w: duplicate door id %q", ErrInvalidDefinition, door.ID)
		}
		ids.Put(door.ID)
		if !(door.Width > 0 && door.Height > 0) {
			return fmt.Errorf("%w: door %q is empty", ErrInvalidDefinition, door.ID)
		}
	}
	for i, r := range d.Indoor {
		if !(r.Width > 0 && r.Height > 0) {
			return fmt.Errorf("%w: indoor[%d] is empty", ErrInvalidDefinition, i)
		}
	}
	return nil
}

func (d Definition) tileSize() float64 {
	if d.TileSize > 0 {
		return d.TileSize
	}
	return nav.DefaultTileSize
}

// Layout converts the definition into navigator construction input.
func (d Definition) Layout() nav.Layout {
	layout := nav.Layout{
		Width:    d.Width,
		Height:   d.Height,
		TileSize: d.tileSize(),
	}
	for _, r := range d.Blocked {
		layout.Blocked = append(layout.Blocked, nav.Rect(r))
	}
	for _, door := range d.Doors {
		layout.Doors = append(layout.Doors, nav.Door{
			ID:   door.ID,
			Rect: nav.Rect{X: door.X, Y: door.Y, Width: door.Width, Height: door.Height},
		})
	}
	return layout
}

// Apply marks every region overlapping an indoor rectangle as indoor. It
// returns the affected region ids in ascending order.
func (d Definition) Apply(n *nav.Navigator) ([]int, error) {
	if n.State() != nav.StateReady {
		return nil, nav.ErrNotInitialized
	}
	ts := d.tileSize()
	found := mapset.New[int]()
	for _, r := range d.Indoor {
		minCol := int(math.Floor(r.X / ts))
		minRow := int(math.Floor(r.Y / ts))
		maxCol := int(math.Ceil((r.X+r.Width)/ts)) - 1
		maxRow := int(math.Ceil((r.Y+r.Height)/ts)) - 1
		for row := max(minRow, 0); row <= min(maxRow, d.Height-1); row++ {
			for col := max(minCol, 0); col <= min(maxCol, d.Width-1); col++ {
				tile, ok := n.Tile(col, row)
				if ok && tile.Region != nav.NoRegion {
					found.Put(tile.Region)
				}
			}
		}
	}
	ids := make([]int, 0, found.Size())
	found.Each(func(id int) { ids = append(ids, id) })
	sort.Ints(ids)
	for _, id := range ids {
		if err := n.SetRegionIndoor(id, true); err != nil {
			return nil, fmt.Errorf("mapdef: mark region %d indoor: %w", id, err)
		}
	}
	return ids, nil
}

// Build loads the definition into a fresh navigator and applies the indoor
// markings.
func (d Definition) Build(cfg nav.Config) (*nav.Navigator, error) {
	if cfg.MapID == "" {
		cfg.MapID = d.Name
	}
	n := nav.New(cfg)
	if err := n.Load(d.Layout()); err != nil {
		return nil, err
	}
	if _, err := d.Apply(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Schema describes the definition file format.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{}
	schema := reflector.Reflect(new(Definition))
	schema.Title = "Room navigation map"
	schema.Description = "Grid, obstacle, door and indoor geometry loaded by the route service"
	return schema
}
