package tetris

import (
	"errors"
	"fmt"
	"slices"
)

type Shape string

const (
	S Shape = "S"
	Z Shape = "Z"
	I Shape = "I"
	O Shape = "O"
	J Shape = "J"
	L Shape = "L"
	T Shape = "T"
)

// TemplateSize is the side of every rotation template.
const TemplateSize = 5

// Template is one pre-authored orientation of a shape.
type Template [TemplateSize][TemplateSize]bool

// Color is an RGB triple. The zero value is the empty cell.
type Color struct {
	R, G, B uint8
}

// Empty is the colour of a cell with nothing on it.
var Empty = Color{}

func (c Color) IsEmpty() bool { return c == Empty }

// ErrUnknownShape is matched by every *UnknownShapeError.
var ErrUnknownShape = errors.New("unknown shape")

type UnknownShapeError struct {
	Shape Shape
}

func (e *UnknownShapeError) Error() string {
	return fmt.Sprintf("unknown shape %q", string(e.Shape))
}

func (e *UnknownShapeError) Is(target error) bool { return target == ErrUnknownShape }

// Definition is the immutable description of a tetromino kind.
type Definition struct {
	Shape     Shape
	Rotations []Template
	Color     Color
	// SpawnX and SpawnY are the anchor a freshly spawned piece starts on.
	SpawnX, SpawnY int
}

// Catalog holds the 7 definitions. It is built once and only read afterwards.
type Catalog struct {
	order []Shape
	defs  map[Shape]*Definition
}

type definitionSource struct {
	shape          Shape
	color          Color
	spawnX, spawnY int
	rotations      [][TemplateSize]string
}

// The templates carry 2 columns of padding on the left and 4 rows on top, which
// is what the mapper's normalisation offset takes back out. A '0' is a filled cell.
var catalogSource = []definitionSource{
	{
		shape: S, color: Color{0, 255, 0}, spawnX: 5, spawnY: 2,
		rotations: [][TemplateSize]string{
			{
				".....",
				".....",
				"..00.",
				".00..",
				".....",
			},
			{
				".....",
				"..0..",
				"..00.",
				"...0.",
				".....",
			},
		},
	},
	{
		shape: Z, color: Color{255, 0, 0}, spawnX: 5, spawnY: 2,
		rotations: [][TemplateSize]string{
			{
				".....",
				".....",
				".00..",
				"..00.",
				".....",
			},
			{
				".....",
				"..0..",
				".00..",
				".0...",
				".....",
			},
		},
	},
	{
		shape: I, color: Color{0, 255, 255}, spawnX: 5, spawnY: 3,
		rotations: [][TemplateSize]string{
			{
				".....",
				"..0..",
				"..0..",
				"..0..",
				"..0..",
			},
			{
				".....",
				"0000.",
				".....",
				".....",
				".....",
			},
		},
	},
	{
		shape: O, color: Color{255, 255, 0}, spawnX: 5, spawnY: 2,
		rotations: [][TemplateSize]string{
			{
				".....",
				".....",
				".00..",
				".00..",
				".....",
			},
		},
	},
	{
		shape: J, color: Color{255, 165, 0}, spawnX: 5, spawnY: 3,
		rotations: [][TemplateSize]string{
			{
				".....",
				".0...",
				".000.",
				".....",
				".....",
			},
			{
				".....",
				"..00.",
				"..0..",
				"..0..",
				".....",
			},
			{
				".....",
				".....",
				".000.",
				"...0.",
				".....",
			},
			{
				".....",
				"..0..",
				"..0..",
				".00..",
				".....",
			},
		},
	},
	{
		shape: L, color: Color{0, 0, 255}, spawnX: 5, spawnY: 3,
		rotations: [][TemplateSize]string{
			{
				".....",
				"...0.",
				".000.",
				".....",
				".....",
			},
			{
				".....",
				"..0..",
				"..0..",
				"..00.",
				".....",
			},
			{
				".....",
				".....",
				".000.",
				".0...",
				".....",
			},
			{
				".....",
				".00..",
				"..0..",
				"..0..",
				".....",
			},
		},
	},
	{
		shape: T, color: Color{128, 0, 128}, spawnX: 5, spawnY: 3,
		rotations: [][TemplateSize]string{
			{
				".....",
				"..0..",
				".000.",
				".....",
				".....",
			},
			{
				".....",
				"..0..",
				"..00.",
				"..0..",
				".....",
			},
			{
				".....",
				".....",
				".000.",
				"..0..",
				".....",
			},
			{
				".....",
				"..0..",
				".00..",
				"..0..",
				".....",
			},
		},
	},
}

// NewCatalog parses the authored templates into a Catalog.
func NewCatalog() *Catalog {
	c := &Catalog{defs: make(map[Shape]*Definition, len(catalogSource))}
	for _, src := range catalogSource {
		def := &Definition{
			Shape:     src.shape,
			Color:     src.color,
			SpawnX:    src.spawnX,
			SpawnY:    src.spawnY,
			Rotations: make([]Template, len(src.rotations)),
		}
		for ir, rows := range src.rotations {
			for y, row := range rows {
				for x, r := range row {
					def.Rotations[ir][y][x] = r == '0'
				}
			}
		}
		c.order = append(c.order, src.shape)
		c.defs[src.shape] = def
	}
	return c
}

// Shapes returns the shapes in catalog order.
func (c *Catalog) Shapes() []Shape {
	out := make([]Shape, len(c.order))
	copy(out, c.order)
	return out
}

// Lookup returns the rotation states and colour of a shape. The returned slice
// is a copy.
func (c *Catalog) Lookup(s Shape) ([]Template, Color, error) {
	def, ok := c.defs[s]
	if !ok {
		return nil, Empty, &UnknownShapeError{Shape: s}
	}
	return slices.Clone(def.Rotations), def.Color, nil
}

// Definition returns the full definition of a shape.
func (c *Catalog) Definition(s Shape) (Definition, error) {
	def, ok := c.defs[s]
	if !ok {
		return Definition{}, &UnknownShapeError{Shape: s}
	}
	out := *def
	out.Rotations = slices.Clone(def.Rotations)
	return out, nil
}

// MustLookup is Lookup for shapes known to come from the catalog itself.
func (c *Catalog) MustLookup(s Shape) ([]Template, Color) {
	rot, col, err := c.Lookup(s)
	if err != nil {
		panic(err)
	}
	return rot, col
}

// ShapeOf returns the shape painted with the given colour.
func (c *Catalog) ShapeOf(col Color) (Shape, bool) {
	for _, s := range c.order {
		if c.defs[s].Color == col {
			return s, true
		}
	}
	return "", false
}
