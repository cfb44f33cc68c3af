// Package grid holds the inventory-grid geometry and the free-space
// allocator used to place spawned items.
package grid

// Pos is a cell position on the inventory grid.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dimens is a footprint in grid cells.
type Dimens struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// UnitDimens is the footprint of a single-cell item.
func UnitDimens() Dimens { return Dimens{X: 1, Y: 1} }

// Coords is a placed rectangle: position plus footprint.
type Coords struct {
	Pos    Pos    `json:"pos"`
	Dimens Dimens `json:"dimens"`
}

func NewCoords(x, y, w, h int) Coords {
	return Coords{Pos: Pos{X: x, Y: y}, Dimens: Dimens{X: w, Y: h}}
}

// Overlaps reports whether two rectangles share any cell.
func (c Coords) Overlaps(o Coords) bool {
	return c.Pos.X < o.Pos.X+o.Dimens.X &&
		c.Pos.X+c.Dimens.X > o.Pos.X &&
		c.Pos.Y < o.Pos.Y+o.Dimens.Y &&
		c.Pos.Y+c.Dimens.Y > o.Pos.Y
}

// Encloses reports whether o lies fully inside c.
func (c Coords) Encloses(o Coords) bool {
	return o.Pos.X >= c.Pos.X &&
		o.Pos.Y >= c.Pos.Y &&
		o.Pos.X+o.Dimens.X <= c.Pos.X+c.Dimens.X &&
		o.Pos.Y+o.Dimens.Y <= c.Pos.Y+c.Dimens.Y
}

// Data is the static grid layout: the open inventory area, the crafting
// staging area, and the cell size used by the presentation layer.
type Data struct {
	Inventory Coords `json:"inventory"`
	Crafting  Coords `json:"crafting"`
	CellSize  int    `json:"cell_size"`
}

// CraftingCenter is the visual anchor items animate from when an
// evolution or craft spawns them.
func (d Data) CraftingCenter() [2]float64 {
	return [2]float64{
		float64(d.Crafting.Pos.X) + float64(d.Crafting.Dimens.X)/2,
		float64(d.Crafting.Pos.Y) + float64(d.Crafting.Dimens.Y)/2,
	}
}
