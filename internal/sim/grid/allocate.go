package grid

// FindFreeSpace returns the first in-bounds cell of size dimens that
// overlaps nothing in occupied or reserved, scanning row-major (y outer,
// x inner) from the inventory origin. First fit only; given identical
// inputs the result is always the same cell.
//
// reserved carries placements allocated earlier in the same batch that
// are not yet committed to the item index; the caller appends each
// returned Coords to it between successive calls.
func FindFreeSpace(g Data, dimens Dimens, occupied, reserved []Coords) (Coords, bool) {
	return FindFreeSpaceIn(g.Inventory, dimens, occupied, reserved)
}

// FindFreeSpaceIn is FindFreeSpace over an arbitrary area (the crafting
// staging rect uses it too).
func FindFreeSpaceIn(area Coords, dimens Dimens, occupied, reserved []Coords) (Coords, bool) {
	for y := 0; y < area.Dimens.Y; y++ {
		for x := 0; x < area.Dimens.X; x++ {
			c := Coords{
				Pos:    Pos{X: area.Pos.X + x, Y: area.Pos.Y + y},
				Dimens: dimens,
			}
			if !area.Encloses(c) {
				continue
			}
			if overlapsAny(c, occupied) || overlapsAny(c, reserved) {
				continue
			}
			return c, true
		}
	}
	return Coords{}, false
}

func overlapsAny(c Coords, others []Coords) bool {
	for _, o := range others {
		if c.Overlaps(o) {
			return true
		}
	}
	return false
}
