package dungeon

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"chronopack.game/internal/protocol"
	"chronopack.game/internal/sim/catalogs"
	"chronopack.game/internal/sim/grid"
)

// ErrNoSingleActiveContainer reports a broken backpack marker: either
// none or more than one backpack is flagged active.
var ErrNoSingleActiveContainer = errors.New("no single active backpack marker")

// ErrNoSpace reports that the allocator found no free cell.
var ErrNoSpace = errors.New("no free space")

// itemEnt is one placed item instance. Gameplay identity is the item
// kind; the entity id only names the placement.
type itemEnt struct {
	ID       string
	Item     catalogs.ItemID
	Backpack int
	Coords   grid.Coords
	Craft    bool
	Stack    int // always >= 1
}

func newID(prefix string, n uint64) string {
	return fmt.Sprintf("%s%06d", prefix, n)
}

func (s *Session) activeBackpack() (int, error) {
	if len(s.backpackInUse) != 1 {
		return 0, ErrNoSingleActiveContainer
	}
	return s.backpackInUse[0], nil
}

// addItem indexes a new entity without emitting events; session seeding
// uses it before any client is connected.
func (s *Session) addItem(item catalogs.ItemID, backpack int, c grid.Coords, craft bool, stack int) *itemEnt {
	e := &itemEnt{
		ID:       newID("I", s.nextItemNum.Add(1)),
		Item:     item,
		Backpack: backpack,
		Coords:   c,
		Craft:    craft,
		Stack:    stack,
	}
	s.items[e.ID] = e
	bp := s.byBackpack[backpack]
	if bp == nil {
		bp = map[string]struct{}{}
		s.byBackpack[backpack] = bp
	}
	bp[e.ID] = struct{}{}
	if craft {
		s.craftTagged[e.ID] = struct{}{}
	}
	return e
}

func (s *Session) spawnItem(item catalogs.ItemID, backpack int, c grid.Coords, nowTick uint64, animFrom [2]float64) *itemEnt {
	e := s.addItem(item, backpack, c, false, 1)
	s.events = append(s.events, protocol.Event{
		"t":         nowTick,
		"type":      protocol.EventSpawnItem,
		"entity":    e.ID,
		"item":      string(item),
		"backpack":  backpack,
		"pos":       [2]int{c.Pos.X, c.Pos.Y},
		"anim_from": animFrom,
	})
	return e
}

func (s *Session) despawnItem(id string, nowTick uint64) {
	e := s.items[id]
	if e == nil {
		return
	}
	delete(s.items, id)
	delete(s.craftTagged, id)
	if bp := s.byBackpack[e.Backpack]; bp != nil {
		delete(bp, id)
	}
	s.events = append(s.events, protocol.Event{
		"t":      nowTick,
		"type":   protocol.EventDespawnItem,
		"entity": id,
		"item":   string(e.Item),
	})
}

// moveToBackpack reindexes an entity into another backpack.
func (s *Session) moveToBackpack(e *itemEnt, backpack int) {
	if bp := s.byBackpack[e.Backpack]; bp != nil {
		delete(bp, e.ID)
	}
	e.Backpack = backpack
	bp := s.byBackpack[backpack]
	if bp == nil {
		bp = map[string]struct{}{}
		s.byBackpack[backpack] = bp
	}
	bp[e.ID] = struct{}{}
}

func (s *Session) setCraft(e *itemEnt, craft bool) {
	e.Craft = craft
	if craft {
		s.craftTagged[e.ID] = struct{}{}
	} else {
		delete(s.craftTagged, e.ID)
	}
}

// backpackItems returns the entities of one backpack sorted by entity
// id, so every pass over a backpack is deterministic.
func (s *Session) backpackItems(backpack int) []*itemEnt {
	ids := make([]string, 0, len(s.byBackpack[backpack]))
	for id := range s.byBackpack[backpack] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*itemEnt, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out
}

// craftItems returns all craft-staged entities sorted by entity id.
func (s *Session) craftItems() []*itemEnt {
	ids := make([]string, 0, len(s.craftTagged))
	for id := range s.craftTagged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*itemEnt, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out
}

// inventoryCoords collects the placements of non-craft items in one
// backpack, optionally excluding a single entity.
func (s *Session) inventoryCoords(backpack int, except string) []grid.Coords {
	var out []grid.Coords
	for _, e := range s.backpackItems(backpack) {
		if e.Craft || e.ID == except {
			continue
		}
		out = append(out, e.Coords)
	}
	return out
}

func (s *Session) craftCoords() []grid.Coords {
	var out []grid.Coords
	for _, e := range s.craftItems() {
		out = append(out, e.Coords)
	}
	return out
}

// stackItem adds count copies of an item kind to the active backpack:
// onto an existing non-craft stack of the same kind when one exists,
// otherwise as a fresh entity at the first free cell.
func (s *Session) stackItem(item catalogs.ItemID, count int, nowTick uint64) error {
	backpack, err := s.activeBackpack()
	if err != nil {
		log.Printf("[dungeon] stack %s: %v", item, err)
		return err
	}
	for _, e := range s.backpackItems(backpack) {
		if !e.Craft && e.Item == item {
			e.Stack += count
			return nil
		}
	}
	def, err := s.cats.Items.Get(item)
	if err != nil {
		log.Printf("[dungeon] stack: %v", err)
		return err
	}
	c, ok := grid.FindFreeSpace(s.cats.Layout.Grid, def.FootprintDimens(), s.inventoryCoords(backpack, ""), nil)
	if !ok {
		return ErrNoSpace
	}
	e := s.spawnItem(item, backpack, c, nowTick, s.cats.Layout.Grid.CraftingCenter())
	e.Stack = count
	return nil
}
