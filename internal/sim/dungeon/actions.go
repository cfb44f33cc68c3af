package dungeon

import (
	"chronopack.game/internal/protocol"
	"chronopack.game/internal/sim/grid"
)

func (s *Session) applyAct(act protocol.ActMsg, nowTick uint64) {
	// Staleness check: accept only [now-2, now].
	if act.Tick+2 < nowTick || act.Tick > nowTick {
		s.events = append(s.events, actionResult(nowTick, "ACT", false, protocol.ErrStale, "act tick out of range"))
		return
	}
	for _, inst := range act.Instants {
		s.applyInstant(inst, nowTick)
	}
}

func (s *Session) applyInstant(inst protocol.InstantReq, nowTick uint64) {
	fail := func(code, msg string) {
		s.events = append(s.events, actionResult(nowTick, inst.ID, false, code, msg))
	}
	ok := func(msg string) {
		s.events = append(s.events, actionResult(nowTick, inst.ID, true, "", msg))
	}

	if s.ended {
		fail(protocol.ErrEnded, "session over")
		return
	}

	switch inst.Type {
	case protocol.InstantCombine:
		from := s.level.Timepoints[s.curTimepointIdx].Timepoint
		s.curTimepointIdx = (s.curTimepointIdx + 1) % len(s.level.Timepoints)
		to := s.level.Timepoints[s.curTimepointIdx].Timepoint
		s.jumpQueue = append(s.jumpQueue, JumpEvent{From: from, To: to})
		s.events = append(s.events, protocol.Event{
			"t":     nowTick,
			"type":  protocol.EventSound,
			"sound": protocol.SoundCombineAlchemy,
		})
		ok("jump queued")

	case protocol.InstantCraft:
		s.applyCraft(inst, nowTick, fail, ok)

	case protocol.InstantMove:
		e := s.items[inst.Entity]
		if e == nil {
			fail(protocol.ErrInvalidTarget, "item not found")
			return
		}
		if e.Craft {
			fail(protocol.ErrBadRequest, "item is staged")
			return
		}
		c := grid.Coords{
			Pos:    grid.Pos{X: inst.Pos[0], Y: inst.Pos[1]},
			Dimens: e.Coords.Dimens,
		}
		if !s.cats.Layout.Grid.Inventory.Encloses(c) {
			fail(protocol.ErrBlocked, "out of bounds")
			return
		}
		for _, other := range s.inventoryCoords(e.Backpack, e.ID) {
			if c.Overlaps(other) {
				fail(protocol.ErrBlocked, "cell occupied")
				return
			}
		}
		e.Coords = c
		ok("moved")

	case protocol.InstantStage:
		e := s.items[inst.Entity]
		if e == nil {
			fail(protocol.ErrInvalidTarget, "item not found")
			return
		}
		backpack, err := s.activeBackpack()
		if err != nil {
			fail(protocol.ErrInternal, err.Error())
			return
		}
		if e.Backpack != backpack {
			fail(protocol.ErrInvalidTarget, "item not in active backpack")
			return
		}
		if e.Craft {
			fail(protocol.ErrBadRequest, "already staged")
			return
		}
		c, found := grid.FindFreeSpaceIn(s.cats.Layout.Grid.Crafting, e.Coords.Dimens, s.craftCoords(), nil)
		if !found {
			fail(protocol.ErrNoSpace, "crafting area full")
			return
		}
		s.setCraft(e, true)
		e.Coords = c
		ok("staged")

	case protocol.InstantUnstage:
		e := s.items[inst.Entity]
		if e == nil {
			fail(protocol.ErrInvalidTarget, "item not found")
			return
		}
		if !e.Craft {
			fail(protocol.ErrBadRequest, "not staged")
			return
		}
		c, found := grid.FindFreeSpace(s.cats.Layout.Grid, e.Coords.Dimens, s.inventoryCoords(e.Backpack, ""), nil)
		if !found {
			fail(protocol.ErrNoSpace, "inventory full")
			return
		}
		s.setCraft(e, false)
		e.Coords = c
		ok("unstaged")

	case protocol.InstantDrop:
		if _, exists := s.items[inst.Entity]; !exists {
			fail(protocol.ErrInvalidTarget, "item not found")
			return
		}
		s.despawnItem(inst.Entity, nowTick)
		ok("dropped")

	case protocol.InstantResume:
		s.running = true
		ok("resumed")

	default:
		fail(protocol.ErrBadRequest, "unknown instant type")
	}
}

func (s *Session) applyCraft(inst protocol.InstantReq, nowTick uint64, fail func(code, msg string), ok func(msg string)) {
	backpack, err := s.activeBackpack()
	if err != nil {
		fail(protocol.ErrInternal, err.Error())
		return
	}
	var held []*itemEnt
	for _, e := range s.craftItems() {
		if e.Backpack == backpack {
			held = append(held, e)
		}
	}
	if len(held) == 0 {
		fail(protocol.ErrBadRequest, "nothing staged")
		return
	}
	ids := heldItemIDs(held)
	recipe := TryGetRecipe(&s.cats.Recipes, ids)
	if recipe == nil {
		fail(protocol.ErrNoRecipe, "no recipe matches")
		return
	}
	for _, e := range held {
		s.despawnItem(e.ID, nowTick)
	}
	if err := s.stackItem(recipe.Output.Item, recipe.Output.Count, nowTick); err != nil {
		fail(protocol.ErrNoSpace, err.Error())
		return
	}
	s.events = append(s.events, protocol.Event{
		"t":     nowTick,
		"type":  protocol.EventSound,
		"sound": protocol.SoundCraftDone,
	})
	ok(recipe.RecipeID)
}

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	e := protocol.Event{
		"t":    tick,
		"type": protocol.EventActionResult,
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}
