package dungeon

import (
	"log"

	"chronopack.game/internal/protocol"
	"chronopack.game/internal/sim/evolution"
	"chronopack.game/internal/sim/grid"
)

// JumpEvent is one combine-button press: a transition between two
// timepoint backpacks.
type JumpEvent struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// drainJumps processes every jump queued this tick, one at a time in
// queue order. Per event the listeners run in a fixed order: backward
// carry-over, backpack sync, evolution, round bookkeeping. The queue is
// taken before processing; listeners never enqueue further jumps.
func (s *Session) drainJumps(nowTick uint64) []JumpEvent {
	if len(s.jumpQueue) == 0 {
		return nil
	}
	queue := s.jumpQueue
	s.jumpQueue = nil

	for _, ev := range queue {
		s.events = append(s.events, protocol.Event{
			"t":    nowTick,
			"type": protocol.EventJump,
			"from": ev.From,
			"to":   ev.To,
		})
		if ev.To < ev.From {
			s.carryOverBackward(ev, nowTick)
		}
		s.syncBackpack(ev)
		if ev.From <= ev.To {
			s.resolveEvolution(ev, nowTick)
		}
		s.tickRound(ev)
	}
	return queue
}

// carryOverBackward relocates every craft-staged item into the earlier
// timepoint so a backward jump keeps the staged material. Items that
// find no free cell stay staged where they are.
func (s *Session) carryOverBackward(ev JumpEvent, nowTick uint64) {
	occupied := s.inventoryCoords(ev.To, "")
	var reserved []grid.Coords
	for _, e := range s.craftItems() {
		c, ok := grid.FindFreeSpace(s.cats.Layout.Grid, e.Coords.Dimens, occupied, reserved)
		if !ok {
			log.Printf("[dungeon] carry-over: no space for %s (%s)", e.ID, e.Item)
			continue
		}
		reserved = append(reserved, c)
		s.moveToBackpack(e, ev.To)
		s.setCraft(e, false)
		e.Coords = c
	}
}

// syncBackpack points the single active-backpack marker at the
// destination timepoint.
func (s *Session) syncBackpack(ev JumpEvent) {
	if len(s.backpackInUse) != 1 {
		log.Printf("[dungeon] sync backpack: %v", ErrNoSingleActiveContainer)
		s.backpackInUse = s.backpackInUse[:0]
		s.backpackInUse = append(s.backpackInUse, ev.To)
		return
	}
	s.backpackInUse[0] = ev.To
}

// resolveEvolution rewrites the destination backpack on a forward jump:
// its previous contents are discarded, the staged items in the source
// backpack feed the tech-tree recomputation, and the computed multiset
// is placed one unit cell at a time. Staged source items are consumed;
// unstaged source items are re-placed through the allocator.
func (s *Session) resolveEvolution(ev JumpEvent, nowTick uint64) {
	for _, e := range s.backpackItems(ev.To) {
		s.despawnItem(e.ID, nowTick)
	}

	var craftEnts, plainEnts []*itemEnt
	for _, e := range s.backpackItems(ev.From) {
		if e.Craft {
			craftEnts = append(craftEnts, e)
		} else {
			plainEnts = append(plainEnts, e)
		}
	}

	results := evolution.Evolve(heldItemIDs(craftEnts))

	origin := s.cats.Layout.Grid.CraftingCenter()
	var reserved []grid.Coords
	for _, ic := range results {
		if _, err := s.cats.Items.Get(ic.Item); err != nil {
			log.Printf("[dungeon] evolution: %v", err)
			continue
		}
		for i := 0; i < ic.Count; i++ {
			c, ok := grid.FindFreeSpace(s.cats.Layout.Grid, grid.UnitDimens(), nil, reserved)
			if !ok {
				log.Printf("[dungeon] evolution: no space for %s", ic.Item)
				continue
			}
			reserved = append(reserved, c)
			s.spawnItem(ic.Item, ev.To, c, nowTick, origin)
		}
	}

	for _, e := range craftEnts {
		s.despawnItem(e.ID, nowTick)
	}

	var reservedFrom []grid.Coords
	for _, e := range plainEnts {
		c, ok := grid.FindFreeSpace(s.cats.Layout.Grid, e.Coords.Dimens, nil, reservedFrom)
		if !ok {
			log.Printf("[dungeon] evolution: no space to keep %s (%s)", e.ID, e.Item)
			s.despawnItem(e.ID, nowTick)
			continue
		}
		reservedFrom = append(reservedFrom, c)
		e.Coords = c
	}
}

// tickRound halts the sim after every jump; arriving back at the
// ancient timepoint closes a round.
func (s *Session) tickRound(ev JumpEvent) {
	s.running = false
	if ev.To == TimepointAncient {
		s.round++
	}
}
