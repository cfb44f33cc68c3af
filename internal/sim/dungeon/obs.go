package dungeon

import (
	"sort"

	"chronopack.game/internal/protocol"
)

func (s *Session) buildObs(nowTick uint64) protocol.ObsMsg {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	states := make([]protocol.ItemState, 0, len(ids))
	for _, id := range ids {
		e := s.items[id]
		st := protocol.ItemState{
			Entity:   e.ID,
			Item:     string(e.Item),
			Backpack: e.Backpack,
			Pos:      [2]int{e.Coords.Pos.X, e.Coords.Pos.Y},
			Dimens:   [2]int{e.Coords.Dimens.X, e.Coords.Dimens.Y},
			Craft:    e.Craft,
		}
		if e.Stack > 1 {
			st.Stack = e.Stack
		}
		states = append(states, st)
	}

	result := ""
	if s.ended {
		result = s.result.String()
	}

	events := make([]protocol.Event, len(s.events))
	copy(events, s.events)

	return protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Timepoint:       s.level.Timepoints[s.curTimepointIdx].Timepoint,
		Round:           s.round,
		Running:         s.running,
		Result:          result,
		CombineLabel:    s.combineLabel(),
		Items:           states,
		Events:          events,
	}
}

// combineLabel names the destination the combine button would jump to.
func (s *Session) combineLabel() string {
	next := (s.curTimepointIdx + 1) % len(s.level.Timepoints)
	if s.level.Timepoints[next].Timepoint == TimepointAncient {
		return protocol.CombineLabelPast
	}
	return protocol.CombineLabelPresent
}
