package dungeon

import (
	"chronopack.game/internal/protocol"
	"chronopack.game/internal/sim/catalogs"
)

// Holding any of these in the present-day backpack wins the session.
var winItems = map[catalogs.ItemID]struct{}{
	catalogs.Theocracy:       {},
	catalogs.PermanentMember: {},
	catalogs.Empire:          {},
	catalogs.Totalitarian:    {},
}

// resolveOutcome runs every tick after the jump queue drains. The win
// scan flips the result from its initial Lost to Won; exceeding the
// round limit forces Lost even when the win scan succeeded on the same
// tick.
func (s *Session) resolveOutcome(nowTick uint64) {
	if s.ended {
		return
	}
	won := false
	for _, e := range s.backpackItems(TimepointNow) {
		if _, ok := winItems[e.Item]; ok {
			won = true
			break
		}
	}
	if won {
		s.result = ResultWon
	}
	overRounds := s.round > s.cfg.MaxRounds
	if overRounds {
		s.result = ResultLost
	}
	if won || overRounds {
		s.endGame(nowTick)
	}
}

func (s *Session) endGame(nowTick uint64) {
	s.ended = true
	s.running = false
	s.events = append(s.events, protocol.Event{
		"t":      nowTick,
		"type":   protocol.EventGameEnded,
		"result": s.result.String(),
		"round":  s.round,
	})
	if s.recorder != nil {
		s.recorder.RecordSession(SessionRecord{
			SessionID: s.cfg.ID,
			Result:    s.result.String(),
			Rounds:    s.round,
			EndTick:   nowTick,
		})
	}
}
