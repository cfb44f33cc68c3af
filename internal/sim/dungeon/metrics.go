package dungeon

// Metrics is a point-in-time view safe to read from outside the
// session goroutine.
type Metrics struct {
	Tick    uint64 `json:"tick"`
	Clients int64  `json:"clients"`
	Inbox   int    `json:"inbox_depth"`
	Join    int    `json:"join_depth"`
	Leave   int    `json:"leave_depth"`
}

func (s *Session) Metrics() Metrics {
	return Metrics{
		Tick:    s.tick.Load(),
		Clients: s.clientCount.Load(),
		Inbox:   len(s.inbox),
		Join:    len(s.join),
		Leave:   len(s.leave),
	}
}
