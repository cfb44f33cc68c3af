package dungeon

// Timepoint levels the combine button jumps between. The values double
// as backpack ids: every item entity is tagged with the timepoint it
// lives in.
const (
	TimepointAncient = 0
	TimepointNow     = 400
)

// TimePoint is one era the player can stand in.
type TimePoint struct {
	Timepoint int
	Flavour   string
}

// TimePointLevel is the static era layout of a session. Timepoints is
// ordered; the combine button cycles the index.
type TimePointLevel struct {
	TimeNum    int
	Timepoints []TimePoint
}

// GenerateLevel builds the two-era layout every session uses.
func GenerateLevel() TimePointLevel {
	return TimePointLevel{
		TimeNum: 2,
		Timepoints: []TimePoint{
			{Timepoint: TimepointAncient, Flavour: "ancient"},
			{Timepoint: TimepointNow, Flavour: "now"},
		},
	}
}

// Result is the session outcome. Sessions start Lost so that running
// out of rounds without the win condition needs no extra write.
type Result int

const (
	ResultLost Result = iota
	ResultWon
)

func (r Result) String() string {
	if r == ResultWon {
		return "WON"
	}
	return "LOST"
}

// CombatState is carried in session state and the digest for save
// compatibility; no combat system mutates it yet.
type CombatState int

const (
	CombatIdle CombatState = iota
	CombatInProgress
)
