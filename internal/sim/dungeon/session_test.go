package dungeon

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"chronopack.game/internal/protocol"
	"chronopack.game/internal/sim/catalogs"
	"chronopack.game/internal/sim/grid"
)

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find repo root from %s", dir)
		}
		dir = parent
	}
}

func newTestSession(t *testing.T, maxRounds int, starting ...catalogs.ItemID) *Session {
	t.Helper()
	root := findRepoRoot(t)
	cats, err := catalogs.Load(filepath.Join(root, "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	s, err := New(Config{
		ID:            "S1",
		TickRateHz:    20,
		MaxRounds:     maxRounds,
		StartingItems: starting,
	}, cats)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func actEnv(s *Session, instants ...protocol.InstantReq) ActionEnvelope {
	return ActionEnvelope{
		ClientID: "C000001",
		Act: protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			Tick:            s.CurrentTick(),
			Instants:        instants,
		},
	}
}

func itemKinds(s *Session, backpack int) map[catalogs.ItemID]int {
	out := map[catalogs.ItemID]int{}
	for _, e := range s.backpackItems(backpack) {
		out[e.Item] += e.Stack
	}
	return out
}

func TestStartingItemsSeedAncientBackpack(t *testing.T) {
	s := newTestSession(t, 10, catalogs.Wheat, catalogs.Wheat, catalogs.StoneTool)
	kinds := itemKinds(s, TimepointAncient)
	if kinds[catalogs.Wheat] != 2 || kinds[catalogs.StoneTool] != 1 {
		t.Fatalf("seeding wrong: %v", kinds)
	}
	if len(s.backpackItems(TimepointNow)) != 0 {
		t.Fatalf("now backpack should start empty")
	}
	bp, err := s.activeBackpack()
	if err != nil || bp != TimepointAncient {
		t.Fatalf("active backpack: %d err=%v", bp, err)
	}
}

func TestForwardJumpRunsEvolution(t *testing.T) {
	s := newTestSession(t, 10, catalogs.StoneTool)
	ent := s.backpackItems(TimepointAncient)[0]

	s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
		ID: "s1", Type: protocol.InstantStage, Entity: ent.ID,
	})})
	if !ent.Craft {
		t.Fatalf("stage did not tag item")
	}
	if !s.cats.Layout.Grid.Crafting.Encloses(ent.Coords) {
		t.Fatalf("staged item outside crafting area: %+v", ent.Coords)
	}

	s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
		ID: "c1", Type: protocol.InstantCombine,
	})})

	if s.curTimepointIdx != 1 {
		t.Fatalf("timepoint did not advance")
	}
	if s.running {
		t.Fatalf("sim must halt after a jump")
	}
	if bp, _ := s.activeBackpack(); bp != TimepointNow {
		t.Fatalf("active backpack not synced: %d", bp)
	}

	// evolve([StoneTool]) = Wheat 1 + StoneTool 1 in the destination;
	// the staged source item is consumed.
	now := itemKinds(s, TimepointNow)
	if now[catalogs.Wheat] != 1 || now[catalogs.StoneTool] != 1 || len(now) != 2 {
		t.Fatalf("destination backpack wrong: %v", now)
	}
	if len(s.backpackItems(TimepointAncient)) != 0 {
		t.Fatalf("consumed craft item still present")
	}
	if s.ended {
		t.Fatalf("session should not end on a plain jump")
	}
}

func TestForwardJumpReplacesDestination(t *testing.T) {
	s := newTestSession(t, 10)
	s.addItem(catalogs.Meat, TimepointNow, grid.NewCoords(0, 0, 1, 1), false, 1)

	s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
		ID: "c1", Type: protocol.InstantCombine,
	})})

	now := itemKinds(s, TimepointNow)
	if now[catalogs.Meat] != 0 {
		t.Fatalf("destination contents must be replaced, still has meat: %v", now)
	}
	// evolve(nil) still unlocks a single wheat.
	if now[catalogs.Wheat] != 1 || len(now) != 1 {
		t.Fatalf("destination backpack wrong: %v", now)
	}
}

func TestBackwardJumpCarriesStagedItems(t *testing.T) {
	s := newTestSession(t, 10, catalogs.Wheat)

	// Forward first.
	s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
		ID: "c1", Type: protocol.InstantCombine,
	})})
	wheatNow := s.backpackItems(TimepointNow)
	if len(wheatNow) != 1 || wheatNow[0].Item != catalogs.Wheat {
		t.Fatalf("expected single wheat in now backpack: %+v", wheatNow)
	}

	// Stage it, then jump back.
	s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
		ID: "s1", Type: protocol.InstantStage, Entity: wheatNow[0].ID,
	})})
	s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
		ID: "c2", Type: protocol.InstantCombine,
	})})

	if s.curTimepointIdx != 0 {
		t.Fatalf("timepoint did not return to ancient")
	}
	if s.round != 1 {
		t.Fatalf("arriving at ancient closes a round: got %d", s.round)
	}
	// Evolution skipped; the staged wheat landed in the ancient backpack
	// next to the original one.
	ancient := itemKinds(s, TimepointAncient)
	if ancient[catalogs.Wheat] != 2 || len(ancient) != 1 {
		t.Fatalf("carry-over wrong: %v", ancient)
	}
	if len(s.backpackItems(TimepointNow)) != 0 {
		t.Fatalf("now backpack should be drained by the carry-over")
	}
	for _, e := range s.backpackItems(TimepointAncient) {
		if e.Craft {
			t.Fatalf("carried item kept its craft tag")
		}
	}
}

func TestWinConditionInNowBackpack(t *testing.T) {
	s := newTestSession(t, 10)
	s.addItem(catalogs.Theocracy, TimepointNow, grid.NewCoords(0, 0, 1, 1), false, 1)

	s.StepOnce(nil, nil, nil)

	if !s.ended || s.result != ResultWon {
		t.Fatalf("want ended/Won, got ended=%v result=%v", s.ended, s.result)
	}
	obs := s.buildObs(s.CurrentTick())
	if obs.Result != "WON" {
		t.Fatalf("obs result: %q", obs.Result)
	}
}

func TestWinItemInAncientBackpackDoesNotWin(t *testing.T) {
	s := newTestSession(t, 10)
	s.addItem(catalogs.Empire, TimepointAncient, grid.NewCoords(0, 0, 1, 1), false, 1)

	s.StepOnce(nil, nil, nil)

	if s.ended {
		t.Fatalf("win scan must only look at the now backpack")
	}
}

func TestRoundLimitOverridesWin(t *testing.T) {
	s := newTestSession(t, 10)
	s.addItem(catalogs.Totalitarian, TimepointNow, grid.NewCoords(0, 0, 1, 1), false, 1)
	s.round = 11

	s.StepOnce(nil, nil, nil)

	if !s.ended || s.result != ResultLost {
		t.Fatalf("round limit must override a same-tick win: ended=%v result=%v", s.ended, s.result)
	}
}

func TestRoundLimitEndsSession(t *testing.T) {
	s := newTestSession(t, 1)

	combine := func(id string) {
		s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
			ID: id, Type: protocol.InstantCombine,
		})})
	}
	combine("c1") // to now
	combine("c2") // back: round 1, still within limit
	if s.ended {
		t.Fatalf("round 1 of 1 should not end the session")
	}
	combine("c3") // to now
	combine("c4") // back: round 2 > 1
	if !s.ended || s.result != ResultLost {
		t.Fatalf("want ended/Lost, got ended=%v result=%v", s.ended, s.result)
	}
}

func TestInstantsRejectedAfterEnd(t *testing.T) {
	s := newTestSession(t, 10)
	s.addItem(catalogs.PermanentMember, TimepointNow, grid.NewCoords(0, 0, 1, 1), false, 1)
	s.StepOnce(nil, nil, nil)
	if !s.ended {
		t.Fatalf("setup: session should have ended")
	}

	s.applyInstant(protocol.InstantReq{ID: "x1", Type: protocol.InstantCombine}, s.CurrentTick())
	last := s.events[len(s.events)-1]
	if last["code"] != protocol.ErrEnded {
		t.Fatalf("want %s, got %v", protocol.ErrEnded, last)
	}
}

func TestStaleActRejected(t *testing.T) {
	s := newTestSession(t, 10)
	s.applyAct(protocol.ActMsg{Tick: 1}, 10)
	last := s.events[len(s.events)-1]
	if last["code"] != protocol.ErrStale {
		t.Fatalf("want %s, got %v", protocol.ErrStale, last)
	}
}

func TestDeterministicDigests(t *testing.T) {
	script := func(s *Session) []string {
		var digests []string
		step := func(envs ...ActionEnvelope) {
			_, d := s.StepOnce(nil, nil, envs)
			digests = append(digests, d)
		}
		step()
		ent := s.backpackItems(TimepointAncient)[0]
		step(actEnv(s, protocol.InstantReq{ID: "s1", Type: protocol.InstantStage, Entity: ent.ID}))
		step(actEnv(s, protocol.InstantReq{ID: "c1", Type: protocol.InstantCombine}))
		step()
		step(actEnv(s, protocol.InstantReq{ID: "c2", Type: protocol.InstantCombine}))
		step()
		return digests
	}

	a := script(newTestSession(t, 10, catalogs.StoneTool, catalogs.Wheat))
	b := script(newTestSession(t, 10, catalogs.StoneTool, catalogs.Wheat))
	if len(a) != len(b) {
		t.Fatalf("digest count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest diverged at step %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestJoinDeliversWelcomeCatalogsAndObs(t *testing.T) {
	s := newTestSession(t, 10, catalogs.Wheat)

	out := make(chan []byte, 8)
	resp := make(chan JoinResponse, 1)
	s.StepOnce([]JoinRequest{{Name: "tester", Out: out, Resp: resp}}, nil, nil)

	jr := <-resp
	if jr.Welcome.ClientID == "" || jr.Welcome.SessionID != "S1" {
		t.Fatalf("welcome wrong: %+v", jr.Welcome)
	}
	if jr.Welcome.Params.Timepoints != [2]int{TimepointAncient, TimepointNow} {
		t.Fatalf("timepoints wrong: %+v", jr.Welcome.Params)
	}
	if len(jr.Catalogs) != 3 {
		t.Fatalf("want 3 catalog msgs, got %d", len(jr.Catalogs))
	}

	select {
	case b := <-out:
		var obs protocol.ObsMsg
		if err := json.Unmarshal(b, &obs); err != nil {
			t.Fatalf("obs unmarshal: %v", err)
		}
		if obs.Type != protocol.TypeObs {
			t.Fatalf("want OBS, got %s", obs.Type)
		}
		if len(obs.Items) != 1 || obs.Items[0].Item != string(catalogs.Wheat) {
			t.Fatalf("obs items wrong: %+v", obs.Items)
		}
		if obs.CombineLabel != protocol.CombineLabelPresent {
			t.Fatalf("at ancient the button must point at the present: %s", obs.CombineLabel)
		}
	default:
		t.Fatalf("no OBS delivered on join tick")
	}
}

func TestCombineLabelFollowsTimepoint(t *testing.T) {
	s := newTestSession(t, 10)
	if got := s.combineLabel(); got != protocol.CombineLabelPresent {
		t.Fatalf("at ancient: %s", got)
	}
	s.StepOnce(nil, nil, []ActionEnvelope{actEnv(s, protocol.InstantReq{
		ID: "c1", Type: protocol.InstantCombine,
	})})
	if got := s.combineLabel(); got != protocol.CombineLabelPast {
		t.Fatalf("at now: %s", got)
	}
}
