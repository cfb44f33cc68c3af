// Package dungeon runs the authoritative game session: the inventory
// grids per timepoint, the combine-button jump state machine, and the
// evolution resolution that rewrites the destination backpack.
package dungeon

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"chronopack.game/internal/protocol"
	"chronopack.game/internal/sim/catalogs"
	"chronopack.game/internal/sim/grid"
)

type Config struct {
	ID         string
	TickRateHz int
	MaxRounds  int

	// StartingItems seed the ancient backpack at session start.
	StartingItems []catalogs.ItemID
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

type ActionEnvelope struct {
	ClientID string
	Act      protocol.ActMsg
}

type RecordedJoin struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

type RecordedAction struct {
	ClientID string          `json:"client_id"`
	Act      protocol.ActMsg `json:"act"`
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Jumps   []JumpEvent      `json:"jumps,omitempty"`
	Digest  string           `json:"digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// SessionRecord is written once, when the session reaches an outcome.
type SessionRecord struct {
	SessionID string `json:"session_id"`
	Result    string `json:"result"`
	Rounds    int    `json:"rounds"`
	EndTick   uint64 `json:"end_tick"`
}

type SessionRecorder interface {
	RecordSession(rec SessionRecord)
}

type clientState struct {
	Out chan []byte
}

// Session is a single-threaded authoritative simulation.
// All state must be accessed only from the session loop goroutine.
type Session struct {
	cfg  Config
	cats *catalogs.Catalogs

	tick atomic.Uint64

	level           TimePointLevel
	curTimepointIdx int

	// backpackInUse is expected to hold exactly one marker; the jump
	// sync rewrites it, activeBackpack enforces the invariant.
	backpackInUse []int

	round   int
	running bool
	combat  CombatState
	result  Result
	ended   bool

	items       map[string]*itemEnt
	byBackpack  map[int]map[string]struct{}
	craftTagged map[string]struct{}

	jumpQueue []JumpEvent
	events    []protocol.Event

	clients map[string]*clientState

	inbox chan ActionEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	nextItemNum   atomic.Uint64
	nextClientNum atomic.Uint64
	clientCount   atomic.Int64

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	recorder   SessionRecorder
}

func New(cfg Config, cats *catalogs.Catalogs) (*Session, error) {
	s := &Session{
		cfg:             cfg,
		cats:            cats,
		level:           GenerateLevel(),
		curTimepointIdx: 0,
		backpackInUse:   []int{TimepointAncient},
		running:         true,
		items:           map[string]*itemEnt{},
		byBackpack:      map[int]map[string]struct{}{},
		craftTagged:     map[string]struct{}{},
		clients:         map[string]*clientState{},
		inbox:           make(chan ActionEnvelope, 256),
		join:            make(chan JoinRequest, 16),
		leave:           make(chan string, 16),
		stop:            make(chan struct{}),
	}

	var reserved []grid.Coords
	for _, id := range cfg.StartingItems {
		def, err := cats.Items.Get(id)
		if err != nil {
			return nil, err
		}
		c, ok := grid.FindFreeSpace(cats.Layout.Grid, def.FootprintDimens(), nil, reserved)
		if !ok {
			log.Printf("[dungeon] no space for starting item %s", id)
			continue
		}
		reserved = append(reserved, c)
		s.addItem(id, TimepointAncient, c, false, 1)
	}
	return s, nil
}

func (s *Session) SetTickLogger(l TickLogger)           { s.tickLogger = l }
func (s *Session) SetSessionRecorder(r SessionRecorder) { s.recorder = r }

func (s *Session) Inbox() chan<- ActionEnvelope { return s.inbox }
func (s *Session) Join() chan<- JoinRequest     { return s.join }
func (s *Session) Leave() chan<- string         { return s.leave }

func (s *Session) CurrentTick() uint64 { return s.tick.Load() }

func (s *Session) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-s.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-s.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			s.step(pendingJoins, pendingLeaves, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (s *Session) Stop() { close(s.stop) }

func (s *Session) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	nowTick := s.tick.Load()

	// Leaves and joins at the tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := s.clients[id]; ok {
			delete(s.clients, id)
			s.clientCount.Add(-1)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := s.joinClient(req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{ClientID: resp.Welcome.ClientID, Name: req.Name})
	}

	// Actions in server receive order (the inbox order).
	recorded := make([]RecordedAction, 0, len(actions))
	for _, env := range actions {
		recorded = append(recorded, RecordedAction{ClientID: env.ClientID, Act: env.Act})
		s.applyAct(env.Act, nowTick)
	}

	// Systems: jump resolution, then the outcome checks.
	jumps := s.drainJumps(nowTick)
	s.resolveOutcome(nowTick)

	// One shared OBS; every connected client sees the full session.
	obs := s.buildObs(nowTick)
	if b, err := json.Marshal(obs); err == nil {
		for _, cl := range s.clients {
			sendLatest(cl.Out, b)
		}
	}

	digest := s.stateDigest(nowTick)
	if s.tickLogger != nil {
		_ = s.tickLogger.WriteTick(TickLogEntry{
			Tick:    nowTick,
			Joins:   recordedJoins,
			Leaves:  recordedLeaves,
			Actions: recorded,
			Jumps:   jumps,
			Digest:  digest,
		})
	}

	s.events = s.events[:0]
	s.tick.Add(1)
}

// StepOnce advances the session by a single tick using the same ordering
// semantics as the server. It is primarily intended for deterministic
// replays/tests.
func (s *Session) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = s.tick.Load()
	s.step(joins, leaves, actions)
	return tick, s.stateDigest(tick)
}

func (s *Session) joinClient(name string, out chan []byte) JoinResponse {
	if name == "" {
		name = "player"
	}
	clientID := newID("C", s.nextClientNum.Add(1))
	if out != nil {
		s.clients[clientID] = &clientState{Out: out}
		s.clientCount.Add(1)
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ClientID:        clientID,
		SessionID:       s.cfg.ID,
		Params: protocol.SessionParams{
			TickRateHz: s.cfg.TickRateHz,
			Timepoints: [2]int{TimepointAncient, TimepointNow},
			MaxRounds:  s.cfg.MaxRounds,
			GridDimens: [2]int{s.cats.Layout.Grid.Inventory.Dimens.X, s.cats.Layout.Grid.Inventory.Dimens.Y},
		},
		Catalogs: protocol.CatalogDigests{
			ItemsDigest:   s.cats.Items.Digest,
			RecipesDigest: s.cats.Recipes.Digest,
			LayoutDigest:  s.cats.Layout.Digest,
		},
	}

	itemDefs := make([]catalogs.ItemDef, 0, len(s.cats.Items.Palette))
	for _, id := range s.cats.Items.Palette {
		itemDefs = append(itemDefs, s.cats.Items.Defs[id])
	}
	catalogMsgs := []protocol.CatalogMsg{
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "items",
			Digest:          s.cats.Items.Digest,
			Data:            itemDefs,
		},
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "recipes",
			Digest:          s.cats.Recipes.Digest,
			Data:            s.cats.Recipes.Recipes,
		},
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "layout",
			Digest:          s.cats.Layout.Digest,
			Data:            s.cats.Layout.Grid,
		},
	}

	return JoinResponse{Welcome: welcome, Catalogs: catalogMsgs}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
