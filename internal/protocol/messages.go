package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// MaxQueue bounds the per-client outbound buffer; OBS frames beyond it
	// are replaced latest-wins.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ClientID        string         `json:"client_id"`
	SessionID       string         `json:"session_id"`
	Params          SessionParams  `json:"session_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type SessionParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	Timepoints [2]int `json:"timepoints"` // [ancient, now]
	MaxRounds  int    `json:"max_rounds"`
	GridDimens [2]int `json:"grid_dimens"`
}

type CatalogDigests struct {
	ItemsDigest   string `json:"items_digest"`
	RecipesDigest string `json:"recipes_digest"`
	LayoutDigest  string `json:"layout_digest"`
	TuningDigest  string `json:"tuning_digest,omitempty"`
}

// CATALOG (server -> client): one static table, sent whole after WELCOME.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`   // "items", "recipes", "layout"
	Digest          string      `json:"digest"` // sha256 hex
	Data            interface{} `json:"data"`
}

// ACT (client -> server): player intents for one tick.
type ActMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Instants        []InstantReq `json:"instants,omitempty"`
}

// Instant types.
const (
	InstantCombine = "COMBINE"
	InstantCraft   = "CRAFT"
	InstantMove    = "MOVE_ITEM"
	InstantStage   = "STAGE_ITEM"
	InstantUnstage = "UNSTAGE_ITEM"
	InstantDrop    = "DROP_ITEM"
	InstantResume  = "RESUME"
)

type InstantReq struct {
	ID     string `json:"id"` // client-chosen ref echoed in ACTION_RESULT
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"` // target item entity id
	Pos    [2]int `json:"pos,omitempty"`    // MOVE_ITEM destination cell
}

// OBS (server -> client): full session view, once per tick.
type ObsMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Timepoint       int         `json:"timepoint"`
	Round           int         `json:"round"`
	Running         bool        `json:"running"`
	Result          string      `json:"result"` // "", "WON", "LOST"
	CombineLabel    string      `json:"combine_label"`
	Items           []ItemState `json:"items"`
	Events          []Event     `json:"events,omitempty"`
}

// Combine-button label signal; the client renders the actual text.
const (
	CombineLabelPast    = "PAST"
	CombineLabelPresent = "PRESENT"
)

type ItemState struct {
	Entity   string `json:"entity"`
	Item     string `json:"item"`
	Backpack int    `json:"backpack"`
	Pos      [2]int `json:"pos"`
	Dimens   [2]int `json:"dimens"`
	Craft    bool   `json:"craft,omitempty"`
	Stack    int    `json:"stack,omitempty"`
}

// Event is a loosely-typed per-tick event payload.
type Event map[string]any

// Event types.
const (
	EventActionResult = "ACTION_RESULT"
	EventSpawnItem    = "SPAWN_ITEM"
	EventDespawnItem  = "DESPAWN_ITEM"
	EventSound        = "SOUND"
	EventJump         = "JUMP"
	EventGameEnded    = "GAME_ENDED"
)

// Sound effect ids fired at the audio collaborator.
const (
	SoundCombineAlchemy = "COMBINE_ALCHEMY"
	SoundCraftDone      = "CRAFT_DONE"
)
