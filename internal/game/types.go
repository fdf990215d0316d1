package game

import (
	"math"
	"sync"
	"time"

	"github.com/typeroyale/typeroyale/internal/speed"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusCountdown  Status = "countdown"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// SpeedModel selects which velocity strategy the engine runs. The two are
// never blended; a server picks one at startup.
type SpeedModel string

const (
	ModelChars SpeedModel = "chars" // per-keystroke accumulation with idle decay
	ModelWPM   SpeedModel = "wpm"   // continuous curve over reported WPM
)

type ResultState string

const (
	ResultFinished ResultState = "finished"
	ResultCaught   ResultState = "caught"
)

// Player is one room member's race state. Identity is the stable ID, not
// the transport connection; membership is keyed by nickname within a room.
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`

	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`

	Position float64 `json:"position"`
	Velocity float64 `json:"velocity"`
	Alive    bool    `json:"alive"`
	Finished bool    `json:"finished"`

	LastProgress time.Time `json:"-"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// racing reports whether the player still takes part in the simulation.
func (p *Player) racing() bool {
	return p.Alive && !p.Finished
}

// Monster is the pursuing antagonist. It may not move before StartAt and
// may not catch anyone before StartAt+safeTime.
type Monster struct {
	Position float64   `json:"position"`
	Velocity float64   `json:"velocity"`
	StartAt  time.Time `json:"-"`
}

// RaceResult is one finalized outcome, append-only in the room's log.
type RaceResult struct {
	Nickname string      `json:"nickname"`
	WPM      int         `json:"wpm"`
	Accuracy int         `json:"accuracy"`
	State    ResultState `json:"state"`
	At       time.Time   `json:"at"`
}

// Room is an isolated game session. All mutation happens under mu; the
// registry is the only owner.
type Room struct {
	Name       string
	Language   string
	Difficulty string
	Creator    string
	CreatedAt  time.Time

	Status  Status
	Text    string
	TextID  int64
	Players []*Player // join order preserved for the lobby view
	Results []RaceResult
	Monster *Monster

	countdown *countdown

	mu sync.Mutex
}

// RoomSummary is the lobby/REST view of a room, built on demand.
type RoomSummary struct {
	Name        string `json:"name"`
	Language    string `json:"language"`
	Difficulty  string `json:"difficulty"`
	Creator     string `json:"creator"`
	Status      Status `json:"status"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// PlayerSnapshot is the rounded outbound view of a player. Internal state
// keeps full precision; only snapshots round.
type PlayerSnapshot struct {
	Nickname string  `json:"nickname"`
	Color    string  `json:"color"`
	WPM      int     `json:"wpm"`
	Accuracy int     `json:"accuracy"`
	Velocity float64 `json:"velocity"`
	Position float64 `json:"position"`
	Alive    bool    `json:"alive"`
	Finished bool    `json:"finished"`
}

type MonsterSnapshot struct {
	Position float64 `json:"position"`
	Velocity float64 `json:"velocity"`
}

type RaceSnapshot struct {
	Players []PlayerSnapshot `json:"players"`
	Monster *MonsterSnapshot `json:"monster,omitempty"`
}

// RaceOver carries the terminal broadcast. Winner is nil when the monster
// caught everyone before anyone finished.
type RaceOver struct {
	Winner  *RaceResult  `json:"winner"`
	Results []RaceResult `json:"results"`
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func snapshotPlayer(p *Player) PlayerSnapshot {
	return PlayerSnapshot{
		Nickname: p.Nickname,
		Color:    p.Color,
		WPM:      int(math.Round(p.WPM)),
		Accuracy: int(math.Round(p.Accuracy)),
		Velocity: round2(p.Velocity),
		Position: round1(p.Position),
		Alive:    p.Alive,
		Finished: p.Finished,
	}
}

func newMonster() *Monster {
	return &Monster{
		Position: -speed.MonsterStartGap,
		Velocity: speed.MonsterBaseSpeed,
	}
}
