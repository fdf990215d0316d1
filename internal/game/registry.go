package game

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/typeroyale/typeroyale/internal/speed"
)

// TextSource supplies the race text once a countdown completes. The SQLite
// content store implements it; tests plug in a stub.
type TextSource interface {
	RandomText(ctx context.Context, language, difficulty string) (id int64, text string, err error)
}

// Options are the tunables of the race simulation, filled from env config
// in main.
type Options struct {
	CountdownSeconds int
	MinPlayers       int
	MaxPlayers       int
	AutoStartPlayers int // start the countdown at this many members; 0 = manual only
	Model            SpeedModel
	MonsterEnabled   bool
	MonsterDelay     time.Duration // armed start offset after gameStart
	MonsterSafeTime  time.Duration // no captures this long after the monster starts
	HitboxRadius     float64
}

func DefaultOptions() Options {
	return Options{
		CountdownSeconds: 10,
		MinPlayers:       2,
		MaxPlayers:       4,
		AutoStartPlayers: 0,
		Model:            ModelChars,
		MonsterEnabled:   true,
		MonsterDelay:     5 * time.Second,
		MonsterSafeTime:  3 * time.Second,
		HitboxRadius:     1.5,
	}
}

var playerColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}

// Registry owns every Room and everything reachable from one. Rooms share
// no state with each other, so per-room locks are enough once a room is
// looked up.
type Registry struct {
	opts  Options
	bc    Broadcaster
	texts TextSource

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry(opts Options, bc Broadcaster, texts TextSource) *Registry {
	return &Registry{
		opts:  opts,
		bc:    bc,
		texts: texts,
		rooms: make(map[string]*Room),
	}
}

func (r *Registry) CreateRoom(name, language, difficulty, creator string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[name] != nil {
		return nil, ErrRoomExists
	}
	room := &Room{
		Name:       name,
		Language:   language,
		Difficulty: difficulty,
		Creator:    creator,
		CreatedAt:  time.Now().UTC(),
		Status:     StatusWaiting,
	}
	if r.opts.MonsterEnabled {
		room.Monster = newMonster()
	}
	r.rooms[name] = room
	log.Info().Str("room", name).Str("creator", creator).Msg("room created")
	return room, nil
}

func (r *Registry) Get(name string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[name]
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Join adds a player to a waiting room. Rejoining with the same nickname
// returns the existing record instead of duplicating it.
func (r *Registry) Join(roomName, nickname string) (*Player, error) {
	room, err := r.Get(roomName)
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	if room.Status != StatusWaiting {
		room.mu.Unlock()
		return nil, ErrInvalidState
	}
	for _, p := range room.Players {
		if p.Nickname == nickname {
			room.mu.Unlock()
			return p, nil
		}
	}
	if len(room.Players) >= r.opts.MaxPlayers {
		room.mu.Unlock()
		return nil, ErrRoomFull
	}
	p := &Player{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Color:    r.pickColor(room),
		Alive:    true,
		JoinedAt: time.Now().UTC(),
	}
	room.Players = append(room.Players, p)
	count := len(room.Players)
	autoStart := r.opts.AutoStartPlayers > 0 &&
		count >= r.opts.AutoStartPlayers &&
		room.Status == StatusWaiting
	room.mu.Unlock()

	log.Info().Str("room", roomName).Str("nickname", nickname).Int("players", count).Msg("player joined")

	if autoStart {
		if err := r.StartCountdown(roomName); err != nil {
			log.Warn().Err(err).Str("room", roomName).Msg("auto countdown start failed")
		}
	}
	return p, nil
}

// pickColor assigns the first unused palette color, falling back to a
// random pick once the palette is exhausted. Caller holds room.mu.
func (r *Registry) pickColor(room *Room) string {
	used := make(map[string]bool, len(room.Players))
	for _, p := range room.Players {
		used[p.Color] = true
	}
	for _, c := range playerColors {
		if !used[c] {
			return c
		}
	}
	return playerColors[rand.Intn(len(playerColors))]
}

// Creator returns the nickname that created the room. Immutable after
// CreateRoom, so callers may cache it.
func (r *Registry) Creator(roomName string) (string, error) {
	room, err := r.Get(roomName)
	if err != nil {
		return "", err
	}
	return room.Creator, nil
}

// RemovePlayer takes a player out of their room and runs the teardown
// ladder: stop the countdown below MinPlayers, reset an understaffed race
// back to waiting, destroy the room entirely when it empties out.
func (r *Registry) RemovePlayer(roomName, playerID string) (*Player, error) {
	room, err := r.Get(roomName)
	if err != nil {
		return nil, err
	}

	room.mu.Lock()
	var removed *Player
	for i, p := range room.Players {
		if p.ID == playerID {
			removed = p
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			break
		}
	}
	if removed == nil {
		room.mu.Unlock()
		return nil, ErrPlayerNotFound
	}
	remaining := len(room.Players)
	understaffed := remaining < r.opts.MinPlayers

	if understaffed && room.Status == StatusInProgress {
		// Not enough players to keep racing; reset progress and wait.
		room.Status = StatusWaiting
		room.Text = ""
		room.TextID = 0
		for _, p := range room.Players {
			p.Position = 0
			p.Velocity = 0
			p.WPM = 0
			p.Accuracy = 0
			p.Alive = true
			p.Finished = false
		}
		room.Results = nil
		if room.Monster != nil {
			room.Monster = newMonster()
		}
	}
	room.mu.Unlock()

	log.Info().Str("room", roomName).Str("nickname", removed.Nickname).Int("remaining", remaining).Msg("player left")

	if understaffed {
		r.StopCountdown(roomName)
	}
	if remaining == 0 {
		r.destroyRoom(roomName)
	}
	return removed, nil
}

// DeleteRoom removes a room on the creator's request.
func (r *Registry) DeleteRoom(roomName, nickname string) error {
	room, err := r.Get(roomName)
	if err != nil {
		return err
	}
	room.mu.Lock()
	creator := room.Creator
	room.mu.Unlock()
	if nickname != creator {
		return ErrUnauthorized
	}
	r.destroyRoom(roomName)
	return nil
}

// destroyRoom drops the room from the registry and cancels its countdown
// so no ticker outlives the room.
func (r *Registry) destroyRoom(roomName string) {
	r.mu.Lock()
	room := r.rooms[roomName]
	delete(r.rooms, roomName)
	r.mu.Unlock()
	if room == nil {
		return
	}
	room.mu.Lock()
	cd := room.countdown
	room.countdown = nil
	room.mu.Unlock()
	if cd != nil {
		cd.cancel()
	}
	log.Info().Str("room", roomName).Msg("room destroyed")
}

// List builds lobby summaries on demand, oldest room first.
func (r *Registry) List() []RoomSummary {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })

	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		out = append(out, RoomSummary{
			Name:        room.Name,
			Language:    room.Language,
			Difficulty:  room.Difficulty,
			Creator:     room.Creator,
			Status:      room.Status,
			PlayerCount: len(room.Players),
			MaxPlayers:  r.opts.MaxPlayers,
		})
		room.mu.Unlock()
	}
	return out
}

// UserList is the membership view broadcast on join/leave.
func (r *Registry) UserList(roomName string) []PlayerSnapshot {
	room, err := r.Get(roomName)
	if err != nil {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	out := make([]PlayerSnapshot, 0, len(room.Players))
	for _, p := range room.Players {
		out = append(out, snapshotPlayer(p))
	}
	return out
}

// RoomInfo is the per-room view sent to a player on join. The text is
// included only once a race has assigned one.
func (r *Registry) RoomInfo(roomName string) map[string]any {
	room, err := r.Get(roomName)
	if err != nil {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	info := map[string]any{
		"name":       room.Name,
		"language":   room.Language,
		"difficulty": room.Difficulty,
		"creator":    room.Creator,
		"status":     room.Status,
	}
	if room.Text != "" {
		info["text"] = room.Text
		info["textId"] = room.TextID
	}
	return info
}

// ReportProgress records client-reported WPM and accuracy. In the chars
// model each newly typed correct character also bumps velocity; position
// is never touched here, the tick loop owns it.
func (r *Registry) ReportProgress(roomName, playerID string, wpm, accuracy float64, correctChars int) error {
	room, err := r.Get(roomName)
	if err != nil {
		return err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.Status != StatusInProgress {
		return ErrInvalidState
	}
	p := room.playerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.racing() {
		return nil
	}
	p.WPM = wpm
	p.Accuracy = accuracy
	p.LastProgress = time.Now()
	if r.opts.Model == ModelChars {
		for i := 0; i < correctChars; i++ {
			p.Velocity = speed.ApplyCorrectChar(p.Velocity)
		}
	}
	return nil
}

// ClientFinished handles the explicit client-side finish signal, a fallback
// alongside the engine's own edge-triggered detection. The returned result
// is nil when the player was already terminal.
func (r *Registry) ClientFinished(roomName, playerID string, wpm, accuracy float64) (*RaceResult, *RaceOver, error) {
	room, err := r.Get(roomName)
	if err != nil {
		return nil, nil, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.Status != StatusInProgress {
		return nil, nil, ErrInvalidState
	}
	p := room.playerByID(playerID)
	if p == nil {
		return nil, nil, ErrPlayerNotFound
	}
	if !p.racing() {
		return nil, nil, nil
	}
	p.WPM = wpm
	p.Accuracy = accuracy
	p.Position = speed.TrackLen
	res := room.finishLocked(p, time.Now().UTC())
	over := room.resolveLocked()
	return &res, over, nil
}

func (room *Room) playerByID(id string) *Player {
	for _, p := range room.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
