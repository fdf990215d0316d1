package game

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typeroyale/typeroyale/internal/speed"
)

// TickInterval is the fixed simulation step shared by every room.
const TickInterval = 100 * time.Millisecond

// Engine drives the race simulation for all rooms off one fixed-rate
// ticker. Rooms share no mutable state with each other, so a sequential
// sweep per tick is enough.
type Engine struct {
	reg *Registry
}

func NewEngine(reg *Registry) *Engine {
	return &Engine{reg: reg}
}

// Run ticks until the context is canceled. Broadcasts happen after a
// room's lock is released; a tick never blocks on network I/O under lock.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	dt := TickInterval.Seconds()

	log.Info().Dur("interval", TickInterval).Msg("race engine running")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("race engine stopped")
			return
		case now := <-ticker.C:
			e.Step(now.UTC(), dt)
		}
	}
}

// Step advances every in-progress room by one tick. Exposed so tests can
// drive simulated time without a real ticker.
func (e *Engine) Step(now time.Time, dt float64) {
	e.reg.mu.RLock()
	rooms := make([]*Room, 0, len(e.reg.rooms))
	for _, room := range e.reg.rooms {
		rooms = append(rooms, room)
	}
	e.reg.mu.RUnlock()

	for _, room := range rooms {
		ev := room.tick(now, dt, e.reg.opts)
		e.emit(room.Name, ev)
	}
}

func (e *Engine) emit(roomName string, ev tickEvents) {
	for i := range ev.finished {
		e.reg.bc.ToRoom(roomName, EventPlayerFinished, ev.finished[i])
	}
	for i := range ev.caught {
		e.reg.bc.ToRoom(roomName, EventPlayerCaught, ev.caught[i])
	}
	if ev.over != nil {
		e.reg.bc.ToRoom(roomName, EventRaceOver, ev.over)
		e.reg.bc.ToRoom(roomName, EventGameResults, ev.over.Results)
		return
	}
	if ev.snapshot != nil {
		e.reg.bc.ToRoom(roomName, EventRaceUpdate, ev.snapshot)
	}
}

// tickEvents is the emission batch produced by one room tick, broadcast
// after the room lock is released.
type tickEvents struct {
	snapshot *RaceSnapshot
	finished []RaceResult
	caught   []RaceResult
	over     *RaceOver
}

// tick runs one simulation step for the room. Finished rooms do nothing;
// the terminal broadcast already replaced the per-tick snapshot.
func (room *Room) tick(now time.Time, dt float64, opts Options) tickEvents {
	room.mu.Lock()
	defer room.mu.Unlock()

	var ev tickEvents
	if room.Status != StatusInProgress {
		return ev
	}

	for _, p := range room.Players {
		if !p.racing() {
			continue
		}
		switch opts.Model {
		case ModelWPM:
			p.Velocity = speed.FromWPM(p.WPM)
		default:
			p.Velocity = speed.Decay(p.Velocity, dt)
		}
		p.Position = speed.Integrate(p.Position, p.Velocity, dt)
		if p.Position >= speed.TrackLen {
			ev.finished = append(ev.finished, room.finishLocked(p, now))
		}
	}

	if m := room.Monster; m != nil && !m.StartAt.IsZero() && !now.Before(m.StartAt) {
		m.Position, m.Velocity = speed.MonsterAdvance(m.Position, m.Velocity, dt)
		if !now.Before(m.StartAt.Add(opts.MonsterSafeTime)) {
			for _, p := range room.Players {
				if p.racing() && m.Position+opts.HitboxRadius >= p.Position {
					ev.caught = append(ev.caught, room.catchLocked(p, now))
				}
			}
		}
	}

	if over := room.resolveLocked(); over != nil {
		ev.over = over
		return ev
	}

	ev.snapshot = room.snapshotLocked()
	return ev
}

// finishLocked marks a player finished exactly once and appends the
// result. Callers hold room.mu and check p.racing() first, which is what
// makes the event edge-triggered.
func (room *Room) finishLocked(p *Player, now time.Time) RaceResult {
	p.Finished = true
	p.Position = speed.TrackLen
	res := RaceResult{
		Nickname: p.Nickname,
		WPM:      int(math.Round(p.WPM)),
		Accuracy: int(math.Round(p.Accuracy)),
		State:    ResultFinished,
		At:       now,
	}
	room.Results = append(room.Results, res)
	return res
}

// catchLocked eliminates a caught player, same edge-trigger contract as
// finishLocked.
func (room *Room) catchLocked(p *Player, now time.Time) RaceResult {
	p.Alive = false
	p.Velocity = 0
	res := RaceResult{
		Nickname: p.Nickname,
		WPM:      int(math.Round(p.WPM)),
		Accuracy: int(math.Round(p.Accuracy)),
		State:    ResultCaught,
		At:       now,
	}
	room.Results = append(room.Results, res)
	return res
}

// resolveLocked checks whether every player is terminal and, exactly once,
// flips the room to finished. Winner is the first finished result.
func (room *Room) resolveLocked() *RaceOver {
	if room.Status != StatusInProgress || len(room.Players) == 0 {
		return nil
	}
	for _, p := range room.Players {
		if p.racing() {
			return nil
		}
	}
	room.Status = StatusFinished
	over := &RaceOver{Results: append([]RaceResult(nil), room.Results...)}
	for i := range room.Results {
		if room.Results[i].State == ResultFinished {
			winner := room.Results[i]
			over.Winner = &winner
			break
		}
	}
	return over
}

func (room *Room) snapshotLocked() *RaceSnapshot {
	snap := &RaceSnapshot{Players: make([]PlayerSnapshot, 0, len(room.Players))}
	for _, p := range room.Players {
		snap.Players = append(snap.Players, snapshotPlayer(p))
	}
	if m := room.Monster; m != nil {
		snap.Monster = &MonsterSnapshot{Position: round1(m.Position), Velocity: round2(m.Velocity)}
	}
	return snap
}
