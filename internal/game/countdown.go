package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typeroyale/typeroyale/internal/speed"
)

// countdown is the per-room pre-race timer. It exists only while counting;
// every teardown path cancels it exactly once.
type countdown struct {
	remaining int
	stopc     chan struct{}
	once      sync.Once
}

func (c *countdown) cancel() {
	c.once.Do(func() { close(c.stopc) })
}

// StartCountdown arms the pre-race timer for a room. It ticks at 1 Hz,
// broadcasting the remaining seconds, and on reaching zero fetches the race
// text and starts the simulation.
func (r *Registry) StartCountdown(roomName string) error {
	room, err := r.Get(roomName)
	if err != nil {
		return err
	}

	room.mu.Lock()
	if room.countdown != nil {
		room.mu.Unlock()
		return ErrTimerActive
	}
	if room.Status != StatusWaiting {
		room.mu.Unlock()
		return ErrInvalidState
	}
	if len(room.Players) < r.opts.MinPlayers {
		room.mu.Unlock()
		return ErrInsufficientPlayers
	}
	cd := &countdown{remaining: r.opts.CountdownSeconds, stopc: make(chan struct{})}
	room.countdown = cd
	room.Status = StatusCountdown
	room.mu.Unlock()

	log.Info().Str("room", roomName).Int("seconds", cd.remaining).Msg("countdown started")
	r.bc.ToRoom(roomName, EventTimerUpdate, TimerUpdate{Seconds: cd.remaining, IsActive: true})

	go r.runCountdown(roomName, cd)
	return nil
}

// StopCountdown cancels an active countdown, resets the remaining seconds
// to the configured duration and broadcasts an inactive tick. It is a
// no-op when nothing is counting.
func (r *Registry) StopCountdown(roomName string) {
	room, err := r.Get(roomName)
	if err != nil {
		return
	}
	room.mu.Lock()
	cd := room.countdown
	room.countdown = nil
	if cd != nil && room.Status == StatusCountdown {
		room.Status = StatusWaiting
	}
	room.mu.Unlock()
	if cd == nil {
		return
	}
	cd.cancel()
	log.Info().Str("room", roomName).Msg("countdown stopped")
	r.bc.ToRoom(roomName, EventTimerUpdate, TimerUpdate{Seconds: r.opts.CountdownSeconds, IsActive: false})
}

func (r *Registry) runCountdown(roomName string, cd *countdown) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cd.stopc:
			return
		case <-ticker.C:
			cd.remaining--
			if cd.remaining > 0 {
				r.bc.ToRoom(roomName, EventTimerUpdate, TimerUpdate{Seconds: cd.remaining, IsActive: true})
				continue
			}
			r.completeCountdown(roomName, cd)
			return
		}
	}
}

// completeCountdown runs the countdown -> in-progress transition: emit the
// final tick, fetch the race text (outside any room lock), arm the monster
// and signal the start. The cd identity check gates every externally visible
// step, so a countdown stopped between the last ticker fire and this call
// stays silent.
func (r *Registry) completeCountdown(roomName string, cd *countdown) {
	room, err := r.Get(roomName)
	if err != nil {
		return
	}
	room.mu.Lock()
	if room.countdown != cd {
		room.mu.Unlock()
		return
	}
	language, difficulty := room.Language, room.Difficulty
	room.mu.Unlock()

	r.bc.ToRoom(roomName, EventTimerUpdate, TimerUpdate{Seconds: 0, IsActive: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	textID, text, err := r.texts.RandomText(ctx, language, difficulty)
	if err != nil {
		// No text, no race; the room stays joinable.
		log.Error().Err(err).Str("room", roomName).Msg("race text lookup failed")
		room.mu.Lock()
		if room.countdown == cd {
			room.countdown = nil
			room.Status = StatusWaiting
		}
		room.mu.Unlock()
		r.bc.ToRoom(roomName, EventTimerUpdate, TimerUpdate{Seconds: r.opts.CountdownSeconds, IsActive: false})
		return
	}

	now := time.Now().UTC()
	room.mu.Lock()
	if room.countdown != cd {
		// Stopped or superseded while we were fetching the text.
		room.mu.Unlock()
		return
	}
	room.countdown = nil
	room.Status = StatusInProgress
	room.Text = text
	room.TextID = textID
	room.Results = nil
	for _, p := range room.Players {
		p.Position = 0
		p.Velocity = speed.BaseSpeed
		p.Alive = true
		p.Finished = false
		p.LastProgress = now
	}
	if room.Monster != nil {
		room.Monster = newMonster()
		room.Monster.StartAt = now.Add(r.opts.MonsterDelay)
	}
	room.mu.Unlock()

	log.Info().Str("room", roomName).Int64("textId", textID).Msg("race started")
	r.bc.ToRoom(roomName, EventRoomInfo, map[string]any{
		"name": roomName, "text": text, "textId": textID,
	})
	r.bc.ToRoom(roomName, EventGameStart, map[string]any{
		"text": text, "textId": textID, "startedAt": now,
	})
}
