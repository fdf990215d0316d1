package game

import (
	"errors"
	"testing"
	"time"
)

func newTestRegistry(opts Options) (*Registry, *recorder) {
	rec := &recorder{}
	return NewRegistry(opts, rec, stubTexts{}), rec
}

func TestCreateRoom(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())

	room, err := reg.CreateRoom("alpha", "en", "easy", "bob")
	if err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}
	if room.Status != StatusWaiting {
		t.Fatalf("expected status %s, got %s", StatusWaiting, room.Status)
	}
	if room.Monster == nil {
		t.Fatal("monster mode is on, room should have a monster")
	}
	if room.Monster.Position != -8 {
		t.Fatalf("expected monster behind the start at -8, got %v", room.Monster.Position)
	}

	got, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("should be able to look the room up: %v", err)
	}
	if got != room {
		t.Fatal("lookup should return the same room")
	}
}

func TestCreateRoomDuplicate(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	if _, err := reg.CreateRoom("alpha", "en", "easy", "bob"); err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}
	if _, err := reg.CreateRoom("alpha", "es", "hard", "carol"); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}
}

func TestGetMissingRoom(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	if _, err := reg.Get("nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestJoinAssignsIdentity(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	reg.CreateRoom("alpha", "en", "easy", "bob")

	p, err := reg.Join("alpha", "bob")
	if err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	if p.ID == "" {
		t.Fatal("player id should not be empty")
	}
	if p.Color == "" {
		t.Fatal("player should get a display color")
	}
	if !p.Alive {
		t.Fatal("new player should be alive")
	}

	q, err := reg.Join("alpha", "carol")
	if err != nil {
		t.Fatalf("second player should be able to join: %v", err)
	}
	if q.ID == p.ID {
		t.Fatal("players should have distinct ids")
	}
	if q.Color == p.Color {
		t.Fatal("players should get distinct colors while the palette lasts")
	}
}

func TestJoinIdempotentByNickname(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	reg.CreateRoom("alpha", "en", "easy", "bob")

	p1, _ := reg.Join("alpha", "bob")
	p2, err := reg.Join("alpha", "bob")
	if err != nil {
		t.Fatalf("rejoin should not fail: %v", err)
	}
	if p1 != p2 {
		t.Fatal("rejoining with the same nickname should return the existing player")
	}
	if len(reg.UserList("alpha")) != 1 {
		t.Fatalf("expected 1 member, got %d", len(reg.UserList("alpha")))
	}
}

func TestJoinRejectedWhenNotWaiting(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	room, _ := reg.CreateRoom("alpha", "en", "easy", "bob")
	reg.Join("alpha", "bob")

	room.mu.Lock()
	room.Status = StatusInProgress
	room.mu.Unlock()

	if _, err := reg.Join("alpha", "dave"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if len(reg.UserList("alpha")) != 1 {
		t.Fatal("membership must be unchanged after a rejected join")
	}
}

func TestJoinRejectedWhenFull(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPlayers = 2
	reg, _ := newTestRegistry(opts)
	reg.CreateRoom("alpha", "en", "easy", "bob")
	reg.Join("alpha", "bob")
	reg.Join("alpha", "carol")

	if _, err := reg.Join("alpha", "dave"); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestRoomDestroyedWhenLastPlayerLeaves(t *testing.T) {
	reg, rec := newTestRegistry(DefaultOptions())
	reg.CreateRoom("alpha", "en", "easy", "bob")
	p, _ := reg.Join("alpha", "bob")

	if _, err := reg.RemovePlayer("alpha", p.ID); err != nil {
		t.Fatalf("should be able to remove player: %v", err)
	}
	if _, err := reg.Get("alpha"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected room to be destroyed, got %v", err)
	}

	// no broadcasts should reach the dead room afterwards
	before := rec.count("alpha", EventRaceUpdate)
	engine := NewEngine(reg)
	engine.Step(time.Now().UTC(), 0.1)
	if rec.count("alpha", EventRaceUpdate) != before {
		t.Fatal("destroyed room must not produce further broadcasts")
	}
}

func TestRemoveResetsUnderstaffedRace(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	room, _ := reg.CreateRoom("alpha", "en", "easy", "bob")
	bob, _ := reg.Join("alpha", "bob")
	carol, _ := reg.Join("alpha", "carol")

	room.mu.Lock()
	room.Status = StatusInProgress
	bob.Position = 40
	carol.Position = 70
	room.mu.Unlock()

	if _, err := reg.RemovePlayer("alpha", carol.ID); err != nil {
		t.Fatalf("should be able to remove player: %v", err)
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.Status != StatusWaiting {
		t.Fatalf("understaffed race should reset to waiting, got %s", room.Status)
	}
	if bob.Position != 0 {
		t.Fatalf("player progress should reset, got position %v", bob.Position)
	}
}

func TestRemoveUnknownPlayer(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	reg.CreateRoom("alpha", "en", "easy", "bob")
	reg.Join("alpha", "bob")
	if _, err := reg.RemovePlayer("alpha", "missing-id"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestDeleteRoomCreatorOnly(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	reg.CreateRoom("alpha", "en", "easy", "bob")

	if err := reg.DeleteRoom("alpha", "carol"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.DeleteRoom("alpha", "bob"); err != nil {
		t.Fatalf("creator should be able to delete: %v", err)
	}
	if _, err := reg.Get("alpha"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected room gone, got %v", err)
	}
}

func TestListSummaries(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	reg.CreateRoom("alpha", "en", "easy", "bob")
	reg.CreateRoom("beta", "es", "hard", "carol")
	reg.Join("alpha", "bob")

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "beta" {
		t.Fatalf("expected creation order, got %s then %s", list[0].Name, list[1].Name)
	}
	if list[0].PlayerCount != 1 {
		t.Fatalf("expected 1 player in alpha, got %d", list[0].PlayerCount)
	}
	if list[0].Status != StatusWaiting {
		t.Fatalf("expected waiting status, got %s", list[0].Status)
	}
}

func TestReportProgressUpdatesStatsNotPosition(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	room, _ := reg.CreateRoom("alpha", "en", "easy", "bob")
	bob, _ := reg.Join("alpha", "bob")
	reg.Join("alpha", "carol")

	room.mu.Lock()
	room.Status = StatusInProgress
	bob.Position = 12.5
	room.mu.Unlock()

	if err := reg.ReportProgress("alpha", bob.ID, 75, 96.5, 3); err != nil {
		t.Fatalf("progress report should succeed: %v", err)
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if bob.WPM != 75 || bob.Accuracy != 96.5 {
		t.Fatalf("expected wpm=75 acc=96.5, got %v/%v", bob.WPM, bob.Accuracy)
	}
	if bob.Position != 12.5 {
		t.Fatalf("progress report must not move the player, got %v", bob.Position)
	}
	if bob.Velocity == 0 {
		t.Fatal("chars model should bump velocity per correct char")
	}
}

func TestReportProgressOutsideRace(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	reg.CreateRoom("alpha", "en", "easy", "bob")
	bob, _ := reg.Join("alpha", "bob")

	if err := reg.ReportProgress("alpha", bob.ID, 75, 96.5, 3); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState while waiting, got %v", err)
	}
}

func TestClientFinishedSnapsToTrackEnd(t *testing.T) {
	reg, _ := newTestRegistry(DefaultOptions())
	room, _ := reg.CreateRoom("alpha", "en", "easy", "bob")
	bob, _ := reg.Join("alpha", "bob")
	carol, _ := reg.Join("alpha", "carol")

	room.mu.Lock()
	room.Status = StatusInProgress
	bob.Position = 97.3
	room.mu.Unlock()

	res, over, err := reg.ClientFinished("alpha", bob.ID, 82, 98)
	if err != nil {
		t.Fatalf("client finish should succeed: %v", err)
	}
	if res == nil {
		t.Fatal("first finish should produce a result")
	}
	if res.State != ResultFinished || res.WPM != 82 {
		t.Fatalf("unexpected result %+v", res)
	}
	if over != nil {
		t.Fatal("race should not be over while carol is still racing")
	}

	room.mu.Lock()
	if bob.Position != 100 || !bob.Finished {
		t.Fatalf("expected bob snapped to the finish, got pos=%v finished=%v", bob.Position, bob.Finished)
	}
	room.mu.Unlock()

	// duplicate signal is swallowed
	res2, _, err := reg.ClientFinished("alpha", bob.ID, 90, 99)
	if err != nil {
		t.Fatalf("duplicate finish should not error: %v", err)
	}
	if res2 != nil {
		t.Fatal("duplicate finish must not produce a second result")
	}

	// last racer finishing resolves the room
	_, over, err = reg.ClientFinished("alpha", carol.ID, 60, 91)
	if err != nil {
		t.Fatalf("client finish should succeed: %v", err)
	}
	if over == nil {
		t.Fatal("race should resolve once everyone is terminal")
	}
	if over.Winner == nil || over.Winner.Nickname != "bob" {
		t.Fatalf("expected bob to win, got %+v", over.Winner)
	}
}

func TestRoomInfoOmitsTextUntilAssigned(t *testing.T) {
	reg := NewRegistry(DefaultOptions(), &recorder{}, stubTexts{})
	if _, err := reg.CreateRoom("alpha", "en", "easy", "alice"); err != nil {
		t.Fatalf("create room: %v", err)
	}

	info := reg.RoomInfo("alpha")
	if info == nil {
		t.Fatal("expected room info for existing room")
	}
	if info["status"] != StatusWaiting {
		t.Fatalf("expected waiting status, got %v", info["status"])
	}
	if _, ok := info["text"]; ok {
		t.Fatal("text must not appear before a race assigns one")
	}

	room, _ := reg.Get("alpha")
	room.mu.Lock()
	room.Text = "the quick brown fox"
	room.TextID = 7
	room.mu.Unlock()

	info = reg.RoomInfo("alpha")
	if info["text"] != "the quick brown fox" || info["textId"] != int64(7) {
		t.Fatalf("expected assigned text in room info, got %v", info)
	}

	if reg.RoomInfo("missing") != nil {
		t.Fatal("expected nil info for unknown room")
	}
}
