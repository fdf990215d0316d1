package game

// Outbound event names shared by the engine, the countdown and the socket
// layer. Inbound names live with their handlers in the ws package.
const (
	EventTimerUpdate    = "timerUpdate"
	EventGameStart      = "gameStart"
	EventRaceUpdate     = "race:update"
	EventPlayerFinished = "player:finished"
	EventPlayerCaught   = "player:caught"
	EventRaceOver       = "race:over"
	EventGameResults    = "updateGameResults"
	EventUserList       = "updateUserList"
	EventRoomInfo       = "roomInfo"
)

// Broadcaster fans an event out to every member of a room. The socket
// server implements it; tests plug in a recorder.
type Broadcaster interface {
	ToRoom(room string, event string, payload any)
}

// TimerUpdate is the payload of every countdown tick, including the final
// inactive one after a stop.
type TimerUpdate struct {
	Seconds  int  `json:"seconds"`
	IsActive bool `json:"isActive"`
}
