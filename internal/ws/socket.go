package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"
	"github.com/typeroyale/typeroyale/internal/game"
)

// ConnCtx is what the server remembers about one connection: which room it
// is in and as whom. The player id is the stable identity; the socket id is
// transient.
type ConnCtx struct {
	RoomName string
	PlayerID string
	Nickname string
}

// Server routes inbound client events to the room registry and fans
// resulting broadcasts back out. It implements game.Broadcaster.
type Server struct {
	reg *game.Registry

	mu      sync.Mutex
	conns   map[string]socketio.Conn            // socketID -> Conn (for lobby-wide pushes)
	members map[string]map[string]socketio.Conn // roomName -> socketID -> Conn
}

func New() *Server {
	return &Server{
		conns:   make(map[string]socketio.Conn),
		members: make(map[string]map[string]socketio.Conn),
	}
}

// SetRegistry wires the registry in after construction; the registry needs
// the server as its Broadcaster first.
func (srv *Server) SetRegistry(reg *game.Registry) { srv.reg = reg }

// ToRoom implements game.Broadcaster.
func (srv *Server) ToRoom(room string, event string, payload any) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.members[room]))
	for _, c := range srv.members[room] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		c.Emit(event, payload)
	}
}

func (srv *Server) toAll(event string, payload any) {
	srv.mu.Lock()
	conns := make([]socketio.Conn, 0, len(srv.conns))
	for _, c := range srv.conns {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		c.Emit(event, payload)
	}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		srv.mu.Lock()
		srv.conns[s.ID()] = s
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "createRoom", srv.onCreateRoom)
	io.OnEvent("/", "joinRoom", srv.onJoinRoom)

	io.OnEvent("/", "leaveRoom", func(s socketio.Conn) map[string]any {
		srv.leave(s)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "deleteRoom", func(s socketio.Conn) map[string]any {
		ctx := connCtx(s)
		if ctx.RoomName == "" {
			return srv.err(s, "not_in_room", "not in a room")
		}
		roomName := ctx.RoomName
		if err := srv.reg.DeleteRoom(roomName, ctx.Nickname); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		log.Info().Str("room", roomName).Str("by", ctx.Nickname).Msg("deleteRoom")
		srv.ToRoom(roomName, "roomDeleted", map[string]any{"roomName": roomName})
		srv.dropRoom(roomName)
		srv.toAll("roomList", srv.reg.List())
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "startTimer", func(s socketio.Conn) map[string]any {
		ctx := connCtx(s)
		creator, err := srv.reg.Creator(ctx.RoomName)
		if err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		if ctx.Nickname != creator {
			return srv.err(s, errCode(game.ErrUnauthorized), game.ErrUnauthorized.Error())
		}
		if err := srv.reg.StartCountdown(ctx.RoomName); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "stopTimer", func(s socketio.Conn) map[string]any {
		ctx := connCtx(s)
		creator, err := srv.reg.Creator(ctx.RoomName)
		if err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		if ctx.Nickname != creator {
			return srv.err(s, errCode(game.ErrUnauthorized), game.ErrUnauthorized.Error())
		}
		srv.reg.StopCountdown(ctx.RoomName)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "typing:progress", func(s socketio.Conn, payload struct {
		WPM          float64 `json:"wpm"`
		Accuracy     float64 `json:"accuracy"`
		CorrectChars int     `json:"correctChars"`
	}) map[string]any {
		ctx := connCtx(s)
		if err := srv.reg.ReportProgress(ctx.RoomName, ctx.PlayerID, payload.WPM, payload.Accuracy, payload.CorrectChars); err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "gameFinished", func(s socketio.Conn, payload struct {
		WPM      float64 `json:"wpm"`
		Accuracy float64 `json:"accuracy"`
	}) map[string]any {
		ctx := connCtx(s)
		res, over, err := srv.reg.ClientFinished(ctx.RoomName, ctx.PlayerID, payload.WPM, payload.Accuracy)
		if err != nil {
			return srv.err(s, errCode(err), err.Error())
		}
		if res != nil {
			log.Info().Str("room", ctx.RoomName).Str("nickname", ctx.Nickname).Msg("gameFinished")
			srv.ToRoom(ctx.RoomName, game.EventPlayerFinished, res)
		}
		if over != nil {
			srv.ToRoom(ctx.RoomName, game.EventRaceOver, over)
			srv.ToRoom(ctx.RoomName, game.EventGameResults, over.Results)
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "requestRoomList", func(s socketio.Conn) map[string]any {
		list := srv.reg.List()
		s.Emit("roomList", list)
		return map[string]any{"rooms": list}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.leave(s)
		srv.mu.Lock()
		delete(srv.conns, s.ID())
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	// Mount to router
	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

type createRoomPayload struct {
	RoomName   string `json:"roomName"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
	Nickname   string `json:"nickname"`
}

func (srv *Server) onCreateRoom(s socketio.Conn, payload createRoomPayload) map[string]any {
	if payload.RoomName == "" || payload.Language == "" || payload.Difficulty == "" || payload.Nickname == "" {
		s.Emit("roomNotCreated", map[string]any{"reason": "missing fields"})
		return map[string]any{"error": "missing fields"}
	}
	if _, err := srv.reg.CreateRoom(payload.RoomName, payload.Language, payload.Difficulty, payload.Nickname); err != nil {
		s.Emit("roomNotCreated", map[string]any{"reason": err.Error()})
		return map[string]any{"error": err.Error()}
	}
	p, err := srv.reg.Join(payload.RoomName, payload.Nickname)
	if err != nil {
		s.Emit("roomNotCreated", map[string]any{"reason": err.Error()})
		return map[string]any{"error": err.Error()}
	}
	// One membership per connection: creating a room while in another
	// leaves the old one first.
	if ctx := connCtx(s); ctx.RoomName != "" {
		srv.leave(s)
	}
	s.SetContext(&ConnCtx{RoomName: payload.RoomName, PlayerID: p.ID, Nickname: p.Nickname})
	s.Join(payload.RoomName)
	srv.addMember(payload.RoomName, s)
	log.Info().Str("sid", s.ID()).Str("room", payload.RoomName).Msg("createRoom")
	s.Emit("roomCreated", map[string]any{"roomName": payload.RoomName, "playerId": p.ID})
	srv.ToRoom(payload.RoomName, game.EventUserList, srv.reg.UserList(payload.RoomName))
	srv.toAll("roomList", srv.reg.List())
	return map[string]any{"roomName": payload.RoomName, "playerId": p.ID}
}

type joinRoomPayload struct {
	RoomName string `json:"roomName"`
	Nickname string `json:"nickname"`
}

func (srv *Server) onJoinRoom(s socketio.Conn, payload joinRoomPayload) map[string]any {
	if payload.RoomName == "" || payload.Nickname == "" {
		s.Emit("errorJoin", map[string]any{"code": "missing_fields", "message": "room name and nickname are required"})
		return map[string]any{"error": "missing fields"}
	}
	p, err := srv.reg.Join(payload.RoomName, payload.Nickname)
	if err != nil {
		s.Emit("errorJoin", map[string]any{"code": errCode(err), "message": err.Error()})
		return map[string]any{"error": err.Error()}
	}
	// One membership per connection: switching rooms leaves the old one.
	// Rejoining the current room keeps it.
	if ctx := connCtx(s); ctx.RoomName != "" && ctx.RoomName != payload.RoomName {
		srv.leave(s)
	}
	s.SetContext(&ConnCtx{RoomName: payload.RoomName, PlayerID: p.ID, Nickname: p.Nickname})
	s.Join(payload.RoomName)
	srv.addMember(payload.RoomName, s)
	log.Info().Str("sid", s.ID()).Str("room", payload.RoomName).Str("nickname", payload.Nickname).Msg("joinRoom")
	s.Emit("joinedRoom", map[string]any{"roomName": payload.RoomName, "playerId": p.ID, "color": p.Color})
	s.Emit(game.EventRoomInfo, srv.reg.RoomInfo(payload.RoomName))
	srv.ToRoom(payload.RoomName, game.EventUserList, srv.reg.UserList(payload.RoomName))
	return map[string]any{"roomName": payload.RoomName, "playerId": p.ID}
}

// leave runs the shared leave/disconnect cleanup path.
func (srv *Server) leave(s socketio.Conn) {
	ctx := connCtx(s)
	if ctx.RoomName == "" {
		return
	}
	roomName, nickname := ctx.RoomName, ctx.Nickname
	srv.removeMember(roomName, s)
	s.SetContext(&ConnCtx{})
	if _, err := srv.reg.RemovePlayer(roomName, ctx.PlayerID); err != nil {
		log.Warn().Err(err).Str("room", roomName).Str("nickname", nickname).Msg("leave cleanup")
		return
	}
	srv.ToRoom(roomName, "userLeft", map[string]any{"nickname": nickname})
	srv.ToRoom(roomName, game.EventUserList, srv.reg.UserList(roomName))
	srv.toAll("roomList", srv.reg.List())
}

func (srv *Server) addMember(room string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[room] == nil {
		srv.members[room] = make(map[string]socketio.Conn)
	}
	srv.members[room][c.ID()] = c
}

func (srv *Server) removeMember(room string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[room]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, room)
		}
	}
}

// dropRoom clears the whole member bucket after a room deletion.
func (srv *Server) dropRoom(room string) {
	srv.mu.Lock()
	conns := srv.members[room]
	delete(srv.members, room)
	srv.mu.Unlock()
	for _, c := range conns {
		c.SetContext(&ConnCtx{})
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func connCtx(s socketio.Conn) *ConnCtx {
	if ctx, ok := s.Context().(*ConnCtx); ok && ctx != nil {
		return ctx
	}
	return &ConnCtx{}
}

// errCode translates registry sentinels into stable wire codes.
func errCode(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomExists):
		return "room_exists"
	case errors.Is(err, game.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, game.ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, game.ErrRoomFull):
		return "room_full"
	case errors.Is(err, game.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, game.ErrTimerActive):
		return "timer_active"
	case errors.Is(err, game.ErrInsufficientPlayers):
		return "insufficient_players"
	case errors.Is(err, game.ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}
