package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"herobyte/internal/protocol"
	"herobyte/internal/registry"
	"herobyte/internal/room"
)

type client struct {
	conn *websocket.Conn
	out  chan []byte
	uid  string
	name string
}

// handleWebsocket upgrades /ws/rooms/{roomId}?uid=&name=&role= and runs the
// session loop: validate, dispatch, broadcast, persist.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	parts := strings.Split(path, "/")
	var roomID string
	if len(parts) >= 3 && parts[0] == "ws" && parts[1] == "rooms" && parts[2] != "" {
		roomID = parts[2]
	}
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		http.Error(w, "missing uid", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Adventurer"
	}
	// Role is asserted upstream; the server trusts the oracle's answer.
	isDM := strings.EqualFold(r.URL.Query().Get("role"), "dm")

	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.matchOrigin(origin) != ""
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	rm := s.registry.Room(roomID)
	c := &client{conn: conn, out: make(chan []byte, 16), uid: uid, name: name}

	s.register(roomID, c)
	defer s.unregister(roomID, c)

	rm.JoinPlayer(uid, name, isDM)
	s.broadcast(roomID, rm)
	rm.SaveState()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-c.out:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetPongHandler(func(string) error {
		rm.Heartbeat(uid)
		return nil
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			cancel()
			break
		}
		rm.Heartbeat(uid)

		var env protocol.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			s.logger.Warn("malformed message", slog.String("room", roomID), slog.String("uid", uid))
			continue
		}
		if err := protocol.Validate(env.Type, env.Payload); err != nil {
			s.logger.Warn("rejected message", slog.String("room", roomID), slog.String("uid", uid), slog.String("error", err.Error()))
			continue
		}

		if s.dispatch(rm, uid, env) {
			s.broadcast(roomID, rm)
			rm.SaveState()
		}
	}

	rm.LeavePlayer(uid)
	s.broadcast(roomID, rm)
	rm.SaveState()
}

// dispatch routes a validated message to its domain operation and reports
// whether the room state changed.
func (s *Server) dispatch(rm *registry.Room, uid string, env protocol.Envelope) bool {
	switch env.Type {
	case protocol.TypeTransform:
		var p protocol.TransformPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		return rm.ApplyTransform(p.ObjectID, uid, p.Changes)
	case protocol.TypeLock:
		var p protocol.LockPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		return rm.LockObjects(uid, p.ObjectIDs) > 0
	case protocol.TypeUnlock:
		var p protocol.LockPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		return rm.UnlockObjects(uid, p.ObjectIDs) > 0
	case protocol.TypePointer:
		var p protocol.PointerPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		rm.SetPointer(uid, p.X, p.Y)
		return true
	case protocol.TypeDiceRoll:
		var p protocol.DiceRollPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		rm.Roll(uid, p.Count, p.Sides, p.Seed)
		return true
	case protocol.TypeTurnNext:
		return rm.NextTurn()
	case protocol.TypeTurnPrev:
		return rm.PreviousTurn()
	case protocol.TypeSetInitiative:
		var p protocol.SetInitiativePayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		return rm.SetInitiative(uid, p.CharacterID, p.Initiative, p.Modifier)
	case protocol.TypeSetState:
		var p registry.Patch
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		return rm.SetState(uid, p)
	case protocol.TypeSelection:
		var p protocol.SelectionPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return false
		}
		rm.SetSelection(uid, room.Selection{Mode: p.Mode, ObjectID: p.ObjectID, ObjectIDs: p.ObjectIDs})
		return true
	case protocol.TypeUndo:
		return rm.Undo(uid)
	case protocol.TypeRedo:
		return rm.Redo(uid)
	case protocol.TypeLoadSession:
		var snap room.Snapshot
		if json.Unmarshal(env.Payload, &snap) != nil {
			return false
		}
		return rm.LoadSnapshot(uid, snap)
	case protocol.TypeHeartbeat:
		return false
	default:
		return false
	}
}

func (s *Server) register(roomID string, c *client) {
	s.wsMu.Lock()
	if s.wsRooms[roomID] == nil {
		s.wsRooms[roomID] = make(map[*client]struct{})
	}
	s.wsRooms[roomID][c] = struct{}{}
	peers := len(s.wsRooms[roomID])
	s.wsMu.Unlock()

	s.logger.Info("ws connected", slog.String("room", roomID), slog.String("uid", c.uid), slog.Int("peers", peers))
}

func (s *Server) unregister(roomID string, c *client) {
	s.wsMu.Lock()
	peers := s.wsRooms[roomID]
	if peers != nil {
		delete(peers, c)
		if len(peers) == 0 {
			delete(s.wsRooms, roomID)
		}
	}
	remaining := len(peers)
	s.wsMu.Unlock()

	s.logger.Info("ws disconnected", slog.String("room", roomID), slog.String("uid", c.uid), slog.Int("peers", remaining))
}

// broadcast sends each connected client its own projection of the room.
func (s *Server) broadcast(roomID string, rm *registry.Room) {
	s.wsMu.Lock()
	peers := s.wsRooms[roomID]
	clients := make([]*client, 0, len(peers))
	for c := range peers {
		clients = append(clients, c)
	}
	s.wsMu.Unlock()

	for _, c := range clients {
		snap := rm.CreateSnapshot(c.uid)
		payload, err := json.Marshal(snap)
		if err != nil {
			s.logger.Error("marshal snapshot", slog.String("error", err.Error()))
			continue
		}
		data, err := json.Marshal(protocol.Envelope{Type: protocol.TypeSnapshot, Payload: payload})
		if err != nil {
			s.logger.Error("marshal envelope", slog.String("error", err.Error()))
			continue
		}
		select {
		case c.out <- data:
		default:
			// Slow consumer; drop this frame, the next broadcast supersedes it.
		}
	}
}
