package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64

	maxTimePerQuestion = time.Hour
)

type WSHandler struct {
	service  *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    domain.EventType `json:"type"`
	Payload T                `json:"payload"`
}

type joinPayload struct {
	RoomCode    string `json:"roomCode"`
	DisplayName string `json:"displayName"`
}

type ownerPayload struct {
	RoomCode   string `json:"roomCode"`
	OwnerToken string `json:"ownerToken"`
}

type startPayload struct {
	RoomCode        string            `json:"roomCode"`
	OwnerToken      string            `json:"ownerToken"`
	TimePerQuestion int               `json:"timePerQuestion"` // seconds
	QuizID          string            `json:"quizId"`
	Questions       []domain.Question `json:"questions"`
}

type answerPayload struct {
	RoomCode      string `json:"roomCode"`
	QuestionIndex *int   `json:"questionIndex"`
	OptionIndex   *int   `json:"optionIndex"`
}

type joinedPayload struct {
	ConnectionID string               `json:"connectionId"`
	RoomCode     string               `json:"roomCode"`
	IsOwner      bool                 `json:"isOwner"`
	OwnerToken   string               `json:"ownerToken,omitempty"`
	Players      []domain.PlayerEntry `json:"players"`
	PlayerCount  int                  `json:"playerCount"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// connection is the server side of one socket. Room events and private replies
// both funnel into send, which only the writer goroutine drains.
type connection struct {
	id      string
	send    chan outboundMessage[any]
	closing chan struct{}
	written chan struct{}
	pumps   sync.WaitGroup
}

func (c *connection) reply(msgType domain.EventType, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: msgType, Payload: payload}:
	case <-c.written:
	}
}

func (c *connection) fail(message string) {
	c.reply(domain.EventError, errorPayload{Message: message})
}

// pump forwards one room's broadcasts until the room closes the channel.
func (c *connection) pump(events <-chan domain.Event) {
	c.pumps.Add(1)
	go func() {
		defer c.pumps.Done()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case c.send <- outboundMessage[any]{Type: event.Type, Payload: event.Payload}:
				case <-c.closing:
					return
				case <-c.written:
					return
				}
			case <-c.closing:
				return
			}
		}
	}()
}

// ServeWS upgrades HTTP requests to websockets and wires them into the room use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &connection{
		id:      uuid.NewString(),
		send:    make(chan outboundMessage[any], sendBuffer),
		closing: make(chan struct{}),
		written: make(chan struct{}),
	}
	ctx := r.Context()

	go h.write(conn, c)

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error: %v", err)
			}
			break
		}
		h.dispatch(ctx, c, inbound)
	}

	// Disconnect is the only cancellation signal: leave synchronously so the
	// room sees the departure before this handler returns.
	close(c.closing)
	h.service.Leave(context.Background(), c.id)
	c.pumps.Wait()
	close(c.send)
	<-c.written
}

func (h *WSHandler) write(conn *websocket.Conn, c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.written)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, c *connection, inbound inboundMessage) {
	switch inbound.Type {
	case domain.EventJoinGame:
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail("invalid join payload")
			return
		}
		joined, err := h.service.Join(ctx, payload.RoomCode, c.id, payload.DisplayName)
		if err != nil {
			c.fail(err.Error())
			return
		}
		if !joined.Rejoined {
			c.pump(joined.Events)
		}
		c.reply(domain.EventJoined, joinedPayload{
			ConnectionID: joined.ConnectionID,
			RoomCode:     joined.RoomCode,
			IsOwner:      joined.IsOwner,
			OwnerToken:   joined.OwnerToken,
			Players:      joined.Roster.Players,
			PlayerCount:  joined.Roster.PlayerCount,
		})

	case domain.EventLeaveGame:
		h.service.Leave(ctx, c.id)

	case domain.EventStartGame:
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail("invalid start payload")
			return
		}
		_, err := h.service.Start(ctx, app.StartRequest{
			RoomCode:        payload.RoomCode,
			OwnerToken:      payload.OwnerToken,
			QuizID:          payload.QuizID,
			Questions:       payload.Questions,
			TimePerQuestion: questionDuration(payload.TimePerQuestion),
		})
		if err != nil {
			c.fail(err.Error())
		}

	case domain.EventSendQuestion, domain.EventRevealAnswer, domain.EventNextQuestion, domain.EventQuizComplete:
		var payload ownerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.fail("invalid payload")
			return
		}
		if err := h.instructorAction(ctx, inbound.Type, payload); err != nil {
			c.fail(err.Error())
		}

	case domain.EventSubmitAnswer:
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.OptionIndex == nil {
			c.fail("invalid answer payload")
			return
		}
		if payload.RoomCode == "" {
			payload.RoomCode, _ = h.service.RoomOf(c.id)
		}
		result, err := h.service.SubmitAnswer(ctx, payload.RoomCode, c.id, app.Submission{
			QuestionIndex: payload.QuestionIndex,
			OptionIndex:   *payload.OptionIndex,
		})
		switch {
		case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrParticipantNotFound):
			// Submissions from connections that are no longer in the room are dropped.
			log.Printf("dropped answer from %s for room %s: %v", c.id, payload.RoomCode, err)
		case err != nil:
			c.fail(err.Error())
		default:
			c.reply(domain.EventAnswerResult, result)
		}

	case domain.EventPing:
		c.reply(domain.EventPong, nil)

	default:
		c.fail("unsupported message type")
	}
}

func (h *WSHandler) instructorAction(ctx context.Context, action domain.EventType, payload ownerPayload) error {
	var err error
	switch action {
	case domain.EventSendQuestion:
		_, err = h.service.ResendQuestion(ctx, payload.RoomCode, payload.OwnerToken)
	case domain.EventRevealAnswer:
		_, err = h.service.Reveal(ctx, payload.RoomCode, payload.OwnerToken)
	case domain.EventNextQuestion:
		_, err = h.service.Advance(ctx, payload.RoomCode, payload.OwnerToken)
	case domain.EventQuizComplete:
		_, err = h.service.Complete(ctx, payload.RoomCode, payload.OwnerToken)
	}
	return err
}

// questionDuration converts the wire seconds, capping absurd values before they can overflow.
func questionDuration(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	if time.Duration(seconds) > maxTimePerQuestion/time.Second {
		return maxTimePerQuestion
	}
	return time.Duration(seconds) * time.Second
}
