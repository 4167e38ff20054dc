package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"archdiagram/app/usecase"
	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/intent"
	"archdiagram/internal/infrastructure/metrics"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
	chatWSReadLimit = 64 << 10
)

const (
	frameWelcome = "welcome"
	frameStatus  = "status"
	frameText    = "text"
	frameDiagram = "diagram"
	frameError   = "error"
)

type chatInbound struct {
	Message string `json:"message"`
}

type chatOutbound struct {
	Type          string                `json:"type"`
	Message       string                `json:"message"`
	DiagramID     string                `json:"diagram_id,omitempty"`
	ImageURL      string                `json:"image_url,omitempty"`
	Specification *entity.Specification `json:"specification,omitempty"`
}

// GET /api/v1/ws/chat
// Every inbound message is handled on its own goroutine; replies may
// therefore arrive out of order when several are in flight.
func (h *DiagramHandler) handleChatSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	logger := h.logger.With("session_id", sessionID)
	metrics.IncChatSessions()
	logger.Info("chat session started", "remote", r.RemoteAddr)
	defer func() {
		metrics.DecChatSessions()
		logger.Info("chat session ended")
	}()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	conn.SetReadLimit(chatWSReadLimit)
	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		logger.Warn("chat ws set read deadline failed", "err", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	pushChatWS(writeCh, chatOutbound{Type: frameWelcome, Message: entity.WelcomeMessage})

	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		<-writerDone
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("chat session read failed", "err", err)
			}
			return
		}
		message := inboundText(data)
		if message == "" {
			pushChatWS(writeCh, chatOutbound{Type: frameError, Message: "message is required"})
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			h.answer(ctx, message, writeCh)
		}()
	}
}

// answer routes one chat message either to diagram generation or to the
// conversational model.
func (h *DiagramHandler) answer(ctx context.Context, message string, writeCh chan chatOutbound) {
	ctx, cancel := context.WithTimeout(ctx, h.requestTimeout)
	defer cancel()

	if intent.Classify(message) != intent.DiagramRequest {
		pushChatWS(writeCh, chatOutbound{Type: frameText, Message: h.chat.Converse(ctx, message)})
		return
	}

	pushChatWS(writeCh, chatOutbound{Type: frameStatus, Message: "Generating your diagram..."})
	res := h.diagrams.GenerateFromDescription(ctx, message)
	if !res.Success {
		h.logger.Warn("chat generation failed", "err", res.Err)
		pushChatWS(writeCh, chatOutbound{
			Type:    frameError,
			Message: "Sorry, I couldn't generate that diagram: " + usecase.PublicMessage(res.Err),
		})
		return
	}

	msg := res.Message
	if res.ImageURL == "" {
		msg += ", but the image could not be rendered"
	}
	pushChatWS(writeCh, chatOutbound{
		Type:          frameDiagram,
		Message:       msg,
		DiagramID:     res.DiagramID,
		ImageURL:      res.ImageURL,
		Specification: res.Specification,
	})
}

// inboundText accepts either {"message": "..."} or a bare text frame.
func inboundText(data []byte) string {
	var in chatInbound
	if err := json.Unmarshal(data, &in); err == nil {
		return strings.TrimSpace(in.Message)
	}
	return strings.TrimSpace(string(data))
}

// pushChatWS never blocks: when the buffer is full the oldest frame is dropped.
func pushChatWS(writeCh chan chatOutbound, out chatOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
