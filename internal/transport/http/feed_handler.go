package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"space-quiz-bot/internal/app"
	"space-quiz-bot/internal/domain"
)

// FeedHandler streams leaderboard snapshots to websocket subscribers.
// The feed is read-only: every accepted personal best pushes the current
// top rows to each connected client.
type FeedHandler struct {
	engine   *app.QuizService
	upgrader websocket.Upgrader
}

func NewFeedHandler(engine *app.QuizService) *FeedHandler {
	return &FeedHandler{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type feedMessage struct {
	Type    string               `json:"type"`
	Entries []domain.RankedEntry `json:"entries"`
}

// ServeWS upgrades the request and forwards leaderboard updates until the
// client disconnects.
func (h *FeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.engine.Subscribe(r.Context())
	if err != nil {
		log.Printf("feed subscribe failed: %v", err)
		return
	}
	defer cancel()

	done := make(chan struct{})

	// Reader goroutine: the feed takes no input, but reading is what
	// detects a dropped client.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(feedMessage{Type: "leaderboard", Entries: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
