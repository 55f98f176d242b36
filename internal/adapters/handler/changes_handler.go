package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AchilleasB/campus-portal/directory-service/internal/core/ports"
)

const writeWait = 10 * time.Second

// ChangesHandler streams directory change events to browser tabs so they can
// refresh the affected screen.
type ChangesHandler struct {
	notifier ports.ChangeNotifier
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewChangesHandler(notifier ports.ChangeNotifier, allowedOrigins []string, logger *zap.Logger) *ChangesHandler {
	return &ChangesHandler{
		notifier: notifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *ChangesHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	events := h.notifier.Subscribe(ctx)

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}

// originAllowed accepts requests without an Origin header (non-browser
// clients) and any origin on the list. "*" allows everything.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
