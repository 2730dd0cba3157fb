package websocket

import (
	"net/http"
	"sync"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// GatewayHandler upgrades clients into an auction's subscriber group. The
// gateway is receive-only from the client's perspective: bids go through the
// REST API, events come back over the socket.
type GatewayHandler struct {
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewGatewayHandler(connManager domain.ConnectionManager, log logger.Logger) *GatewayHandler {
	return &GatewayHandler{
		connManager: connManager,
		log:         log,
	}
}

func (h *GatewayHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["auctionID"]

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	subscriber := NewSubscriberConnection(conn, userID, auctionID)

	if err := h.connManager.Register(userID, auctionID, subscriber); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.readLoop(subscriber, userID, auctionID)
}

// readLoop drains client frames (pings, eventual close) so the connection's
// close is noticed and the subscriber unregistered.
func (h *GatewayHandler) readLoop(conn *SubscriberConn, userID, auctionID string) {
	defer func() {
		h.connManager.Unregister(userID, auctionID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			conn.Send([]byte(`{"type":"pong"}`))
		}
	}
}

type SubscriberConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	userID    string
	auctionID string
}

func NewSubscriberConnection(conn *websocket.Conn, userID, auctionID string) *SubscriberConn {
	return &SubscriberConn{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
	}
}

func (sc *SubscriberConn) Send(message interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	if raw, ok := message.([]byte); ok {
		return sc.conn.WriteMessage(websocket.TextMessage, raw)
	}
	return sc.conn.WriteJSON(message)
}

func (sc *SubscriberConn) Close() error {
	return sc.conn.Close()
}

func (sc *SubscriberConn) UserID() string {
	return sc.userID
}

func (sc *SubscriberConn) AuctionID() string {
	return sc.auctionID
}
