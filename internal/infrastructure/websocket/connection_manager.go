package websocket

import (
	"encoding/json"
	"sync"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// AuctionConnectionManager tracks websocket subscribers per auction group,
// mirroring the per-auction channel model of the event stream. One connection
// per user per auction.
type AuctionConnectionManager struct {
	groups map[string]map[string]domain.SubscriberConnection // auctionID -> userID -> connection
	mutex  sync.RWMutex
	log    logger.Logger
}

func NewAuctionConnectionManager(log logger.Logger) *AuctionConnectionManager {
	return &AuctionConnectionManager{
		groups: make(map[string]map[string]domain.SubscriberConnection),
		log:    log,
	}
}

func (cm *AuctionConnectionManager) Register(userID, auctionID string, conn domain.SubscriberConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.groups[auctionID] == nil {
		cm.groups[auctionID] = make(map[string]domain.SubscriberConnection)
	}
	cm.groups[auctionID][userID] = conn

	cm.log.Info("Connection registered", "user_id", userID, "auction_id", auctionID)
	return nil
}

func (cm *AuctionConnectionManager) Unregister(userID, auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if group, exists := cm.groups[auctionID]; exists {
		delete(group, userID)
		if len(group) == 0 {
			delete(cm.groups, auctionID)
		}
	}

	cm.log.Info("Connection unregistered", "user_id", userID, "auction_id", auctionID)
	return nil
}

func (cm *AuctionConnectionManager) BroadcastToAuction(auctionID string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range cm.connectionsFor(auctionID) {
		if err := conn.Send(messageBytes); err != nil {
			cm.log.Error("Failed to send message", "user_id", conn.UserID(),
				"auction_id", auctionID, "error", err)
			// Continue to other connections
		}
	}

	return nil
}

// CloseAuction drops every subscriber of a finished auction.
func (cm *AuctionConnectionManager) CloseAuction(auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	group, exists := cm.groups[auctionID]
	if !exists {
		return nil
	}

	for userID, conn := range group {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "user_id", userID,
				"auction_id", auctionID, "error", err)
		}
	}
	delete(cm.groups, auctionID)

	cm.log.Info("Connections closed for auction", "auction_id", auctionID)
	return nil
}

func (cm *AuctionConnectionManager) connectionsFor(auctionID string) []domain.SubscriberConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var connections []domain.SubscriberConnection
	for _, conn := range cm.groups[auctionID] {
		connections = append(connections, conn)
	}
	return connections
}
