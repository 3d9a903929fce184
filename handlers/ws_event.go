package handlers

import (
	"encoding/json"
	"log"

	"carelink/db"
	"carelink/models"
)

type WSEventType string

const (
	WSEventInvitation WSEventType = "invitation"
	WSEventConnection WSEventType = "connection"
)

// WSEvent tells a connected dashboard that a record changed; clients re-fetch
// the listing rather than trusting a pushed snapshot.
type WSEvent struct {
	Type WSEventType `json:"type"`
	ID   uint64      `json:"id"`
}

func broadcastToUser(userID uint64, event WSEvent) {
	clients, ok := ConnectedUsers.Get(userSocketID(userID))
	if !ok {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	for _, client := range clients {
		client.fun(data)
	}
}

func BroadcastToProvider(providerID uint64, event WSEvent) {
	provider := models.Provider{ID: providerID}
	if err := db.Instance.First(&provider).Error; err != nil {
		return
	}
	broadcastToUser(provider.UserID, event)
}

func BroadcastToOrganization(orgID uint64, event WSEvent) {
	ids := []uint64{}
	if err := db.Instance.Table("users").Where("organization_id = ?", orgID).
		Pluck("id", &ids).Error; err != nil {
		log.Printf("BroadcastToOrganization DB error: %v", err)
		return
	}
	for _, id := range ids {
		broadcastToUser(id, event)
	}
}
