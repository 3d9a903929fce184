package notify

import (
	"errors"
	"log"
	"strconv"

	"carelink/config"
	"carelink/db"
	"carelink/models"
)

var ErrNoRecipient = errors.New("no reachable recipient")

// InvitationReceived tells the invited provider about a fresh invitation.
// The returned error lets the caller flag the invitation as delivery_failed.
func InvitationReceived(inv *models.Invitation) error {
	if config.NOTIFY_SERVER == "" {
		return nil
	}
	org := models.Organization{ID: inv.OrganizationID}
	if err := db.Instance.First(&org).Error; err != nil {
		log.Printf("InvitationReceived DB error: %v", err)
		return err
	}
	token, err := providerPushToken(inv)
	if err != nil {
		return err
	}
	notification := Notification{
		Type:  EventTypeInvitationReceived,
		Title: org.Name,
		Body:  "invited you to join their provider network",
		Data: map[string]string{
			"invitation": strconv.FormatUint(inv.ID, 10),
			"link":       config.BASE_URL + "/w/invite/" + inv.Token + "/",
		},
	}
	return notification.SendTo([]string{token})
}

// InvitationResponded tells the inviting organization's network managers the
// provider's decision.
func InvitationResponded(inv *models.Invitation) {
	if config.NOTIFY_SERVER == "" {
		return
	}
	eventType := EventTypeInvitationAccepted
	body := "accepted your invitation"
	if inv.Status == models.InvitationRejected {
		eventType = EventTypeInvitationRejected
		body = "declined your invitation"
	}
	notification := Notification{
		Type:  eventType,
		Title: invitedProviderName(inv),
		Body:  body,
		Data: map[string]string{
			"invitation": strconv.FormatUint(inv.ID, 10),
		},
	}
	tokens := organizationPushTokens(inv.OrganizationID)
	if len(tokens) == 0 {
		return
	}
	if err := notification.SendTo(tokens); err != nil {
		log.Printf("InvitationResponded notify error: %v", err)
	}
}

// ConnectionChanged announces suspend/reactivate/remove to the provider side.
func ConnectionChanged(conn *models.Connection, eventType string) {
	if config.NOTIFY_SERVER == "" {
		return
	}
	org := models.Organization{ID: conn.OrganizationID}
	if err := db.Instance.First(&org).Error; err != nil {
		log.Printf("ConnectionChanged DB error: %v", err)
		return
	}
	provider := models.Provider{ID: conn.ProviderID}
	if err := db.Instance.Preload("User").First(&provider).Error; err != nil {
		log.Printf("ConnectionChanged DB error: %v", err)
		return
	}
	if provider.User.PushToken == "" {
		return
	}
	body := "suspended your connection"
	switch eventType {
	case EventTypeConnectionReactivated:
		body = "reactivated your connection"
	case EventTypeConnectionRemoved:
		body = "removed your connection"
	}
	notification := Notification{
		Type:  eventType,
		Title: org.Name,
		Body:  body,
		Data: map[string]string{
			"connection": strconv.FormatUint(conn.ID, 10),
		},
	}
	if err := notification.SendTo([]string{provider.User.PushToken}); err != nil {
		log.Printf("ConnectionChanged notify error: %v", err)
	}
}

func providerPushToken(inv *models.Invitation) (string, error) {
	var user models.User
	if inv.ProviderID != nil {
		provider := models.Provider{ID: *inv.ProviderID}
		if err := db.Instance.Preload("User").First(&provider).Error; err != nil {
			return "", err
		}
		user = provider.User
	} else if inv.Email != "" {
		if err := db.Instance.First(&user, "email = ?", inv.Email).Error; err != nil {
			return "", ErrNoRecipient
		}
	}
	if user.PushToken == "" {
		return "", ErrNoRecipient
	}
	return user.PushToken, nil
}

func invitedProviderName(inv *models.Invitation) string {
	if inv.ProviderID != nil {
		provider := models.Provider{ID: *inv.ProviderID}
		if db.Instance.First(&provider).Error == nil {
			return provider.FullName
		}
	}
	if inv.Email != "" {
		return inv.Email
	}
	return "A provider"
}

func organizationPushTokens(orgID uint64) []string {
	users := []models.User{}
	if err := db.Instance.Where("organization_id = ? AND push_token != ''", orgID).Find(&users).Error; err != nil {
		log.Printf("organizationPushTokens DB error: %v", err)
		return nil
	}
	tokens := []string{}
	for _, u := range users {
		tokens = append(tokens, u.PushToken)
	}
	return tokens
}
