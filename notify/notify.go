package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"carelink/config"
)

const (
	EventTypeInvitationReceived    = "invitation_received"
	EventTypeInvitationAccepted    = "invitation_accepted"
	EventTypeInvitationRejected    = "invitation_rejected"
	EventTypeConnectionSuspended   = "connection_suspended"
	EventTypeConnectionReactivated = "connection_reactivated"
	EventTypeConnectionRemoved     = "connection_removed"
)

var httpClient = http.Client{}

type Notification struct {
	Type       string            `json:"type"`
	UserTokens []string          `json:"user_tokens" binding:"required"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data"`
}

func (notification *Notification) SendTo(userTokens []string) error {
	notification.UserTokens = userTokens
	return notification.Send()
}

// Send is fire-and-forget from the caller's perspective: a failure here is
// logged and reported but must never roll back an already-committed state
// transition.
func (notification *Notification) Send() error {
	buf := bytes.Buffer{}
	json.NewEncoder(&buf).Encode(*notification)
	resp, err := httpClient.Post(config.NOTIFY_SERVER+"/send", "application/json", &buf)
	if err != nil {
		log.Printf("SendNotification, error: %v", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		buf.Reset()
		io.Copy(&buf, resp.Body)
		log.Printf("SendNotification error, status: %d, %s", resp.StatusCode, buf.String())
		return fmt.Errorf("status: %d", resp.StatusCode)
	}
	return nil
}
