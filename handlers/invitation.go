package handlers

import (
	"errors"
	"log"
	"net/http"

	"carelink/models"
	"carelink/notify"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type InvitationCreateRequest struct {
	ProviderID *uint64 `form:"provider_id"`
	Email      string  `form:"email"`
	Message    string  `form:"message"`
}

type InvitationActionRequest struct {
	ID uint64 `form:"id" binding:"required"`
}

type InvitationRespondRequest struct {
	Token           string `form:"token" binding:"required"`
	Action          string `form:"action" binding:"required,oneof=accept reject"`
	RejectionReason string `form:"rejection_reason"`
}

type InvitationInfo struct {
	ID              uint64  `json:"id"`
	Token           string  `json:"token,omitempty"`
	OrganizationID  uint64  `json:"organization_id"`
	ProviderID      *uint64 `json:"provider_id,omitempty"`
	Email           string  `json:"email,omitempty"`
	Message         string  `json:"message,omitempty"`
	Status          string  `json:"status"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedAt       int64   `json:"created_at"`
	ExpiresAt       int64   `json:"expires_at"`
}

func invitationInfo(inv *models.Invitation) InvitationInfo {
	return InvitationInfo{
		ID:              inv.ID,
		Token:           inv.Token,
		OrganizationID:  inv.OrganizationID,
		ProviderID:      inv.ProviderID,
		Email:           inv.Email,
		Message:         inv.Message,
		Status:          string(inv.EffectiveStatus(models.TimeNow())),
		RejectionReason: inv.RejectionReason,
		CreatedAt:       inv.CreatedAt,
		ExpiresAt:       inv.ExpiresAt,
	}
}

// notifyInvited pushes the invite notification. An invitee with no reachable
// device is not a delivery failure - the token link still delivers - so the
// invitation stays pending; only a transport error flips it to
// delivery_failed.
func notifyInvited(inv *models.Invitation) {
	err := notify.InvitationReceived(inv)
	if err == nil {
		return
	}
	if errors.Is(err, notify.ErrNoRecipient) {
		log.Printf("Invitation %d has no notifiable recipient, token link only", inv.ID)
		return
	}
	if err := models.MarkInvitationDeliveryFailed(inv.ID); err == nil {
		inv.Status = models.InvitationDeliveryFailed
	}
}

// InvitationCreate issues an invitation from the user's organization to a
// provider (by ID) or an e-mail address. A notification delivery failure is
// recorded on the invitation but does not undo its creation.
func InvitationCreate(c *gin.Context, user *models.User) {
	if user.OrganizationID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	postReq := InvitationCreateRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if postReq.ProviderID == nil && postReq.Email == "" {
		c.JSON(http.StatusBadRequest, Response{"provider_id or email is required"})
		return
	}
	inv, err := models.CreateInvitation(*user.OrganizationID, postReq.ProviderID, postReq.Email, postReq.Message, user.ID)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	notifyInvited(&inv)
	if inv.ProviderID != nil {
		BroadcastToProvider(*inv.ProviderID, WSEvent{Type: WSEventInvitation, ID: inv.ID})
	}
	c.JSON(http.StatusOK, invitationInfo(&inv))
}

func InvitationCancel(c *gin.Context, user *models.User) {
	postReq := InvitationActionRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, err := models.InvitationByID(postReq.ID)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	if user.OrganizationID == nil || inv.OrganizationID != *user.OrganizationID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	inv, err = models.CancelInvitation(postReq.ID)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitationInfo(&inv))
}

// InvitationResend issues a fresh invitation for the same provider once the
// previous one lapsed - the remedy for expired or undelivered invites.
func InvitationResend(c *gin.Context, user *models.User) {
	postReq := InvitationActionRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if user.OrganizationID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	inv, err := models.ResendInvitation(postReq.ID, *user.OrganizationID, user.ID)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	notifyInvited(&inv)
	c.JSON(http.StatusOK, invitationInfo(&inv))
}

// InvitationRespond is the authenticated provider-side accept/reject.
func InvitationRespond(c *gin.Context, user *models.User) {
	postReq := InvitationRespondRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inv, conn, err := models.RespondToInvitation(postReq.Token, postReq.Action, postReq.RejectionReason, user.ID)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	notify.InvitationResponded(&inv)
	BroadcastToOrganization(inv.OrganizationID, WSEvent{Type: WSEventInvitation, ID: inv.ID})
	result := gin.H{"error": "", "invitation": invitationInfo(&inv)}
	if conn != nil {
		result["connection"] = conn
	}
	c.JSON(http.StatusOK, result)
}

// InvitationList returns the caller's view: the organization's outbound
// invitations for staff, the inbound ones for providers. The optional status
// filter is matched against the effective (lazily expired) status.
func InvitationList(c *gin.Context, user *models.User) {
	var status *models.InvitationStatus
	if v := c.Query("status"); v != "" {
		s := models.InvitationStatus(v)
		status = &s
	}
	var (
		invitations []models.Invitation
		err         error
	)
	if user.OrganizationID != nil {
		invitations, err = models.ListOrganizationInvitations(*user.OrganizationID, status)
	} else {
		provider, perr := models.ProviderByUserID(user.ID)
		if perr != nil {
			c.JSON(http.StatusOK, []InvitationInfo{})
			return
		}
		invitations, err = models.ListProviderInvitations(provider.ID, user.Email, status)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	result := []InvitationInfo{}
	for i := range invitations {
		info := invitationInfo(&invitations[i])
		if user.OrganizationID != nil {
			// Only the invited provider acts through the token
			info.Token = ""
		}
		result = append(result, info)
	}
	c.JSON(http.StatusOK, result)
}

// InvitationPendingCount feeds the dashboard badge using the same actionable
// predicate as the pending listing.
func InvitationPendingCount(c *gin.Context, user *models.User) {
	if user.OrganizationID == nil {
		c.JSON(http.StatusOK, gin.H{"error": "", "count": 0})
		return
	}
	count, err := models.PendingInvitationCount(*user.OrganizationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "count": count})
}
