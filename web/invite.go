package web

import (
	"net/http"
	"time"

	"carelink/auth"
	"carelink/handlers"
	"carelink/models"
	"carelink/notify"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type inviteRespondRequest struct {
	Action          string `form:"action" binding:"required,oneof=accept reject"`
	RejectionReason string `form:"rejection_reason"`
}

// InviteView is the public page behind the link a provider receives. The
// token is the only credential; the page shows who is inviting and whether
// the invitation is still actionable.
func InviteView(c *gin.Context) {
	inv, err := models.InvitationByToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, handlers.Response{Error: "invitation not found"})
		return
	}
	view := gin.H{
		"organization": inv.Organization.Name,
		"about":        inv.Organization.About,
		"message":      inv.Message,
		"status":       string(inv.Status),
		"actionable":   inv.IsActionable(models.TimeNow()),
		"expires":      time.Unix(inv.ExpiresAt, 0).Format("2 Jan 2006"),
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, view)
		return
	}
	c.HTML(http.StatusOK, "invite_view.tmpl", view)
}

// InviteRespond applies the provider's accept/reject decision. A logged-in
// session attaches the responder to e-mail-addressed invitations; without one
// the invitation must already name its provider.
func InviteRespond(c *gin.Context) {
	postReq := inviteRespondRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	responderID := auth.LoadSession(c).UserID()
	inv, conn, err := models.RespondToInvitation(c.Param("token"), postReq.Action, postReq.RejectionReason, responderID)
	if err != nil {
		handlers.LifecycleError(c, err)
		return
	}
	notify.InvitationResponded(&inv)
	handlers.BroadcastToOrganization(inv.OrganizationID, handlers.WSEvent{Type: handlers.WSEventInvitation, ID: inv.ID})
	result := gin.H{"error": "", "status": string(inv.Status)}
	if conn != nil {
		result["connection"] = conn.ID
	}
	c.JSON(http.StatusOK, result)
}

func DisallowRobots(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}
