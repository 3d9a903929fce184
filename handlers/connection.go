package handlers

import (
	"net/http"

	"carelink/models"
	"carelink/notify"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type ConnectionActionRequest struct {
	ID uint64 `form:"id" binding:"required"`
}

// canManageConnection allows the owning organization's network managers and
// the connected provider; everyone else fails closed.
func canManageConnection(user *models.User, conn *models.Connection) bool {
	if user.OrganizationID != nil && *user.OrganizationID == conn.OrganizationID {
		return user.HasPermission(models.PermissionAdmin) || user.HasPermission(models.PermissionManageNetwork)
	}
	provider, err := models.ProviderByUserID(user.ID)
	return err == nil && provider.ID == conn.ProviderID
}

func connectionAction(c *gin.Context, user *models.User, newStatus models.ConnectionStatus, eventType string) {
	postReq := ConnectionActionRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conn, err := models.ConnectionByID(postReq.ID)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	if !canManageConnection(user, &conn) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	conn, err = models.UpdateConnectionStatus(postReq.ID, newStatus)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	notify.ConnectionChanged(&conn, eventType)
	BroadcastToOrganization(conn.OrganizationID, WSEvent{Type: WSEventConnection, ID: conn.ID})
	BroadcastToProvider(conn.ProviderID, WSEvent{Type: WSEventConnection, ID: conn.ID})
	c.JSON(http.StatusOK, conn)
}

// ConnectionSuspend pauses an accepted connection: the provider can no longer
// be scheduled against by the organization until reactivated.
func ConnectionSuspend(c *gin.Context, user *models.User) {
	connectionAction(c, user, models.ConnectionSuspended, notify.EventTypeConnectionSuspended)
}

func ConnectionReactivate(c *gin.Context, user *models.User) {
	connectionAction(c, user, models.ConnectionAccepted, notify.EventTypeConnectionReactivated)
}

// ConnectionDelete severs the relationship for good; reconnecting takes a
// brand-new invitation through the full accept flow.
func ConnectionDelete(c *gin.Context, user *models.User) {
	postReq := ConnectionActionRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conn, err := models.ConnectionByID(postReq.ID)
	if err != nil {
		LifecycleError(c, err)
		return
	}
	if !canManageConnection(user, &conn) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	if err := models.DeleteConnection(postReq.ID); err != nil {
		LifecycleError(c, err)
		return
	}
	notify.ConnectionChanged(&conn, notify.EventTypeConnectionRemoved)
	BroadcastToOrganization(conn.OrganizationID, WSEvent{Type: WSEventConnection, ID: conn.ID})
	c.JSON(http.StatusOK, OKResponse)
}

func ConnectionList(c *gin.Context, user *models.User) {
	var status *models.ConnectionStatus
	if v := c.Query("status"); v != "" {
		s := models.ConnectionStatus(v)
		status = &s
	}
	var (
		connections []models.Connection
		err         error
	)
	if user.OrganizationID != nil {
		connections, err = models.ListOrganizationConnections(*user.OrganizationID, status)
	} else {
		provider, perr := models.ProviderByUserID(user.ID)
		if perr != nil {
			c.JSON(http.StatusOK, []models.Connection{})
			return
		}
		connections, err = models.ListProviderConnections(provider.ID, status)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, connections)
}
