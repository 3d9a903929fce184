package handlers

import (
	"errors"
	"net/http"

	"carelink/auth"
	"carelink/db"
	"carelink/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type UserLoginRequest struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	TotpCode string `form:"totp_code"`
}

type UserSaveRequest struct {
	ID          uint64 `form:"id"`
	Name        string `form:"name" binding:"required"`
	Email       string `form:"email" binding:"required"`
	Password    string `form:"password"`
	Permissions []int  `form:"permissions"`
}

type UserInfo struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func UserLogin(c *gin.Context) {
	postReq := UserLoginRequest{}
	err := c.ShouldBindWith(&postReq, binding.Form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := models.UserLogin(postReq.Email, postReq.Password, postReq.TotpCode)
	if errors.Is(err, models.ErrTotpRequired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "totp_required": true})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	session := auth.LoadSession(c)
	session.LoginUser(&user)
	c.JSON(http.StatusOK, gin.H{"error": "", "name": user.Name, "permissions": user.GetPermissions()})
}

func UserLogout(c *gin.Context, user *models.User) {
	auth.LoadSession(c).LogoutUser()
	c.JSON(http.StatusOK, OKResponse)
}

// UserSave creates or updates an account within the admin's own organization.
func UserSave(c *gin.Context, user *models.User) {
	postReq := UserSaveRequest{}
	err := c.ShouldBindWith(&postReq, binding.Form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var saved models.User
	if postReq.ID == 0 {
		if postReq.Password == "" {
			c.JSON(http.StatusBadRequest, Response{"password is required for new accounts"})
			return
		}
		saved, err = models.UserCreate(postReq.Name, postReq.Email, postReq.Password, user.OrganizationID)
		if err == nil {
			saved.CreatedByID = &user.ID
			err = db.Instance.Model(&saved).Update("created_by_id", user.ID).Error
		}
	} else {
		if err = db.Instance.First(&saved, postReq.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, NopeResponse)
			return
		}
		if !sameOrganization(user, &saved) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
			return
		}
		saved.Name = postReq.Name
		saved.Email = postReq.Email
		if postReq.Password != "" {
			saved.SetPassword(postReq.Password)
		}
		err = db.Instance.Save(&saved).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err = saveGrants(user, &saved, postReq.Permissions); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "id": saved.ID})
}

func saveGrants(grantor, user *models.User, permissions []int) error {
	if permissions == nil {
		return nil
	}
	if err := db.Instance.Where("user_id = ?", user.ID).Delete(&models.Grant{}).Error; err != nil {
		return err
	}
	for _, permission := range permissions {
		grant := models.Grant{
			GrantorID:  grantor.ID,
			UserID:     user.ID,
			Permission: models.Permission(permission),
		}
		if err := db.Instance.Create(&grant).Error; err != nil {
			return err
		}
	}
	return nil
}

func UserDelete(c *gin.Context, user *models.User) {
	postReq := struct {
		ID uint64 `form:"id" binding:"required"`
	}{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Admins may delete within their organization, anyone their own account
	target := models.User{}
	if err := db.Instance.First(&target, postReq.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, NopeResponse)
		return
	}
	if target.ID != user.ID && !(user.HasPermission(models.PermissionAdmin) && sameOrganization(user, &target)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	if err := db.Instance.Delete(&target).Error; err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

// UserGetStatus returns what the dashboard needs on load: identity,
// permissions and the pending invitation badge.
func UserGetStatus(c *gin.Context, user *models.User) {
	result := gin.H{
		"error":       "",
		"name":        user.Name,
		"permissions": user.GetPermissions(),
	}
	if user.OrganizationID != nil {
		if count, err := models.PendingInvitationCount(*user.OrganizationID); err == nil {
			result["pending_invitations"] = count
		}
	} else if provider, err := models.ProviderByUserID(user.ID); err == nil {
		pending := models.InvitationPending
		invitations, err := models.ListProviderInvitations(provider.ID, user.Email, &pending)
		if err == nil {
			result["pending_invitations"] = len(invitations)
		}
	}
	c.JSON(http.StatusOK, result)
}

func UserList(c *gin.Context, user *models.User) {
	if user.OrganizationID == nil {
		c.JSON(http.StatusOK, []UserInfo{})
		return
	}
	rows, err := db.Instance.Table("users").Select("id, name, email").
		Where("organization_id = ?", *user.OrganizationID).
		Order("created_at DESC").Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	defer rows.Close()
	result := []UserInfo{}
	for rows.Next() {
		userInfo := UserInfo{}
		if err = rows.Scan(&userInfo.ID, &userInfo.Name, &userInfo.Email); err != nil {
			c.JSON(http.StatusInternalServerError, DBError2Response)
			return
		}
		result = append(result, userInfo)
	}
	c.JSON(http.StatusOK, result)
}

// UserEnableTotp turns on the second factor and returns the otpauth URL for
// the enrolment QR code.
func UserEnableTotp(c *gin.Context, user *models.User) {
	url, err := user.EnableTotp()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "url": url})
}

func sameOrganization(a, b *models.User) bool {
	return a.OrganizationID != nil && b.OrganizationID != nil && *a.OrganizationID == *b.OrganizationID
}
