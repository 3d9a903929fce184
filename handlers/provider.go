package handlers

import (
	"net/http"

	"carelink/db"
	"carelink/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type ProviderSaveRequest struct {
	FullName    string `form:"full_name" binding:"required"`
	Credentials string `form:"credentials"`
	NPI         string `form:"npi" binding:"required"`
	Specialty   string `form:"specialty"`
	Phone       string `form:"phone"`
	Bio         string `form:"bio"`
}

type ProviderInfo struct {
	ID          uint64 `json:"id"`
	FullName    string `json:"full_name"`
	Credentials string `json:"credentials"`
	Specialty   string `json:"specialty"`
}

// ProviderSave is the provider's own onboarding/profile form.
func ProviderSave(c *gin.Context, user *models.User) {
	postReq := ProviderSaveRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	provider, err := models.ProviderByUserID(user.ID)
	if err != nil {
		provider = models.Provider{UserID: user.ID}
	}
	provider.FullName = postReq.FullName
	provider.Credentials = postReq.Credentials
	provider.NPI = postReq.NPI
	provider.Specialty = postReq.Specialty
	provider.Phone = postReq.Phone
	provider.Bio = postReq.Bio
	if provider.ID == 0 {
		err = db.Instance.Create(&provider).Error
	} else {
		err = db.Instance.Save(&provider).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "id": provider.ID})
}

func ProviderGet(c *gin.Context, user *models.User) {
	provider, err := models.ProviderByUserID(user.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, NopeResponse)
		return
	}
	c.JSON(http.StatusOK, provider)
}

// ProviderList lets organization staff find providers to invite.
func ProviderList(c *gin.Context, user *models.User) {
	query := db.Instance.Table("providers").Select("id, full_name, credentials, specialty")
	if search := c.Query("q"); search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name LIKE ? OR specialty LIKE ?", like, like)
	}
	rows, err := query.Order("full_name ASC").Limit(100).Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	defer rows.Close()
	result := []ProviderInfo{}
	for rows.Next() {
		info := ProviderInfo{}
		if err = rows.Scan(&info.ID, &info.FullName, &info.Credentials, &info.Specialty); err != nil {
			c.JSON(http.StatusInternalServerError, DBError2Response)
			return
		}
		result = append(result, info)
	}
	c.JSON(http.StatusOK, result)
}
