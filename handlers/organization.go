package handlers

import (
	"net/http"

	"carelink/db"
	"carelink/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type OrganizationSaveRequest struct {
	Name    string `form:"name" binding:"required"`
	Kind    string `form:"kind"`
	Phone   string `form:"phone"`
	Address string `form:"address"`
	Website string `form:"website"`
	About   string `form:"about"`
}

// OrganizationSave creates the user's organization on first call and updates
// it afterwards.
func OrganizationSave(c *gin.Context, user *models.User) {
	postReq := OrganizationSaveRequest{}
	if err := c.ShouldBindWith(&postReq, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	org := models.Organization{}
	if user.OrganizationID != nil {
		if err := db.Instance.First(&org, *user.OrganizationID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, DBError1Response)
			return
		}
	}
	org.Name = postReq.Name
	org.Kind = postReq.Kind
	org.Phone = postReq.Phone
	org.Address = postReq.Address
	org.Website = postReq.Website
	org.About = postReq.About
	var err error
	if org.ID == 0 {
		err = db.Instance.Create(&org).Error
		if err == nil {
			err = db.Instance.Model(user).Update("organization_id", org.ID).Error
		}
	} else {
		err = db.Instance.Save(&org).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "id": org.ID})
}

func OrganizationGet(c *gin.Context, user *models.User) {
	if user.OrganizationID == nil {
		c.JSON(http.StatusNotFound, NopeResponse)
		return
	}
	org := models.Organization{}
	if err := db.Instance.First(&org, *user.OrganizationID).Error; err != nil {
		c.JSON(http.StatusNotFound, NopeResponse)
		return
	}
	c.JSON(http.StatusOK, org)
}
