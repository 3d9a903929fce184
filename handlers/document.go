package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"carelink/db"
	"carelink/models"
	"carelink/storage"
	"carelink/utils"

	"github.com/gin-gonic/gin"
)

const avatarThumbSize = 320

// DocumentUpload stores a credential document (or avatar) for the calling
// provider in the default bucket. Image uploads get a thumbnail.
func DocumentUpload(c *gin.Context, user *models.User) {
	provider, err := models.ProviderByUserID(user.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{"create your provider profile first"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := models.DocumentKind(c.PostForm("kind"))
	switch kind {
	case models.DocumentKindLicense, models.DocumentKindCertification,
		models.DocumentKindInsurance, models.DocumentKindAvatar:
	default:
		kind = models.DocumentKindOther
	}
	store := storage.GetDefaultStorage()
	if store == nil {
		c.JSON(http.StatusInternalServerError, Response{"no document storage configured"})
		return
	}
	doc := models.NewDocument(provider.ID, store.GetBucket().ID, kind, file.Filename, file.Header.Get("content-type"))
	reader, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer reader.Close()
	doc.Size, err = store.Save(doc.GetPath(), reader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err = store.UpdateRemoteFile(doc.GetPath(), doc.MimeType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if strings.HasPrefix(doc.MimeType, "image/") {
		createDocumentThumb(store, &doc)
	}
	if err = db.Instance.Create(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "id": doc.ID})
}

func createDocumentThumb(store storage.StorageAPI, doc *models.Document) {
	var buf, thumb bytes.Buffer
	if _, err := store.Load(doc.GetPath(), &buf); err != nil {
		return
	}
	result, err := utils.CreateThumb(avatarThumbSize, &buf, &thumb)
	if err != nil {
		return
	}
	if _, err = store.Save(doc.GetThumbPath(), &thumb); err != nil {
		return
	}
	if store.UpdateRemoteFile(doc.GetThumbPath(), "image/jpeg") == nil {
		doc.ThumbSize = result.ThumbSize
	}
}

// canViewDocuments: the owning provider always, organization staff only while
// an established (accepted or suspended) connection exists.
func canViewDocuments(user *models.User, providerID uint64) bool {
	provider, err := models.ProviderByUserID(user.ID)
	if err == nil && provider.ID == providerID {
		return true
	}
	if user.OrganizationID == nil {
		return false
	}
	var count int64
	db.Instance.Model(&models.Connection{}).
		Where("organization_id = ? AND provider_id = ? AND status IN ?",
			*user.OrganizationID, providerID,
			[]models.ConnectionStatus{models.ConnectionAccepted, models.ConnectionSuspended}).
		Count(&count)
	return count > 0
}

func DocumentFetch(c *gin.Context, user *models.User) {
	id, _ := strconv.ParseUint(c.Query("id"), 10, 64)
	doc, err := models.DocumentByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, NopeResponse)
		return
	}
	if !canViewDocuments(user, doc.ProviderID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	bucket := storage.Bucket{ID: doc.BucketID}
	if db.Instance.First(&bucket).Error != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	store := storage.StorageFrom(&bucket)
	if store == nil {
		c.JSON(http.StatusInternalServerError, Response{"storage unavailable"})
		return
	}
	path := doc.GetPath()
	if c.Query("thumb") == "1" && doc.ThumbSize > 0 {
		path = doc.GetThumbPath()
	}
	if err = store.EnsureLocalFile(path); err != nil {
		c.JSON(http.StatusInternalServerError, Response{"document unavailable"})
		return
	}
	defer store.ReleaseLocalFile(path)
	c.Header("content-type", doc.MimeType)
	store.Serve(path, c.Request, c.Writer)
}

func DocumentList(c *gin.Context, user *models.User) {
	providerID, _ := strconv.ParseUint(c.Query("provider_id"), 10, 64)
	if providerID == 0 {
		provider, err := models.ProviderByUserID(user.ID)
		if err != nil {
			c.JSON(http.StatusOK, []models.Document{})
			return
		}
		providerID = provider.ID
	}
	if !canViewDocuments(user, providerID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	documents, err := models.ListProviderDocuments(providerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, documents)
}

func DocumentDelete(c *gin.Context, user *models.User) {
	postReq := struct {
		ID uint64 `form:"id" binding:"required"`
	}{}
	if err := c.ShouldBind(&postReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := models.DocumentByID(postReq.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, NopeResponse)
		return
	}
	provider, err := models.ProviderByUserID(user.ID)
	if err != nil || provider.ID != doc.ProviderID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}
	bucket := storage.Bucket{ID: doc.BucketID}
	if db.Instance.First(&bucket).Error == nil {
		if store := storage.StorageFrom(&bucket); store != nil {
			store.Delete(doc.GetPath())
			store.DeleteRemoteFile(doc.GetPath())
			if doc.ThumbSize > 0 {
				store.Delete(doc.GetThumbPath())
				store.DeleteRemoteFile(doc.GetThumbPath())
			}
		}
	}
	if err = db.Instance.Delete(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, DBError1Response)
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}
