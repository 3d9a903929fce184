package models

import (
	"carelink/db"
	"carelink/storage"

	"github.com/google/uuid"
)

type DocumentKind string

const (
	DocumentKindLicense       DocumentKind = "license"
	DocumentKindCertification DocumentKind = "certification"
	DocumentKindInsurance     DocumentKind = "insurance"
	DocumentKindAvatar        DocumentKind = "avatar"
	DocumentKindOther         DocumentKind = "other"
)

// Document is an uploaded provider credential file (or avatar) stored in one
// of the configured buckets.
type Document struct {
	ID         uint64 `gorm:"primaryKey"`
	CreatedAt  int64
	UpdatedAt  int64
	ProviderID uint64   `gorm:"not null;index"`
	Provider   Provider `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	BucketID   uint64
	Bucket     storage.Bucket `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Kind       DocumentKind   `gorm:"type:varchar(20);not null"`
	Name       string         `gorm:"type:varchar(200)"`
	MimeType   string         `gorm:"type:varchar(100)"`
	RemoteID   string         `gorm:"type:varchar(64);index:uniq_doc_remote,unique"`
	Size       int64
	ThumbSize  int64 // 0 unless the document is an image
}

func NewDocument(providerID, bucketID uint64, kind DocumentKind, name, mimeType string) Document {
	return Document{
		ProviderID: providerID,
		BucketID:   bucketID,
		Kind:       kind,
		Name:       name,
		MimeType:   mimeType,
		RemoteID:   uuid.NewString(),
	}
}

func (d *Document) GetPath() string {
	return storage.LocationDocuments + "/" + d.RemoteID
}

func (d *Document) GetThumbPath() string {
	return storage.LocationThumbs + "/" + d.RemoteID
}

func DocumentByID(id uint64) (doc Document, err error) {
	err = db.Instance.First(&doc, id).Error
	return
}

func ListProviderDocuments(providerID uint64) ([]Document, error) {
	documents := []Document{}
	err := db.Instance.Where("provider_id = ?", providerID).
		Order("created_at DESC").Find(&documents).Error
	return documents, err
}
