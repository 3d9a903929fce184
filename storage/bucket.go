package storage

import (
	"os"

	"carelink/db"
)

type StorageType uint8

const (
	StorageTypeFile StorageType = 0
	StorageTypeS3   StorageType = 1
)

// Well-known locations inside a bucket
const (
	LocationDocuments = "docs"
	LocationThumbs    = "thumbs"
)

// Bucket is a configured document store - a local directory or an S3 bucket.
type Bucket struct {
	ID            uint64 `gorm:"primaryKey"`
	CreatedAt     int64
	UpdatedAt     int64
	Name          string `gorm:"type:varchar(200)"` // S3 bucket name for StorageTypeS3
	StorageType   StorageType
	Path          string `gorm:"type:varchar(300)"` // directory on disk or key prefix in S3
	Region        string `gorm:"type:varchar(30)"`
	Endpoint      string `gorm:"type:varchar(200)"` // custom S3 endpoint, optional
	S3Key         string `gorm:"type:varchar(150)"`
	S3Secret      string `gorm:"type:varchar(150)"`
	SSEEncryption string `gorm:"type:varchar(30)"` // e.g. AES256, empty to disable
}

// GetRemotePath prefixes an object path with the bucket's configured prefix.
func (b *Bucket) GetRemotePath(path string) string {
	if b.Path == "" {
		return path
	}
	return b.Path + "/" + path
}

// TryInit pre-creates the on-disk locations for file buckets.
func (b *Bucket) TryInit() error {
	if b.StorageType != StorageTypeFile {
		return nil
	}
	if err := os.MkdirAll(b.Path+"/"+LocationDocuments, 0777); err != nil {
		return err
	}
	return os.MkdirAll(b.Path+"/"+LocationThumbs, 0777)
}

func (b *Bucket) Create() error {
	if err := db.Instance.Create(b).Error; err != nil {
		return err
	}
	return b.TryInit()
}
