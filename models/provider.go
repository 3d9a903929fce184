package models

import "carelink/db"

// Provider is the professional profile behind a provider-side user account.
type Provider struct {
	ID          uint64 `gorm:"primaryKey"`
	CreatedAt   int64
	UpdatedAt   int64
	UserID      uint64 `gorm:"index:uniq_provider_user,unique"`
	User        User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FullName    string `gorm:"type:varchar(150);not null"`
	Credentials string `gorm:"type:varchar(100)"` // MD, DO, NP, PA, ...
	NPI         string `gorm:"type:varchar(20);index:uniq_npi,unique"`
	Specialty   string `gorm:"type:varchar(100)"`
	Phone       string `gorm:"type:varchar(30)"`
	Bio         string `gorm:"type:varchar(1000)"`
}

func ProviderByUserID(userID uint64) (p Provider, err error) {
	err = db.Instance.First(&p, "user_id = ?", userID).Error
	return
}
