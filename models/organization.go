package models

type Organization struct {
	ID        uint64 `gorm:"primaryKey"`
	CreatedAt int64
	UpdatedAt int64
	Name      string `gorm:"type:varchar(200);not null"`
	Kind      string `gorm:"type:varchar(50)"` // clinic, hospital, practice, ...
	Phone     string `gorm:"type:varchar(30)"`
	Address   string `gorm:"type:varchar(300)"`
	Website   string `gorm:"type:varchar(200)"`
	About     string `gorm:"type:varchar(1000)"`
}
