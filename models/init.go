package models

import "carelink/db"

func Init() {
	db.Instance.AutoMigrate(&Organization{})
	db.Instance.AutoMigrate(&User{})
	db.Instance.AutoMigrate(&Grant{})
	db.Instance.AutoMigrate(&Provider{})
	db.Instance.AutoMigrate(&Invitation{})
	db.Instance.AutoMigrate(&Connection{})
	db.Instance.AutoMigrate(&Document{})
}
