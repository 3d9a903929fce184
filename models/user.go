package models

import (
	"carelink/db"
	"carelink/utils"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

type User struct {
	ID             uint64 `gorm:"primaryKey"`
	CreatedAt      int64
	UpdatedAt      int64
	CreatedByID    *uint64
	CreatedBy      *User  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Name           string `gorm:"type:varchar(100)"`
	Email          string `gorm:"type:varchar(150);index:uniq_email,unique"`
	Password       string `gorm:"type:varchar(128)"`
	PassSalt       string `gorm:"type:varchar(200)"`
	TotpSecret     string `gorm:"type:varchar(200)"` // empty unless 2FA is enabled
	OrganizationID *uint64
	Organization   *Organization `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	PushToken      string        `gorm:"type:varchar(128)"`
	Grants         []Grant       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

const saltSize = 60

func UserCreate(name, email, plainTextPassword string, organizationID *uint64) (u User, err error) {
	u.Email = email
	u.Name = name
	u.OrganizationID = organizationID
	u.PassSalt = utils.RandSalt(saltSize)
	u.Password = utils.Sha512String(plainTextPassword + u.PassSalt)
	return u, db.Instance.Create(&u).Error
}

func (u *User) SetPassword(plainTextPassword string) {
	u.PassSalt = utils.RandSalt(saltSize)
	u.Password = utils.Sha512String(plainTextPassword + u.PassSalt)
}

func (u *User) SetNewPushToken() {
	u.PushToken = utils.Sha512String(u.Email + utils.RandSalt(saltSize))
	db.Instance.Model(u).Update("push_token", u.PushToken)
}

// EnableTotp generates a new TOTP secret and returns the otpauth URL for
// enrolling an authenticator app.
func (u *User) EnableTotp() (url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "CareLink",
		AccountName: u.Email,
	})
	if err != nil {
		return "", err
	}
	u.TotpSecret = key.Secret()
	return key.URL(), db.Instance.Model(u).Update("totp_secret", u.TotpSecret).Error
}

func (u *User) verifyTotp(code string) bool {
	ok, err := totp.ValidateCustom(code, u.TotpSecret, TimeNow(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func UserLogin(email, plainTextPassword, totpCode string) (u User, err error) {
	result := db.Instance.Preload("Grants").First(&u, "email = ?", email)
	if result.Error != nil {
		return User{}, ErrLoginFailed
	}
	if u.Password != utils.Sha512String(plainTextPassword+u.PassSalt) {
		return User{}, ErrLoginFailed
	}
	if u.TotpSecret != "" {
		if totpCode == "" {
			return User{}, ErrTotpRequired
		}
		if !u.verifyTotp(totpCode) {
			return User{}, ErrLoginFailed
		}
	}
	return u, nil
}

func (u *User) GetPermissions() []int {
	permissions := []int{}
	for _, grant := range u.Grants {
		permissions = append(permissions, int(grant.Permission))
	}
	return permissions
}

func (u *User) HasPermission(required Permission) bool {
	for _, permission := range u.Grants {
		if permission.Permission == required {
			return true
		}
	}
	return false
}

func (u *User) HasPermissions(required []Permission) bool {
	for _, permission := range required {
		if !u.HasPermission(permission) {
			return false
		}
	}
	return true
}
