package auth

import (
	"carelink/db"
	"carelink/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	userIdKey      = "id"
	permissionsKey = "permissions"
)

type Session struct {
	sessions.Session
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

func (s *Session) LoginUser(user *models.User) {
	s.Set(userIdKey, user.ID)
	s.Set(permissionsKey, user.GetPermissions())
	s.Save()
}

func (s *Session) LogoutUser() {
	s.Delete(userIdKey)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	s.Save()
}

func (s *Session) UserID() uint64 {
	id := s.Get(userIdKey)
	if id == nil {
		return 0
	}
	return id.(uint64)
}

// HasPermission checks the session copy of the permissions, avoiding a DB
// round-trip; User() is the authoritative load.
func (s *Session) HasPermission(required models.Permission) bool {
	permissions, ok := s.Get(permissionsKey).([]int)
	if !ok {
		return false
	}
	for _, permission := range permissions {
		if models.Permission(permission) == required {
			return true
		}
	}
	return false
}

func (s *Session) User() (user models.User) {
	id := s.Get(userIdKey)
	if id == nil {
		return
	}
	user.ID = id.(uint64)
	if db.Instance.Preload("Grants").First(&user).Error != nil {
		user.ID = 0
	}
	return
}
