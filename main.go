package main

import (
	"log"
	"strings"
	"time"

	"carelink/auth"
	"carelink/config"
	"carelink/db"
	"carelink/handlers"
	"carelink/models"
	"carelink/storage"
	"carelink/utils"
	"carelink/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
)

const (
	sessionStoreKey       = "this is a long key" // TODO: convert to env variable
	sessionCookieName     = "token"
	sessionExpirationTime = 30 * 86400 // 30 days
)

func main() {
	db.Init()
	models.Init()
	storage.Init()

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))

	// HTML templates
	router.LoadHTMLGlob("templates/*.tmpl")

	cookieStore := gormsessions.NewStore(db.Instance, true, []byte(sessionStoreKey))
	cookieStore.Options(sessions.Options{MaxAge: sessionExpirationTime})
	router.Use(sessions.Sessions(sessionCookieName, cookieStore))
	if !config.DEBUG_MODE {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/document/fetch"})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that
	// Custom Auth Router
	authRouter := &auth.Router{Base: router}
	// User handlers
	router.POST("/user/login", handlers.UserLogin)
	authRouter.POST("/user/logout", handlers.UserLogout)
	authRouter.POST("/user/save", handlers.UserSave, models.PermissionAdmin)
	authRouter.POST("/user/delete", handlers.UserDelete) // PermissionAdmin or own account check (in handler)
	authRouter.POST("/user/totp", handlers.UserEnableTotp)
	authRouter.GET("/user/status", handlers.UserGetStatus)
	authRouter.GET("/user/list", handlers.UserList, models.PermissionAdmin)
	// Organization handlers
	authRouter.POST("/organization/save", handlers.OrganizationSave, models.PermissionAdmin)
	authRouter.GET("/organization/get", handlers.OrganizationGet)
	// Provider profile handlers
	authRouter.POST("/provider/save", handlers.ProviderSave, models.PermissionProviderAccount)
	authRouter.GET("/provider/get", handlers.ProviderGet, models.PermissionProviderAccount)
	authRouter.GET("/provider/list", handlers.ProviderList, models.PermissionManageNetwork)
	// Invitation handlers
	authRouter.POST("/invitation/create", handlers.InvitationCreate, models.PermissionManageNetwork)
	authRouter.POST("/invitation/cancel", handlers.InvitationCancel, models.PermissionManageNetwork)
	authRouter.POST("/invitation/resend", handlers.InvitationResend, models.PermissionManageNetwork)
	authRouter.POST("/invitation/respond", handlers.InvitationRespond, models.PermissionProviderAccount)
	authRouter.GET("/invitation/list", handlers.InvitationList)
	authRouter.GET("/invitation/pending-count", handlers.InvitationPendingCount)
	// Connection handlers
	authRouter.GET("/connection/list", handlers.ConnectionList)
	authRouter.POST("/connection/suspend", handlers.ConnectionSuspend)
	authRouter.POST("/connection/reactivate", handlers.ConnectionReactivate)
	authRouter.DELETE("/connection/delete", handlers.ConnectionDelete)
	// Document handlers
	authRouter.POST("/document/upload", handlers.DocumentUpload, models.PermissionProviderAccount)
	authRouter.GET("/document/fetch", handlers.DocumentFetch)
	authRouter.GET("/document/list", handlers.DocumentList)
	authRouter.POST("/document/delete", handlers.DocumentDelete, models.PermissionProviderAccount)
	// Bucket handlers
	authRouter.GET("/bucket/list", handlers.BucketList, models.PermissionAdmin)
	authRouter.POST("/bucket/save", handlers.BucketSave, models.PermissionAdmin)
	// Live dashboard feed
	authRouter.GET("/ws", handlers.WebSocket)

	/*
	 *	Web interface
	 */
	// Invitations
	router.GET("/w/invite/:token/", web.InviteView)
	router.POST("/w/invite/:token/respond/", web.InviteRespond)
	// Misc
	router.GET("/robots.txt", web.DisallowRobots)

	var err error
	if config.TLS_DOMAINS != "" {
		err = autotls.Run(router, strings.Split(config.TLS_DOMAINS, ",")...)
	} else {
		err = router.Run(config.BIND_ADDRESS)
	}
	log.Fatalf("Server stopped: %v", err)
}
