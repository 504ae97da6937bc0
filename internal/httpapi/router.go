package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/assistant"
	"github.com/SW-HP/hp-server/internal/common"
	"github.com/SW-HP/hp-server/internal/config"
	"github.com/SW-HP/hp-server/internal/httpapi/handlers"
	"github.com/SW-HP/hp-server/internal/httpapi/middleware"
	"github.com/SW-HP/hp-server/internal/store/rabbitmq"
)

func NewRouter(db *gorm.DB, cfg config.Config, provider assistant.Provider, runLocks assistant.RunLocker, rabbit *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, provider, runLocks, rabbit)

	r.GET("/ping", h.Ping)

	// users
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// assistant (JWT required)
	authGroup.GET("/assistant/threads", h.GetThread)
	authGroup.DELETE("/assistant/threads", h.DeleteThread)
	authGroup.POST("/assistant/message", h.PostMessage)
	authGroup.GET("/assistant/messages", h.GetMessages)
	authGroup.GET("/assistant/messages/latest", h.GetLatestMessage)

	// training programs
	authGroup.GET("/exercise/program", h.GetProgram)
	authGroup.POST("/exercise/program/generate", h.GenerateProgram)
	authGroup.GET("/exercise/program/jobs/:job_id", h.GetProgramJob)

	return r
}
