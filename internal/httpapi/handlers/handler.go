package handlers

import (
	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/assistant"
	"github.com/SW-HP/hp-server/internal/config"
	"github.com/SW-HP/hp-server/internal/conversation"
	"github.com/SW-HP/hp-server/internal/program"
	"github.com/SW-HP/hp-server/internal/store/rabbitmq"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Assist   *assistant.Service
	Programs *program.Repo
	Rabbit   *rabbitmq.Publisher
}

func NewHandler(db *gorm.DB, cfg config.Config, provider assistant.Provider, runLocks assistant.RunLocker, rabbit *rabbitmq.Publisher) *Handler {
	convs := conversation.NewRepo(db)
	programs := program.NewRepo(db)
	tools := assistant.NewBuiltinDispatcher(convs, programs)
	svc := assistant.NewService(provider, convs, programs, tools, runLocks, assistant.ServiceConfig{
		CoachAssistantID:    cfg.CoachAssistantID,
		DesignerAssistantID: cfg.DesignerAssistantID,
		RunTimeout:          cfg.RunTimeout,
		RunLockTTL:          cfg.RunLockTTL,
	})
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Assist:   svc,
		Programs: programs,
		Rabbit:   rabbit,
	}
}
