package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/SW-HP/hp-server/internal/assistant"
	"github.com/SW-HP/hp-server/internal/config"
	"github.com/SW-HP/hp-server/internal/db"
	"github.com/SW-HP/hp-server/internal/httpapi"
	"github.com/SW-HP/hp-server/internal/store/rabbitmq"
	"github.com/SW-HP/hp-server/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	rabbit, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer rabbit.Close()

	provider := assistant.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)

	r := httpapi.NewRouter(gdb, cfg, provider, rds, rabbit)

	log.Printf("server listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
