package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/SW-HP/hp-server/internal/assistant"
	"github.com/SW-HP/hp-server/internal/config"
	"github.com/SW-HP/hp-server/internal/conversation"
	"github.com/SW-HP/hp-server/internal/db"
	"github.com/SW-HP/hp-server/internal/program"
	"github.com/SW-HP/hp-server/internal/store/rabbitmq"
	"github.com/SW-HP/hp-server/internal/store/redisstore"
)

const (
	maxJobAttempts = 3
	retryDelay     = 30 * time.Second
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	convs := conversation.NewRepo(gdb)
	programs := program.NewRepo(gdb)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	provider := assistant.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	tools := assistant.NewBuiltinDispatcher(convs, programs)
	svc := assistant.NewService(provider, convs, programs, tools, rds, assistant.ServiceConfig{
		CoachAssistantID:    cfg.CoachAssistantID,
		DesignerAssistantID: cfg.DesignerAssistantID,
		RunTimeout:          cfg.RunTimeout,
		RunLockTTL:          cfg.RunLockTTL,
	})

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	// dedicated publisher connection for retry redeliveries
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer pub.Close()

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.JobMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				err := handleJob(ctx, svc, programs, m.JobID)
				if err == nil {
					if err := d.Ack(false); err != nil {
						log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
					}
					continue
				}

				if m.Attempt+1 < maxJobAttempts {
					log.Printf("worker=%d job %s failed attempt=%d cost=%s err=%v, retrying",
						workerID, m.JobID, m.Attempt, time.Since(start), err)
					if perr := pub.PublishJobRetry(ctx, m.JobID, m.Attempt+1, retryDelay); perr != nil {
						log.Printf("worker=%d retry publish failed job=%s err=%v", workerID, m.JobID, perr)
						_ = d.Nack(false, false)
						continue
					}
					_ = d.Ack(false)
					continue
				}

				// out of attempts: record the failure and dead-letter
				log.Printf("worker=%d job %s failed attempt=%d cost=%s err=%v, giving up",
					workerID, m.JobID, m.Attempt, time.Since(start), err)
				if merr := programs.MarkJobFailed(ctx, m.JobID, err.Error()); merr != nil {
					log.Printf("worker=%d mark failed job=%s err=%v", workerID, m.JobID, merr)
				}
				_ = d.Nack(false, false)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleJob(ctx context.Context, svc *assistant.Service, programs *program.Repo, jobID string) error {
	_ = programs.UpdateJobStatusRunning(ctx, jobID)

	j, err := programs.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	if _, err := svc.GenerateProgram(ctx, j.UserID, j.Request); err != nil {
		return err
	}

	programID, err := programs.LatestProgramID(ctx, j.UserID)
	if err != nil {
		return err
	}

	return programs.MarkJobSucceeded(ctx, jobID, programID)
}
