package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/conversation"
	"github.com/SW-HP/hp-server/internal/models"
	"github.com/SW-HP/hp-server/internal/program"
)

// Connect opens the MySQL connection or dies.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}

// AutoMigrate creates/updates all tables the server owns.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&conversation.Thread{},
		&conversation.Message{},
		&program.TrainingProgram{},
		&program.TrainingCycle{},
		&program.ExerciseSet{},
		&program.ExerciseDetail{},
		&program.Job{},
	)
}
