package models

import "time"

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserUUID     string    `gorm:"type:char(36);uniqueIndex;not null" json:"user_uuid"`
	Username     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	PhoneNumber  string    `gorm:"type:varchar(15)" json:"phone_number"`
	Goals        string    `gorm:"type:varchar(1000)" json:"goals"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
}

func (User) TableName() string { return "users" }
