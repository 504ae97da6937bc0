package conversation

import "time"

type SenderType string

const (
	SenderUser      SenderType = "user"
	SenderAssistant SenderType = "assistant"
)

// Thread mirrors one provider-side conversation thread. One active thread per
// user; thread_id is the provider's opaque handle.
type Thread struct {
	ThreadID  string    `gorm:"type:char(36);primaryKey" json:"thread_id"`
	UserID    uint64    `gorm:"uniqueIndex;not null" json:"-"`
	RunState  string    `gorm:"type:varchar(50)" json:"run_state"`
	RunID     string    `gorm:"type:varchar(100)" json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Thread) TableName() string { return "assistant_threads" }

type Message struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"message_id"`
	ThreadID   string     `gorm:"type:char(36);index;not null" json:"thread_id"`
	SenderType SenderType `gorm:"type:varchar(16);not null" json:"sender_type"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Message) TableName() string { return "assistant_messages" }
