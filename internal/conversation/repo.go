package conversation

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateThread(ctx context.Context, t *Thread) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repo) GetThreadByUser(ctx context.Context, userID uint64) (*Thread, error) {
	var t Thread
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	var t Thread
	if err := r.db.WithContext(ctx).First(&t, "thread_id = ?", threadID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteThread removes the thread and all of its messages in one transaction.
func (r *Repo) DeleteThread(ctx context.Context, threadID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", threadID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Where("thread_id = ?", threadID).Delete(&Thread{}).Error
	})
}

func (r *Repo) AppendMessage(ctx context.Context, threadID string, sender SenderType, content string) (*Message, error) {
	m := &Message{
		ThreadID:   threadID,
		SenderType: sender,
		Content:    content,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// SetRunState records the run lifecycle tag on the thread row.
func (r *Repo) SetRunState(ctx context.Context, threadID, state string) error {
	return r.db.WithContext(ctx).Model(&Thread{}).
		Where("thread_id = ?", threadID).
		Update("run_state", state).Error
}

// SetRunID records the last known run reference on the thread row.
func (r *Repo) SetRunID(ctx context.Context, threadID, runID string) error {
	return r.db.WithContext(ctx).Model(&Thread{}).
		Where("thread_id = ?", threadID).
		Update("run_id", runID).Error
}

// LatestMessage returns the most recently created message on the thread.
func (r *Repo) LatestMessage(ctx context.Context, threadID string) (*Message, error) {
	var m Message
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC, id DESC").
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns all messages on the thread in creation order.
func (r *Repo) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ExtendLatestAssistantMessage appends delta to the newest message on the
// thread. Runs inside a streaming handler that must not stop on persistence
// trouble, so failures (including a missing message row) are logged and
// swallowed.
func (r *Repo) ExtendLatestAssistantMessage(ctx context.Context, threadID, delta string) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m Message
		if err := tx.Where("thread_id = ?", threadID).
			Order("created_at DESC, id DESC").
			First(&m).Error; err != nil {
			return err
		}
		return tx.Model(&Message{}).
			Where("id = ?", m.ID).
			Update("content", m.Content+delta).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Conversation] extend skipped, no message thread_id=%s", threadID)
			return
		}
		log.Printf("[Conversation] extend failed thread_id=%s err=%v", threadID, err)
	}
}

// FinalizeLatestAssistantMessage overwrites the newest message's content with
// the provider's definitive final text, superseding accumulated deltas.
func (r *Repo) FinalizeLatestAssistantMessage(ctx context.Context, threadID, finalText string) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m Message
		if err := tx.Where("thread_id = ?", threadID).
			Order("created_at DESC, id DESC").
			First(&m).Error; err != nil {
			return err
		}
		return tx.Model(&Message{}).
			Where("id = ?", m.ID).
			Update("content", finalText).Error
	})
	if err != nil {
		log.Printf("[Conversation] finalize failed thread_id=%s err=%v", threadID, err)
	}
}
