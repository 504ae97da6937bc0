package conversation

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Thread{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedThread(t *testing.T, repo *Repo, threadID string, userID uint64) {
	t.Helper()
	if err := repo.CreateThread(context.Background(), &Thread{ThreadID: threadID, UserID: userID}); err != nil {
		t.Fatalf("create thread: %v", err)
	}
}

func TestAppendAndExtendMessage(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	seedThread(t, repo, "thread_1", 1)

	if _, err := repo.AppendMessage(ctx, "thread_1", SenderAssistant, ""); err != nil {
		t.Fatalf("append message: %v", err)
	}

	repo.ExtendLatestAssistantMessage(ctx, "thread_1", "안")
	repo.ExtendLatestAssistantMessage(ctx, "thread_1", "녕")

	m, err := repo.LatestMessage(ctx, "thread_1")
	if err != nil {
		t.Fatalf("latest message: %v", err)
	}
	if m.Content != "안녕" {
		t.Fatalf("expected concatenated deltas, got %q", m.Content)
	}
}

func TestExtendWithoutMessageIsNoOp(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	seedThread(t, repo, "thread_1", 1)

	// must not raise: this runs inside a streaming handler
	repo.ExtendLatestAssistantMessage(ctx, "thread_1", "조각")

	msgs, err := repo.ListMessages(ctx, "thread_1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}
}

func TestFinalizeOverwritesDeltas(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	seedThread(t, repo, "thread_1", 1)

	if _, err := repo.AppendMessage(ctx, "thread_1", SenderAssistant, ""); err != nil {
		t.Fatalf("append message: %v", err)
	}
	repo.ExtendLatestAssistantMessage(ctx, "thread_1", "부분 텍스트")
	repo.FinalizeLatestAssistantMessage(ctx, "thread_1", "안녕하세요")

	m, err := repo.LatestMessage(ctx, "thread_1")
	if err != nil {
		t.Fatalf("latest message: %v", err)
	}
	if m.Content != "안녕하세요" {
		t.Fatalf("expected final text to supersede deltas, got %q", m.Content)
	}
}

func TestExtendTargetsNewestMessage(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	seedThread(t, repo, "thread_1", 1)

	older, err := repo.AppendMessage(ctx, "thread_1", SenderUser, "질문")
	if err != nil {
		t.Fatalf("append user message: %v", err)
	}
	// same-second inserts rely on the id tiebreak
	time.Sleep(5 * time.Millisecond)
	if _, err := repo.AppendMessage(ctx, "thread_1", SenderAssistant, ""); err != nil {
		t.Fatalf("append assistant message: %v", err)
	}

	repo.ExtendLatestAssistantMessage(ctx, "thread_1", "응답")

	msgs, err := repo.ListMessages(ctx, "thread_1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != older.ID || msgs[0].Content != "질문" {
		t.Fatalf("user message should be untouched, got %q", msgs[0].Content)
	}
	if msgs[1].Content != "응답" {
		t.Fatalf("assistant message should carry the delta, got %q", msgs[1].Content)
	}
}

func TestSetRunStateAndRunID(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	seedThread(t, repo, "thread_1", 1)

	if err := repo.SetRunState(ctx, "thread_1", "thread.run.in_progress"); err != nil {
		t.Fatalf("set run state: %v", err)
	}
	if err := repo.SetRunID(ctx, "thread_1", "run_42"); err != nil {
		t.Fatalf("set run id: %v", err)
	}

	th, err := repo.GetThread(ctx, "thread_1")
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if th.RunState != "thread.run.in_progress" || th.RunID != "run_42" {
		t.Fatalf("unexpected thread: state=%q run_id=%q", th.RunState, th.RunID)
	}
}

func TestDeleteThreadCascadesMessages(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	seedThread(t, repo, "thread_1", 1)

	if _, err := repo.AppendMessage(ctx, "thread_1", SenderUser, "안녕"); err != nil {
		t.Fatalf("append message: %v", err)
	}
	if err := repo.DeleteThread(ctx, "thread_1"); err != nil {
		t.Fatalf("delete thread: %v", err)
	}

	var threadCount, msgCount int64
	if err := db.Model(&Thread{}).Count(&threadCount).Error; err != nil {
		t.Fatalf("count threads: %v", err)
	}
	if err := db.Model(&Message{}).Count(&msgCount).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if threadCount != 0 || msgCount != 0 {
		t.Fatalf("expected cascade delete, got threads=%d messages=%d", threadCount, msgCount)
	}
}
