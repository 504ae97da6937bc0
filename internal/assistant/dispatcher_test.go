package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/conversation"
	"github.com/SW-HP/hp-server/internal/program"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&conversation.Thread{}, &conversation.Message{},
		&program.TrainingProgram{}, &program.TrainingCycle{}, &program.ExerciseSet{}, &program.ExerciseDetail{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher()

	_, err := d.Dispatch(context.Background(), "summon_dragon", "{}", "thread_1")
	if !errors.Is(err, ErrUnsupportedTool) {
		t.Fatalf("expected ErrUnsupportedTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "summon_dragon") {
		t.Fatalf("error should name the tool: %v", err)
	}
}

func TestDispatchBlankArguments(t *testing.T) {
	d := NewDispatcher()
	d.Register("probe", func(_ context.Context, _ string, args map[string]any) (any, error) {
		if args == nil {
			t.Fatal("args must be an empty map, not nil")
		}
		return "ok", nil
	})

	out, err := d.Dispatch(context.Background(), "probe", "  ", "thread_1")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out != "ok" {
		t.Fatalf("expected passthrough string, got %q", out)
	}
}

func TestDispatchRejectsBadArguments(t *testing.T) {
	d := NewDispatcher()
	d.Register("probe", func(_ context.Context, _ string, _ map[string]any) (any, error) {
		return nil, nil
	})

	if _, err := d.Dispatch(context.Background(), "probe", "{not json", "thread_1"); err == nil {
		t.Fatal("expected an argument decode error")
	}
}

func TestNormalizeResultKeepsKoreanReadable(t *testing.T) {
	d := NewDispatcher()
	d.Register("probe", func(_ context.Context, _ string, _ map[string]any) (any, error) {
		return successEnvelope(map[string]string{"note": "무릎 통증 <주의>"}), nil
	})

	out, err := d.Dispatch(context.Background(), "probe", "{}", "thread_1")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.Contains(out, `"status":"success"`) {
		t.Fatalf("missing success status: %q", out)
	}
	if !strings.Contains(out, "무릎 통증 <주의>") {
		t.Fatalf("korean text must survive unescaped: %q", out)
	}
	if strings.Contains(out, "\n") {
		t.Fatalf("output must be a single compact line: %q", out)
	}
}

func TestBuiltinGetProgramWithoutUser(t *testing.T) {
	db := openTestDB(t)
	d := NewBuiltinDispatcher(conversation.NewRepo(db), program.NewRepo(db))

	out, err := d.Dispatch(context.Background(), "get_user_train_program", "{}", "thread_missing")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.Contains(out, `"status":"failed"`) {
		t.Fatalf("expected failed envelope, got %q", out)
	}
}

func TestBuiltinGetProgramEmpty(t *testing.T) {
	db := openTestDB(t)
	convs := conversation.NewRepo(db)
	d := NewBuiltinDispatcher(convs, program.NewRepo(db))

	if err := convs.CreateThread(context.Background(), &conversation.Thread{ThreadID: "thread_1", UserID: 1}); err != nil {
		t.Fatalf("create thread: %v", err)
	}

	out, err := d.Dispatch(context.Background(), "get_user_train_program", "{}", "thread_1")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.Contains(out, `"status":"success"`) {
		t.Fatalf("a user without a program is still a success, got %q", out)
	}
	if !strings.Contains(out, `"data":[]`) {
		t.Fatalf("expected empty data list, got %q", out)
	}
}

func TestBuiltinSaveProgramRoundtrip(t *testing.T) {
	db := openTestDB(t)
	convs := conversation.NewRepo(db)
	programs := program.NewRepo(db)
	d := NewBuiltinDispatcher(convs, programs)
	ctx := context.Background()

	if err := convs.CreateThread(ctx, &conversation.Thread{ThreadID: "thread_1", UserID: 7}); err != nil {
		t.Fatalf("create thread: %v", err)
	}

	out, err := d.Dispatch(ctx, "save_user_train_program", sampleProgramJSON, "thread_1")
	if err != nil {
		t.Fatalf("dispatch save: %v", err)
	}
	if !strings.Contains(out, `"status":"success"`) {
		t.Fatalf("expected success envelope, got %q", out)
	}

	doc, err := programs.Latest(ctx, 7)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if doc.Cycles[0].Sets[0].Exercises[0].Name != "스쿼트" {
		t.Fatalf("saved program not readable back: %+v", doc)
	}

	out, err = d.Dispatch(ctx, "get_user_train_program", "{}", "thread_1")
	if err != nil {
		t.Fatalf("dispatch get: %v", err)
	}
	if !strings.Contains(out, "스쿼트") {
		t.Fatalf("get after save must return the program, got %q", out)
	}
}

func TestBuiltinSaveProgramRejectsMalformed(t *testing.T) {
	db := openTestDB(t)
	convs := conversation.NewRepo(db)
	d := NewBuiltinDispatcher(convs, program.NewRepo(db))
	ctx := context.Background()

	if err := convs.CreateThread(ctx, &conversation.Thread{ThreadID: "thread_1", UserID: 7}); err != nil {
		t.Fatalf("create thread: %v", err)
	}

	out, err := d.Dispatch(ctx, "save_user_train_program", `{"training_cycle_length": 0}`, "thread_1")
	if err != nil {
		t.Fatalf("malformed input is a failed envelope, not an error: %v", err)
	}
	if !strings.Contains(out, `"status":"failed"`) {
		t.Fatalf("expected failed envelope, got %q", out)
	}
}
