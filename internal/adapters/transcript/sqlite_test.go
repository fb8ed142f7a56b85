package transcript

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
)

var (
	_ ports.TranscriptStore = (*SQLiteStore)(nil)
	_ ports.TranscriptStore = (*InMemoryStore)(nil)
)

func sampleMessages() []entities.Message {
	at := time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC)
	return []entities.Message{
		{ID: "m1", Sender: entities.SenderUser, Content: "What is the diagnosis?", CreatedAt: at},
		{ID: "m2", Sender: entities.SenderAssistant, Content: "The report indicates...", CreatedAt: at.Add(time.Second)},
	}
}

func TestSQLiteStore_RecordAndTranscript(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "transcripts.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, msg := range sampleMessages() {
		if err := store.Record(ctx, "session-1", msg); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	got, err := store.Transcript(ctx, "session-1")
	if err != nil {
		t.Fatalf("transcript failed: %v", err)
	}

	want := sampleMessages()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Sender != want[i].Sender || got[i].Content != want[i].Content {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], got[i])
		}
		if !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("message %d: timestamp %v != %v", i, got[i].CreatedAt, want[i].CreatedAt)
		}
	}
}

func TestSQLiteStore_Sessions(t *testing.T) {
	store, _ := NewSQLiteStore(filepath.Join(t.TempDir(), "transcripts.db"))
	defer store.Close()

	ctx := context.Background()
	store.Record(ctx, "older", entities.Message{ID: "a", Sender: entities.SenderUser, Content: "1"})
	store.Record(ctx, "newer", entities.Message{ID: "b", Sender: entities.SenderUser, Content: "2"})

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("sessions failed: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "newer" || sessions[1] != "older" {
		t.Errorf("unexpected sessions: %v", sessions)
	}
}

func TestSQLiteStore_DuplicateIDRejected(t *testing.T) {
	store, _ := NewSQLiteStore(filepath.Join(t.TempDir(), "transcripts.db"))
	defer store.Close()

	ctx := context.Background()
	msg := entities.Message{ID: "dup", Sender: entities.SenderUser, Content: "x"}
	store.Record(ctx, "s", msg)

	if err := store.Record(ctx, "s", msg); err == nil {
		t.Error("archived messages are immutable; duplicate id should fail")
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.db")
	ctx := context.Background()

	store, _ := NewSQLiteStore(path)
	store.Record(ctx, "s", sampleMessages()[0])
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, _ := reopened.Transcript(ctx, "s")
	if len(got) != 1 {
		t.Errorf("expected archived message to survive, got %d", len(got))
	}
}

func TestInMemoryStore_RecordAndSessions(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.Record(ctx, "a", sampleMessages()[0])
	store.Record(ctx, "b", sampleMessages()[0])
	store.Record(ctx, "a", sampleMessages()[1])

	sessions, _ := store.Sessions(ctx)
	if len(sessions) != 2 || sessions[0] != "a" {
		t.Errorf("unexpected sessions: %v", sessions)
	}

	got, _ := store.Transcript(ctx, "a")
	if len(got) != 2 || got[1].Sender != entities.SenderAssistant {
		t.Errorf("unexpected transcript: %+v", got)
	}

	got[0].Content = "tampered"
	again, _ := store.Transcript(ctx, "a")
	if again[0].Content == "tampered" {
		t.Error("transcript should be a copy")
	}
}
