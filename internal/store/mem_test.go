package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
)

func TestMemArtifacts(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	raw := artifact.New(artifact.KindText, []byte("payload"), "note.txt")
	if err := m.SaveArtifact(ctx, &raw); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	t.Run("duplicate rejected", func(t *testing.T) {
		if err := m.SaveArtifact(ctx, &raw); !errors.Is(err, ErrDuplicate) {
			t.Errorf("second SaveArtifact() = %v, want ErrDuplicate", err)
		}
	})

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := m.GetArtifact(ctx, raw.ID)
		if err != nil {
			t.Fatalf("GetArtifact() error = %v", err)
		}
		got.Payload[0] = 'X'
		again, _ := m.GetArtifact(ctx, raw.ID)
		if string(again.Payload) != "payload" {
			t.Error("stored payload was mutated through a returned copy")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if _, err := m.GetArtifact(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetArtifact() = %v, want ErrNotFound", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		other := artifact.New(artifact.KindText, []byte("second"), "other.txt")
		if err := m.SaveArtifact(ctx, &other); err != nil {
			t.Fatalf("SaveArtifact() error = %v", err)
		}
		all, err := m.ListArtifacts(ctx)
		if err != nil {
			t.Fatalf("ListArtifacts() error = %v", err)
		}
		if len(all) != 2 {
			t.Errorf("ListArtifacts() returned %d, want 2", len(all))
		}
	})
}

func TestMemReplies(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	initial := &Reply{
		RequestID: "fp-1",
		Tag:       ReplyTagInitial,
		Content:   `{"bad":`,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.SaveReply(ctx, initial); err != nil {
		t.Fatalf("SaveReply() error = %v", err)
	}
	if initial.ID == "" {
		t.Fatal("SaveReply() should assign an ID")
	}

	repair := &Reply{
		RequestID:     "fp-1",
		ParentReplyID: initial.ID,
		Tag:           ReplyTagRepair,
		Attempt:       1,
		Content:       `{"good": true}`,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.SaveReply(ctx, repair); err != nil {
		t.Fatalf("SaveReply() error = %v", err)
	}

	t.Run("get by id", func(t *testing.T) {
		got, err := m.GetReply(ctx, repair.ID)
		if err != nil {
			t.Fatalf("GetReply() error = %v", err)
		}
		if diff := cmp.Diff(repair, got); diff != "" {
			t.Errorf("reply mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("by request in creation order", func(t *testing.T) {
		replies, err := m.RepliesByRequest(ctx, "fp-1")
		if err != nil {
			t.Fatalf("RepliesByRequest() error = %v", err)
		}
		if len(replies) != 2 {
			t.Fatalf("got %d replies, want 2", len(replies))
		}
		if replies[0].Tag != ReplyTagInitial || replies[1].Tag != ReplyTagRepair {
			t.Errorf("order = [%s, %s], want [initial, repair]", replies[0].Tag, replies[1].Tag)
		}
		if replies[1].ParentReplyID != replies[0].ID {
			t.Error("repair reply should link to the initial reply")
		}
	})

	t.Run("other request empty", func(t *testing.T) {
		replies, err := m.RepliesByRequest(ctx, "fp-2")
		if err != nil {
			t.Fatalf("RepliesByRequest() error = %v", err)
		}
		if len(replies) != 0 {
			t.Errorf("got %d replies, want 0", len(replies))
		}
	})
}

func TestMemRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	v, err := m.NextVersion(ctx, "session-a")
	if err != nil {
		t.Fatalf("NextVersion() error = %v", err)
	}
	if v != 1 {
		t.Errorf("NextVersion() = %d, want 1", v)
	}

	save := func(session string, version int) *Record {
		t.Helper()
		rec := &Record{
			ID:        session + "-v" + string(rune('0'+version)),
			Session:   session,
			Version:   version,
			Status:    "partial",
			Payload:   json.RawMessage(`{"v":` + string(rune('0'+version)) + `}`),
			CreatedAt: time.Now().UTC(),
		}
		if err := m.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("SaveRecord() error = %v", err)
		}
		return rec
	}

	save("session-a", 1)
	save("session-a", 2)
	save("session-b", 1)

	t.Run("version clash", func(t *testing.T) {
		clash := &Record{ID: "dup", Session: "session-a", Version: 2, Payload: json.RawMessage(`{}`)}
		if err := m.SaveRecord(ctx, clash); !errors.Is(err, ErrDuplicate) {
			t.Errorf("SaveRecord() = %v, want ErrDuplicate", err)
		}
	})

	t.Run("next version advances", func(t *testing.T) {
		v, err := m.NextVersion(ctx, "session-a")
		if err != nil {
			t.Fatalf("NextVersion() error = %v", err)
		}
		if v != 3 {
			t.Errorf("NextVersion() = %d, want 3", v)
		}
	})

	t.Run("get specific version", func(t *testing.T) {
		rec, err := m.GetRecord(ctx, "session-a", 1)
		if err != nil {
			t.Fatalf("GetRecord() error = %v", err)
		}
		if rec.Version != 1 {
			t.Errorf("Version = %d, want 1", rec.Version)
		}
	})

	t.Run("latest", func(t *testing.T) {
		rec, err := m.LatestRecord(ctx, "session-a")
		if err != nil {
			t.Fatalf("LatestRecord() error = %v", err)
		}
		if rec.Version != 2 {
			t.Errorf("Version = %d, want 2", rec.Version)
		}
	})

	t.Run("latest missing session", func(t *testing.T) {
		if _, err := m.LatestRecord(ctx, "session-x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("LatestRecord() = %v, want ErrNotFound", err)
		}
	})

	t.Run("sessions", func(t *testing.T) {
		sessions, err := m.ListSessions(ctx)
		if err != nil {
			t.Fatalf("ListSessions() error = %v", err)
		}
		if len(sessions) != 2 {
			t.Errorf("ListSessions() = %v, want 2 sessions", sessions)
		}
	})
}

func TestMemPing(t *testing.T) {
	if err := NewMem().Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
