package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/prompts"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/schema"
	"github.com/whitewolf2000ani/sdx/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: time.Second,
		Model:       "mock-model",
	}
}

func testRequest(t *testing.T) prompts.Request {
	t.Helper()
	text := artifact.NormalizedText{ArtifactID: "art-1", Text: "Epigastric pain radiating to the back."}
	req, err := prompts.Build(text, schema.DiagnosticReport, "en", nil)
	if err != nil {
		t.Fatalf("prompts.Build() error = %v", err)
	}
	return req
}

func TestSendPersistsReply(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{ResponseText: `{"summary":"ok"}`}
	gw := New(client, st, testLogger(), testOptions())
	req := testRequest(t)

	reply, err := gw.Send(context.Background(), Call{Request: req})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Tag != store.ReplyTagInitial {
		t.Errorf("Tag = %q, want %q", reply.Tag, store.ReplyTagInitial)
	}
	if reply.Content != `{"summary":"ok"}` {
		t.Errorf("Content = %q", reply.Content)
	}
	if reply.RequestID != req.Fingerprint {
		t.Errorf("RequestID = %q, want fingerprint", reply.RequestID)
	}

	stored, err := st.GetReply(context.Background(), reply.ID)
	if err != nil {
		t.Fatalf("reply not persisted: %v", err)
	}
	if stored.Content != reply.Content {
		t.Error("persisted reply content differs")
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{
		ResponseText: `{"summary":"ok"}`,
		FailFirst:    2,
		FailErr:      errors.New("connection reset"),
	}
	gw := New(client, st, testLogger(), testOptions())

	reply, err := gw.Send(context.Background(), Call{Request: testRequest(t)})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if client.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", client.Calls())
	}
	if reply.Content != `{"summary":"ok"}` {
		t.Errorf("Content = %q", reply.Content)
	}
}

func TestSendExhaustsRetries(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{ShouldFail: true, FailErr: errors.New("connection reset")}
	gw := New(client, st, testLogger(), testOptions())

	_, err := gw.Send(context.Background(), Call{Request: testRequest(t)})
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("error = %v, want *TransientError", err)
	}
	if transient.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", transient.Attempts)
	}
	if client.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", client.Calls())
	}
}

func TestSendAuthErrorNotRetried(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{
		ShouldFail: true,
		FailErr:    &providers.AuthError{Message: "invalid api key", StatusCode: 401},
	}
	gw := New(client, st, testLogger(), testOptions())

	_, err := gw.Send(context.Background(), Call{Request: testRequest(t)})
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("error = %v, want *FatalError", err)
	}
	if client.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1 (auth errors must not be retried)", client.Calls())
	}
}

func TestSendRepairTagAndParent(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{ResponseText: `{"summary":"fixed"}`}
	gw := New(client, st, testLogger(), testOptions())
	req := testRequest(t)

	reply, err := gw.Send(context.Background(), Call{
		Request:       req,
		Messages:      []providers.Message{{Role: "user", Content: "fix it"}},
		Tag:           store.ReplyTagRepair,
		Attempt:       1,
		ParentReplyID: "parent-1",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if reply.Tag != store.ReplyTagRepair {
		t.Errorf("Tag = %q, want repair", reply.Tag)
	}
	if reply.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", reply.Attempt)
	}
	if reply.ParentReplyID != "parent-1" {
		t.Errorf("ParentReplyID = %q", reply.ParentReplyID)
	}
}

func TestSendCancelledContext(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{ResponseText: `{"summary":"ok"}`, Latency: 200 * time.Millisecond}
	gw := New(client, st, testLogger(), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Send(ctx, Call{Request: testRequest(t)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
