package validate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/gateway"
	"github.com/whitewolf2000ani/sdx/internal/prompts"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/schema"
	"github.com/whitewolf2000ani/sdx/internal/store"
)

const validOutput = `{"summary":"Reasoning summary. Two sentences.","options":["Serum lipase","Abdominal ultrasound"]}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires a gateway and validator over the in-memory store with a
// scripted mock client, then performs the initial model call.
func fixture(t *testing.T, client *providers.MockClient, repairBudget int) (*Validator, prompts.Request, *store.Reply, store.Store) {
	t.Helper()

	st := store.NewMem()
	gw := gateway.New(client, st, testLogger(), gateway.Options{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: time.Second,
		Model:       "mock-model",
	})

	text := artifact.NormalizedText{ArtifactID: "art-1", Text: "Epigastric pain radiating to the back."}
	req, err := prompts.Build(text, schema.ClinicalOutput, "en", nil)
	if err != nil {
		t.Fatalf("prompts.Build() error = %v", err)
	}

	initial, err := gw.Send(context.Background(), gateway.Call{Request: req})
	if err != nil {
		t.Fatalf("initial Send() error = %v", err)
	}

	return New(gw, testLogger(), repairBudget), req, initial, st
}

func TestValidateFirstReplyValid(t *testing.T) {
	client := &providers.MockClient{ResponseText: validOutput}
	v, req, initial, _ := fixture(t, client, 2)

	result, err := v.Validate(context.Background(), req, initial)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.Status != StatusValid {
		t.Errorf("Status = %v, want valid", result.Status)
	}
	if len(result.ReplyIDs) != 1 {
		t.Errorf("ReplyIDs = %v, want one entry", result.ReplyIDs)
	}
	if client.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1 (no repair needed)", client.Calls())
	}
}

func TestValidateStripsCodeFences(t *testing.T) {
	client := &providers.MockClient{ResponseText: "```json\n" + validOutput + "\n```"}
	v, req, initial, _ := fixture(t, client, 2)

	result, err := v.Validate(context.Background(), req, initial)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.Status != StatusValid {
		t.Errorf("Status = %v, want valid (fenced JSON should parse)", result.Status)
	}
}

func TestValidateRepairedAfterMalformedReply(t *testing.T) {
	client := &providers.MockClient{Responses: []string{
		`{"summary":"Missing the options field."}`,
		validOutput,
	}}
	v, req, initial, st := fixture(t, client, 2)

	result, err := v.Validate(context.Background(), req, initial)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.Status != StatusRepaired {
		t.Fatalf("Status = %v, want repaired", result.Status)
	}
	if len(result.ReplyIDs) != 2 {
		t.Fatalf("ReplyIDs = %v, want two entries", result.ReplyIDs)
	}

	// Both replies must be on the audit trail, repair linked to initial.
	replies, err := st.RepliesByRequest(context.Background(), req.Fingerprint)
	if err != nil {
		t.Fatalf("RepliesByRequest() error = %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("persisted %d replies, want 2", len(replies))
	}
	if replies[0].Tag != store.ReplyTagInitial {
		t.Errorf("first reply tag = %q, want initial", replies[0].Tag)
	}
	if replies[1].Tag != store.ReplyTagRepair {
		t.Errorf("second reply tag = %q, want repair", replies[1].Tag)
	}
	if replies[1].ParentReplyID != replies[0].ID {
		t.Error("repair reply not linked to the initial reply")
	}
}

func TestValidateBudgetExhausted(t *testing.T) {
	client := &providers.MockClient{ResponseText: `not json at all`}
	v, req, initial, st := fixture(t, client, 2)

	result, err := v.Validate(context.Background(), req, initial)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", result.Status)
	}

	var violation *SchemaViolationError
	if !errors.As(result.Failure, &violation) {
		t.Fatalf("Failure = %v, want *SchemaViolationError", result.Failure)
	}
	if violation.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3 (initial + 2 repairs)", violation.Attempts)
	}

	// Failed repairs remain persisted evidence.
	replies, err := st.RepliesByRequest(context.Background(), req.Fingerprint)
	if err != nil {
		t.Fatalf("RepliesByRequest() error = %v", err)
	}
	if len(replies) != 3 {
		t.Errorf("persisted %d replies, want 3", len(replies))
	}
}

func TestValidateGatewayFailureDuringRepair(t *testing.T) {
	client := &providers.MockClient{
		Responses: []string{`not json`},
		FailErr:   errors.New("connection reset"),
	}
	v, req, initial, _ := fixture(t, client, 2)

	// Every call after the initial one fails at the transport level.
	client.ShouldFail = true

	result, err := v.Validate(context.Background(), req, initial)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", result.Status)
	}
	var transient *gateway.TransientError
	if !errors.As(result.Failure, &transient) {
		t.Errorf("Failure = %v, want *gateway.TransientError", result.Failure)
	}
}
