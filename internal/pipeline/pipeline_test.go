package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/gateway"
	"github.com/whitewolf2000ani/sdx/internal/normalize"
	"github.com/whitewolf2000ani/sdx/internal/privacy"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/record"
	"github.com/whitewolf2000ani/sdx/internal/schema"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/validate"
)

const (
	diagnosisDoc = `{"summary":"Findings consistent with acute pancreatitis. Gallstone etiology suspected.","conditions":[{"display":"Acute pancreatitis","code":"K85.9","certainty":"provisional"}],"investigations":["Serum lipase","Abdominal ultrasound"]}`
	treatmentDoc = `{"summary":"NPO with aggressive IV fluid resuscitation. Analgesia titrated to effect.","medications":[{"name":"Ringer lactate","dosage":"250ml/h","frequency":"continuous"}]}`
	optionsDoc   = `{"summary":"Candidate investigations ordered by yield. Imaging follows labs.","options":["Serum lipase","Abdominal CT with contrast"]}`
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRunner wires a full pipeline over the in-memory store.
func newRunner(st store.Store, client *providers.MockClient) *Runner {
	logger := testLogger()
	gw := gateway.New(client, st, logger, gateway.Options{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: time.Second,
		Model:       "mock-model",
	})
	return New(
		st,
		normalize.New(&providers.MockOCRProvider{Text: "ocr text"}, logger),
		privacy.NewDeidentifier("test-salt"),
		gw,
		validate.New(gw, logger, 1),
		record.New(st, logger),
		logger,
	)
}

func saveArtifact(t *testing.T, st store.Store, payload string) string {
	t.Helper()
	raw := artifact.New(artifact.KindText, []byte(payload), "note.txt")
	if err := st.SaveArtifact(context.Background(), &raw); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}
	return raw.ID
}

func TestRunCompleteRecord(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{Responses: []string{diagnosisDoc, treatmentDoc, optionsDoc}}
	runner := newRunner(st, client)

	id := saveArtifact(t, st, "54-year-old male with epigastric pain radiating to the back.")

	result, err := runner.Run(context.Background(), RunRequest{
		Session:     "session-1",
		ArtifactIDs: []string{id},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Record.Status != record.StatusComplete {
		t.Errorf("record Status = %q, want complete", result.Record.Status)
	}
	if result.Record.Version != 1 {
		t.Errorf("Version = %d, want 1", result.Record.Version)
	}
	if len(result.Fragments) != 3 {
		t.Fatalf("got %d fragments, want 3 (one per schema)", len(result.Fragments))
	}
	for _, frag := range result.Fragments {
		if frag.Status != validate.StatusValid {
			t.Errorf("fragment %s Status = %v, want valid", frag.SchemaID, frag.Status)
		}
	}
	if client.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", client.Calls())
	}
}

func TestRunSubsetOfSchemas(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{Responses: []string{diagnosisDoc}}
	runner := newRunner(st, client)

	id := saveArtifact(t, st, "Epigastric pain.")

	result, err := runner.Run(context.Background(), RunRequest{
		Session:     "session-1",
		ArtifactIDs: []string{id},
		Schemas:     []schema.ID{schema.DiagnosticReport},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Record.Status != record.StatusPartial {
		t.Errorf("Status = %q, want partial (one of three sections)", result.Record.Status)
	}
	if len(result.Fragments) != 1 {
		t.Errorf("got %d fragments, want 1", len(result.Fragments))
	}
}

func TestRunFailedSchemaDegradesToPartial(t *testing.T) {
	st := store.NewMem()
	// Diagnosis validates; treatment stays malformed through its repair;
	// the remaining replies serve the third schema.
	client := &providers.MockClient{Responses: []string{
		diagnosisDoc,
		`not json`,
		`still not json`,
		optionsDoc,
	}}
	runner := newRunner(st, client)

	id := saveArtifact(t, st, "Epigastric pain.")

	result, err := runner.Run(context.Background(), RunRequest{
		Session:     "session-1",
		ArtifactIDs: []string{id},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Record.Status != record.StatusPartial {
		t.Errorf("Status = %q, want partial", result.Record.Status)
	}

	statuses := make(map[schema.ID]validate.Status)
	for _, frag := range result.Fragments {
		statuses[frag.SchemaID] = frag.Status
	}
	if statuses[schema.DiagnosticReport] != validate.StatusValid {
		t.Errorf("diagnostic fragment = %v, want valid", statuses[schema.DiagnosticReport])
	}
	if statuses[schema.TreatmentPlan] != validate.StatusFailed {
		t.Errorf("treatment fragment = %v, want failed", statuses[schema.TreatmentPlan])
	}
}

func TestRunMissingArtifact(t *testing.T) {
	st := store.NewMem()
	runner := newRunner(st, providers.NewMockClient())

	_, err := runner.Run(context.Background(), RunRequest{
		Session:     "session-1",
		ArtifactIDs: []string{"missing"},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Run() = %v, want ErrNotFound", err)
	}
}

func TestRunNormalizationFailureAborts(t *testing.T) {
	st := store.NewMem()
	client := providers.NewMockClient()
	runner := newRunner(st, client)

	raw := artifact.New(artifact.KindText, []byte("   \n  "), "blank.txt")
	if err := st.SaveArtifact(context.Background(), &raw); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	_, err := runner.Run(context.Background(), RunRequest{
		Session:     "session-1",
		ArtifactIDs: []string{raw.ID},
	})
	var extractErr *artifact.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Run() = %v, want *ExtractionError", err)
	}
	if client.Calls() != 0 {
		t.Errorf("Calls() = %d, want 0 (no model calls before normalization succeeds)", client.Calls())
	}
}

func TestRunDeidentify(t *testing.T) {
	st := store.NewMem()
	client := &providers.MockClient{Responses: []string{diagnosisDoc}}
	runner := newRunner(st, client)

	id := saveArtifact(t, st, "Patient patient@example.com reports epigastric pain.")

	_, err := runner.Run(context.Background(), RunRequest{
		Session:     "session-1",
		ArtifactIDs: []string{id},
		Schemas:     []schema.ID{schema.DiagnosticReport},
		Deidentify:  privacy.StrategyMask,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The persisted reply's request belongs to the masked text; the raw
	// artifact keeps the original payload.
	stored, err := st.GetArtifact(context.Background(), id)
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if string(stored.Payload) != "Patient patient@example.com reports epigastric pain." {
		t.Error("raw artifact payload must stay untouched")
	}

	if _, err := runner.Run(context.Background(), RunRequest{
		Session:     "session-1",
		ArtifactIDs: []string{id},
		Deidentify:  "redact",
	}); err == nil {
		t.Error("unknown de-identification strategy should fail the run")
	}
}

func TestRunValidatesInput(t *testing.T) {
	runner := newRunner(store.NewMem(), providers.NewMockClient())

	if _, err := runner.Run(context.Background(), RunRequest{ArtifactIDs: []string{"x"}}); err == nil {
		t.Error("Run() should require a session")
	}
	if _, err := runner.Run(context.Background(), RunRequest{Session: "s"}); err == nil {
		t.Error("Run() should require at least one artifact")
	}
}
