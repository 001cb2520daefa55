// Package pipeline wires the extraction stages end to end: normalize,
// de-identify, prompt, call, validate, assemble.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
	"github.com/whitewolf2000ani/sdx/internal/gateway"
	"github.com/whitewolf2000ani/sdx/internal/normalize"
	"github.com/whitewolf2000ani/sdx/internal/privacy"
	"github.com/whitewolf2000ani/sdx/internal/prompts"
	"github.com/whitewolf2000ani/sdx/internal/record"
	"github.com/whitewolf2000ani/sdx/internal/schema"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/validate"
)

// RunRequest describes one pipeline run over already-uploaded artifacts.
type RunRequest struct {
	Session     string
	ArtifactIDs []string
	Schemas     []schema.ID       // Defaults to every registered schema
	Locale      string            // Defaults to "en"
	Options     map[string]string // Clinician guidance forwarded into prompts
	Deidentify  string            // "", "mask", or "hash"
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	Record    *record.ClinicalRecord
	Fragments []record.Fragment
}

// Runner drives artifacts through the full extraction pipeline.
type Runner struct {
	store      store.Store
	normalizer *normalize.Normalizer
	deid       *privacy.Deidentifier
	gw         *gateway.Gateway
	validator  *validate.Validator
	assembler  *record.Assembler
	logger     *slog.Logger
}

// New assembles a runner from its stages. The de-identifier may be nil
// when runs never request de-identification.
func New(
	st store.Store,
	normalizer *normalize.Normalizer,
	deid *privacy.Deidentifier,
	gw *gateway.Gateway,
	validator *validate.Validator,
	assembler *record.Assembler,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:      st,
		normalizer: normalizer,
		deid:       deid,
		gw:         gw,
		validator:  validator,
		assembler:  assembler,
		logger:     logger,
	}
}

// Run processes every (artifact, schema) pair and assembles the
// validated fragments into the session's next record version. A
// normalization failure aborts the run before any model call; model or
// validation failures degrade to failed fragments and only abort when
// nothing validated.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Session == "" {
		return nil, fmt.Errorf("session must not be empty")
	}
	if len(req.ArtifactIDs) == 0 {
		return nil, fmt.Errorf("at least one artifact is required")
	}

	schemas := req.Schemas
	if len(schemas) == 0 {
		all, err := schema.All()
		if err != nil {
			return nil, err
		}
		for _, s := range all {
			schemas = append(schemas, s.ID)
		}
	}

	texts := make([]artifact.NormalizedText, 0, len(req.ArtifactIDs))
	for _, id := range req.ArtifactIDs {
		raw, err := r.store.GetArtifact(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", id, err)
		}

		text, err := r.normalizer.Normalize(ctx, raw)
		if err != nil {
			return nil, err
		}

		if req.Deidentify != "" {
			if r.deid == nil {
				return nil, fmt.Errorf("de-identification requested but not configured")
			}
			cleaned, err := r.deid.Deidentify(text.Text, req.Deidentify)
			if err != nil {
				return nil, err
			}
			text.Text = cleaned
		}

		texts = append(texts, text)
	}

	var fragments []record.Fragment
	for _, text := range texts {
		for _, schemaID := range schemas {
			frag, err := r.extract(ctx, text, schemaID, req)
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, frag)
		}
	}

	rec, err := r.assembler.Assemble(ctx, req.Session, fragments)
	if err != nil {
		return nil, err
	}

	return &RunResult{Record: rec, Fragments: fragments}, nil
}

// extract runs one (artifact, schema) pair through prompt, gateway, and
// validation. Only context cancellation propagates as an error; other
// failures become failed fragments.
func (r *Runner) extract(ctx context.Context, text artifact.NormalizedText, schemaID schema.ID, req RunRequest) (record.Fragment, error) {
	frag := record.Fragment{
		ArtifactID: text.ArtifactID,
		SchemaID:   schemaID,
		Status:     validate.StatusFailed,
	}

	promptReq, err := prompts.Build(text, schemaID, req.Locale, req.Options)
	if err != nil {
		return frag, err
	}

	initial, err := r.gw.Send(ctx, gateway.Call{Request: promptReq})
	if err != nil {
		if ctx.Err() != nil {
			return frag, ctx.Err()
		}
		r.logger.Error("model call failed",
			"artifact", text.ArtifactID,
			"schema", schemaID,
			"error", err)
		frag.Failure = err.Error()
		return frag, nil
	}

	result, err := r.validator.Validate(ctx, promptReq, initial)
	if err != nil {
		return frag, err
	}

	frag.Status = result.Status
	frag.Document = result.Document
	frag.ReplyIDs = result.ReplyIDs
	if result.Failure != nil {
		frag.Failure = result.Failure.Error()
		if ctx.Err() != nil {
			return frag, ctx.Err()
		}
	}

	return frag, nil
}
