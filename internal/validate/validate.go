// Package validate turns raw model replies into schema-conformant
// documents, driving a bounded repair conversation when a reply is
// malformed. A document that never passes its schema never leaves this
// package as anything but a failure.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whitewolf2000ani/sdx/internal/gateway"
	"github.com/whitewolf2000ani/sdx/internal/prompts"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/schema"
	"github.com/whitewolf2000ani/sdx/internal/store"
)

// DefaultMaxRepairAttempts bounds the repair loop after the initial reply.
const DefaultMaxRepairAttempts = 2

// Status classifies the outcome of validating one reply chain.
type Status string

const (
	StatusValid    Status = "valid"    // First reply passed as-is
	StatusRepaired Status = "repaired" // Passed after one or more repair turns
	StatusFailed   Status = "failed"   // Exhausted repairs without a conformant document
)

// SchemaViolationError carries the last violation when validation fails.
type SchemaViolationError struct {
	SchemaID schema.ID
	Attempts int
	Err      error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("reply never conformed to schema %s after %d attempts: %v", e.SchemaID, e.Attempts, e.Err)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Err
}

// Result is the outcome of validating one reply chain. ReplyIDs lists
// every persisted reply in order, initial first, so callers can walk
// the audit trail.
type Result struct {
	Status   Status
	Document json.RawMessage // Set when Status is valid or repaired
	ReplyIDs []string
	Failure  error // Set when Status is failed
}

// Validator checks replies against their schema and negotiates repairs
// through the gateway.
type Validator struct {
	gw           *gateway.Gateway
	logger       *slog.Logger
	repairBudget int
}

// New creates a validator. repairBudget <= 0 selects the default.
func New(gw *gateway.Gateway, logger *slog.Logger, repairBudget int) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if repairBudget <= 0 {
		repairBudget = DefaultMaxRepairAttempts
	}
	return &Validator{gw: gw, logger: logger, repairBudget: repairBudget}
}

// Validate checks the initial reply for the given request and, when it
// is malformed, drives up to repairBudget repair calls. Every reply in
// the chain is already persisted by the gateway before Validate sees it.
func (v *Validator) Validate(ctx context.Context, req prompts.Request, initial *store.Reply) (*Result, error) {
	result := &Result{ReplyIDs: []string{initial.ID}}

	doc, issue := v.check(req.SchemaID, initial.Content)
	if issue == nil {
		result.Status = StatusValid
		result.Document = doc
		return result, nil
	}

	last := initial
	for attempt := 1; attempt <= v.repairBudget; attempt++ {
		v.logger.Info("requesting repair",
			"request", req.Fingerprint,
			"schema", req.SchemaID,
			"attempt", attempt,
			"issue", issue)

		reply, err := v.gw.Send(ctx, gateway.Call{
			Request:       req,
			Messages:      repairConversation(req, last.Content, issue),
			Tag:           store.ReplyTagRepair,
			Attempt:       attempt,
			ParentReplyID: last.ID,
		})
		if err != nil {
			result.Status = StatusFailed
			result.Failure = err
			return result, nil
		}

		result.ReplyIDs = append(result.ReplyIDs, reply.ID)
		last = reply

		doc, issue = v.check(req.SchemaID, reply.Content)
		if issue == nil {
			result.Status = StatusRepaired
			result.Document = doc
			return result, nil
		}
	}

	result.Status = StatusFailed
	result.Failure = &SchemaViolationError{
		SchemaID: req.SchemaID,
		Attempts: v.repairBudget + 1,
		Err:      issue,
	}
	return result, nil
}

// check parses reply content and validates it against the schema.
func (v *Validator) check(id schema.ID, content string) (json.RawMessage, error) {
	doc, err := parseReplyJSON(content)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(id, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// repairConversation rebuilds the chat with the failing reply and a
// correction instruction appended.
func repairConversation(req prompts.Request, lastOutput string, issue error) []providers.Message {
	return []providers.Message{
		{Role: "system", Content: req.System},
		{Role: "user", Content: req.User},
		{Role: "assistant", Content: lastOutput},
		{Role: "user", Content: repairPrompt(req.SchemaID, lastOutput, issue)},
	}
}

func repairPrompt(id schema.ID, lastOutput string, issue error) string {
	schemaText := ""
	if s, err := schema.Get(id); err == nil {
		schemaText = string(s.Raw)
	}
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > 12000 {
		lastOutput = lastOutput[:12000] + "\n...[truncated]"
	}

	return fmt.Sprintf(`Return ONLY valid JSON (no markdown, no commentary) that strictly conforms to this schema.

Schema:
%s

Your previous output:
%s

Validation issue:
%v`, schemaText, lastOutput, issue)
}
