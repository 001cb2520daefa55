// Package gateway sends prompt requests to a model provider with
// bounded retries and persists every raw reply before handing it to
// downstream validation.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/whitewolf2000ani/sdx/internal/prompts"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/store"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 10 * time.Second
	defaultCallTimeout = 120 * time.Second
)

// Options tunes retry and timeout behavior.
type Options struct {
	MaxAttempts int           // Transport attempts per call (default 3)
	BaseDelay   time.Duration // First backoff delay (default 500ms)
	MaxDelay    time.Duration // Backoff cap (default 10s)
	CallTimeout time.Duration // Per-attempt deadline (default 120s)
	Model       string        // Model override passed to the provider
	MaxTokens   int
	Temperature float64
}

// Call is one model invocation. Messages, when set, carry a multi-turn
// repair conversation; otherwise the prompt request's system and user
// text form the conversation.
type Call struct {
	Request       prompts.Request
	Messages      []providers.Message
	Tag           string // store reply tag; defaults to "initial"
	Attempt       int    // 0 for the initial call, 1.. for repairs
	ParentReplyID string // reply being repaired, when Tag is "repair"
}

// Gateway mediates between prompt construction and a chat provider.
type Gateway struct {
	client providers.LLMClient
	store  store.Store
	logger *slog.Logger
	opts   Options
}

// New creates a gateway. The store must not be nil: replies are
// evidence and are persisted even when validation later fails.
func New(client providers.LLMClient, st store.Store, logger *slog.Logger, opts Options) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	return &Gateway{
		client: client,
		store:  st,
		logger: logger,
		opts:   opts,
	}
}

// Send performs one model call with transport-level retries, persists
// the raw reply, and returns it. Schema conformance is not checked
// here; malformed content still comes back as a persisted reply.
func (g *Gateway) Send(ctx context.Context, call Call) (*store.Reply, error) {
	if call.Tag == "" {
		call.Tag = store.ReplyTagInitial
	}

	messages := call.Messages
	if len(messages) == 0 {
		messages = []providers.Message{
			{Role: "system", Content: call.Request.System},
			{Role: "user", Content: call.Request.User},
		}
	}

	chatReq := &providers.ChatRequest{
		Messages:    messages,
		Model:       g.opts.Model,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
		Timeout:     g.opts.CallTimeout,
		ForceJSON:   true,
		RequestID:   call.Request.Fingerprint,
	}

	var result *providers.ChatResult
	attempts := 0

	err := retry.Do(
		func() error {
			attempts++
			var callErr error
			result, callErr = g.client.Chat(ctx, chatReq)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(g.opts.MaxAttempts)),
		retry.Delay(g.opts.BaseDelay),
		retry.MaxDelay(g.opts.MaxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(g.opts.BaseDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn("model call retry",
				"request", call.Request.Fingerprint,
				"attempt", n+1,
				"error", err)
		}),
	)

	if err != nil {
		// A cancelled call that still produced text is persisted so the
		// partial evidence is not lost.
		if ctxErr := ctx.Err(); ctxErr != nil && result != nil && result.Content != "" {
			cancelled := g.buildReply(call, result)
			cancelled.Tag = store.ReplyTagCancelled
			if saveErr := g.store.SaveReply(context.WithoutCancel(ctx), cancelled); saveErr != nil {
				g.logger.Error("failed to persist cancelled reply",
					"request", call.Request.Fingerprint, "error", saveErr)
			}
		}
		return nil, classify(err, attempts)
	}

	reply := g.buildReply(call, result)
	if saveErr := g.store.SaveReply(ctx, reply); saveErr != nil {
		return nil, fmt.Errorf("reply received but not persisted: %w", saveErr)
	}

	g.logger.Info("model reply persisted",
		"reply", reply.ID,
		"request", call.Request.Fingerprint,
		"tag", reply.Tag,
		"attempt", reply.Attempt,
		"tokens", result.TotalTokens)

	return reply, nil
}

func (g *Gateway) buildReply(call Call, result *providers.ChatResult) *store.Reply {
	return &store.Reply{
		RequestID:        call.Request.Fingerprint,
		ParentReplyID:    call.ParentReplyID,
		ArtifactID:       call.Request.ArtifactID,
		SchemaID:         string(call.Request.SchemaID),
		Tag:              call.Tag,
		Attempt:          call.Attempt,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		Content:          result.Content,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		LatencyMS:        result.ExecutionTime.Milliseconds(),
		CreatedAt:        time.Now().UTC(),
	}
}

// isTransient reports whether a provider error is worth another
// transport attempt.
func isTransient(err error) bool {
	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Rate limits, per-attempt deadline hits, and transport faults all
	// qualify.
	return true
}

func classify(err error, attempts int) error {
	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return &FatalError{Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransientError{Attempts: attempts, Err: err}
}
