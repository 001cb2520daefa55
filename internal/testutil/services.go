package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/whitewolf2000ani/sdx/internal/gateway"
	"github.com/whitewolf2000ani/sdx/internal/normalize"
	"github.com/whitewolf2000ani/sdx/internal/pipeline"
	"github.com/whitewolf2000ani/sdx/internal/privacy"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/record"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/svcctx"
	"github.com/whitewolf2000ani/sdx/internal/validate"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewServices wires a full pipeline on the in-memory store, backed by
// the given chat client and a mock OCR provider. Suitable for endpoint
// and pipeline tests that need the whole stack without Docker.
func NewServices(llm providers.LLMClient) *svcctx.Services {
	logger := Logger()
	st := store.NewMem()

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.RegisterLLM("mock", llm)
	registry.RegisterOCR("mock", &providers.MockOCRProvider{Text: "ocr text"})

	gw := gateway.New(llm, st, logger, gateway.Options{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: 5 * time.Second,
		Model:       "mock-model",
	})

	runner := pipeline.New(
		st,
		normalize.New(&providers.MockOCRProvider{Text: "ocr text"}, logger),
		privacy.NewDeidentifier("test-salt"),
		gw,
		validate.New(gw, logger, 1),
		record.New(st, logger),
		logger,
	)

	return &svcctx.Services{
		Store:    st,
		Runner:   runner,
		Registry: registry,
		Logger:   logger,
	}
}

// FindFreePort finds an available TCP port and returns it as a string.
func FindFreePort() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer listener.Close()
	return fmt.Sprintf("%d", listener.Addr().(*net.TCPAddr).Port), nil
}
