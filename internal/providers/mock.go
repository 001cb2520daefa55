package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing. Responses, when set, are
// returned in order across successive calls, which lets tests script a
// malformed first reply followed by a corrected repair reply.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailFirst    int // Fail the first N requests (0 = never)
	FailErr      error
	ResponseText string
	Responses    []string

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	cursor       int
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: `{"summary":"mock"}`,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Calls returns how many chat requests the mock has received.
func (c *MockClient) Calls() int {
	return int(c.requestCount.Load())
}

// Chat returns the next scripted response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		RequestID: req.RequestID,
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}
	if result.RequestID == "" {
		result.RequestID = fmt.Sprintf("mock-%d", count)
	}

	if c.ShouldFail || (c.FailFirst > 0 && int(count) <= c.FailFirst) {
		err := c.FailErr
		if err == nil {
			err = fmt.Errorf("mock client configured to fail")
		}
		result.ErrorType = "mock_failure"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			result.ErrorType = "context_cancelled"
			result.ErrorMessage = ctx.Err().Error()
			result.ExecutionTime = time.Since(start)
			return result, ctx.Err()
		}
	}

	result.Success = true
	result.Content = c.nextResponse()
	result.ExecutionTime = time.Since(start)

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(result.Content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	return result, nil
}

func (c *MockClient) nextResponse() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Responses) == 0 {
		return c.ResponseText
	}
	resp := c.Responses[c.cursor]
	if c.cursor < len(c.Responses)-1 {
		c.cursor++
	}
	return resp
}

// MockOCRProvider is an OCRProvider for testing.
type MockOCRProvider struct {
	Text       string
	ShouldFail bool
	pages      atomic.Int64
}

// Name returns the provider identifier.
func (p *MockOCRProvider) Name() string {
	return "mock-ocr"
}

// Pages returns how many pages were processed.
func (p *MockOCRProvider) Pages() int {
	return int(p.pages.Load())
}

// ProcessImage returns the scripted text.
func (p *MockOCRProvider) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	p.pages.Add(1)
	if p.ShouldFail {
		return &OCRResult{ErrorMessage: "mock ocr failure"}, fmt.Errorf("mock ocr failure")
	}
	return &OCRResult{Success: true, Text: p.Text}, nil
}

var (
	_ LLMClient   = (*MockClient)(nil)
	_ OCRProvider = (*MockOCRProvider)(nil)
)
