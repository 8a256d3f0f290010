package realtime

import (
	"context"
	"sync"
)

var _ Adapter = (*MockAdapter)(nil)

// MockAdapter answers reply requests locally. It stands in for the OpenAI
// backend when no credential is configured and doubles as the test fake:
// every call is recorded and failures can be scripted per call.
type MockAdapter struct {
	mu           sync.Mutex
	replies      []string
	instructions []string
	replyErrs    []error
	closed       bool
	closeCount   int
}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

// FailReplies queues errors returned by the next GenerateReply calls, in
// order. A nil entry means that call succeeds.
func (a *MockAdapter) FailReplies(errs ...error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replyErrs = append(a.replyErrs, errs...)
}

func (a *MockAdapter) GenerateReply(ctx context.Context, instructions string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies = append(a.replies, instructions)
	if len(a.replyErrs) > 0 {
		err := a.replyErrs[0]
		a.replyErrs = a.replyErrs[1:]
		return err
	}
	return nil
}

func (a *MockAdapter) UpdateInstructions(_ context.Context, instructions string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.instructions = append(a.instructions, instructions)
	return nil
}

func (a *MockAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.closeCount++
	return nil
}

// Replies returns the instructions passed to each GenerateReply call.
func (a *MockAdapter) Replies() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.replies))
	copy(out, a.replies)
	return out
}

// Instructions returns the values passed to each UpdateInstructions call.
func (a *MockAdapter) Instructions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.instructions))
	copy(out, a.instructions)
	return out
}

// CloseCount reports how many times Close was called.
func (a *MockAdapter) CloseCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeCount
}
