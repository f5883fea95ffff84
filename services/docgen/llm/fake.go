package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Client for tests. Responses are consumed in order;
// when the script runs out the last response repeats.
type Fake struct {
	mu        sync.Mutex
	responses []string
	err       error
	available bool

	// Requests records every request received, in order.
	Requests []Request
}

// NewFake returns an available fake that answers with the given
// responses.
func NewFake(responses ...string) *Fake {
	return &Fake{responses: responses, available: true}
}

// NewFailingFake returns a fake whose Complete always returns err and
// whose CheckAvailable reports false.
func NewFailingFake(err error) *Fake {
	return &Fake{err: err}
}

// Model implements Client.
func (f *Fake) Model() string { return "fake" }

// Complete implements Client.
func (f *Fake) Complete(ctx context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, ErrNoContent
	}
	content := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return &Response{Content: content, Model: "fake", TotalTokens: len(content)}, nil
}

// CheckAvailable implements Client.
func (f *Fake) CheckAvailable(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}
