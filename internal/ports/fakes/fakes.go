// Package fakes provides in-memory stand-ins for internal/ports interfaces,
// for use in tests that exercise internal/agentbridge and
// internal/thumbnail without a real model provider or headless browser.
package fakes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/antigravity-dev/webforge/internal/ports"
)

// Transport is a scripted LLMTransport: each call pops the next queued
// response (or error) in FIFO order.
type Transport struct {
	mu        sync.Mutex
	responses []ports.ChatResponse
	errs      []error
	Calls     []ports.ChatMessage
}

// NewTransport builds a Transport that will return responses in order.
func NewTransport(responses ...ports.ChatResponse) *Transport {
	return &Transport{responses: responses}
}

// Fail queues an error to be returned on a future call. Queued errors are
// returned in FIFO order before any remaining queued response.
func (t *Transport) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs = append(t.errs, err)
}

func (t *Transport) ChatComplete(_ context.Context, model string, messages []ports.ChatMessage, _ float64) (ports.ChatResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(messages) > 0 {
		t.Calls = append(t.Calls, messages[len(messages)-1])
	}
	if len(t.errs) > 0 {
		err := t.errs[0]
		t.errs = t.errs[1:]
		return ports.ChatResponse{}, err
	}
	if len(t.responses) == 0 {
		return ports.ChatResponse{}, errors.New("fake transport: no scripted response left")
	}
	resp := t.responses[0]
	t.responses = t.responses[1:]
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}

// BlobStore is an in-memory ports.BlobStore.
type BlobStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewBlobStore builds an empty BlobStore.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: map[string][]byte{}}
}

func (b *BlobStore) Put(_ context.Context, key string, content []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(content))
	copy(cp, content)
	b.data[key] = cp
	return nil
}

func (b *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	return v, nil
}

func (b *BlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

// Browser is a no-op ports.Browser that returns a fixed PNG payload.
type Browser struct {
	Shot         []byte
	Viewport     ports.Viewport
	URL          string
	LastFullPage bool
	closed       bool
}

func (b *Browser) Navigate(_ context.Context, url string) error {
	b.URL = url
	return nil
}

func (b *Browser) SetViewport(_ context.Context, v ports.Viewport) error {
	b.Viewport = v
	return nil
}

func (b *Browser) Screenshot(_ context.Context, fullPage bool) ([]byte, error) {
	b.LastFullPage = fullPage
	if b.Shot == nil {
		return []byte("fake-png-bytes"), nil
	}
	return b.Shot, nil
}

func (b *Browser) Close() error {
	b.closed = true
	return nil
}

// BrowserFactory hands out fresh fake Browsers.
type BrowserFactory struct {
	Shot []byte
}

func (f *BrowserFactory) NewBrowser(_ context.Context) (ports.Browser, error) {
	return &Browser{Shot: f.Shot}, nil
}
