package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Mock is a deterministic in-memory processor for tests and local dev. It
// honors idempotency keys the same way the real API does: a repeated key
// returns the original object instead of creating a new one.
type Mock struct {
	mu sync.Mutex

	FailCreateIntent bool
	FailCapture      bool
	FailCancel       bool
	FailTransfer     bool

	intents   map[string]CreateIntentResponse // by idempotency key
	transfers map[string]CreateTransferResponse
	captured  map[string]bool // by intent ref

	seq int
}

func NewMock() *Mock {
	return &Mock{
		intents:   map[string]CreateIntentResponse{},
		transfers: map[string]CreateTransferResponse{},
		captured:  map[string]bool{},
	}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) CreateIntent(_ context.Context, req CreateIntentRequest) (CreateIntentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateIntent {
		return CreateIntentResponse{}, errors.New("mock: intent creation refused")
	}
	if prev, ok := m.intents[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return prev, nil
	}

	m.seq++
	resp := CreateIntentResponse{
		IntentRef:    fmt.Sprintf("pi_mock_%04d", m.seq),
		ClientSecret: fmt.Sprintf("pi_mock_%04d_secret", m.seq),
		Status:       IntentRequiresCapture,
	}
	if req.IdempotencyKey != "" {
		m.intents[req.IdempotencyKey] = resp
	}
	return resp, nil
}

func (m *Mock) CaptureIntent(_ context.Context, req CaptureRequest) (CaptureResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCapture {
		return CaptureResponse{}, errors.New("mock: capture refused")
	}
	m.captured[req.IntentRef] = true
	return CaptureResponse{Status: IntentSucceeded}, nil
}

func (m *Mock) CancelIntent(_ context.Context, req CancelIntentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCancel {
		return errors.New("mock: cancel refused")
	}
	if m.captured[req.IntentRef] {
		return errors.New("mock: cannot cancel captured intent")
	}
	return nil
}

func (m *Mock) CreateTransfer(_ context.Context, req CreateTransferRequest) (CreateTransferResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailTransfer {
		return CreateTransferResponse{}, errors.New("mock: transfer refused")
	}
	if prev, ok := m.transfers[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return prev, nil
	}

	m.seq++
	resp := CreateTransferResponse{
		TransferRef: fmt.Sprintf("tr_mock_%04d", m.seq),
		Status:      TransferPending,
	}
	if req.IdempotencyKey != "" {
		m.transfers[req.IdempotencyKey] = resp
	}
	return resp, nil
}

func (m *Mock) CreateAccountLink(_ context.Context, req AccountLinkRequest) (AccountLinkResponse, error) {
	return AccountLinkResponse{URL: "https://connect.mock.example/onboard/" + req.AccountRef}, nil
}

// Captured reports whether an intent ref was captured; test helper.
func (m *Mock) Captured(intentRef string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captured[intentRef]
}

// TransferCount reports how many distinct transfers were created; test helper.
func (m *Mock) TransferCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transfers)
}
