package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a mock translation provider for testing and dry runs.
type MockProvider struct {
	Translations map[string]string // Map of source text to translation
	Errors       map[string]error  // Source texts that fail with the given error
	CallCount    int               // Number of times Translate was called
	LastRequest  *TranslateRequest // Last request received

	mu sync.Mutex
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":       "Ciao",
			"World":       "Mondo",
			"Hello World": "Ciao Mondo",
		},
		Errors: map[string]error{},
	}
}

// Translate returns mock translations.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastRequest = &req

	if err, ok := m.Errors[req.Text]; ok {
		return "", err
	}
	if translation, ok := m.Translations[req.Text]; ok {
		return translation, nil
	}
	// Return bracketed text for unknown translations
	return fmt.Sprintf("[%s]", req.Text), nil
}

// Calls returns the call count under lock.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.LastRequest = nil
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
