// internal/webagent/mocks_test.go
package webagent

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// -- Decision Oracle Mock --

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Decide(ctx context.Context, req schemas.DecisionRequest) (schemas.Decision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return schemas.Decision{}, args.Error(1)
	}
	return args.Get(0).(schemas.Decision), args.Error(1)
}

// -- Browser Driver Mock --

// MockDriver scripts a sequence of page captures: each Capture call returns
// the next entry, sticking on the last one.
type MockDriver struct {
	mock.Mock
	mu       sync.Mutex
	captures []schemas.RawSignals
	captured int
}

func (m *MockDriver) queueCapture(signals ...schemas.RawSignals) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = append(m.captures, signals...)
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDriver) Capture(ctx context.Context) (schemas.RawSignals, error) {
	args := m.Called(ctx)
	if args.Error(1) != nil {
		return schemas.RawSignals{}, args.Error(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.captures) == 0 {
		return schemas.RawSignals{}, args.Error(1)
	}
	idx := m.captured
	if idx >= len(m.captures) {
		idx = len(m.captures) - 1
	}
	m.captured++
	return m.captures[idx], nil
}

func (m *MockDriver) Click(ctx context.Context, selector string) error {
	args := m.Called(ctx, selector)
	return args.Error(0)
}

func (m *MockDriver) TypeText(ctx context.Context, selector, text string, submit bool) error {
	args := m.Called(ctx, selector, text, submit)
	return args.Error(0)
}

func (m *MockDriver) Scroll(ctx context.Context, deltaY float64) error {
	args := m.Called(ctx, deltaY)
	return args.Error(0)
}

func (m *MockDriver) WaitReady(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Knowledge Store Mock --

type MockKnowledgeStore struct {
	mock.Mock
	mu       sync.Mutex
	recorded []schemas.StepOutcome
}

func (m *MockKnowledgeStore) Load(ctx context.Context, domain string) (schemas.SiteKnowledge, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return schemas.SiteKnowledge{}, args.Error(1)
	}
	return args.Get(0).(schemas.SiteKnowledge), args.Error(1)
}

func (m *MockKnowledgeStore) Record(ctx context.Context, domain string, outcome schemas.StepOutcome) error {
	m.mu.Lock()
	m.recorded = append(m.recorded, outcome)
	m.mu.Unlock()
	args := m.Called(ctx, domain, outcome)
	return args.Error(0)
}

func (m *MockKnowledgeStore) Recorded() []schemas.StepOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schemas.StepOutcome, len(m.recorded))
	copy(out, m.recorded)
	return out
}

// -- Intervention Sink Mock --

type MockSink struct {
	mock.Mock
	mu      sync.Mutex
	emitted []schemas.Intervention
}

func (m *MockSink) Emit(ctx context.Context, iv schemas.Intervention, screenshot []byte) error {
	m.mu.Lock()
	m.emitted = append(m.emitted, iv)
	m.mu.Unlock()
	args := m.Called(ctx, iv, screenshot)
	return args.Error(0)
}

func (m *MockSink) Emitted() []schemas.Intervention {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schemas.Intervention, len(m.emitted))
	copy(out, m.emitted)
	return out
}
