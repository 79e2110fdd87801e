package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SentMessage records one Send call on the MockAdapter.
type SentMessage struct {
	Recipient int64
	Msg       Outbound
}

// MockAdapter implements Adapter for testing. It records sent messages,
// allows simulating inbound events, and can be scripted to fail sends
// per recipient.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan Event
	sent      []SentMessage
	failures  map[int64][]error // scripted outcomes, consumed in order
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound:  make(chan Event, 100),
		failures: make(map[int64][]error),
	}
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound event channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// Send records the outbound message, or returns the next scripted
// failure for the recipient if one is queued.
func (m *MockAdapter) Send(ctx context.Context, recipient int64, msg Outbound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	if queue := m.failures[recipient]; len(queue) > 0 {
		err := queue[0]
		m.failures[recipient] = queue[1:]
		if err != nil {
			return err
		}
	}
	m.sent = append(m.sent, SentMessage{Recipient: recipient, Msg: msg})
	return nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// --- Test helpers ---

// FailNext queues send outcomes for a recipient. Each Send consumes one
// queued entry; a nil entry means "succeed". Once the queue is drained,
// sends succeed again.
func (m *MockAdapter) FailNext(recipient int64, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[recipient] = append(m.failures[recipient], errs...)
}

// SimulateInbound delivers an event as if it came from the platform.
func (m *MockAdapter) SimulateInbound(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.inbound <- ev
}

// LastSent returns the most recently sent message.
func (m *MockAdapter) LastSent() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of successful sends.
func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all successfully sent messages.
func (m *MockAdapter) AllSent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo returns all messages sent to one recipient.
func (m *MockAdapter) SentTo(recipient int64) []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentMessage
	for _, s := range m.sent {
		if s.Recipient == recipient {
			out = append(out, s)
		}
	}
	return out
}
