package signaling

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type frame struct {
	kind FrameKind
	data []byte
}

// mockEndpoint records every frame the hub sends.
type mockEndpoint struct {
	mu      sync.Mutex
	sent    []frame
	pings   int
	closed  bool
	pingErr error
}

func (m *mockEndpoint) Send(kind FrameKind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.sent = append(m.sent, frame{kind: kind, data: data})
	return nil
}

func (m *mockEndpoint) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.pings++
	return m.pingErr
}

func (m *mockEndpoint) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockEndpoint) frames() []frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]frame(nil), m.sent...)
}

func (m *mockEndpoint) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockEndpoint) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

// replies decodes every text frame sent so far.
func (m *mockEndpoint) replies(t *testing.T) []Reply {
	t.Helper()
	var out []Reply
	for _, f := range m.frames() {
		if f.kind != FrameText {
			continue
		}
		var r Reply
		require.NoError(t, json.Unmarshal(f.data, &r))
		out = append(out, r)
	}
	return out
}

func (m *mockEndpoint) last(t *testing.T) Reply {
	t.Helper()
	rs := m.replies(t)
	require.NotEmpty(t, rs, "no replies sent")
	return rs[len(rs)-1]
}

func (m *mockEndpoint) binary() [][]byte {
	var out [][]byte
	for _, f := range m.frames() {
		if f.kind == FrameBinary {
			out = append(out, f.data)
		}
	}
	return out
}

func (m *mockEndpoint) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(id, addr string) (*Client, *mockEndpoint) {
	ep := &mockEndpoint{}
	return NewClient(id, addr, ep), ep
}

// alwaysThrottle rejects every attempt.
type alwaysThrottle struct{}

func (alwaysThrottle) ShouldThrottle(_ context.Context, _ string, _ time.Time) bool { return true }

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
