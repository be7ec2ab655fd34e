package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_LiteralIP(t *testing.T) {
	for _, host := range []string{"127.0.0.1", "::1"} {
		ip, err := Lookup(context.Background(), host)
		require.NoError(t, err)
		assert.Equal(t, host, ip)
	}
}

func TestPick(t *testing.T) {
	ip, err := pick([]string{"2001:db8::1", "192.0.2.10"})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", ip)

	ip, err = pick([]string{"2001:db8::1"})
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", ip)

	_, err = pick(nil)
	assert.ErrorIs(t, err, errNoAddress)
}

func TestResolver_SystemAnswerWins(t *testing.T) {
	r := &Resolver{
		SystemTimeout: time.Second,
		RaceTimeout:   time.Second,
		system: func(context.Context, string) ([]string, error) {
			return []string{"2001:db8::7", "203.0.113.7"}, nil
		},
	}
	ip, err := r.Lookup(context.Background(), "hub.example")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestResolver_BothFail(t *testing.T) {
	r := &Resolver{
		SystemTimeout: time.Second,
		RaceTimeout:   time.Second,
		system: func(context.Context, string) ([]string, error) {
			return nil, errors.New("no such host")
		},
	}
	_, err := r.Lookup(context.Background(), "hub.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such host")
	assert.Contains(t, err.Error(), "no fallback servers")
}

func TestDialContext_LiteralAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conn, err := DialContext(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()
}
