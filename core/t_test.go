package core

import (
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Dyastin-0/lanmsg/logger"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Hostname = "self"
	cfg.DiscoveryAddr = "127.0.0.1:0"
	cfg.TransferAddr = "127.0.0.1:0"
	cfg.BroadcastAddr = "127.0.0.1"
	cfg.ReceiveDir = filepath.Join(t.TempDir(), ReceiveDir)
	cfg.IOTimeout = 2 * time.Second
	cfg.EventBuffer = 4096
	return cfg
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) drain(t *testing.T, c *Client) {
	ctx := t.Context()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-c.Events():
				r.emit(e)
			}
		}
	}()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) messages() []MessageReceived {
	var out []MessageReceived
	for _, e := range r.snapshot() {
		if m, ok := e.(MessageReceived); ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) found() []PeerFound {
	var out []PeerFound
	for _, e := range r.snapshot() {
		if p, ok := e.(PeerFound); ok {
			out = append(out, p)
		}
	}
	return out
}

func (r *recorder) failures() []TransferFailed {
	var out []TransferFailed
	for _, e := range r.snapshot() {
		if f, ok := e.(TransferFailed); ok {
			out = append(out, f)
		}
	}
	return out
}

// progress groups progress events by transfer, in emission order.
func (r *recorder) progress(d Direction) map[string][]FileProgress {
	out := make(map[string][]FileProgress)
	for _, e := range r.snapshot() {
		if p, ok := e.(FileProgress); ok && p.Direction == d {
			out[p.ID] = append(out[p.ID], p)
		}
	}
	return out
}

func requireMonotonic(t *testing.T, seq []FileProgress) {
	t.Helper()

	require.NotEmpty(t, seq)
	for i := 1; i < len(seq); i++ {
		require.GreaterOrEqual(t, seq[i].Percent, seq[i-1].Percent, "progress went backwards at %d", i)
	}
	require.Equal(t, 100, seq[len(seq)-1].Percent)
}

func createFile(t *testing.T, dir, name string, size int) (string, []byte) {
	t.Helper()

	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func port(addr net.Addr) int {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.Port
	case *net.UDPAddr:
		return a.Port
	}
	return 0
}

// startPair runs a receiving client and returns a client configured to
// send to it, with each one's events recorded.
func startPair(t *testing.T, mutate func(*Config)) (*Client, *recorder, *Client, *recorder) {
	t.Helper()

	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	server := NewClient(cfg, logger.Nop())
	require.NoError(t, server.StartServer(t.Context()))
	t.Cleanup(func() { server.Close() })

	scfg := cfg
	scfg.TransferPort = port(server.TransferAddr())
	sender := NewClient(scfg, logger.Nop())
	t.Cleanup(func() { sender.Close() })

	srec, crec := &recorder{}, &recorder{}
	srec.drain(t, server)
	crec.drain(t, sender)

	return server, srec, sender, crec
}
