package shell

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"
)

// newTestConfig creates a ConnectionConfig with short windows suitable for tests.
func newTestConfig(t *testing.T, opts ...ConnOption) *ConnectionConfig {
	t.Helper()

	defaults := []ConnOption{
		WithConnectWait(0),
		WithBannerWindow(100 * time.Millisecond),
		WithNegotiationSettle(20 * time.Millisecond),
		WithFlushWindow(20 * time.Millisecond),
		WithSettleDelay(20 * time.Millisecond),
		WithCollectWindow(100 * time.Millisecond),
		WithSendTimeout(time.Second),
	}

	cfg, err := NewConnectionConfig("127.0.0.1", DefaultPort, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg
}

// newTestSession creates a Session backed by the local end of net.Pipe().
// Returns the session and the remote end for controller simulation.
func newTestSession(t *testing.T, cfg *ConnectionConfig) (*Session, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	sess, err := NewSession(local, cfg)
	if err != nil {
		t.Fatalf("newTestSession: %v", err)
	}

	return sess, remote
}

// answerOnce reads one CR-terminated command from remote, sends it on the
// returned channel and then writes reply.
func answerOnce(t *testing.T, remote net.Conn, reply []byte) <-chan string {
	t.Helper()

	got := make(chan string, 1)
	go func() {
		defer close(got)

		cmd, err := bufio.NewReader(remote).ReadString('\r')
		if err != nil {
			return
		}
		got <- cmd[:len(cmd)-1]

		if len(reply) > 0 {
			_, _ = remote.Write(reply)
		}
	}()

	return got
}

// readExactly reads exactly n bytes from r, failing the test on error.
func readExactly(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Errorf("readExactly: %v", err)
	}

	return buf
}
