package shell

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-trio/logger"
	"github.com/arloliu/go-trio/telnet"
)

func TestNewSession_NilArgs(t *testing.T) {
	local, _ := newPipe(t)

	_, err := NewSession(local, nil)
	require.ErrorIs(t, err, ErrConnConfigNil)

	_, err = NewSession(nil, newTestConfig(t))
	require.Error(t, err)

	_, err = Dial(context.Background(), nil)
	require.ErrorIs(t, err, ErrConnConfigNil)
}

func TestExchange_EchoAndPromptRemoved(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))
	got := answerOnce(t, remote, []byte("PRINT ATYPE\r\n4\r\n>>"))

	resp, err := sess.Exchange("PRINT ATYPE")
	require.NoError(t, err)
	assert.Equal(t, "4", resp)
	assert.Equal(t, "PRINT ATYPE", <-got)

	m := sess.Metrics()
	assert.Equal(t, uint64(1), m.ExchangeCount.Load())
	assert.Zero(t, m.ExchangeErrCount.Load())
	assert.Equal(t, uint64(len("PRINT ATYPE\r")), m.BytesSent.Load())
	assert.Equal(t, uint64(len("PRINT ATYPE\r\n4\r\n>>")), m.BytesRecv.Load())
}

func TestExchange_BlankResponseIsNotAnError(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))
	answerOnce(t, remote, []byte("\r\n   \r\n\r\n"))

	resp, err := sess.Exchange("BASE(4)")
	require.NoError(t, err)
	assert.Empty(t, resp)
	assert.Equal(t, uint64(1), sess.Metrics().EmptyResponseCount.Load())
}

func TestExchange_SilentController(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))
	got := answerOnce(t, remote, nil)

	begin := time.Now()
	resp, err := sess.Exchange("WA(10)")
	require.NoError(t, err)
	assert.Empty(t, resp)
	assert.Equal(t, "WA(10)", <-got)
	assert.GreaterOrEqual(t, time.Since(begin), 100*time.Millisecond)
}

func TestExchange_TelnetFramingInReply(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))

	reply := []byte{telnet.IAC, telnet.WILL, telnet.OptEcho}
	reply = append(reply, "PRINT 255\r\n"...)
	reply = append(reply, telnet.IAC, telnet.DO, telnet.OptSuppressGoAhead)
	reply = append(reply, "255\r\n>>"...)
	reply = append(reply, telnet.IAC, telnet.DO) // cut off at window end
	answerOnce(t, remote, reply)

	r, err := sess.ExchangeRaw("PRINT 255")
	require.NoError(t, err)
	assert.Equal(t, "255", r.Response)
	assert.Equal(t, "PRINT 255\r\n255\r\n>>", r.Text)
	assert.Equal(t, reply, r.Raw)
	assert.Equal(t, "PRINT 255", r.Command)
}

func TestExchange_FlushesStaleOutput(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))

	go func() {
		// Unsolicited output left from an earlier command.
		_, _ = remote.Write([]byte("late output\r\n>>"))
	}()
	time.Sleep(10 * time.Millisecond)

	got := answerOnce(t, remote, []byte("PRINT 1\r\n1\r\n>>"))

	resp, err := sess.Exchange("PRINT 1")
	require.NoError(t, err)
	assert.Equal(t, "1", resp)
	assert.Equal(t, "PRINT 1", <-got)
}

func TestExchange_InvalidCommand(t *testing.T) {
	sess, _ := newTestSession(t, newTestConfig(t))

	for _, cmd := range []string{"PRINT 1\rPRINT 2", "PRINT 1\n", "\r"} {
		_, err := sess.Exchange(cmd)
		require.ErrorIs(t, err, ErrInvalidCommand, "cmd %q", cmd)
	}
	assert.Zero(t, sess.Metrics().BytesSent.Load())
}

func TestExchange_WriteErrorIsReturned(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))
	require.NoError(t, remote.Close())

	_, err := sess.Exchange("PRINT 1")
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NotErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, uint64(1), sess.Metrics().ExchangeErrCount.Load())
}

func TestExchange_AfterClose(t *testing.T) {
	sess, _ := newTestSession(t, newTestConfig(t))
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close()) // idempotent

	_, err := sess.Exchange("PRINT 1")
	require.ErrorIs(t, err, ErrSessionClosed)

	_, err = sess.ConnectAndPrime()
	require.ErrorIs(t, err, ErrSessionClosed)

	_, err = sess.Drain(10 * time.Millisecond)
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestClose_AbortsSettleDelay(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t, WithSettleDelay(5*time.Second)))
	got := answerOnce(t, remote, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := sess.Exchange("PRINT 1")
		errCh <- err
	}()

	assert.Equal(t, "PRINT 1", <-got)
	require.NoError(t, sess.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not abort the settle delay")
	}
}

func TestClose_AbortsCollection(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t, WithSettleDelay(0), WithCollectWindow(5*time.Second)))
	got := answerOnce(t, remote, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := sess.Exchange("PRINT 1")
		errCh <- err
	}()

	<-got
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, sess.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not abort the collection")
	}
}

func TestCollect_StopsOnPeerClose(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))

	go func() {
		_, _ = remote.Write([]byte("abc"))
		_ = remote.Close()
	}()

	begin := time.Now()
	data, err := sess.collect(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
	assert.Less(t, time.Since(begin), time.Second)
}

func TestCollect_IdleWindow(t *testing.T) {
	sess, _ := newTestSession(t, newTestConfig(t))

	begin := time.Now()
	data, err := sess.collect(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.GreaterOrEqual(t, time.Since(begin), 50*time.Millisecond)
}

func TestCollect_GathersChunks(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t, WithReadChunkSize(16)))

	go func() {
		_, _ = remote.Write([]byte("first chunk that is longer than sixteen bytes\r\n"))
		time.Sleep(20 * time.Millisecond)
		_, _ = remote.Write([]byte("second\r\n"))
	}()

	data, err := sess.collect(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "first chunk that is longer than sixteen bytes\r\nsecond\r\n", string(data))
}

func TestDrain(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))

	go func() {
		_, _ = remote.Write([]byte{telnet.IAC, telnet.DO, telnet.OptEcho})
		_, _ = remote.Write([]byte("\r\nMC_CONFIG stored in flash\r\n>>"))
	}()

	text, err := sess.Drain(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "\r\nMC_CONFIG stored in flash\r\n>>", text)

	_, err = sess.Drain(0)
	require.Error(t, err)
}

func TestConnectAndPrime_AnswersNegotiation(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))

	replyCh := make(chan []byte, 1)
	go func() {
		greeting := []byte{telnet.IAC, telnet.DO, telnet.OptEcho, telnet.IAC, telnet.WILL, telnet.OptSuppressGoAhead}
		greeting = append(greeting, "\r\nMC508 ready\r\n"...)
		_, _ = remote.Write(greeting)
		replyCh <- readExactly(t, remote, 6)
	}()

	banner, err := sess.ConnectAndPrime()
	require.NoError(t, err)
	assert.Equal(t, "MC508 ready", banner)

	assert.Equal(t, []byte{
		telnet.IAC, telnet.WILL, telnet.OptEcho,
		telnet.IAC, telnet.DO, telnet.OptSuppressGoAhead,
	}, <-replyCh)
	assert.Equal(t, uint64(1), sess.Metrics().NegotiationReplyCount.Load())
}

func TestConnectAndPrime_PolicyTable(t *testing.T) {
	cfg := newTestConfig(t, WithPolicy(telnet.OptionTable{telnet.OptEcho: false}))
	sess, remote := newTestSession(t, cfg)

	replyCh := make(chan []byte, 1)
	go func() {
		_, _ = remote.Write([]byte{telnet.IAC, telnet.DO, telnet.OptEcho})
		replyCh <- readExactly(t, remote, 3)
	}()

	banner, err := sess.ConnectAndPrime()
	require.NoError(t, err)
	assert.Empty(t, banner)
	assert.Equal(t, []byte{telnet.IAC, telnet.WONT, telnet.OptEcho}, <-replyCh)
}

func TestConnectAndPrime_SilentController(t *testing.T) {
	sess, _ := newTestSession(t, newTestConfig(t))

	banner, err := sess.ConnectAndPrime()
	require.NoError(t, err)
	assert.Empty(t, banner)
	assert.Zero(t, sess.Metrics().BytesSent.Load())
}

func TestConnectAndPrime_BannerWithoutNegotiation(t *testing.T) {
	sess, remote := newTestSession(t, newTestConfig(t))

	go func() {
		_, _ = remote.Write([]byte("  Trio BASIC\r\n>>  "))
	}()

	banner, err := sess.ConnectAndPrime()
	require.NoError(t, err)
	assert.Equal(t, "Trio BASIC\r\n>>", banner)
	assert.Zero(t, sess.Metrics().NegotiationReplyCount.Load())
}

func TestConnectAndPrime_DiscardsLateBannerOutput(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		_, _ = conn.Write([]byte("Trio BASIC\r\n>>"))
		time.Sleep(80 * time.Millisecond)
		_, _ = conn.Write([]byte("late chatter\r\n"))

		buf := make([]byte, 64)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		_, _ = conn.Write([]byte("PRINT ATYPE\r\n4\r\n>>"))
		time.Sleep(300 * time.Millisecond)
	}()

	cfg := newTestConfig(t,
		WithBannerWindow(30*time.Millisecond),
		WithNegotiationSettle(200*time.Millisecond),
		WithFlushWindow(20*time.Millisecond),
	)
	cfg.port = ln.Addr().(*net.TCPAddr).Port

	sess, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	start := time.Now()
	banner, err := sess.ConnectAndPrime()
	require.NoError(t, err)
	assert.Equal(t, "Trio BASIC\r\n>>", banner)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	resp, err := sess.Exchange("PRINT ATYPE")
	require.NoError(t, err)
	assert.Equal(t, "4", resp)
}

func TestExchange_DebugTrace(t *testing.T) {
	ml := logger.NewMockLogger().ExpectWith("remote", mock.Anything)

	sess, remote := newTestSession(t, newTestConfig(t, WithLogger(ml)))
	answerOnce(t, remote, []byte("PRINT 1\r\n1\r\n>>"))

	_, err := sess.Exchange("PRINT 1")
	require.NoError(t, err)

	ml.AssertCalled(t, "Debug", "shell: exchange", mock.Anything)
	ml.AssertNotCalled(t, "Error", mock.Anything, mock.Anything)
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg, err := NewConnectionConfig("127.0.0.1", port, WithConnectTimeout(time.Second))
	require.NoError(t, err)

	_, err = Dial(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shell: connect")
}

func TestDial_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, newTestConfig(t))
	require.Error(t, err)
}

func newPipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	return local, remote
}
