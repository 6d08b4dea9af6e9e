package telnet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct {
	bytes.Buffer
	writes int
	err    error
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.err != nil {
		return 0, w.err
	}

	return w.Buffer.Write(p)
}

func TestReplies_SingleDo(t *testing.T) {
	got := Replies([]byte{IAC, DO, OptEcho}, AcceptAll)
	assert.Equal(t, []byte{IAC, WILL, OptEcho}, got)
}

func TestReplies_AcceptAll(t *testing.T) {
	raw := []byte{
		IAC, DO, OptEcho,
		'b', 'a', 'n', 'n', 'e', 'r',
		IAC, WILL, OptSuppressGoAhead,
		IAC, DONT, OptLinemode, // ignored
		IAC, WONT, OptStatus, // ignored
		IAC, IAC, // escaped data
		IAC, DO, OptNAWS,
	}

	want := []byte{
		IAC, WILL, OptEcho,
		IAC, DO, OptSuppressGoAhead,
		IAC, WILL, OptNAWS,
	}
	assert.Equal(t, want, Replies(raw, nil))
}

func TestReplies_EscapedIACBeforeDirective(t *testing.T) {
	raw := []byte{IAC, IAC, IAC, DO, OptEcho}

	assert.Equal(t, []byte{IAC, WILL, OptEcho}, Replies(raw, AcceptAll))
	assert.Equal(t, []byte{IAC}, Strip(raw))
}

func TestReplies_NothingToAnswer(t *testing.T) {
	assert.Nil(t, Replies([]byte("MC508 >>"), AcceptAll))
	assert.Nil(t, Replies([]byte{IAC, DO}, AcceptAll))
	assert.Nil(t, Replies([]byte{IAC, WONT, OptEcho}, AcceptAll))
}

func TestReplies_OptionTable(t *testing.T) {
	table := OptionTable{
		OptEcho:         true,
		OptTerminalType: false,
		OptNAWS:         false,
	}

	raw := []byte{
		IAC, DO, OptEcho,
		IAC, DO, OptTerminalType,
		IAC, WILL, OptNAWS,
		IAC, WILL, OptSuppressGoAhead, // not in table, accepted
	}

	want := []byte{
		IAC, WILL, OptEcho,
		IAC, WONT, OptTerminalType,
		IAC, DONT, OptNAWS,
		IAC, DO, OptSuppressGoAhead,
	}
	assert.Equal(t, want, Replies(raw, table))
}

func TestParse(t *testing.T) {
	dirs := Parse([]byte{'x', IAC, DO, OptEcho, IAC, IAC, IAC, WILL, OptBinary, IAC, DO})
	require.Len(t, dirs, 2)
	assert.Equal(t, Directive{Command: DO, Option: OptEcho}, dirs[0])
	assert.Equal(t, "WILL BINARY", dirs[1].String())
	assert.Equal(t, []byte{IAC, WILL, OptBinary}, dirs[1].Bytes())
}

func TestRespond_SingleWrite(t *testing.T) {
	w := &countingWriter{}
	raw := []byte{IAC, DO, OptEcho, IAC, WILL, OptSuppressGoAhead}

	reply, err := Respond(w, raw, AcceptAll)
	require.NoError(t, err)
	assert.Equal(t, 1, w.writes)
	assert.Equal(t, reply, w.Bytes())
	assert.Equal(t, []byte{IAC, WILL, OptEcho, IAC, DO, OptSuppressGoAhead}, w.Bytes())
}

func TestRespond_NoWriteWhenEmpty(t *testing.T) {
	w := &countingWriter{}

	reply, err := Respond(w, []byte("no negotiation here"), AcceptAll)
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Zero(t, w.writes)
}

func TestRespond_WriteError(t *testing.T) {
	errBroken := errors.New("broken pipe")
	w := &countingWriter{err: errBroken}

	_, err := Respond(w, []byte{IAC, DO, OptEcho}, AcceptAll)
	require.ErrorIs(t, err, errBroken)
	assert.Equal(t, 1, w.writes)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "DO", CommandName(DO))
	assert.Equal(t, "CMD(7)", CommandName(7))
	assert.Equal(t, "ECHO", OptionName(OptEcho))
	assert.Equal(t, "OPT(200)", OptionName(200))
}
