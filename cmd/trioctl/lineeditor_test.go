package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineEditor_ScannerLines(t *testing.T) {
	var out bytes.Buffer
	ed := newLineEditor(strings.NewReader("PRINT 1\nDIR\n"), &out, "")
	defer ed.Close()

	require.False(t, ed.interactive())

	line, err := ed.readLine(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "PRINT 1", line)

	line, err = ed.readLine(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "DIR", line)

	_, err = ed.readLine(context.Background(), "> ")
	require.ErrorIs(t, err, io.EOF)

	_, err = ed.readLine(context.Background(), "> ")
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > > ", out.String())
}

func TestLineEditor_CancelWhileWaitingForInput(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	ed := newLineEditor(pr, io.Discard, "")
	defer ed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ed.readLine(ctx, "> ")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("readLine did not return after cancel")
	}
}
