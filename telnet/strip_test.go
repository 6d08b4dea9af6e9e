package telnet

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"plain text", []byte("PRINT ATYPE\r\n"), []byte("PRINT ATYPE\r\n")},
		{"leading DO ECHO", []byte{IAC, DO, OptEcho, 'o', 'k'}, []byte("ok")},
		{"directive between text", []byte{'a', IAC, WILL, OptSuppressGoAhead, 'b'}, []byte("ab")},
		{"escaped IAC", []byte{'x', IAC, IAC, 'y'}, []byte{'x', 0xFF, 'y'}},
		{"truncated directive", []byte{'>', '>', IAC, DO}, []byte(">>")},
		{"lone trailing IAC", []byte{'a', IAC}, []byte{'a', 0xFF}},
		{"option byte 0xFF", []byte{IAC, DO, 0xFF, 'z'}, []byte("z")},
		{
			"banner with negotiation",
			append([]byte{IAC, DO, OptEcho, IAC, WILL, OptSuppressGoAhead}, []byte("MC508 Ready\r\n>>")...),
			[]byte("MC508 Ready\r\n>>"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Strip(tt.in))
		})
	}
}

func TestStrip_DoesNotModifyInput(t *testing.T) {
	in := []byte{IAC, DO, OptEcho, 'a'}
	orig := bytes.Clone(in)

	_ = Strip(in)
	assert.Equal(t, orig, in)
}

func TestStrip_Idempotent(t *testing.T) {
	clean := []byte("4\r\n>>  \r\n%BAD SYNTAX\r\n")

	once := Strip(clean)
	assert.Equal(t, clean, once)
	assert.Equal(t, once, Strip(once))
}

func TestStrip_TruncatedSuffix(t *testing.T) {
	require.NotPanics(t, func() {
		assert.Empty(t, Strip([]byte{IAC, DO}))
	})
	assert.Equal(t, []byte("ok"), Strip([]byte{'o', 'k', IAC, DO}))
}

// TestStrip_LengthProperty checks that every well-formed triple removes three
// bytes, every escaped pair removes one, and no stray IAC survives.
func TestStrip_LengthProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	commands := []byte{DO, DONT, WILL, WONT, SB, NOP}

	for iter := 0; iter < 500; iter++ {
		var in []byte
		triples, pairs := 0, 0

		for n := rng.Intn(20); n > 0; n-- {
			switch rng.Intn(3) {
			case 0:
				for k := rng.Intn(8); k > 0; k-- {
					in = append(in, byte(rng.Intn(0xFF)))
				}
			case 1:
				in = append(in, IAC, commands[rng.Intn(len(commands))], byte(rng.Intn(256)))
				triples++
			case 2:
				in = append(in, IAC, IAC)
				pairs++
			}
		}

		out := Strip(in)
		require.Len(t, out, len(in)-3*triples-pairs, "input % X", in)
		assert.Equal(t, pairs, bytes.Count(out, []byte{IAC}), "input % X", in)
	}
}

func FuzzStrip(f *testing.F) {
	f.Add([]byte("PRINT ATYPE\r\n4\r\n>>"))
	f.Add([]byte{IAC, DO, OptEcho})
	f.Add([]byte{IAC, IAC, IAC})
	f.Add([]byte{IAC, DO})

	f.Fuzz(func(t *testing.T, data []byte) {
		out := Strip(data)
		if len(out) > len(data) {
			t.Fatalf("output longer than input: %d > %d", len(out), len(data))
		}
		if bytes.IndexByte(data, IAC) < 0 && !bytes.Equal(out, data) {
			t.Fatalf("clean input changed: % X -> % X", data, out)
		}
	})
}
