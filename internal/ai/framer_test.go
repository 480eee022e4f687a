package ai

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

// chunkReader hands out pre-split chunks, one per Read.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func splitAt(body []byte, cuts ...int) [][]byte {
	var chunks [][]byte
	prev := 0
	for _, c := range cuts {
		chunks = append(chunks, body[prev:c])
		prev = c
	}
	return append(chunks, body[prev:])
}

func collectPump(t *testing.T, r io.Reader, chat bool) ([]string, string, error) {
	t.Helper()
	var frags []string
	text, n, err := pump(r, chat, discard, func(d StreamDelta) error {
		frags = append(frags, d.Token)
		return nil
	})
	assert.Equal(t, len(frags), n)
	return frags, text, err
}

const multibyteBody = `{"response":"Hé"}` + "\n" +
	`{"response":"llo 世界"}` + "\n" +
	`not json at all` + "\n" +
	`{"response":" 🎉"}` + "\n" +
	`{"done":true,"total_duration":12}` + "\n"

func TestPump_ChunkBoundaryIndependence(t *testing.T) {
	body := []byte(multibyteBody)
	want, wantText, err := collectPump(t, bytes.NewReader(body), false)
	require.NoError(t, err)
	require.Equal(t, []string{"Hé", "llo 世界", " 🎉"}, want)
	require.Equal(t, "Héllo 世界 🎉", wantText)

	// Every single cut point, including ones inside multi-byte characters.
	for i := 1; i < len(body); i++ {
		got, text, err := collectPump(t, &chunkReader{chunks: splitAt(body, i)}, false)
		require.NoError(t, err)
		assert.Equal(t, want, got, "cut at %d", i)
		assert.Equal(t, wantText, text, "cut at %d", i)
	}

	// One byte per chunk.
	cuts := make([]int, 0, len(body))
	for i := 1; i < len(body); i++ {
		cuts = append(cuts, i)
	}
	got, _, err := collectPump(t, &chunkReader{chunks: splitAt(body, cuts...)}, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPump_ChatMode(t *testing.T) {
	body := `{"message":{"content":"Hel"}}` + "\n" +
		`{"message":{"content":"lo"}}` + "\n" +
		`{"done":true}` + "\n"

	frags, text, err := collectPump(t, strings.NewReader(body), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, frags)
	assert.Equal(t, "Hello", text)
}

func TestPump_ModeSelectsField(t *testing.T) {
	body := `{"response":"flat","message":{"content":"nested"}}` + "\n"

	frags, _, err := collectPump(t, strings.NewReader(body), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"flat"}, frags)

	frags, _, err = collectPump(t, strings.NewReader(body), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"nested"}, frags)
}

func TestPump_SkipsMalformedAndContentlessLines(t *testing.T) {
	body := `{"response":"a"}` + "\n" +
		`{"response":` + "\n" +
		"\n" +
		"   \n" +
		`{"response":""}` + "\n" +
		`{"error":"something odd"}` + "\n" +
		`{"response":"b"}` + "\n"

	frags, text, err := collectPump(t, strings.NewReader(body), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, frags)
	assert.Equal(t, "ab", text)
}

func TestPump_OnlyMalformedLine(t *testing.T) {
	frags, text, err := collectPump(t, strings.NewReader("garbage\n"), false)
	require.NoError(t, err)
	assert.Empty(t, frags)
	assert.Empty(t, text)
}

func TestPump_DiscardsUnterminatedTail(t *testing.T) {
	body := `{"response":"kept"}` + "\n" + `{"response":"dropped"}`

	frags, text, err := collectPump(t, strings.NewReader(body), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, frags)
	assert.Equal(t, "kept", text)
}

func TestPump_AccumulatedMatchesConcatenation(t *testing.T) {
	var b strings.Builder
	for _, w := range []string{"The ", "quick ", "brown ", "fox"} {
		b.WriteString(`{"response":"` + w + `"}` + "\n")
	}

	var concat string
	text, _, err := pump(strings.NewReader(b.String()), false, discard, func(d StreamDelta) error {
		concat += d.Token
		assert.Equal(t, concat, d.Accumulated)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, concat, text)
	assert.Equal(t, "The quick brown fox", text)
}

func TestPump_ReadErrorKeepsFragments(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{
		chunks: [][]byte{[]byte(`{"response":"partial"}` + "\n" + `{"resp`)},
		err:    boom,
	}

	frags, text, err := collectPump(t, r, false)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"partial"}, frags)
	assert.Equal(t, "partial", text)
}

func TestPump_EmitErrorStops(t *testing.T) {
	body := `{"response":"a"}` + "\n" + `{"response":"b"}` + "\n"

	calls := 0
	_, n, err := pump(strings.NewReader(body), false, discard, func(StreamDelta) error {
		calls++
		return ErrCancelled
	})
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, n)
}

func TestLineFramer_HoldsPartialLine(t *testing.T) {
	var f lineFramer
	var lines []string
	collect := func(l []byte) error {
		lines = append(lines, string(l))
		return nil
	}

	require.NoError(t, f.push([]byte("one\ntw"), collect))
	assert.Equal(t, []string{"one"}, lines)
	assert.Equal(t, "tw", string(f.tail()))

	require.NoError(t, f.push([]byte("o\nthree\n"), collect))
	assert.Equal(t, []string{"one", "two", "three"}, lines)
	assert.Empty(t, f.tail())
}
