package harvestclient

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowReader delivers one byte per Read call to exercise fragmented frames.
type slowReader struct {
	data []byte
	pos  int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

func TestStreamReader_ParsesEvents(t *testing.T) {
	raw := "event: status\ndata: {\"message\":\"Starting search...\",\"phase\":\"init\"}\n\n" +
		"event: complete\ndata: {\"total_records\":0,\"filename\":\"\"}\n\n"

	r := NewStreamReader(strings.NewReader(raw))

	kind, data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", kind)
	assert.JSONEq(t, `{"message":"Starting search...","phase":"init"}`, string(data))

	kind, data, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "complete", kind)
	assert.JSONEq(t, `{"total_records":0,"filename":""}`, string(data))

	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStreamReader_FragmentedReads(t *testing.T) {
	raw := "event: papers\ndata: {\"new_count\":10,\"total_so_far\":10,\"latest_title\":\"A\"}\n\n"
	r := NewStreamReader(&slowReader{data: []byte(raw)})

	kind, data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "papers", kind)
	assert.JSONEq(t, `{"new_count":10,"total_so_far":10,"latest_title":"A"}`, string(data))
}

func TestStreamReader_TrailingEventWithoutBlankLine(t *testing.T) {
	raw := "event: error\ndata: {\"message\":\"boom\"}"
	r := NewStreamReader(strings.NewReader(raw))

	kind, data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "error", kind)
	assert.JSONEq(t, `{"message":"boom"}`, string(data))

	_, _, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStreamReader_IgnoresCommentsAndCRLF(t *testing.T) {
	raw := ": keep-alive\r\nevent: status\r\ndata: {\"message\":\"hi\",\"phase\":\"init\"}\r\n\r\n"
	r := NewStreamReader(strings.NewReader(raw))

	kind, data, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "status", kind)
	assert.JSONEq(t, `{"message":"hi","phase":"init"}`, string(data))
}

// taintedReader returns its whole payload and the error in a single Read,
// then the error alone on every later Read.
type taintedReader struct {
	data []byte
	err  error
	done bool
}

func (r *taintedReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	n := copy(p, r.data)
	return n, r.err
}

func TestStreamReader_MidStreamErrorDeliversParsedEvent(t *testing.T) {
	boom := errors.New("connection reset")
	raw := "event: complete\ndata: {\"total_records\":10,\"filename\":\"a.csv\"}\n"
	r := NewStreamReader(&taintedReader{data: []byte(raw), err: boom})

	kind, data, err := r.Next()
	require.NoError(t, err, "the event parsed before the failure is delivered first")
	assert.Equal(t, "complete", kind)
	assert.JSONEq(t, `{"total_records":10,"filename":"a.csv"}`, string(data))

	_, _, err = r.Next()
	assert.Equal(t, boom, err)
}

func TestStreamReader_EmptyStream(t *testing.T) {
	r := NewStreamReader(strings.NewReader(""))
	_, _, err := r.Next()
	assert.Equal(t, io.EOF, err)
}
