package client

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamReaderFraming(t *testing.T) {
	input := ": keepalive\n\n" +
		"event: connected\ndata: {\"id\":\"abc\"}\n\n" +
		"data: first\ndata: second\n\n" +
		"event: EUR/USD\r\ndata:{\"timestamp\":60000}\r\n\r\n" +
		"event: partial\ndata: dropped"

	reader := NewStreamReader(strings.NewReader(input))

	ev, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "connected", ev.Event)
	assert.JSONEq(t, `{"id":"abc"}`, string(ev.Data))

	ev, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "message", ev.Event)
	assert.Equal(t, "first\nsecond", string(ev.Data))

	ev, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", ev.Event)
	assert.Equal(t, `{"timestamp":60000}`, string(ev.Data))

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamReaderEmptyStream(t *testing.T) {
	_, err := NewStreamReader(strings.NewReader("")).Next()
	assert.ErrorIs(t, err, io.EOF)
}
