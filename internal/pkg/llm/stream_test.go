package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deltaLine(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n"
}

func TestSSEDecoderSkipsNoise(t *testing.T) {
	var d SSEDecoder
	deltas, err := d.Feed([]byte(": keep-alive\r\n\r\nevent: ping\n" + deltaLine("a")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deltas)
	assert.False(t, d.Done())
}

func TestSSEDecoderRebuffersSplitJSON(t *testing.T) {
	var d SSEDecoder
	line := deltaLine("Hello")

	deltas, err := d.Feed([]byte(line[:20]))
	require.NoError(t, err)
	assert.Empty(t, deltas)

	deltas, err = d.Feed([]byte(line[20:]))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, deltas)
}

func TestSSEDecoderInvalidLineWaitsForMoreBytes(t *testing.T) {
	var d SSEDecoder
	deltas, err := d.Feed([]byte("data: {\"choices\":\n" + deltaLine("x")))
	require.NoError(t, err)
	assert.Empty(t, deltas)

	// 连接结束时逐行处理，坏行被丢弃
	assert.Equal(t, []string{"x"}, d.Flush())
}

func TestSSEDecoderDoneOnce(t *testing.T) {
	var d SSEDecoder
	deltas, err := d.Feed([]byte(deltaLine("a") + "data: [DONE]\n" + deltaLine("b")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deltas)
	assert.True(t, d.Done())

	deltas, err = d.Feed([]byte(deltaLine("c")))
	require.NoError(t, err)
	assert.Empty(t, deltas)
	assert.Empty(t, d.Flush())
}

func TestSSEDecoderFlushWithoutTrailingNewline(t *testing.T) {
	var d SSEDecoder
	_, err := d.Feed([]byte(`data: {"choices":[{"delta":{"content":"tail"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"tail"}, d.Flush())
}

func TestSSEDecoderErrorPayload(t *testing.T) {
	var d SSEDecoder
	_, err := d.Feed([]byte(`data: {"error":{"message":"out of credits"}}` + "\n"))
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func streamServer(t *testing.T, parts ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range parts {
			w.Write([]byte(part))
			flusher.Flush()
		}
	}))
}

func TestChatStreamAccumulates(t *testing.T) {
	server := streamServer(t, deltaLine("Hel"), deltaLine("lo"), "data: [DONE]\n")
	defer server.Close()

	chunks, err := newTestClient(server.URL).ChatStream(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	var texts []string
	doneCount := 0
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		if chunk.Done {
			doneCount++
			assert.Equal(t, "Hello", chunk.Text)
			continue
		}
		texts = append(texts, chunk.Text)
	}
	assert.Equal(t, []string{"Hel", "Hello"}, texts)
	assert.Equal(t, 1, doneCount)
}

func TestChatStreamIncomplete(t *testing.T) {
	server := streamServer(t, deltaLine("partial"))
	defer server.Close()

	chunks, err := newTestClient(server.URL).ChatStream(context.Background(), nil)
	require.NoError(t, err)

	last := lastChunk(chunks)
	assert.ErrorIs(t, last.Err, ErrStreamIncomplete)
	assert.False(t, last.Done)
	assert.Equal(t, "partial", last.Text)
}

func TestChatStreamUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ChatStream(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestChatStreamAccumulatesText(t *testing.T) {
	server := streamServer(t, deltaLine("a"), deltaLine("b"), "data: [DONE]\n")
	defer server.Close()

	chunks, err := newTestClient(server.URL).ChatStream(context.Background(), nil)
	require.NoError(t, err)

	last := lastChunk(chunks)
	require.NoError(t, last.Err)
	assert.True(t, last.Done)
	assert.Equal(t, "ab", last.Text)
}

func lastChunk(chunks <-chan StreamChunk) StreamChunk {
	var last StreamChunk
	for chunk := range chunks {
		last = chunk
	}
	return last
}
