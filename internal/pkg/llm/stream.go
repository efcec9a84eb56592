package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"k8s.io/klog/v2"
)

const doneSentinel = "[DONE]"

// StreamChunk 流式生成的一次增量
// Text 为截至当前的累计文本，由消费方自行决定如何展示
type StreamChunk struct {
	Delta string
	Text  string
	Done  bool
	Err   error
}

// SSEDecoder 解析 `data: <json>` 行协议
// 无法解析的 data 行视为不完整，放回缓冲区等待更多字节
type SSEDecoder struct {
	buf  string
	done bool
}

// Done 是否已收到完成信号
func (d *SSEDecoder) Done() bool {
	return d.done
}

// Feed 追加字节并返回本次可解析出的文本增量
func (d *SSEDecoder) Feed(p []byte) ([]string, error) {
	if d.done {
		return nil, nil
	}
	d.buf += string(p)

	var deltas []string
	for {
		idx := strings.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]
		line = strings.TrimSuffix(line, "\r")

		payload, ok := dataPayload(line)
		if !ok {
			continue
		}
		if payload == doneSentinel {
			d.done = true
			d.buf = ""
			return deltas, nil
		}

		delta, err := decodeDelta(payload)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return deltas, err
			}
			// JSON 被切断，放回缓冲区
			d.buf = line + "\n" + d.buf
			break
		}
		if delta != "" {
			deltas = append(deltas, delta)
		}
	}
	return deltas, nil
}

// Flush 连接结束时处理剩余缓冲，解析失败的行直接丢弃
func (d *SSEDecoder) Flush() []string {
	if d.done || strings.TrimSpace(d.buf) == "" {
		d.buf = ""
		return nil
	}
	var deltas []string
	for _, raw := range strings.Split(d.buf, "\n") {
		payload, ok := dataPayload(strings.TrimSuffix(raw, "\r"))
		if !ok {
			continue
		}
		if payload == doneSentinel {
			d.done = true
			break
		}
		delta, err := decodeDelta(payload)
		if err != nil {
			continue
		}
		if delta != "" {
			deltas = append(deltas, delta)
		}
	}
	d.buf = ""
	return deltas
}

func dataPayload(line string) (string, bool) {
	if line == "" || strings.HasPrefix(line, ":") {
		return "", false
	}
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}

func decodeDelta(payload string) (string, error) {
	var chunk StreamDelta
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", err
	}
	if chunk.Error != nil {
		return "", &APIError{Message: chunk.Error.Message, Type: chunk.Error.Type, Code: codeString(chunk.Error.Code)}
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}

// ChatStream 以流式模式请求，返回增量通道
// 上游在开始流式之前返回的错误直接作为 error 返回
func (c *Client) ChatStream(ctx context.Context, messages []ChatMessage) (<-chan StreamChunk, error) {
	req, err := c.newRequest(ctx, ChatRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   c.MaxTokens,
		Temperature: 0.7,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		readStream(ctx, resp.Body, out)
	}()
	return out, nil
}

// readStream 读取响应体并逐块推送累计文本
func readStream(ctx context.Context, body io.Reader, out chan<- StreamChunk) {
	var (
		decoder SSEDecoder
		text    strings.Builder
		buf     = make([]byte, 4096)
	)

	emit := func(chunk StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}
	emitDeltas := func(deltas []string) bool {
		for _, delta := range deltas {
			text.WriteString(delta)
			if !emit(StreamChunk{Delta: delta, Text: text.String()}) {
				return false
			}
		}
		return true
	}

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			deltas, err := decoder.Feed(buf[:n])
			if !emitDeltas(deltas) {
				return
			}
			if err != nil {
				emit(StreamChunk{Text: text.String(), Err: err})
				return
			}
			if decoder.Done() {
				klog.V(6).Infof("流式生成完成: length=%d", text.Len())
				emit(StreamChunk{Text: text.String(), Done: true})
				return
			}
		}
		if readErr != nil {
			if !emitDeltas(decoder.Flush()) {
				return
			}
			if decoder.Done() {
				emit(StreamChunk{Text: text.String(), Done: true})
				return
			}
			err := ErrStreamIncomplete
			if !errors.Is(readErr, io.EOF) {
				err = fmt.Errorf("%w: %v", ErrStreamIncomplete, readErr)
			}
			klog.Warningf("流式生成中断: length=%d, err=%v", text.Len(), readErr)
			emit(StreamChunk{Text: text.String(), Err: err})
			return
		}
	}
}
