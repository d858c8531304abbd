package ai

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// maxLineBytes caps a single backend event line.
const maxLineBytes = 1 << 20

// StreamChunk is one record of the adapter's NDJSON output.
type StreamChunk struct {
	Message ChunkMessage `json:"message"`
	Done    bool         `json:"done"`
}

// ChunkMessage carries a content fragment.
type ChunkMessage struct {
	Content string `json:"content"`
}

// TranslateSSE reads an OpenAI-style SSE stream from src and writes NDJSON
// chunks to dst. It returns after the terminal chunk has been written, when src
// is exhausted, or on the first read or write error. Lines that do not parse
// are dropped.
func TranslateSSE(dst io.Writer, src io.Reader) error {
	return eachLine(src, func(line []byte) (bool, error) {
		chunk, ok := sseChunk(line)
		if !ok {
			return false, nil
		}
		return chunk.Done, writeChunk(dst, chunk)
	})
}

// NormalizeNDJSON reads an Ollama-style NDJSON stream from src and re-emits
// each record in the adapter's shape, dropping extra fields and malformed lines.
func NormalizeNDJSON(dst io.Writer, src io.Reader) error {
	return eachLine(src, func(line []byte) (bool, error) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return false, nil
		}
		var chunk StreamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return false, nil
		}
		return chunk.Done, writeChunk(dst, chunk)
	})
}

type sseEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

var (
	ssePrefix   = []byte("data:")
	sseDoneMark = []byte("[DONE]")
)

func sseChunk(line []byte) (StreamChunk, bool) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, ssePrefix) {
		return StreamChunk{}, false
	}
	payload := bytes.TrimSpace(line[len(ssePrefix):])
	if bytes.Equal(payload, sseDoneMark) {
		return StreamChunk{Done: true}, true
	}

	var ev sseEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return StreamChunk{}, false
	}
	var chunk StreamChunk
	if len(ev.Choices) > 0 {
		c := ev.Choices[0]
		chunk.Message.Content = c.Delta.Content
		chunk.Done = c.FinishReason != nil && *c.FinishReason != ""
	}
	return chunk, true
}

// eachLine feeds newline-delimited lines to fn until fn asks to stop.
// A trailing line without a newline is still delivered at EOF. Lines longer
// than maxLineBytes are skipped.
func eachLine(src io.Reader, fn func(line []byte) (stop bool, err error)) error {
	r := bufio.NewReaderSize(src, 64*1024)
	var line []byte
	oversized := false
	for {
		frag, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(bytes.TrimRight(frag, "\r\n")) > maxLineBytes {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, frag...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && err != io.EOF {
			return err
		}

		if !oversized && (err == nil || len(line) > 0) {
			stop, ferr := fn(bytes.TrimRight(line, "\r\n"))
			if ferr != nil {
				return ferr
			}
			if stop {
				return nil
			}
		}
		line = line[:0]
		oversized = false
		if err == io.EOF {
			return nil
		}
	}
}

func writeChunk(dst io.Writer, chunk StreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	_, err = dst.Write(append(data, '\n'))
	return err
}
