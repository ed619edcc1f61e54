package stream

import (
	"bytes"
	"strings"
)

// ssePrefix is tolerated in front of any frame so SSE-framed and bare NDJSON
// streams decode identically.
const ssePrefix = "data:"

// Decoder turns arbitrarily split chunks of a newline-delimited stream into
// complete frames. It knows nothing about JSON.
//
// Splitting happens on the '\n' byte. A UTF-8 multi-byte sequence never
// contains 0x0A, so a chunk boundary inside a rune only ever lands in the
// carried-over fragment and is rejoined before decoding.
type Decoder struct {
	buf []byte
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the carry-over buffer and returns every complete,
// normalized, non-empty line. The trailing fragment stays buffered.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		if line, ok := normalize(string(d.buf[:i])); ok {
			lines = append(lines, line)
		}
		d.buf = d.buf[i+1:]
	}

	// Release the consumed prefix once the buffer is drained.
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return lines
}

// Flush returns the buffered fragment as a final frame, if it normalizes to
// something non-empty, and resets the decoder. Call it once the transport
// reports end of input.
func (d *Decoder) Flush() (string, bool) {
	rest := string(d.buf)
	d.buf = nil
	return normalize(rest)
}

// Buffered reports how many bytes are waiting for a newline.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func normalize(raw string) (string, bool) {
	line := strings.TrimSpace(raw)
	if strings.HasPrefix(line, ssePrefix) {
		line = strings.TrimSpace(line[len(ssePrefix):])
	}
	return line, line != ""
}
