package stream

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedAll feeds chunks in order and returns every frame, the flushed tail
// included.
func feedAll(chunks []string) []string {
	d := NewDecoder()
	var out []string
	for _, c := range chunks {
		out = append(out, d.Feed([]byte(c))...)
	}
	if tail, ok := d.Flush(); ok {
		out = append(out, tail)
	}
	return out
}

// nonEmptyLines is the reference framing: trimmed lines, blanks dropped.
func nonEmptyLines(input string) []string {
	var out []string
	for _, l := range strings.Split(input, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestDecoder_Feed(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{
			name:   "single complete line",
			chunks: []string{"{\"type\":\"done\"}\n"},
			want:   []string{`{"type":"done"}`},
		},
		{
			name:   "line split mid token",
			chunks: []string{`{"type":"to`, `ken","content":"x"}` + "\n"},
			want:   []string{`{"type":"token","content":"x"}`},
		},
		{
			name:   "blank and whitespace lines dropped",
			chunks: []string{"\n\n   \n{\"type\":\"done\"}\n\t\n"},
			want:   []string{`{"type":"done"}`},
		},
		{
			name:   "crlf line endings",
			chunks: []string{"{\"type\":\"wait\"}\r\n{\"type\":\"done\"}\r\n"},
			want:   []string{`{"type":"wait"}`, `{"type":"done"}`},
		},
		{
			name:   "sse prefix stripped",
			chunks: []string{"data: {\"type\":\"done\"}\n\n"},
			want:   []string{`{"type":"done"}`},
		},
		{
			name:   "sse prefix without space",
			chunks: []string{"data:{\"type\":\"done\"}\n"},
			want:   []string{`{"type":"done"}`},
		},
		{
			name:   "sse prefix with empty payload dropped",
			chunks: []string{"data:   \n"},
			want:   nil,
		},
		{
			name:   "unterminated tail recovered by flush",
			chunks: []string{"{\"type\":\"token\",\"content\":\"a\"}\n{\"type\":\"done\"}"},
			want:   []string{`{"type":"token","content":"a"}`, `{"type":"done"}`},
		},
		{
			name:   "multibyte rune split across chunks",
			chunks: []string{"{\"type\":\"token\",\"content\":\"\xd0", "\x9f\xd1\x80\xd0\xb8\xd0\xb2\xd0\xb5\xd1\x82\"}\n"},
			want:   []string{`{"type":"token","content":"Привет"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, feedAll(tt.chunks))
		})
	}
}

func TestDecoder_FeedKeepsFragment(t *testing.T) {
	d := NewDecoder()

	assert.Empty(t, d.Feed([]byte(`{"type":"sta`)))
	assert.Equal(t, len(`{"type":"sta`), d.Buffered())

	lines := d.Feed([]byte("tus\"}\n{\"ty"))
	assert.Equal(t, []string{`{"type":"status"}`}, lines)
	assert.Equal(t, len(`{"ty`), d.Buffered())
}

func TestDecoder_FlushEmpty(t *testing.T) {
	d := NewDecoder()
	_, ok := d.Flush()
	assert.False(t, ok)

	d.Feed([]byte("   "))
	_, ok = d.Flush()
	assert.False(t, ok)
	assert.Zero(t, d.Buffered(), "flush resets the buffer")
}

func TestDecoder_FrameIntegrityUnderArbitrarySplits(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"status","content":"thinking"}`,
		``,
		`  {"type":"thought","agent":"Harper","content":"split me, {braces} and \"quotes\""}  `,
		`{"type":"chatroom_send","agent":"Grok","to":"Harper; Lucas","content":"go"}`,
		`{"type":"token","content":"Привет, мир"}`,
		"\t",
		`{"type":"done"}`,
	}, "\n")
	want := nonEmptyLines(input)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 500; trial++ {
		var chunks []string
		rest := input
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			if n > 17 {
				n = 1 + rng.Intn(17)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		got := feedAll(chunks)
		require.Equal(t, strings.Join(want, "\n"), strings.Join(got, "\n"), "trial %d, chunks %q", trial, chunks)
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	input := "{\"type\":\"token\",\"content\":\"ab\"}\n{\"type\":\"done\"}\n"
	var chunks []string
	for i := 0; i < len(input); i++ {
		chunks = append(chunks, input[i:i+1])
	}
	assert.Equal(t, nonEmptyLines(input), feedAll(chunks))
}
