package helpers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/stream"
)

func TestEventPrinter(t *testing.T) {
	var out, trace bytes.Buffer
	p := NewEventPrinter(&out, &trace, true)

	p.Hook(stream.Event{Type: stream.TypeThought, Agent: "Grok", Content: stream.Text("plan")}, chat.Outcome{})
	p.Hook(stream.Event{Type: stream.TypeToken, Content: stream.Text("Hello")}, chat.Outcome{})
	p.Hook(stream.Event{Type: stream.TypeToken, Content: stream.Text(" world")}, chat.Outcome{})
	p.Hook(stream.Event{Type: stream.TypeToken, Content: stream.Text("ignored")}, chat.Outcome{Ignored: true})
	p.Hook(stream.Event{Type: stream.TypeError}, chat.Outcome{})
	p.Hook(stream.Done(), chat.Outcome{Done: true})
	p.Finish()

	assert.Equal(t, "Hello world\n", out.String())
	assert.Equal(t, "· [Grok] plan\n✗ "+chat.DefaultStreamError+"\n", trace.String())
}

func TestEventPrinter_TraceFilter(t *testing.T) {
	var trace bytes.Buffer
	p := NewEventPrinter(nil, &trace, false)

	p.Hook(stream.Event{Type: stream.TypeThought, Agent: "Grok", Content: stream.Text("hidden")}, chat.Outcome{})
	assert.Empty(t, trace.String())

	p.SetTrace(true, "harper")
	assert.True(t, p.ShowTrace())
	p.Hook(stream.Event{Type: stream.TypeThought, Agent: "Grok", Content: stream.Text("grok")}, chat.Outcome{})
	p.Hook(stream.Event{Type: stream.TypeThought, Agent: "Harper", Content: stream.Text("harper")}, chat.Outcome{})
	assert.Equal(t, "· [Harper] harper\n", trace.String())

	trace.Reset()
	p.SetTrace(true, "all")
	p.Hook(stream.Event{Type: stream.TypeThought, Agent: "Grok", Content: stream.Text("grok")}, chat.Outcome{})
	assert.Equal(t, "· [Grok] grok\n", trace.String())
}

func TestEventPrinter_FinishWithoutText(t *testing.T) {
	var out bytes.Buffer
	p := NewEventPrinter(&out, nil, false)
	p.Finish()
	assert.Empty(t, out.String())

	p.Hook(stream.Event{Type: stream.TypeToken, Content: stream.Text("line\n")}, chat.Outcome{})
	p.Finish()
	assert.Equal(t, "line\n", out.String())
}
