package devserver

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/grokteam/grokteam/internal/constants"
	"github.com/grokteam/grokteam/internal/stream"
)

const titleMaxRunes = 48

// Script produces the scripted team exchange for one prompt. The first
// agent coordinates; the others each think, use a tool and report back.
type Script struct {
	Prompt       string
	Agents       []string
	Temperatures map[string]float64
}

// Events returns the trace and answer events of the exchange, without the
// conversation bookkeeping events and without the final done.
func (s Script) Events() []stream.Event {
	agents := s.Agents
	if len(agents) == 0 {
		agents = constants.DefaultAgents
	}
	lead, team := agents[0], agents[1:]
	excerpt := excerpt(s.Prompt, 80)

	events := []stream.Event{
		{Type: stream.TypeStatus, Content: stream.Text(fmt.Sprintf("%s is assembling the team…", lead))},
		{Type: stream.TypeThought, Agent: lead, Content: stream.Text(fmt.Sprintf("Breaking down the request: %q", excerpt))},
	}

	if len(team) > 0 {
		events = append(events, stream.Event{
			Type:    stream.TypeChatroomSend,
			Agent:   lead,
			To:      constants.BroadcastRecipient,
			Content: stream.Text("Team, please look into: " + excerpt),
		})
	}

	for i, agent := range team {
		events = append(events, stream.Event{
			Type:    stream.TypeThought,
			Agent:   agent,
			Content: stream.Text(fmt.Sprintf("Working on it at temperature %.2f.", s.temperature(agent))),
		})

		if i%2 == 0 {
			n := 3
			events = append(events, stream.Event{
				Type:       stream.TypeToolUse,
				Agent:      agent,
				Tool:       "web_search",
				Query:      excerpt,
				NumResults: &n,
			})
		} else {
			limit := 5
			events = append(events, stream.Event{
				Type:  stream.TypeToolUse,
				Agent: agent,
				Tool:  "memory_search",
				Query: excerpt,
				Scope: "conversation",
				Limit: &limit,
			})
		}

		events = append(events, stream.Event{
			Type:    stream.TypeChatroomSend,
			Agent:   agent,
			To:      lead,
			Content: stream.Text(fmt.Sprintf("Findings from %s are ready.", agent)),
		})
	}

	if len(team) > 0 {
		events = append(events, stream.Event{
			Type:    stream.TypeWait,
			Agent:   lead,
			Content: stream.Text("Waiting for " + strings.Join(team, ", ")),
		})
	}

	events = append(events, stream.Event{Type: stream.TypeStatus, Content: stream.Text("Composing the answer…")})

	for _, tok := range tokenize(s.Answer()) {
		events = append(events, stream.Event{Type: stream.TypeToken, Content: stream.Text(tok)})
	}
	return events
}

// Answer is the final answer text the script streams.
func (s Script) Answer() string {
	agents := s.Agents
	if len(agents) == 0 {
		agents = constants.DefaultAgents
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Team answer** to %q\n\n", excerpt(s.Prompt, 200))
	if len(agents) > 1 {
		fmt.Fprintf(&b, "%s coordinated %s.", agents[0], strings.Join(agents[1:], ", "))
	} else {
		fmt.Fprintf(&b, "%s worked alone.", agents[0])
	}

	names := make([]string, 0, len(agents))
	names = append(names, agents...)
	sort.Strings(names)
	temps := make([]string, 0, len(names))
	for _, name := range names {
		temps = append(temps, fmt.Sprintf("%s %.2f", name, s.temperature(name)))
	}
	fmt.Fprintf(&b, " Temperatures used: %s.\n\n", strings.Join(temps, ", "))
	b.WriteString("_Produced by the grokteam development backend._")
	return b.String()
}

func (s Script) temperature(agent string) float64 {
	if t, ok := s.Temperatures[agent]; ok {
		return t
	}
	return constants.DefaultTemperature
}

// Title derives a conversation title from the first prompt.
func Title(prompt string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	return excerpt(line, titleMaxRunes)
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-1])) + "…"
}

// tokenize splits text into word-sized pieces that concatenate back to it.
func tokenize(text string) []string {
	var out []string
	for _, part := range strings.SplitAfter(text, " ") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
