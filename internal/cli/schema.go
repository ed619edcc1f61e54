package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/grokteam/grokteam/internal/api"
	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/stream"
)

// wireTypes are the documents of the chat API, by schema name.
var wireTypes = map[string]any{
	"event":        &stream.Event{},
	"request":      &api.ChatRequest{},
	"conversation": &chat.Conversation{},
	"summary":      &chat.ConversationSummary{},
}

func wireTypeNames() []string {
	names := make([]string, 0, len(wireTypes))
	for name := range wireTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newSchemaCmd creates the schema command.
func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [" + strings.Join(wireTypeNames(), "|") + "]",
		Short: "Print the JSON Schema of the chat API documents",
		Long: `Print JSON Schemas for the documents exchanged with the backend: stream
events, the chat request body and conversations. Without an argument every
schema is printed, keyed by name.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: wireTypeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return writeSchema(cmd.OutOrStdout(), name)
		},
	}
}

func writeSchema(w io.Writer, name string) error {
	reflector := jsonschema.Reflector{DoNotReference: true}

	var doc any
	if name == "" {
		all := make(map[string]*jsonschema.Schema, len(wireTypes))
		for n, v := range wireTypes {
			all[n] = reflector.Reflect(v)
		}
		doc = all
	} else {
		v, ok := wireTypes[name]
		if !ok {
			return fmt.Errorf("unknown schema %q, must be one of: %s", name, strings.Join(wireTypeNames(), ", "))
		}
		doc = reflector.Reflect(v)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
