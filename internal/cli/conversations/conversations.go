// Package conversations provides the 'grokteam conversations' commands for
// browsing and managing saved conversations.
package conversations

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grokteam/grokteam/internal/chat"
	"github.com/grokteam/grokteam/internal/cli/helpers"
)

const (
	shortIDLen = 8

	// formatText is the conversation transcript format of show.
	formatText helpers.OutputFormat = "text"
)

// Backend is the part of the API client these commands use.
type Backend interface {
	ListConversations(ctx context.Context, query string) ([]chat.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)
	CreateConversation(ctx context.Context, title string) (*chat.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// NewConversationsCmd creates the conversations command group.
func NewConversationsCmd(globals *helpers.GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "Manage saved conversations",
	}

	cmd.AddCommand(
		newListCmd(globals),
		newShowCmd(globals),
		newNewCmd(globals),
		newDeleteCmd(globals),
	)
	return cmd
}

// withBackend opens the runtime and runs fn with a request-scoped context.
func withBackend(cmd *cobra.Command, globals *helpers.GlobalOptions, fn func(ctx context.Context, b Backend) error) error {
	rt, err := globals.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), rt.Config.API.RequestTimeout)
	defer cancel()
	return fn(ctx, rt.Client)
}

// row is one line of the table and CSV listings.
type row struct {
	ID       string `header:"ID"`
	Title    string `header:"TITLE"`
	Messages int    `header:"MESSAGES"`
	Updated  string `header:"UPDATED"`
	Last     string `header:"LAST MESSAGE"`
}

func newListCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var (
		format *helpers.FormatFlag
		query  string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recent first",
		Example: `  grokteam conversations list
  grokteam conversations list --query goroutines -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format.Value()
			if err != nil {
				return err
			}
			return withBackend(cmd, globals, func(ctx context.Context, b Backend) error {
				return List(ctx, b, query, f, cmd.OutOrStdout(), time.Now())
			})
		},
	}

	format = helpers.AddFormatFlag(cmd, helpers.FormatTable,
		helpers.FormatTable, helpers.FormatJSON, helpers.FormatYAML, helpers.FormatCSV)
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only show conversations whose title or messages match")
	return cmd
}

// List writes the conversation list in the requested format.
func List(ctx context.Context, b Backend, query string, format helpers.OutputFormat, w io.Writer, now time.Time) error {
	convs, err := b.ListConversations(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	formatter, err := helpers.NewFormatter(format)
	if err != nil {
		return err
	}

	switch format {
	case helpers.FormatJSON, helpers.FormatYAML:
		return formatter.Format(convs, w)
	}

	if len(convs) == 0 && format == helpers.FormatTable {
		_, err := fmt.Fprintln(w, "No conversations found.")
		return err
	}

	rows := make([]row, len(convs))
	for i, c := range convs {
		rows[i] = row{
			ID:       shortID(c.ID),
			Title:    c.Title,
			Messages: c.MessageCount,
			Updated:  helpers.FormatAge(c.UpdatedAt, now),
			Last:     oneLine(c.LastMessage, 60),
		}
		if format == helpers.FormatCSV {
			rows[i].ID = c.ID
		}
	}
	return formatter.Format(rows, w)
}

func newShowCmd(globals *helpers.GlobalOptions) *cobra.Command {
	var (
		format    *helpers.FormatFlag
		showTrace bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a conversation's messages",
		Example: `  grokteam conversations show 3f2a9c1e
  grokteam conversations show 3f2a9c1e --trace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := format.Value()
			if err != nil {
				return err
			}
			return withBackend(cmd, globals, func(ctx context.Context, b Backend) error {
				return Show(ctx, b, args[0], f, showTrace, cmd.OutOrStdout())
			})
		},
	}

	format = helpers.AddFormatFlag(cmd, formatText, formatText, helpers.FormatJSON, helpers.FormatYAML)
	helpers.AddTraceFlag(cmd, &showTrace)
	return cmd
}

// Show writes one conversation. Text output interleaves the reasoning
// trace when showTrace is set.
func Show(ctx context.Context, b Backend, id string, format helpers.OutputFormat, showTrace bool, w io.Writer) error {
	id, err := resolveID(ctx, b, id)
	if err != nil {
		return err
	}

	conv, err := b.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get conversation %s: %w", id, err)
	}

	if format != formatText {
		formatter, err := helpers.NewFormatter(format)
		if err != nil {
			return err
		}
		return formatter.Format(conv, w)
	}

	_, err = io.WriteString(w, RenderConversation(conv, showTrace))
	return err
}

// RenderConversation renders a conversation as plain text.
func RenderConversation(conv *chat.Conversation, showTrace bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", conv.Title, conv.ID)
	if len(conv.Messages) == 0 {
		b.WriteString("\nNo messages.\n")
		return b.String()
	}

	for _, msg := range conv.Messages {
		b.WriteString("\n")
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString("You:\n")
		default:
			b.WriteString("Team")
			if msg.DurationSeconds > 0 {
				fmt.Fprintf(&b, " (%s)", helpers.FormatSeconds(msg.DurationSeconds))
			}
			b.WriteString(":\n")
			if showTrace && len(msg.Trace) > 0 {
				b.WriteString(helpers.RenderTraceTree(msg.Trace))
			}
		}
		if msg.Content != "" {
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		if msg.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n", msg.Error)
		}
	}
	return b.String()
}

func newNewCmd(globals *helpers.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new [title]",
		Short: "Create an empty conversation and print its ID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 1 {
				title = args[0]
			}
			return withBackend(cmd, globals, func(ctx context.Context, b Backend) error {
				conv, err := b.CreateConversation(ctx, title)
				if err != nil {
					return fmt.Errorf("failed to create conversation: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created conversation %s (%s)\n", conv.ID, conv.Title)
				return nil
			})
		},
	}
}

func newDeleteCmd(globals *helpers.GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete conversations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, globals, func(ctx context.Context, b Backend) error {
				return Delete(ctx, b, args, cmd.OutOrStdout())
			})
		},
	}
}

// Delete removes each conversation, stopping at the first failure.
func Delete(ctx context.Context, b Backend, refs []string, w io.Writer) error {
	for _, ref := range refs {
		id, err := resolveID(ctx, b, ref)
		if err != nil {
			return err
		}
		if err := b.DeleteConversation(ctx, id); err != nil {
			return fmt.Errorf("failed to delete conversation %s: %w", id, err)
		}
		_, _ = fmt.Fprintf(w, "Deleted %s\n", id)
	}
	return nil
}

// resolveID expands a unique ID prefix, as printed by list, to a full ID.
func resolveID(ctx context.Context, b Backend, ref string) (string, error) {
	if len(ref) >= 32 {
		return ref, nil
	}

	convs, err := b.ListConversations(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to list conversations: %w", err)
	}

	var match string
	for _, c := range convs {
		if c.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("conversation prefix %q is ambiguous", ref)
			}
			match = c.ID
		}
	}
	if match == "" {
		// Let the backend report the not-found.
		return ref, nil
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
