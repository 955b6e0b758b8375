package main

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/conversations"
)

func newConversationCommand(ctx *commandContext) *cobra.Command {
	conversationCmd := &cobra.Command{
		Use:     "conversation",
		Aliases: []string{"conv"},
		Short:   "Manage conversations",
	}

	conversationCmd.AddCommand(newConversationCreateCommand(ctx))
	conversationCmd.AddCommand(newConversationListCommand(ctx))
	conversationCmd.AddCommand(newConversationShowCommand(ctx))
	conversationCmd.AddCommand(newConversationSearchCommand(ctx))
	conversationCmd.AddCommand(newConversationDeleteCommand(ctx))
	conversationCmd.AddCommand(newConversationAddParticipantCommand(ctx))
	conversationCmd.AddCommand(newConversationStatsCommand(ctx))

	return conversationCmd
}

func newConversationCreateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string
	var platform string
	var platformMeetingID string
	var meetingURL string
	var participantSpecs []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return errors.New("--title is required")
			}
			participants, err := parseParticipantSpecs(participantSpecs)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *conversations.Store) error {
				conv, err := store.Create(cmd.Context(), &conversations.Conversation{
					Title:             strings.TrimSpace(title),
					Description:       strings.TrimSpace(description),
					Platform:          strings.TrimSpace(platform),
					PlatformMeetingID: strings.TrimSpace(platformMeetingID),
					MeetingURL:        strings.TrimSpace(meetingURL),
				})
				if err != nil {
					return err
				}
				for _, p := range participants {
					p.ConversationID = conv.ID
					if _, err := store.AddParticipant(cmd.Context(), p); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created conversation %s\n", conv.ID)
				if len(participants) > 0 {
					fmt.Fprintf(out, "Added %d participant(s)\n", len(participants))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Conversation title (required)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Conversation description")
	cmd.Flags().StringVar(&platform, "platform", "", "Meeting platform (zoom, meet, teams, ...)")
	cmd.Flags().StringVar(&platformMeetingID, "platform-meeting-id", "", "Platform-assigned meeting identifier")
	cmd.Flags().StringVar(&meetingURL, "meeting-url", "", "Meeting URL")
	cmd.Flags().StringSliceVarP(&participantSpecs, "participant", "p", nil, `Participant as "Name <email>" (repeatable)`)
	return cmd
}

// parseParticipantSpecs accepts "Name <email>" or a bare name per entry.
func parseParticipantSpecs(specs []string) ([]*conversations.Participant, error) {
	participants := make([]*conversations.Participant, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if addr, err := mail.ParseAddress(spec); err == nil {
			name := strings.TrimSpace(addr.Name)
			if name == "" {
				name = addr.Address
			}
			participants = append(participants, &conversations.Participant{Name: name, Email: addr.Address})
			continue
		}
		if strings.ContainsAny(spec, "<>") {
			return nil, fmt.Errorf("invalid participant %q (expected \"Name <email>\")", spec)
		}
		participants = append(participants, &conversations.Participant{Name: spec})
	}
	return participants, nil
}

func newConversationListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var recentDays int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]conversations.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := conversations.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(_ *config.Config, store *conversations.Store) error {
				var items []*conversations.Conversation
				var err error
				if recentDays > 0 {
					if len(statuses) > 0 {
						return errors.New("specify only one of --status or --recent")
					}
					items, err = store.ListRecent(cmd.Context(), recentDays)
				} else {
					items, err = store.List(cmd.Context(), statuses...)
				}
				if err != nil {
					return err
				}
				printConversationTable(cmd, items)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVar(&recentDays, "recent", 0, "Show conversations created in the last N days")
	return cmd
}

func newConversationSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversations by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *conversations.Store) error {
				items, err := store.SearchByTitle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printConversationTable(cmd, items)
				return nil
			})
		},
	}
}

func printConversationTable(cmd *cobra.Command, items []*conversations.Conversation) {
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No conversations found")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, conv := range items {
		rows = append(rows, []string{
			conv.ID,
			conv.Title,
			string(conv.Status),
			conv.Platform,
			conv.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table := renderTable(
		[]string{"ID", "Title", "Status", "Platform", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(out, table)
}

func newConversationShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show conversation details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *conversations.Store) error {
				conv, err := store.GetWithParticipants(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if conv == nil {
					return fmt.Errorf("conversation %s not found", args[0])
				}
				syn, err := store.GetSynthesis(cmd.Context(), conv.ID)
				if err != nil {
					return err
				}
				printConversationDetail(cmd, conv, syn)
				return nil
			})
		},
	}
}

func printConversationDetail(cmd *cobra.Command, conv *conversations.Conversation, syn *conversations.Synthesis) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", conv.ID)
	fmt.Fprintf(out, "Title:       %s\n", conv.Title)
	fmt.Fprintf(out, "Status:      %s\n", conv.Status)
	if conv.Platform != "" {
		fmt.Fprintf(out, "Platform:    %s\n", conv.Platform)
	}
	if conv.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", conv.Description)
	}
	fmt.Fprintf(out, "Created:     %s\n", conv.CreatedAt.Local().Format(time.RFC1123))
	if conv.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", conv.ErrorMessage)
	}
	if conv.HasTranscript() {
		fmt.Fprintf(out, "Transcript:  %d words (%s, %ds)\n",
			conv.TranscriptWordCount, conv.TranscriptionProvider, conv.ProcessingTimeSeconds)
	} else {
		fmt.Fprintln(out, "Transcript:  none")
	}
	if len(conv.Participants) > 0 {
		fmt.Fprintf(out, "Participants (%d):\n", len(conv.Participants))
		for _, p := range conv.Participants {
			line := "  - " + p.Name
			if p.Email != "" {
				line += " <" + p.Email + ">"
			}
			if p.IsOrganizer {
				line += " (organizer)"
			}
			fmt.Fprintln(out, line)
		}
	}
	if syn != nil {
		fmt.Fprintf(out, "Synthesis:   %s, %d tokens, %d action item(s)\n",
			syn.LLMModel, syn.LLMTokensUsed, len(syn.ActionItems))
		if syn.EmailDeliveryStatus != "" {
			fmt.Fprintf(out, "Delivery:    %s to %s\n",
				syn.EmailDeliveryStatus, strings.Join(syn.EmailRecipients, ", "))
		}
	} else {
		fmt.Fprintln(out, "Synthesis:   none")
	}
}

func newConversationDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation and its participants and synthesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *conversations.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %s\n", args[0])
				return nil
			})
		},
	}
}

func newConversationAddParticipantCommand(ctx *commandContext) *cobra.Command {
	var name string
	var email string
	var organizer bool

	cmd := &cobra.Command{
		Use:   "add-participant <conversation-id>",
		Short: "Add a participant to a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return errors.New("--name is required")
			}
			if email != "" {
				if _, err := mail.ParseAddress(email); err != nil {
					return fmt.Errorf("invalid email %q: %w", email, err)
				}
			}
			return ctx.withStore(func(_ *config.Config, store *conversations.Store) error {
				conv, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if conv == nil {
					return fmt.Errorf("conversation %s not found", args[0])
				}
				participant, err := store.AddParticipant(cmd.Context(), &conversations.Participant{
					ConversationID: conv.ID,
					Name:           strings.TrimSpace(name),
					Email:          strings.TrimSpace(email),
					IsOrganizer:    organizer,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added participant %d (%s)\n", participant.ID, participant.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Participant name (required)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Participant email")
	cmd.Flags().BoolVar(&organizer, "organizer", false, "Mark the participant as meeting organizer")
	return cmd
}

func newConversationStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show conversation counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *conversations.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"pending", fmt.Sprint(stats.Pending)},
					{"transcribing", fmt.Sprint(stats.Transcribing)},
					{"synthesizing", fmt.Sprint(stats.Synthesizing)},
					{"completed", fmt.Sprint(stats.Completed)},
					{"failed", fmt.Sprint(stats.Failed)},
					{"total", fmt.Sprint(stats.Total)},
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}
