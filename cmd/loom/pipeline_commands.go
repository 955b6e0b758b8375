package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/conversations"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var language string
	var provider string

	cmd := &cobra.Command{
		Use:   "transcribe <conversation-id> <audio-file>",
		Short: "Transcribe an audio file into a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipelineLock(func(cfg *config.Config, store *conversations.Store) error {
				svc, err := ctx.transcriptionService(cfg, store)
				if err != nil {
					return err
				}
				notifier := ctx.notifier(cfg)

				path, err := config.ExpandPath(args[1])
				if err != nil {
					return err
				}

				started := time.Now()
				conv, err := svc.TranscribeFile(cmd.Context(), args[0], path, language, strings.TrimSpace(provider))
				if err != nil {
					if notifyErr := notifier.NotifyError(cmd.Context(), err, "transcription"); notifyErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
					}
					return err
				}
				if notifyErr := notifier.NotifyTranscriptionCompleted(cmd.Context(), conv.Title, conv.TranscriptionProvider, conv.TranscriptWordCount); notifyErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Transcribed %q with %s: %d words in %s\n",
					conv.Title, conv.TranscriptionProvider, conv.TranscriptWordCount,
					time.Since(started).Round(time.Second))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Language hint (BCP 47, e.g. en or fr-FR)")
	cmd.Flags().StringVar(&provider, "provider", "", "Pin a transcription provider (whisper or soniox)")
	return cmd
}

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "synthesize <conversation-id>",
		Short: "Extract structured insights from a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipelineLock(func(cfg *config.Config, store *conversations.Store) error {
				svc, err := ctx.synthesisService(cfg, store)
				if err != nil {
					return err
				}
				notifier := ctx.notifier(cfg)

				syn, err := svc.Generate(cmd.Context(), args[0], force)
				if err != nil {
					if notifyErr := notifier.NotifyError(cmd.Context(), err, "synthesis"); notifyErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
					}
					return err
				}

				conv, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				title := args[0]
				if conv != nil {
					title = conv.Title
				}
				if notifyErr := notifier.NotifySynthesisCompleted(cmd.Context(), title, len(syn.ActionItems)); notifyErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Synthesized %q with %s: %d decision(s), %d action item(s), %d question(s)\n",
					title, syn.LLMModel, len(syn.KeyDecisions), len(syn.ActionItems), len(syn.OpenQuestions))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Regenerate even when a synthesis already exists")
	return cmd
}

func newDeliverCommand(ctx *commandContext) *cobra.Command {
	var recipients []string
	var preview bool

	cmd := &cobra.Command{
		Use:   "deliver <conversation-id>",
		Short: "Email the synthesis to meeting participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipelineLock(func(cfg *config.Config, store *conversations.Store) error {
				svc, err := ctx.deliveryService(cfg, store)
				if err != nil {
					return err
				}

				if preview {
					html, err := svc.Preview(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), html)
					return nil
				}

				notifier := ctx.notifier(cfg)
				outcome, err := svc.Send(cmd.Context(), args[0], recipients)
				if err != nil {
					if notifyErr := notifier.NotifyError(cmd.Context(), err, "delivery"); notifyErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
					}
					return err
				}

				conv, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				title := args[0]
				if conv != nil {
					title = conv.Title
				}
				if notifyErr := notifier.NotifyDeliveryCompleted(cmd.Context(), title, len(outcome.Recipients)); notifyErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", notifyErr)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Sent synthesis email to %d recipient(s): %s\n",
					len(outcome.Recipients), strings.Join(outcome.Recipients, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&recipients, "to", nil, "Override recipients (repeatable)")
	cmd.Flags().BoolVar(&preview, "preview", false, "Print the rendered HTML instead of sending")
	return cmd
}
