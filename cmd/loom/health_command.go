package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/conversations"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity of every pipeline dependency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *conversations.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintln(out, renderStatusLine("store", statusOK, store.Path(), colorize))

				transcriber, err := ctx.transcriptionService(cfg, store)
				if err != nil {
					return err
				}
				for provider, healthy := range transcriber.HealthCheck(cmd.Context()) {
					kind := statusOK
					message := "reachable"
					if !healthy {
						kind = statusWarn
						message = "unreachable"
						if provider == "soniox" && !cfg.SonioxConfigured() {
							message = "not configured"
						}
					}
					fmt.Fprintln(out, renderStatusLine(provider, kind, message, colorize))
				}

				synthesizer, err := ctx.synthesisService(cfg, store)
				if err != nil {
					return err
				}
				if synthesizer.HealthCheck(cmd.Context()) {
					fmt.Fprintln(out, renderStatusLine("llm", statusOK, "reachable", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("llm", statusError, "unreachable", colorize))
				}

				deliverer, err := ctx.deliveryService(cfg, store)
				if err != nil {
					return err
				}
				if deliverer.HealthCheck(cmd.Context()) {
					fmt.Fprintln(out, renderStatusLine("smtp", statusOK, cfg.SMTP.Host, colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("smtp", statusError, "unreachable", colorize))
				}

				return nil
			})
		},
	}
}
