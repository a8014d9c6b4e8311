package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hikari/internal/hls"
	"hikari/internal/notifications"
	"hikari/internal/pipeline"
	"hikari/internal/telegram"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var conversationID int64
	var label string

	cmd := &cobra.Command{
		Use:   "fetch <episode-handle>",
		Short: "Deliver one episode without the daemon",
		Long: "Fetch resolves an episode handle against the catalog, downloads the\n" +
			"stream, and delivers it to the given conversation through the same\n" +
			"pipeline the daemon runs. Transfer progress renders as a terminal bar.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if conversationID == 0 {
				return errors.New("--conversation is required")
			}
			cfg := ctx.configValue()

			req := pipeline.Request{
				ConversationID: conversationID,
				EpisodeHandle:  args[0],
				EpisodeLabel:   label,
			}
			if err := req.Validate(); err != nil {
				return err
			}

			logger, err := newCLILogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			light, heavy, err := newTelegramClients(cfg)
			if err != nil {
				return err
			}
			catalogClient, err := newCatalogClient(cfg)
			if err != nil {
				return err
			}

			notifier := notifications.NewService(light, cfg.Delivery.SizeThresholdMiB)
			downloader := hls.New(logger,
				hls.WithRetries(cfg.Delivery.DownloadRetries),
				hls.WithBackoff(cfg.RetryBackoff()))
			pipe := pipeline.New(cfg, logger, catalogClient, downloader,
				telegram.NewLightSender(light), telegram.NewHeavySender(heavy), notifier,
				pipeline.WithProgressSink(newTransferBar(cmd.ErrOrStderr())))

			runCtx := cmd.Context()
			status, err := notifier.NotifyQueued(runCtx, req.ConversationID, req.Label())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "queued notification failed: %v\n", err)
			}

			outcome := pipe.Run(runCtx, req, status)
			return reportOutcome(cmd.OutOrStdout(), req, outcome)
		},
	}

	cmd.Flags().Int64Var(&conversationID, "conversation", 0, "Telegram conversation ID that receives the episode")
	cmd.Flags().StringVar(&label, "label", "", "Episode label shown in chat messages")
	return cmd
}

func reportOutcome(out io.Writer, req pipeline.Request, outcome pipeline.Outcome) error {
	switch outcome.Kind {
	case pipeline.OutcomeDelivered:
		fmt.Fprintf(out, "Delivered episode %s to conversation %d\n", req.Label(), req.ConversationID)
		if outcome.SubtitleSent {
			fmt.Fprintln(out, "Subtitle delivered")
		}
		return nil
	case pipeline.OutcomeLinkFallback:
		fmt.Fprintf(out, "Upload unavailable (%s); the stream link was sent instead\n", outcome.Reason)
		return nil
	default:
		if outcome.Err != nil {
			return fmt.Errorf("delivery failed: %w", outcome.Err)
		}
		return fmt.Errorf("delivery failed: %s", outcome.Reason)
	}
}
