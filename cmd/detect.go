package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"objdetect-node/internal/domain/entity"
)

func newDetectCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "detect <image>...",
		Short: "Run detection on image files and print the output messages as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd.Context(), args, wait)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "how long to wait for the model to load")

	return cmd
}

func runDetect(ctx context.Context, paths []string, wait time.Duration) error {
	_, c, log, err := setup()
	if err != nil {
		return err
	}
	defer c.Close()

	node := c.Nodes[0]

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := node.WaitReady(waitCtx); err != nil {
		return fmt.Errorf("model is not ready: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	c.Hosts[node.ID()].OnSend(func(msg *entity.Message) {
		if err := enc.Encode(msg); err != nil {
			log.Error().Err(err).Str("msg", msg.ID).Msg("write output")
		}
	})

	var errs error
	for i, path := range paths {
		msg := entity.NewMessage(fmt.Sprintf("%d", i+1), entity.FilePath(path))
		if err := node.Input(ctx, msg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errs
}
