package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/rockybot-go/internal/logging"
)

// NewClearCmd constructs the `rockybot clear` command.
func NewClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the knowledge base",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			defer a.Close()

			res := a.ctrl.ClearKnowledgeBase(ctx)
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSuccess(res.Message))
			return nil
		},
	}
}
