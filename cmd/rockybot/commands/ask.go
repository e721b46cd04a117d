package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/rockybot-go/internal/knowledge"
	"github.com/54b3r/rockybot-go/internal/logging"
)

// NewAskCmd constructs the `rockybot ask` command, which answers a question
// from the knowledge base and prints the answer with its sources.
func NewAskCmd() *cobra.Command {
	var llm string
	var embedding string
	var showChunks bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the processed articles",
		Long: `Answer a question using only the processed articles. The answer is printed
with the URLs of the articles it was drawn from.

Examples:
  rockybot ask "Which stock fell and why?"
  rockybot ask --llm anthropic --chunks "What did the central bank announce?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			res := a.ctrl.AskQuestion(ctx, knowledge.QuestionRequest{
				Question:          strings.Join(args, " "),
				LLMProvider:       llm,
				EmbeddingProvider: embedding,
			})
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderAnswer(res, showChunks))
			return nil
		},
	}

	cmd.Flags().StringVar(&llm, "llm", "", "Completion provider (default: LLM_PROVIDER)")
	cmd.Flags().StringVar(&embedding, "embedding", "", "Embedding provider (default: the one the knowledge base was built with)")
	cmd.Flags().BoolVar(&showChunks, "chunks", false, "Also print the retrieved extracts")

	return cmd
}
