package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/rockybot-go/internal/knowledge"
	"github.com/54b3r/rockybot-go/internal/logging"
)

// NewProcessCmd constructs the `rockybot process` command, which fetches
// article URLs and builds or extends the knowledge base.
func NewProcessCmd() *cobra.Command {
	var urls []string
	var llm string
	var embedding string

	cmd := &cobra.Command{
		Use:   "process [url...]",
		Short: "Fetch news articles and add them to the knowledge base",
		Long: `Fetch the given article URLs, split them into chunks, embed them and store
them in the knowledge base. The first run creates the knowledge base; later
runs extend it and must use the same embedding provider.

Examples:
  rockybot process https://example.com/markets/today
  rockybot process --url https://a.example/news --url https://b.example/news
  rockybot process --embedding openai https://example.com/story`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log)
			if err != nil {
				return fmt.Errorf("process: %w", err)
			}
			defer a.Close()

			res := a.ctrl.ProcessURLs(ctx, knowledge.ProcessRequest{
				URLs:              append(urls, args...),
				LLMProvider:       llm,
				EmbeddingProvider: embedding,
			})
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSuccess(res.Message))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Article URL to process (repeatable)")
	cmd.Flags().StringVar(&llm, "llm", "", "Completion provider (default: LLM_PROVIDER)")
	cmd.Flags().StringVar(&embedding, "embedding", "", "Embedding provider (default: the knowledge base's, else EMBEDDING_PROVIDER)")

	return cmd
}
