package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/54b3r/rockybot-go/internal/logging"
	"github.com/54b3r/rockybot-go/internal/rag"
)

// Messages shown to users by the boundary operations.
const (
	MsgNoValidURL       = "Please enter at least one valid URL."
	MsgNoKnowledgeBase  = "No knowledge base available. Please process URLs first."
	MsgNoQuestion       = "Please enter a question."
	MsgCleared          = "Knowledge base cleared successfully!"
	MsgNoContent        = "No content could be extracted from the provided URLs."
	msgProcessedCreated = "Successfully processed %d URLs and created knowledge base with %d documents"
	msgProcessedUpdated = "Successfully processed %d URLs and updated knowledge base with %d documents"
)

// ProcessRequest names the URLs to process and the providers to use.
type ProcessRequest struct {
	URLs              []string `json:"urls"`
	LLMProvider       string   `json:"llm_provider"`
	EmbeddingProvider string   `json:"embedding_provider"`
}

// ProcessResult is the outcome of ProcessURLs.
type ProcessResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	DocumentCount int    `json:"document_count,omitempty"`
}

// QuestionRequest carries a question and the providers to answer it with.
type QuestionRequest struct {
	Question          string `json:"question"`
	LLMProvider       string `json:"llm_provider"`
	EmbeddingProvider string `json:"embedding_provider"`
}

// AnswerResult is the outcome of AskQuestion.
type AnswerResult struct {
	Success bool     `json:"success"`
	Answer  string   `json:"answer,omitempty"`
	Sources []string `json:"sources,omitempty"`
	// Chunks holds the text of the extracts the answer was grounded on.
	Chunks  []string `json:"chunks,omitempty"`
	Message string   `json:"message,omitempty"`
}

// ClearResult is the outcome of ClearKnowledgeBase.
type ClearResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ProcessURLs runs Process and reports the outcome as a result value. It
// never returns an error; failures are described in Message.
func (c *Controller) ProcessURLs(ctx context.Context, req ProcessRequest) ProcessResult {
	report, err := c.Process(ctx, req.URLs, req.LLMProvider, req.EmbeddingProvider)
	if err != nil {
		logFailure(ctx, "process", err)
		switch {
		case errors.Is(err, ErrNoValidURL):
			return ProcessResult{Message: MsgNoValidURL}
		case errors.Is(err, rag.ErrNoContent):
			return ProcessResult{Message: MsgNoContent}
		default:
			return ProcessResult{Message: "Error processing URLs: " + err.Error()}
		}
	}

	format := msgProcessedUpdated
	if report.Created {
		format = msgProcessedCreated
	}
	msg := fmt.Sprintf(format, report.URLs, report.Chunks)
	if skipped := report.URLs - report.Documents; skipped > 0 {
		msg += fmt.Sprintf(" (%d of %d URLs could not be loaded)", skipped, report.URLs)
	}
	return ProcessResult{Success: true, Message: msg, DocumentCount: report.Chunks}
}

// AskQuestion runs Ask and reports the outcome as a result value.
func (c *Controller) AskQuestion(ctx context.Context, req QuestionRequest) AnswerResult {
	ans, err := c.Ask(ctx, req.Question, req.LLMProvider, req.EmbeddingProvider)
	if err != nil {
		logFailure(ctx, "ask", err)
		switch {
		case errors.Is(err, rag.ErrNoKnowledgeBase):
			return AnswerResult{Message: MsgNoKnowledgeBase}
		case errors.Is(err, rag.ErrEmptyInput):
			return AnswerResult{Message: MsgNoQuestion}
		default:
			return AnswerResult{Message: "Error getting answer: " + err.Error()}
		}
	}

	chunks := make([]string, len(ans.Chunks))
	for i, m := range ans.Chunks {
		chunks[i] = m.Chunk.Text
	}
	return AnswerResult{
		Success: true,
		Answer:  ans.Text,
		Sources: ans.Sources,
		Chunks:  chunks,
	}
}

// ClearKnowledgeBase runs Clear and reports the outcome as a result value.
func (c *Controller) ClearKnowledgeBase(ctx context.Context) ClearResult {
	if err := c.Clear(ctx); err != nil {
		logFailure(ctx, "clear", err)
		return ClearResult{Message: "Error clearing knowledge base: " + err.Error()}
	}
	return ClearResult{Success: true, Message: MsgCleared}
}

func logFailure(ctx context.Context, op string, err error) {
	logging.FromContext(ctx).Error("knowledge operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}
