// Package ragtest provides deterministic in-process providers for tests of
// the answering pipeline. Nothing here talks to the network.
package ragtest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// Dimensions is the vector size produced by [Embedder].
const Dimensions = 64

// Embedder is a bag-of-words embedder: each lower-cased word is hashed into
// one of Dimensions buckets. Texts sharing words have positive cosine
// similarity; the vectors are stable across runs.
type Embedder struct {
	// ID is returned by Name. Defaults to "fake/bow".
	ID string

	// Err, when set, is returned from every Embed call.
	Err error

	mu    sync.Mutex
	calls int
}

// Name implements rag.TextEmbedding.
func (e *Embedder) Name() string {
	if e.ID == "" {
		return "fake/bow"
	}
	return e.ID
}

// Embed implements rag.TextEmbedding.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t)
	}
	return out, nil
}

// Calls returns how many times Embed was invoked.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Vector returns the bag-of-words vector for text.
func Vector(text string) []float32 {
	v := make([]float32, Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%Dimensions]++
	}
	return v
}

// Completion records prompts and answers with a fixed response, or with the
// result of Respond when set.
type Completion struct {
	// ID is returned by Name. Defaults to "fake/llm".
	ID string

	// Response is returned when Respond is nil.
	Response string

	// Respond computes a response from the prompt.
	Respond func(prompt string) string

	// Err, when set, is returned from every Complete call.
	Err error

	mu      sync.Mutex
	prompts []string
}

// Name implements rag.TextCompletion.
func (c *Completion) Name() string {
	if c.ID == "" {
		return "fake/llm"
	}
	return c.ID
}

// Complete implements rag.TextCompletion.
func (c *Completion) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	if c.Respond != nil {
		return c.Respond(prompt), nil
	}
	return c.Response, nil
}

// Prompts returns every prompt received so far.
func (c *Completion) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// CiteFirstSource answers with the first extract's content and cites its
// source, mimicking a well-behaved model.
func CiteFirstSource(prompt string) string {
	content := between(prompt, "Content: ", "\n")
	source := between(prompt, "Source: ", "\n")
	return content + "\nSOURCES: " + source
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j >= 0 {
		return s[:j]
	}
	return s
}
