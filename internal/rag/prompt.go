package rag

import (
	"fmt"
	"regexp"
	"strings"
)

// NoRelevantInformation is the answer returned when retrieval finds nothing.
const NoRelevantInformation = "I could not find any relevant information in the knowledge base to answer this question."

const sourcesMarker = "SOURCES:"

const promptInstructions = `You are a news research assistant. Answer the question using ONLY the extracts below.
If the extracts do not contain the answer, say that you don't know. Do not make up an answer.
After the answer, write a final line that starts with "SOURCES:" followed by the comma-separated
source URLs of the extracts you used.`

var (
	sourcesPattern     = regexp.MustCompile(`(?i)sources:`)
	finalAnswerPattern = regexp.MustCompile(`(?i)^\s*final answer:\s*`)
	sourceSplitPattern = regexp.MustCompile(`[,\n]`)
)

// buildPrompt renders the grounded prompt for question over matches.
// Matches are assumed to be ranked best first.
func buildPrompt(question string, matches []Match) string {
	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "--- Extract %d ---\nContent: %s\nSource: %s\n\n", i+1, m.Chunk.Text, m.Chunk.Source)
	}
	fmt.Fprintf(&b, "QUESTION: %s\n\nFINAL ANSWER:", question)
	return b.String()
}

// promptOverhead is the prompt text outside of the extract contents.
func promptOverhead(question string) string {
	return promptInstructions + "QUESTION: " + question + "FINAL ANSWER:"
}

// parseCompletion splits model output into answer text and cited sources.
// The last "SOURCES:" marker wins. Missing marker means no sources.
func parseCompletion(output string) (string, []string) {
	locs := sourcesPattern.FindAllStringIndex(output, -1)
	if len(locs) == 0 {
		return cleanAnswer(output), nil
	}
	last := locs[len(locs)-1]
	answer := cleanAnswer(output[:last[0]])
	return answer, parseSources(output[last[1]:])
}

func cleanAnswer(s string) string {
	return strings.TrimSpace(finalAnswerPattern.ReplaceAllString(s, ""))
}

// parseSources splits a citation list, dropping bullets, placeholders and
// duplicates while keeping first-appearance order.
func parseSources(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range sourceSplitPattern.Split(s, -1) {
		src := strings.TrimSpace(part)
		src = strings.TrimLeft(src, "-*• ")
		src = strings.TrimRight(src, ".;")
		src = strings.TrimSpace(src)
		switch strings.ToLower(src) {
		case "", "none", "n/a":
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}
