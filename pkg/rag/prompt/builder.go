package prompt

import (
	"fmt"
	"strings"

	"ai-docchat-be/pkg/rag/retrieval"
)

// ContextualBuilder assembles the grounded prompt sent to the LLM: the
// retrieved chunks as tagged reference material, a task definition, and the
// user's question.
type ContextualBuilder struct {
	query      string
	results    []retrieval.Result
	comparison bool
}

// NewContextualBuilder creates a builder for a question over retrieved
// context. comparison switches the task framing to per-document contrast.
func NewContextualBuilder(query string, results []retrieval.Result, comparison bool) *ContextualBuilder {
	return &ContextualBuilder{
		query:      query,
		results:    results,
		comparison: comparison,
	}
}

// Build creates the full prompt text.
func (b *ContextualBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *ContextualBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	prompt.WriteString("<reference_material>\n")
	for _, r := range b.results {
		fmt.Fprintf(prompt, "<excerpt document=%q position=\"%d\" relevance=\"%.2f\">\n", r.DocumentTitle, r.ChunkIndex+1, r.Similarity)
		prompt.WriteString(r.Content)
		prompt.WriteString("\n</excerpt>\n")
	}
	prompt.WriteString("</reference_material>\n\n")
}

func (b *ContextualBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	if b.comparison {
		prompt.WriteString("You are a knowledgeable assistant comparing the user's documents.\n")
		prompt.WriteString("Contrast what each document says, attributing every claim to the document it came from by name.\n")
	} else {
		prompt.WriteString("You are a knowledgeable assistant helping the user understand and extract information from their documents.\n")
		prompt.WriteString("Your goal is to provide exactly what the user needs based on their question and the reference material.\n")
	}
	prompt.WriteString("</task>\n\n")
}

func (b *ContextualBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("1. Base your answer strictly on the reference material provided\n")
	prompt.WriteString("2. If the material doesn't contain what's being asked, say you don't know rather than guessing\n")
	prompt.WriteString("3. Be complete - don't skip relevant information from the material\n")
	prompt.WriteString("4. Be clear and well-organized in your presentation\n")
	if b.comparison {
		prompt.WriteString("5. Cover every document in the material - do not let one document dominate the answer\n")
	}
	prompt.WriteString("</guidelines>\n\n")
}

func (b *ContextualBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now provide your complete response based on the reference material:")
}

// SummaryBuilder assembles the prompt for a whole-document summary. Excerpts
// arrive in reading order and carry no relevance score.
type SummaryBuilder struct {
	title    string
	sections []string
}

func NewSummaryBuilder(title string, sections []string) *SummaryBuilder {
	return &SummaryBuilder{title: title, sections: sections}
}

func (b *SummaryBuilder) Build() string {
	var prompt strings.Builder

	prompt.WriteString("<document")
	fmt.Fprintf(&prompt, " title=%q", b.title)
	prompt.WriteString(">\n")
	for _, s := range b.sections {
		prompt.WriteString(s)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</document>\n\n")

	prompt.WriteString("<task>\n")
	prompt.WriteString("Summarize the document above for its owner.\n")
	prompt.WriteString("Capture the main points in the order they appear, and keep the summary proportional to the document's length.\n")
	prompt.WriteString("</task>\n\n")
	prompt.WriteString("Now provide the summary:")

	return prompt.String()
}
