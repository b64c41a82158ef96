package prompt

import (
	"strings"

	"ai-finance-assistant-be/pkg/llm"
)

const historyLabel = "current chat history: "

// Turn is one completed question/answer exchange.
type Turn struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// BuildSystemPrompt concatenates, in this order: base prompt, retrieved
// examples, the history label and the serialized turns. A non-empty
// fragment is set off from the base prompt by a newline.
func BuildSystemPrompt(basePrompt, retrievedFragment string, recentTurns []Turn) string {
	var prompt strings.Builder
	prompt.WriteString(basePrompt)
	if retrievedFragment != "" {
		prompt.WriteString("\n")
		prompt.WriteString(retrievedFragment)
	}
	prompt.WriteString(historyLabel)
	prompt.WriteString(SerializeTurns(recentTurns))
	return prompt.String()
}

// SerializeTurns renders turns as alternating Human/Assistant lines, oldest first.
func SerializeTurns(turns []Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("\nHuman: ")
		b.WriteString(t.Query)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Response)
	}
	return b.String()
}

// BuildMessages produces the system + human pair sent to the generator.
func BuildMessages(systemPrompt, userQuery string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userQuery},
	}
}
