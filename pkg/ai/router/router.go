package router

import (
	"strings"

	"ai-finance-assistant-be/pkg/llm"
)

// Route is the branch taken after the generator node.
type Route string

const (
	RouteExecute   Route = "execute"
	RouteSummarize Route = "summarize"
)

// ASCII whitespace skipped before the brace check.
const leadingSpace = " \t\n\r\v\f"

// Decide routes generator output: JSON objects go to the executor,
// everything else straight to the summarizer.
func Decide(content string) Route {
	if strings.HasPrefix(strings.TrimLeft(content, leadingSpace), "{") {
		return RouteExecute
	}
	return RouteSummarize
}

// RouteMessages applies Decide to the last message. It never mutates messages.
func RouteMessages(messages []llm.Message) Route {
	if len(messages) == 0 {
		return RouteSummarize
	}
	return Decide(messages[len(messages)-1].Content)
}
