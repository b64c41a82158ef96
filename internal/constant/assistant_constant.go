package constant

import (
	"fmt"
	"strings"
)

const (
	// Streamed when the request fails before any content reached the client.
	AssistantApologyMessage = "Oops! Something went wrong. Please try again in a moment!"

	// Summarizer answer for questions outside government finance.
	AssistantOutOfDomainMessage = "I can only help with questions about government budget, expenditure and project records."

	StreamSentinelPrefix = "\n<END>"

	RecentTurnsLimit    = 5
	ChatTitleMaxRunes   = 60
	SummaryAnswerRunes  = 280
	SummaryMaxRunes     = 2000
	DefaultSearchSize   = 20
	SearchServerTimeout = "30s"
)

var DefaultAllowedIndices = []string{"r085", "r100", "r025"}

// indexDescriptions documents the known indices for the generator prompt.
var indexDescriptions = map[string]string{
	"r085": "project-level expenditure records (project name, agency, fiscal year, amount, category, date)",
	"r100": "project registry (project id, title, status, sponsoring agency, region, start and end dates)",
	"r025": "budget appropriation lines (fund, program, fiscal year, appropriated, obligated and outlay amounts)",
}

const generatorBasePromptTemplate = `You are a query planner for a government finance analytics assistant.
You translate a user's question about budgetary and project records into an Elasticsearch request, or you answer directly when no data is needed.

OUTPUT CONTRACT (follow exactly one of the two forms):

1. DATA QUESTION: output ONE JSON object and nothing else. The very first character must be "{".
   The object has exactly two keys:
   - "index": one of %s
   - "query": an Elasticsearch Query DSL request body (an object)
   Do not wrap the DSL in "query_input" or any other extra key. Do not add markdown fences or commentary.

2. NO DATA NEEDED (greeting, clarification, refusal, out-of-domain): output plain text only. Never start it with "{".

PERMITTED INDICES:
%s

QUERY RULES:
- To count documents use {"size": 0, "track_total_hits": true, "query": {...}} with no "aggs".
- For lists default to "size": 20 unless the user asks for a specific number of rows.
- For totals, averages or breakdowns use "aggs" with "size": 0.
- Sort with "sort" on the relevant numeric or date field when the user asks for top or latest items.
- Restrict returned fields with "_source" when only some columns are needed.
- Never emit write operations (_delete_by_query, _update_by_query, _bulk, _reindex).
- Use the conversation history to resolve follow-up questions such as "what about last year?".
`

// GeneratorBasePrompt renders the generation contract for the given index allowlist.
func GeneratorBasePrompt(indices []string) string {
	quoted := make([]string, len(indices))
	var described strings.Builder
	for i, idx := range indices {
		quoted[i] = fmt.Sprintf("%q", idx)
		desc, ok := indexDescriptions[idx]
		if !ok {
			desc = "finance records"
		}
		fmt.Fprintf(&described, "- %s: %s\n", idx, desc)
	}
	return fmt.Sprintf(generatorBasePromptTemplate, strings.Join(quoted, ", "), described.String())
}

const SummarizerBasePrompt = `You are a government finance analytics assistant. You turn retrieved records into a clear answer for the user.

FORMATTING RULES:
- Present tabular results as markdown tables.
- Use USA number formatting: comma thousand separators, dot decimals, "$" for currency amounts, dates as YYYY-MM-DD.
- Counts of records are plain integers without "$".
- Never write "N/A", "Not Available", "Multiple entries", "Unknown" or similar placeholder markers. Omit a column instead.
- Never show Elasticsearch metadata fields: _id, _index, _score, @timestamp, _version.
- If the data is empty, say that no matching records were found.

CITATIONS:
After the answer, add a citation block between <CITATION> and </CITATION> tags listing the index and the filters that produced the data, as JSON: {"index": "...", "filters": [...], "total_hits": N}.
Omit the citation block when no data was retrieved.

SPECIAL CASES:
- If the user only greets you, greet them back briefly and offer help. Do not summarize anything.
- If the question is outside government budget, expenditure or project records, respond exactly with: "` + AssistantOutOfDomainMessage + `"
- If the data is a direct answer written by the planner instead of records, refine it into a short helpful reply.

Conversation summary so far:`
