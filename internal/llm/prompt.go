package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rrens/event-assistant/internal/domain"
)

// NoEventsMarker stands in for the documents block when retrieval finds nothing
const NoEventsMarker = "no events retrieved"

// SystemPrompt is the instruction preamble of every answer
const SystemPrompt = `You are an Event Assistant for a RAG-backed event finder.

You will receive:
- Context: a bullet list of events from the database (only use this information).
- User: a single question about events.

Your job:
1) Answer ONLY using the Context. Never invent events, details, venues, or times.
2) Prefer upcoming events; if none, say so.
3) Show up to k top suggestions with: title, date, location, category, and a short reason.
4) Be concise, friendly, and deterministic. Avoid markdown tables.

Formatting:
- Start with a short summary.
- Then list each event in this format:
  1. <Title of the event>:
     - Date & Time: <DD Mon YYYY, HH:MM>
     - Location: <Location>
     - Category: <Event Category>
     - Organizer: <Name Surname, Email>
Safety:
- Disambiguate same-title events by date/location.
- Never mention internal implementation details.
- Always return markdown.
- Make the event title bold and heading.
- Classifier words like location and category are bold.`

// CountExtractionPrompt builds the instruction for turning a request into
// the number of events wanted.
func CountExtractionPrompt(defaultK, maxK int) string {
	var b strings.Builder
	b.WriteString("You are an Event Assistant for a RAG-backed event finder.\n\n")
	b.WriteString("TASK: Output how many events the user wants.\n\n")
	fmt.Fprintf(&b, "Defaults:\n- Default = %d\n- Max = %d\n\n", defaultK, maxK)
	b.WriteString("RULES:\n")
	b.WriteString("1) Output ONLY a single positive integer. No other text.\n")
	b.WriteString("2) Valid counts: numerals (1,2,3,...) or number words (one..twenty).\n")
	b.WriteString("3) Small vague words -> Default: couple, few, several, some, handful, bunch.\n")
	b.WriteString("4) Large vague words -> Max: many, dozens, loads, tons.\n")
	b.WriteString("5) Ignore non-event numbers (dates, times, years, prices, IDs, etc.).\n")
	b.WriteString("6) Ranges: pick the upper bound. \"3-5\" -> 5; \"between 3 and 5\" -> 5; \"at least N\" -> N; \"up to/no more than/maximum N\" -> N.\n")
	b.WriteString("7) Decorated numbers (#, \"no\", etc.) are normal numbers.\n")
	b.WriteString("8) Cap at Max: any value > Max -> Max.\n")
	b.WriteString("9) If no clear count or value < 1 -> Default.\n")
	b.WriteString("10) Multiple counts or hesitation -> pick the latter (<= Max), else Max.\n\n")
	b.WriteString("EXAMPLES:\n")
	b.WriteString("- \"what's on 2025-08-15 at 19:00? send 4 events\" -> 4\n")
	fmt.Fprintf(&b, "- \"20 events\" -> %d\n", min(20, maxK))
	fmt.Fprintf(&b, "- \"top 10 tech meetups in Skopje\" -> %d\n", min(10, maxK))
	b.WriteString("- \"events on Dec 25 at 6pm, show me 3\" -> 3\n")
	fmt.Fprintf(&b, "- \"recommend some good tech events near me\" -> %d\n", defaultK)
	fmt.Fprintf(&b, "- \"Give me a couple of cool events in Ohrid\" -> %d\n", defaultK)
	b.WriteString("- \"give me two events\" -> 2\n")
	fmt.Fprintf(&b, "- \"anywhere from 4 to 7 events\" -> %d\n\n", min(7, maxK))
	fmt.Fprintf(&b, "OUTPUT: single integer only (e.g., %d).", defaultK)
	return b.String()
}

// ParseCount parses the raw count-extraction output. Anything other than a
// bare integer literal is a contract violation by the model.
func ParseCount(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: model returned %q", domain.ErrCountExtraction, truncate(s, 64))
	}
	return n, nil
}

// BuildContext assembles the documents block and the optional transcript
// of recent messages into the grounding context.
func BuildContext(documents []string, history []domain.ChatMessage) string {
	docs := strings.TrimSpace(strings.Join(documents, "\n"))
	if docs == "" {
		docs = NoEventsMarker
	}
	parts := []string{"DOCUMENTS:\n" + docs}

	var lines []string
	for _, m := range history {
		if m.Role == "" || strings.TrimSpace(m.Content) == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(string(m.Role)+": "+m.Content))
	}
	if len(lines) > 0 {
		parts = append(parts, fmt.Sprintf("RECENT MESSAGES (last %d):\n%s", len(lines), strings.Join(lines, "\n")))
	}

	return strings.Join(parts, "\n\n")
}

// BuildMessages returns the system and user messages of an answer call
func BuildMessages(systemPrompt, context, userPrompt string) []Message {
	system := strings.TrimSpace(strings.TrimSpace(systemPrompt) + "\n\n" + strings.TrimSpace(context))
	return []Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: userPrompt},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
