package llm

import (
	"fmt"
	"strings"
)

// SynthesisSystemPrompt captures the instructions sent to the model when
// extracting structured insights from a transcript. Keep updates centralized
// here so it is easy to tweak without hunting through call sites.
const SynthesisSystemPrompt = `You are an expert meeting analyst. Your task is to analyze meeting transcripts and extract structured insights.

Extract the following information from the meeting transcript:

1. **Summary**: Write a concise 3-sentence summary capturing the meeting's purpose, main discussions, and outcomes.

2. **Key Decisions**: List all decisions that were explicitly made during the meeting. Each decision should be a clear, actionable statement.

3. **Action Items**: List all tasks or actions that were assigned. For each action item, include:
   - task: What needs to be done
   - owner: Who is responsible (if mentioned)
   - due_date: When it's due (if mentioned)

4. **Open Questions**: List any questions raised that were NOT answered during the meeting.

5. **Key Topics**: List 3-5 main topics or themes discussed in the meeting.

Return your response as valid JSON with this structure:
{
  "summary": "string",
  "key_decisions": ["string", ...],
  "action_items": [
    {"task": "string", "owner": "string", "due_date": "string"},
    ...
  ],
  "open_questions": ["string", ...],
  "key_topics": ["string", ...]
}

Guidelines:
- Be precise and factual - only include what was actually discussed
- If a category has no items, return an empty array
- For action items without owner/due_date, use "Not specified"
- Keep each item concise but complete
- Focus on substance, not small talk or off-topic conversations`

func buildUserPrompt(transcript, title string) string {
	var b strings.Builder
	if title = strings.TrimSpace(title); title != "" {
		fmt.Fprintf(&b, "Meeting Title: %s\n\n", title)
	}
	b.WriteString("Please analyze the following meeting transcript and extract structured insights:\n\n")
	b.WriteString("---TRANSCRIPT START---\n")
	b.WriteString(transcript)
	b.WriteString("\n---TRANSCRIPT END---\n\n")
	b.WriteString("Provide your analysis as JSON following the specified structure.")
	return b.String()
}
