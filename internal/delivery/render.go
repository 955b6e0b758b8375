package delivery

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"loom/internal/conversations"
)

//go:embed synthesis_email.html
var synthesisEmailHTML string

var emailTemplate = template.Must(template.New("synthesis_email").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(synthesisEmailHTML))

type emailData struct {
	Title         string
	Date          string
	Summary       string
	Decisions     []string
	ActionItems   []conversations.ActionItem
	OpenQuestions []string
	Topics        []string
}

func renderHTMLBody(conv *conversations.Conversation, syn *conversations.Synthesis) (string, error) {
	data := emailData{
		Title:         conv.Title,
		Date:          conv.CreatedAt.Format("January 2, 2006 at 3:04 PM"),
		Summary:       syn.Summary,
		Decisions:     syn.KeyDecisions,
		ActionItems:   syn.ActionItems,
		OpenQuestions: syn.OpenQuestions,
		Topics:        syn.KeyTopics,
	}
	var builder strings.Builder
	if err := emailTemplate.Execute(&builder, data); err != nil {
		return "", fmt.Errorf("render synthesis email: %w", err)
	}
	return builder.String(), nil
}

func renderTextBody(conv *conversations.Conversation, syn *conversations.Synthesis) string {
	rule := strings.Repeat("-", 60)
	lines := []string{
		"MEETING SYNTHESIS: " + conv.Title,
		strings.Repeat("=", 60),
		"",
		"SUMMARY",
		rule,
		syn.Summary,
		"",
	}

	if len(syn.KeyDecisions) > 0 {
		lines = append(lines, "", fmt.Sprintf("KEY DECISIONS (%d)", len(syn.KeyDecisions)), rule)
		for i, decision := range syn.KeyDecisions {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, decision))
		}
	}

	if len(syn.ActionItems) > 0 {
		lines = append(lines, "", fmt.Sprintf("ACTION ITEMS (%d)", len(syn.ActionItems)), rule)
		for i, item := range syn.ActionItems {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, item.Task))
			if item.Owner != "" {
				lines = append(lines, "   Owner: "+item.Owner)
			}
			if item.DueDate != "" {
				lines = append(lines, "   Due: "+item.DueDate)
			}
		}
	}

	if len(syn.OpenQuestions) > 0 {
		lines = append(lines, "", fmt.Sprintf("OPEN QUESTIONS (%d)", len(syn.OpenQuestions)), rule)
		for i, question := range syn.OpenQuestions {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, question))
		}
	}

	if len(syn.KeyTopics) > 0 {
		lines = append(lines, "", "KEY TOPICS", rule, strings.Join(syn.KeyTopics, ", "))
	}

	lines = append(lines, "", strings.Repeat("=", 60), "Generated by Loom")
	return strings.Join(lines, "\n")
}
