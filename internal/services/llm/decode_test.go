package llm

import (
	"strings"
	"testing"
)

func TestDecodeLLMJSONDirect(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := DecodeLLMJSON(`{"summary": "done"}`, &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if out.Summary != "done" {
		t.Fatalf("summary = %q", out.Summary)
	}
}

func TestDecodeLLMJSONStripsCodeFence(t *testing.T) {
	var out map[string]any
	payload := "```json\n{\"key_topics\": [\"billing\"]}\n```"
	if err := DecodeLLMJSON(payload, &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if _, ok := out["key_topics"]; !ok {
		t.Fatalf("decoded payload missing field: %v", out)
	}
}

func TestDecodeLLMJSONExtractsEmbeddedObject(t *testing.T) {
	var out map[string]any
	payload := "Here is the analysis you asked for: {\"summary\": \"x\"} hope that helps"
	if err := DecodeLLMJSON(payload, &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if out["summary"] != "x" {
		t.Fatalf("decoded payload = %v", out)
	}
}

func TestDecodeLLMJSONFailsWithSnippet(t *testing.T) {
	var out map[string]any
	err := DecodeLLMJSON("definitely not json", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "payload snippet") {
		t.Fatalf("error missing snippet: %v", err)
	}
}

func TestDecodeLLMJSONEmpty(t *testing.T) {
	var out map[string]any
	if err := DecodeLLMJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
