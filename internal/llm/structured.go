package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput indicates the model did not produce output conforming
// to the requested schema. Callers decide whether that is recoverable.
var ErrMalformedOutput = errors.New("model output does not match requested schema")

// StructuredClient forces model responses into a declared JSON schema.
type StructuredClient struct {
	gateway Gateway
	model   string
}

func NewStructuredClient(gw Gateway, model string) *StructuredClient {
	return &StructuredClient{gateway: gw, model: model}
}

// SchemaField declares one field of the expected output object.
type SchemaField struct {
	Name        string
	Type        string // string, number, boolean, array, object
	Description string
	Required    bool
}

// Generate asks the model for a JSON object matching the schema and
// decodes it into target. Non-JSON output returns ErrMalformedOutput.
func (s *StructuredClient) Generate(ctx context.Context, prompt string, schema []SchemaField, target any) error {
	resp, err := s.gateway.Chat(ctx, ChatRequest{
		Model: s.model,
		Messages: []Message{
			{
				Role: "system",
				Content: fmt.Sprintf(`You must respond with ONLY a valid JSON object matching this schema:

%s

Do not include any text outside the JSON object. No markdown, no explanation.`, describeSchema(schema)),
			},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("structured generate: %w", err)
	}

	if err := DecodeJSON(resp.Content, target); err != nil {
		return err
	}
	return nil
}

// DecodeJSON parses a model response as JSON, tolerating markdown code
// fences. A parse failure is reported as ErrMalformedOutput.
func DecodeJSON(content string, target any) error {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func describeSchema(fields []SchemaField) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i, f := range fields {
		required := ""
		if f.Required {
			required = " (REQUIRED)"
		}
		fmt.Fprintf(&sb, `  "%s": <%s>%s // %s`, f.Name, f.Type, required, f.Description)
		if i < len(fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}
