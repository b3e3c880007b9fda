package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/gotlex"
)

// OpenAISource translates single terms using OpenAI's chat completion API.
type OpenAISource struct {
	client      *openai.Client
	model       string
	temperature float32
	direction   gotlex.Direction
}

// OpenAIConfig holds configuration for the OpenAI source.
type OpenAIConfig struct {
	APIKey      string           // OpenAI API key (uses OPENAI_API_KEY env var if empty)
	Model       string           // Model to use (default: "gpt-4o-mini")
	Temperature float32          // Temperature for generation (default: 0.3)
	BaseURL     string           // Custom base URL (optional)
	Direction   gotlex.Direction // Translation direction (default: fr-en)
}

// NewOpenAISource creates a new OpenAI source.
func NewOpenAISource(cfg OpenAIConfig) *OpenAISource {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	direction := cfg.Direction
	if direction == "" {
		direction = gotlex.DefaultDirection
	}

	return &OpenAISource{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		direction:   direction,
	}
}

// Name returns "openai".
func (p *OpenAISource) Name() string {
	return "openai"
}

// Direction returns the translation direction.
func (p *OpenAISource) Direction() gotlex.Direction {
	return p.direction
}

// Fetch translates term and returns a Document with a "translations"
// section and, when the model provides them, an "examples" section.
func (p *OpenAISource) Fetch(ctx context.Context, term string) (json.RawMessage, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &gotlex.SourceError{Source: p.Name(), Message: "empty term"}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(term)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &gotlex.SourceError{
			Source:  p.Name(),
			Message: "OpenAI API call failed",
			Cause:   err,
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &gotlex.SourceError{
			Source:  p.Name(),
			Message: "no response from OpenAI",
		}
	}

	doc, err := p.parseResponse(term, resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return doc.Encode()
}

func (p *OpenAISource) buildSystemPrompt() string {
	sourceName := gotlex.GetLanguageName(p.direction.Source())
	targetName := gotlex.GetLanguageName(p.direction.Target())

	return fmt.Sprintf(`# Role
You are a bilingual %[1]s-%[2]s lexicographer.

# Task
Give the %[2]s translations of the %[1]s word or expression provided by the user, most common sense first.

# Style Guide
- **Senses**: List distinct senses separately; add a short context in parentheses when a sense is ambiguous.
- **Grammar**: Give the part of speech and, for %[1]s nouns, the gender.
- **Examples**: Add at most three short example sentences in %[1]s with their %[2]s translation, separated by " / ".
- **Unknown terms**: If the input is not a %[1]s word or expression, return empty arrays.

# Format
Return a valid JSON object with the keys "translations" and "examples", each an array of strings.
Example: { "translations": ["house (n, f)", "home (n, f)"], "examples": ["Je rentre à la maison. / I'm going home."] }
- Do NOT wrap in Markdown code blocks.`, sourceName, targetName)
}

func (p *OpenAISource) buildUserMessage(term string) string {
	data, _ := json.Marshal(map[string]string{"term": term})
	return string(data)
}

func (p *OpenAISource) parseResponse(term, content string) (*Document, error) {
	var result struct {
		Translations []interface{} `json:"translations"`
		Examples     []interface{} `json:"examples"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, &gotlex.SourceError{
			Source:  p.Name(),
			Message: "invalid response format from OpenAI",
			Cause:   err,
		}
	}

	translations := toStringSlice(result.Translations)
	if len(translations) == 0 {
		return nil, &gotlex.SourceError{
			Source:   p.Name(),
			Message:  fmt.Sprintf("no translation for %q", term),
			NotFound: true,
		}
	}

	doc := &Document{
		Term:     term,
		Source:   p.Name(),
		Sections: []Section{{Heading: "translations", Entries: translations}},
	}
	if examples := toStringSlice(result.Examples); len(examples) > 0 {
		doc.Sections = append(doc.Sections, Section{Heading: "examples", Entries: examples})
	}
	return doc, nil
}

func toStringSlice(arr []interface{}) []string {
	var result []string
	seen := make(map[string]bool)
	for _, v := range arr {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		result = appendUnique(result, seen, s)
	}
	return result
}

// Verify OpenAISource implements Source
var _ gotlex.Source = (*OpenAISource)(nil)
