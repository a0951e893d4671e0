package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	aiMaxTokens      = 150
	aiReplyMaxLength = 2000
)

var errEmptyReply = errors.New("empty reply from model")

// Completer sends a single prompt to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnthropicCompleter calls the Anthropic Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a completer for apiKey. An empty model uses
// DefaultModel; a zero timeout keeps the SDK default.
func NewAnthropicCompleter(apiKey, model string, timeout time.Duration) *AnthropicCompleter {
	if model == "" {
		model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &AnthropicCompleter{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Complete implements Completer.
func (a *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: aiMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if reply.Len() == 0 {
		return "", errEmptyReply
	}
	return reply.String(), nil
}

type aiStage struct {
	llm Completer
}

// AIStage asks a language model about descriptions the other stages cannot
// place, such as a person's name. Clear merchant names are left to
// DefaultStage to save requests.
func AIStage(llm Completer) Stage { return &aiStage{llm: llm} }

func (*aiStage) Name() string { return SourceAI }

func (a *aiStage) Suggest(ctx context.Context, _ uuid.UUID, in Input) (Suggestion, bool, error) {
	if !IsAmbiguousDescription(in.Description) {
		return Suggestion{}, false, nil
	}
	reply, err := a.llm.Complete(ctx, buildPrompt(in))
	if err != nil {
		return Suggestion{}, false, err
	}
	return parseReply(reply), true, nil
}

func buildPrompt(in Input) string {
	var sb strings.Builder
	sb.WriteString("You are an expense categorization assistant. Analyze this expense and provide categorization suggestions.\n\n")
	fmt.Fprintf(&sb, "Expense description: %q\n", in.Description)
	if !in.Amount.IsZero() {
		fmt.Fprintf(&sb, "Amount: %s\n", in.Amount.Abs().StringFixed(2))
	}
	fmt.Fprintf(&sb, "\nAvailable categories: %s\n\n", strings.Join(aiCategories(), ", "))
	sb.WriteString(`Provide your response in this exact format:
CATEGORY: [your best guess category]
CONFIDENCE: [high/medium/low]
ALTERNATIVES: [comma-separated list of 1-2 alternative categories if uncertain]
REASONING: [brief explanation in one sentence]

Example for "Ramesh - parking":
CATEGORY: Transport
CONFIDENCE: medium
ALTERNATIVES: Bills, Other
REASONING: Payment to a person named Ramesh for parking suggests transportation costs.`)
	return sb.String()
}

func aiCategories() []string {
	out := make([]string, 0, len(common.Categories))
	for _, c := range common.Categories {
		if c != common.CategoryUncategorized {
			out = append(out, c)
		}
	}
	return out
}

// parseReply reads the CATEGORY/CONFIDENCE/ALTERNATIVES/REASONING lines.
// Unknown categories become Other with low confidence.
func parseReply(reply string) Suggestion {
	if len(reply) > aiReplyMaxLength {
		reply = reply[:aiReplyMaxLength]
	}
	s := Suggestion{
		Category:   common.CategoryOther,
		Confidence: common.ConfidenceLow,
		Reasoning:  "Unable to categorize",
	}
	validCategory := false

	for _, line := range strings.Split(reply, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "[](){}")
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "CATEGORY":
			if c, ok := common.CanonicalCategory(value); ok && c != common.CategoryUncategorized {
				s.Category = c
				validCategory = true
			}
		case "CONFIDENCE":
			s.Confidence = common.ParseConfidence(value)
		case "ALTERNATIVES", "ALTERNATIVE":
			s.Alternatives = nil
			for _, alt := range strings.Split(value, ",") {
				if c, ok := common.CanonicalCategory(alt); ok {
					s.Alternatives = append(s.Alternatives, c)
				}
			}
		case "REASONING", "REASON", "EXPLANATION":
			if value != "" {
				s.Reasoning = value
			}
		}
	}

	if !validCategory {
		s.Category = common.CategoryOther
		s.Confidence = common.ConfidenceLow
	}
	return s
}
