// Package intent routes raw user text to an agent action. The classifier is
// a black box to the orchestration core: it returns a discrete action plus a
// free-text hint, or an error meaning "no routable action".
package intent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/yamagen/frontdesk/internal/ledger"
	"github.com/yamagen/frontdesk/pkg/models"
)

// ErrUnroutable means the classifier could not determine an action. The
// dispatcher recovers by prompting the user again; this is never fatal.
var ErrUnroutable = errors.New("could not determine a routable action")

// Built-in actions the classifier may return besides agent names.
const (
	// ActionChat is a direct conversational reply; the hint carries the text.
	ActionChat = "chat"
	// ActionAsk requests clarification; the hint carries the question.
	ActionAsk = "ask"
)

// Intent is the classifier's verdict on a message.
type Intent struct {
	// Action is an agent name from the catalog, or a built-in action.
	Action string
	// Hint is free text: extra instructions, a reply, or a question.
	Hint string
}

// Classifier determines the action for a raw message.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// classifier intent judgment needs few tokens
const classifierMaxTokens = 200

// AnthropicClassifier routes messages with a small Claude model.
type AnthropicClassifier struct {
	client anthropic.Client
	model  anthropic.Model
	prompt string

	mu        sync.Mutex
	pricing   ledger.Pricing
	spentUSD  float64
	inputTok  int64
	outputTok int64
}

// ClassifierConfig configures an AnthropicClassifier.
type ClassifierConfig struct {
	// APIKey is the Anthropic API key. If empty, ANTHROPIC_API_KEY is used.
	APIKey string
	// Model is the classification model.
	Model string
	// UseAWSBedrock routes calls through AWS Bedrock.
	UseAWSBedrock bool
	// AWSRegion is the Bedrock region.
	AWSRegion string
	// AWSProfile is the optional AWS profile name.
	AWSProfile string
	// Agents is the catalog the routing prompt advertises.
	Agents []models.AgentProfile
}

// NewAnthropicClassifier creates a classifier client.
func NewAnthropicClassifier(cfg ClassifierConfig) (*AnthropicClassifier, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeHaiku4_5_20251001
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	return &AnthropicClassifier{
		client:  anthropic.NewClient(opts...),
		model:   model,
		prompt:  routingPrompt(cfg.Agents),
		pricing: ledger.PricingFor(string(model)),
	}, nil
}

// translateModelForBedrock converts standard model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Classify implements Classifier.
func (c *AnthropicClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: classifierMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: c.prompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrUnroutable, err)
	}

	c.track(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var raw string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			raw += tb.Text
		}
	}

	intent, err := ParseIntent(raw)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrUnroutable, err)
	}
	return intent, nil
}

func (c *AnthropicClassifier) track(in, out int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputTok += in
	c.outputTok += out
	c.spentUSD += c.pricing.Cost(in, out)
}

// SpentUSD returns the accumulated classification spend, so routing cost is
// visible even though it is not billed to any single task.
func (c *AnthropicClassifier) SpentUSD() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spentUSD
}

// Tokens returns the total input and output tokens used for routing.
func (c *AnthropicClassifier) Tokens() (input, output int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputTok, c.outputTok
}

// routingPrompt builds the system prompt advertising the catalog's agents.
func routingPrompt(agents []models.AgentProfile) string {
	var b strings.Builder
	b.WriteString("You are the front desk for a set of task agents. ")
	b.WriteString("Analyze the user's message and reply with a single JSON object, no code fence.\n\n")
	b.WriteString("Available agents:\n")
	for _, a := range agents {
		fmt.Fprintf(&b, "- %s: %s (e.g. %q)\n", a.Name, a.Label, a.Example)
	}
	b.WriteString(`
Reply formats:
{"action": "<agent name>", "hint": "extra user instructions, or empty"}
{"action": "chat", "hint": "a short direct reply that invites the next request"}
{"action": "ask", "hint": "one clarifying question"}

Pick an agent whenever the request plausibly fits one. Use "chat" only for
pure greetings. Use "ask" only when the request is too vague to route.`)
	return b.String()
}

// StaticClassifier routes every message to a fixed action with the whole
// message as the hint. It backs demo mode, where no API key is available.
type StaticClassifier struct {
	// Action is the fixed action to return.
	Action string
}

// Classify implements Classifier.
func (s *StaticClassifier) Classify(_ context.Context, text string) (Intent, error) {
	if s.Action == "" {
		return Intent{}, ErrUnroutable
	}
	return Intent{Action: s.Action, Hint: strings.TrimSpace(text)}, nil
}
