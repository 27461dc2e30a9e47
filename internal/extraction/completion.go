package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"skontokit/internal/logger"
	"skontokit/pkg/models"
)

// CompletionConfig configures the LLM completion fallback.
type CompletionConfig struct {
	Model       string  // e.g. gpt-4o-mini, gpt-3.5-turbo
	Temperature float32 // Sampling temperature, keep low for extraction
	MaxRetries  int     // Chat completion retry attempts
}

// CompletionService fills skonto fields that the structured extraction
// missed by asking an OpenAI chat model about the document text. It is a
// fallback only; the engine never depends on it.
type CompletionService struct {
	client *openai.Client
	config CompletionConfig
	log    zerolog.Logger
}

// completionResponse is the JSON shape the model is instructed to return.
// All values arrive as strings and are validated before use.
type completionResponse struct {
	HasSkonto        string `json:"has_skonto"`
	Percentage       string `json:"percentage,omitempty"`
	DueDate          string `json:"due_date,omitempty"`
	DiscountedAmount string `json:"discounted_amount,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
}

// NewCompletionService creates the service with the OpenAI client from the
// environment. Requires OPENAI_API_KEY; OPENAI_MODEL is optional.
func NewCompletionService() (*CompletionService, error) {
	const op = "NewCompletionService"

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%s: OPENAI_API_KEY environment variable is required", op)
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	config := CompletionConfig{
		Model:       model,
		Temperature: 0.1,
		MaxRetries:  3,
	}
	return NewCompletionServiceWithClient(openai.NewClient(apiKey), config), nil
}

// NewCompletionServiceWithClient creates the service with explicit dependencies.
func NewCompletionServiceWithClient(client *openai.Client, config CompletionConfig) *CompletionService {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	return &CompletionService{
		client: client,
		config: config,
		log:    logger.WithComponent("skonto-completion"),
	}
}

// CompleteSkonto asks the model for the skonto conditions mentioned in the
// document text and merges them into the partial line. The full amount and
// currency of the partial line are kept; only missing discount fields are
// filled. Returns ErrNoSkontoFound when the model sees no offer.
func (s *CompletionService) CompleteSkonto(ctx context.Context, text string, partial models.DiscountLine) (models.DiscountLine, error) {
	const op = "CompleteSkonto"

	if strings.TrimSpace(text) == "" {
		return partial, wrapError(op, ErrCompletionFailed, "no document text to complete from")
	}

	s.log.Info().
		Int("text_length", len(text)).
		Str("model", s.config.Model).
		Msg("Starting skonto completion")

	resp, err := s.requestCompletion(ctx, text)
	if err != nil {
		return partial, wrapError(op, ErrCompletionFailed, err.Error())
	}

	if !strings.EqualFold(resp.HasSkonto, "true") && !strings.EqualFold(resp.HasSkonto, "yes") {
		return partial, wrapError(op, ErrNoSkontoFound, "model reports no early-payment discount")
	}

	line, err := mergeCompletion(partial, resp)
	if err != nil {
		return partial, wrapError(op, ErrCompletionFailed, err.Error())
	}

	s.log.Info().
		Float64("percentage", line.Percentage).
		Str("due_date", line.DueDate.Format("2006-01-02")).
		Msg("Skonto completion successful")

	return line, nil
}

func (s *CompletionService) requestCompletion(ctx context.Context, text string) (*completionResponse, error) {
	prompt := buildCompletionPrompt(text)

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: s.config.Temperature,
			MaxTokens:   300,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: completionSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", s.config.MaxRetries).
				Msg("Chat completion request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := resp.Choices[0].Message.Content
		s.log.Debug().Str("response", content).Msg("Received completion response")

		parsed, err := parseCompletionResponse(content)
		if err != nil {
			lastErr = err
			s.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Failed to parse completion response, retrying")
			continue
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", s.config.MaxRetries, lastErr)
}

const completionSystemPrompt = `You are an invoice analysis assistant. You identify early-payment discount (Skonto) conditions in invoice text. Respond with a single JSON object and nothing else.`

func buildCompletionPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Find the early-payment discount (Skonto) conditions in this invoice text.\n\n")
	b.WriteString("Respond with JSON of this exact shape:\n")
	b.WriteString(`{"has_skonto":"true|false","percentage":"2.5","due_date":"2026-01-31","discounted_amount":"123.45","payment_method":"cash|other"}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- percentage: discount percent as plain number, no % sign\n")
	b.WriteString("- due_date: last day the discount can be taken, ISO format\n")
	b.WriteString("- discounted_amount: amount payable with discount, plain decimal, omit if not stated\n")
	b.WriteString("- payment_method: \"cash\" only if the invoice demands cash payment\n")
	b.WriteString("- omit fields that are not stated, never guess\n\n")
	b.WriteString("Invoice text:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---")
	return b.String()
}

// parseCompletionResponse parses the model output, tolerating markdown code
// fences around the JSON object.
func parseCompletionResponse(content string) (*completionResponse, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var resp completionResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	return &resp, nil
}

// mergeCompletion applies the validated model answer to the partial line.
func mergeCompletion(partial models.DiscountLine, resp *completionResponse) (models.DiscountLine, error) {
	line := partial

	if resp.Percentage != "" {
		pct, err := strconv.ParseFloat(strings.ReplaceAll(resp.Percentage, ",", "."), 64)
		if err != nil || pct < 0 || pct > 100 {
			return partial, fmt.Errorf("implausible percentage %q", resp.Percentage)
		}
		line.Percentage = pct
	}

	if resp.DueDate != "" {
		due, err := time.ParseInLocation("2006-01-02", resp.DueDate, time.UTC)
		if err != nil {
			return partial, fmt.Errorf("implausible due date %q", resp.DueDate)
		}
		line.DueDate = due
		line.RemainingDays = remainingDays(due)
	}

	if resp.DiscountedAmount != "" {
		cents, err := ParseAmountCents(resp.DiscountedAmount)
		if err != nil {
			return partial, fmt.Errorf("implausible discounted amount %q", resp.DiscountedAmount)
		}
		if line.FullAmountCents > 0 && cents > line.FullAmountCents {
			return partial, fmt.Errorf("discounted amount %q exceeds full amount", resp.DiscountedAmount)
		}
		line.DiscountedAmountCents = cents
	} else if line.FullAmountCents > 0 && line.Percentage > 0 {
		line.DiscountedAmountCents = int64(float64(line.FullAmountCents)*(100-line.Percentage)/100 + 0.5)
	}

	if resp.PaymentMethod != "" {
		line.PaymentMethod = strings.ToLower(resp.PaymentMethod)
	}

	if line.Percentage == 0 && line.DiscountedAmountCents == 0 {
		return partial, fmt.Errorf("model returned no usable discount fields")
	}
	return line, nil
}
