package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"storyloom/internal/config"
	"storyloom/internal/logging"
	"storyloom/internal/services"
)

// Request carries one segment's brief plus the accumulated context the
// model needs to keep the output consistent with earlier segments.
type Request struct {
	Brief            string
	SeriesContext    string
	CharacterContext []string
	PriorVisualState string
	Platform         string
	TargetSeconds    float64
}

// Response is the model's declared output shape.
type Response struct {
	OptimizedPrompt string   `json:"optimized_prompt"`
	Discussion      string   `json:"discussion"`
	CharacterCount  int      `json:"character_count"`
	Tags            []string `json:"tags"`
}

var responseSchema = generateSchema[Response]()

// Client talks to an OpenAI-compatible endpoint.
type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// New builds a client from configuration. The API key must be set; the
// base URL defaults to the configured endpoint.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generator", "new", "config is nil", nil)
	}
	if strings.TrimSpace(cfg.Generator.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "generator", "new", "api key is empty", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.Generator.APIKey)}
	if base := strings.TrimSpace(cfg.Generator.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Generator.TimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.Generator.TimeoutSeconds)*time.Second))
	}

	client := openai.NewClient(opts...)
	return &Client{
		client: &client,
		model:  cfg.Generator.Model,
		logger: logging.NewComponentLogger(logger, "generator"),
	}, nil
}

const optimizerInstructions = `You are a prompt optimizer for short-form generative video.
Rewrite the segment brief into one optimized generation prompt for the target platform.
Preserve every established visual fact you are given: character appearance, wardrobe,
setting, time of day, lighting, and tone. Do not invent new characters or locations.
Respond with JSON matching the provided schema.`

// Generate sends one brief to the model and decodes its structured reply.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	if c == nil || c.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "generator", "generate", "client not initialized", nil)
	}
	if strings.TrimSpace(req.Brief) == "" {
		return nil, services.Wrap(services.ErrValidation, "generator", "generate", "brief is empty", nil)
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "SegmentPrompt",
			Schema:      responseSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Optimized segment prompt JSON"),
			Type:        "json_schema",
		},
	}
	params := responses.ResponseNewParams{
		Model:        c.model,
		Instructions: openai.String(optimizerInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(buildInput(req), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{Format: format},
	}

	started := time.Now()
	resp, err := c.callWithRetry(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, "generator", "generate", "request cancelled or timed out", ctx.Err())
		}
		return nil, services.Wrap(services.ErrExternal, "generator", "generate", "model request failed", err)
	}

	var out Response
	if err := json.Unmarshal([]byte(resp.OutputText()), &out); err != nil {
		return nil, services.Wrap(services.ErrExternal, "generator", "generate", "decode model output", err)
	}
	if strings.TrimSpace(out.OptimizedPrompt) == "" {
		return nil, services.Wrap(services.ErrExternal, "generator", "generate", "model returned an empty prompt", nil)
	}

	c.logger.Debug("generated segment prompt",
		logging.String("model", c.model),
		logging.Int("prompt_chars", len(out.OptimizedPrompt)),
		logging.Duration("elapsed", time.Since(started)))
	return &out, nil
}

// HealthCheck verifies the endpoint is reachable and the key is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.client == nil {
		return services.Wrap(services.ErrConfiguration, "generator", "health", "client not initialized", nil)
	}
	if _, err := c.client.Models.List(ctx); err != nil {
		return services.Wrap(services.ErrExternal, "generator", "health", "endpoint unreachable", err)
	}
	return nil
}

func buildInput(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target platform: %s\n", req.Platform)
	if req.TargetSeconds > 0 {
		fmt.Fprintf(&b, "Target duration: %.0f seconds\n", req.TargetSeconds)
	}
	if req.SeriesContext != "" {
		fmt.Fprintf(&b, "\nSeries context:\n%s\n", req.SeriesContext)
	}
	if len(req.CharacterContext) > 0 {
		fmt.Fprintf(&b, "\nCharacters:\n%s\n", strings.Join(req.CharacterContext, "\n"))
	}
	if req.PriorVisualState != "" {
		fmt.Fprintf(&b, "\nEstablished visual state (JSON):\n%s\n", req.PriorVisualState)
	}
	fmt.Fprintf(&b, "\nSegment brief:\n%s\n", req.Brief)
	return b.String()
}

var (
	rateLimitWaits   = []time.Duration{2 * time.Second, 5 * time.Second}
	serverErrorWaits = []time.Duration{1 * time.Second, 3 * time.Second}
)

func (c *Client) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	const maxAttempts = 3

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var wait time.Duration
		switch {
		case attempt >= maxAttempts-1:
			return nil, lastErr
		case isRateLimitError(err):
			wait = rateLimitWaits[attempt]
		case isServerError(err):
			wait = serverErrorWaits[attempt]
		default:
			return nil, lastErr
		}

		c.logger.Warn("retrying generator request",
			logging.Int("attempt", attempt+1),
			logging.Duration("wait", wait),
			logging.Error(err))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
