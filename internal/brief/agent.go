// Package brief produces the optional editorial paragraph on the homepage.
// Without a configured model it falls back to a deterministic summary line,
// so a generation run never depends on the LLM being reachable.
package brief

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"marketpages/internal/market"
)

type Config struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

type Brief struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
}

type Input struct {
	Date    string         `json:"date"`
	Summary market.Summary `json:"summary"`
}

type Agent struct {
	enabled        bool
	model          *openai.ChatModel
	modelName      string
	disabledReason string
	logger         *logrus.Logger
}

func New(cfg Config, logger *logrus.Logger) *Agent {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if !cfg.Enabled {
		return &Agent{enabled: false, disabledReason: "disabled by config", logger: logger}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("OPENAI_MODEL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.APIKey == "" || cfg.Model == "" {
		logger.Warn("brief agent disabled: missing api key or model")
		return &Agent{enabled: false, disabledReason: "api_key or model missing", logger: logger}
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	model, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		ByAzure:    cfg.ByAzure,
		APIVersion: cfg.APIVersion,
		Timeout:    timeout,
	})
	if err != nil {
		logger.WithError(err).Warn("brief agent init failed")
		return &Agent{enabled: false, disabledReason: "init failed", logger: logger}
	}

	return &Agent{enabled: true, model: model, modelName: cfg.Model, logger: logger}
}

// Generate returns the brief for one run. Any failure degrades to the
// deterministic fallback; the error is informational only.
func (a *Agent) Generate(ctx context.Context, in Input) (Brief, error) {
	if !a.enabled || a.model == nil {
		return Fallback(in), nil
	}

	payload, _ := json.Marshal(in)

	system := `You are a market-page editor. Output ONLY valid JSON.
Must include keys: headline (max 80 chars), body (one factual paragraph, max 500 chars).
Mention the strongest gainer and decliner by symbol. No advice, no extra text.`

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(fmt.Sprintf("Input: %s", string(payload))),
	}

	resp, err := a.model.Generate(ctx, messages)
	if err != nil {
		a.logLLMError(err)
		return Fallback(in), err
	}

	out, err := parseBrief(strings.TrimSpace(resp.Content))
	if err != nil {
		a.logger.WithError(err).Warn("brief parse failed, using fallback")
		return Fallback(in), err
	}
	return sanitize(out), nil
}

// Fallback is the template brief used whenever no model output is available.
func Fallback(in Input) Brief {
	sum := in.Summary
	b := Brief{Headline: fmt.Sprintf("Market movers for %s", in.Date)}
	switch {
	case len(sum.Gainers) > 0 && len(sum.Decliners) > 0:
		b.Body = fmt.Sprintf("%s led gainers at %+.2f%% while %s fell %.2f%%. %d symbols tracked this session.",
			sum.Gainers[0].Symbol, sum.Gainers[0].ChangePercent,
			sum.Decliners[0].Symbol, -sum.Decliners[0].ChangePercent, len(sum.Quotes))
	case len(sum.Gainers) > 0:
		b.Body = fmt.Sprintf("%s led gainers at %+.2f%%. %d symbols tracked this session.",
			sum.Gainers[0].Symbol, sum.Gainers[0].ChangePercent, len(sum.Quotes))
	case len(sum.Decliners) > 0:
		b.Body = fmt.Sprintf("%s led decliners at %+.2f%%. %d symbols tracked this session.",
			sum.Decliners[0].Symbol, sum.Decliners[0].ChangePercent, len(sum.Quotes))
	default:
		b.Body = fmt.Sprintf("%d symbols tracked this session, little movement either way.", len(sum.Quotes))
	}
	return b
}

func parseBrief(text string) (Brief, error) {
	var out Brief
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}
	jsonStr := extractFirstJSONObject(text)
	if jsonStr == "" {
		return Brief{}, fmt.Errorf("no json object found")
	}
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return Brief{}, fmt.Errorf("parse brief: %w", err)
	}
	return out, nil
}

func extractFirstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func sanitize(b Brief) Brief {
	b.Headline = strings.TrimSpace(b.Headline)
	b.Body = strings.TrimSpace(b.Body)
	if len(b.Headline) > 120 {
		b.Headline = b.Headline[:120]
	}
	if len(b.Body) > 800 {
		b.Body = b.Body[:800]
	}
	return b
}

func (a *Agent) logLLMError(err error) {
	apiErr := &openai.APIError{}
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if len(msg) > 300 {
			msg = msg[:300] + "..."
		}
		a.logger.WithFields(logrus.Fields{
			"status":  apiErr.HTTPStatusCode,
			"message": msg,
		}).Warn("brief agent api error")
		return
	}
	a.logger.WithError(err).Warn("brief agent error")
}
