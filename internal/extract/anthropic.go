package extract

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/brfinsikt/brf-helper/internal/config"
)

const systemPrompt = "Du är en assistent som läser svenska bostadsrättsföreningars årsredovisningar. " +
	"Svara kort och exakt på frågan utifrån rapporten för den angivna föreningen. " +
	"Gissa aldrig: om uppgiften inte framgår, svara 'OKÄNT'."

// AnthropicQuerier answers report questions via the Anthropic API. A
// rate limiter keeps the per-metric question volley inside the API
// quota.
type AnthropicQuerier struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

func NewAnthropicQuerier(cfg config.AnthropicConfig) (*AnthropicQuerier, error) {
	if cfg.Key == "" {
		return nil, eris.New("extract: anthropic api key not configured")
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &AnthropicQuerier{
		client:    sdk.NewClient(option.WithAPIKey(cfg.Key)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (q *AnthropicQuerier) Ask(ctx context.Context, brfID, question string) (string, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "extract: rate limit wait")
	}

	prompt := fmt.Sprintf("Förening: %s\n\n%s", brfID, question)
	msg, err := q.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(q.model),
		MaxTokens: q.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "extract: anthropic message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
