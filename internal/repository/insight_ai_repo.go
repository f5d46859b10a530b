package repository

import (
	"context"
	"fmt"
	"net/http"
	"stockwatch/config"
	"stockwatch/internal/dto"
	"stockwatch/pkg/httpclient"
	"stockwatch/pkg/logger"
	"stockwatch/pkg/ratelimit"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// InsightRepository summarizes recent run history with the Gemini API.
type InsightRepository interface {
	SummarizeRuns(ctx context.Context, schedule *dto.Schedule, history []dto.AlertHistoryItem) (*dto.RunInsight, error)
}

type geminiInsightRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiInsightRepository creates a Gemini-backed insight repository.
func NewGeminiInsightRepository(cfg *config.Config, log *logger.Logger) (InsightRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)
	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiInsightRepository{
		httpClient:     httpclient.New(log, cfg.Gemini.BaseURL, cfg.Gemini.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		tokenLimiter:   tokenLimiter,
		requestLimiter: requestLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiInsightRepository) SummarizeRuns(ctx context.Context, schedule *dto.Schedule, history []dto.AlertHistoryItem) (*dto.RunInsight, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("no execution history to summarize")
	}

	prompt := r.buildPrompt(schedule, history)

	response, err := r.sendRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("invalid response from Gemini API: no content found")
	}

	summary := strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text)
	return &dto.RunInsight{Summary: summary}, nil
}

func (r *geminiInsightRepository) buildPrompt(schedule *dto.Schedule, history []dto.AlertHistoryItem) string {
	var sb strings.Builder
	sb.WriteString("You are an operations assistant for a recurring stock alert job.\n")
	sb.WriteString("Summarize the recent execution history below in at most three sentences.\n")
	sb.WriteString("Call out failure streaks, quote anomalies, and whether alert emails went out.\n\n")

	if schedule != nil {
		sb.WriteString(fmt.Sprintf("Schedule: %s, active=%t\n\n", schedule.CronExpression, schedule.IsActive))
	}

	for _, item := range history {
		sb.WriteString(fmt.Sprintf("- run %d at %s success=%t", item.ID, item.ExecutedAt, item.Success))
		if item.Result != nil {
			if item.Result.StockSymbol != nil && item.Result.CurrentPrice != nil {
				sb.WriteString(fmt.Sprintf(" %s@%.2f", *item.Result.StockSymbol, *item.Result.CurrentPrice))
			}
			if item.Result.EmailSent != nil {
				sb.WriteString(fmt.Sprintf(" email_sent=%t", *item.Result.EmailSent))
			}
		}
		if item.ErrorMessage != nil {
			sb.WriteString(fmt.Sprintf(" error=%q", *item.ErrorMessage))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r *geminiInsightRepository) sendRequest(ctx context.Context, prompt string) (*dto.GeminiAPIResponse, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	geminiTokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	if err := r.tokenLimiter.Wait(ctx, int(geminiTokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for gemini token limit: %w", err)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for gemini request limit: %w", err)
	}

	payload := dto.GeminiAPIRequest{
		Contents: []dto.Content{{Parts: []dto.Part{{Text: prompt}}}},
	}

	geminiAPIResponse := dto.GeminiAPIResponse{}
	apiURL := fmt.Sprintf("/%s:generateContent?key=%s", r.cfg.Gemini.BaseModel, r.cfg.Gemini.APIKey)

	geminiResp, err := r.httpClient.Post(ctx, apiURL, payload, nil, &geminiAPIResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to gemini: %w", err)
	}

	if geminiResp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "failed to get data from gemini", logger.IntField("status_code", geminiResp.StatusCode))
		return nil, fmt.Errorf("gemini responded with status %d", geminiResp.StatusCode)
	}

	return &geminiAPIResponse, nil
}
