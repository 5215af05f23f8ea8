package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ryosukesatoh/news-curator/internal/article"
	"github.com/ryosukesatoh/news-curator/internal/retry"
)

// DefaultNewsAPIBaseURL is the public NewsAPI v2 endpoint.
const DefaultNewsAPIBaseURL = "https://newsapi.org/v2"

type newsAPIResponse struct {
	Status       string               `json:"status"`
	TotalResults int                  `json:"totalResults"`
	Articles     []article.RawArticle `json:"articles"`
	Code         string               `json:"code"`
	Message      string               `json:"message"`
}

// NewsAPIFetcher searches the NewsAPI /everything endpoint.
type NewsAPIFetcher struct {
	client      *resty.Client
	retryConfig retry.Config
}

// NewNewsAPIFetcher creates a fetcher. An empty baseURL selects the public API.
func NewNewsAPIFetcher(baseURL, apiKey string, timeout time.Duration) *NewsAPIFetcher {
	if baseURL == "" {
		baseURL = DefaultNewsAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("X-Api-Key", apiKey).
		SetHeader("Accept", "application/json")
	return &NewsAPIFetcher{
		client:      client,
		retryConfig: retry.DefaultConfig(),
	}
}

func (f *NewsAPIFetcher) Search(ctx context.Context, params SearchParams) ([]article.RawArticle, error) {
	var result []article.RawArticle
	err := retry.WithBackoff(ctx, f.retryConfig, func(ctx context.Context) error {
		articles, err := f.search(ctx, params)
		if err != nil {
			return err
		}
		result = articles
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("newsapi: search %q: %w", params.Term, err)
	}
	return result, nil
}

func (f *NewsAPIFetcher) search(ctx context.Context, params SearchParams) ([]article.RawArticle, error) {
	query := map[string]string{"q": params.Term}
	if params.Language != "" {
		query["language"] = params.Language
	}
	if params.SortHint != "" {
		query["sortBy"] = params.SortHint
	}
	if params.PageSize > 0 {
		query["pageSize"] = strconv.Itoa(params.PageSize)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get("/everything")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var body newsAPIResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if code := resp.StatusCode(); code != http.StatusOK {
		if retry.HTTPStatusRetryable(code) {
			return nil, &retry.StatusError{Code: code, Body: body.Message}
		}
		if decodeErr == nil && body.Status != "" {
			return nil, retry.Permanent(&UpstreamError{Term: params.Term, Status: body.Status, Code: body.Code, Message: body.Message})
		}
		return nil, &retry.StatusError{Code: code, Body: truncateBody(resp.String())}
	}
	if decodeErr != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to decode response: %w", decodeErr))
	}
	if body.Status != "ok" {
		return nil, retry.Permanent(&UpstreamError{Term: params.Term, Status: body.Status, Code: body.Code, Message: body.Message})
	}
	if body.Articles == nil {
		return []article.RawArticle{}, nil
	}
	return body.Articles, nil
}

func truncateBody(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
