package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"phi/internal/adapters/config"
	"phi/internal/tools"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// ToolName is the name the forecast agent knows the search capability by
const ToolName = "tavily-search"

// Result is a single web search hit
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is the Tavily /search payload
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// TavilyClient queries the Tavily search API.
// Requests are never retried: a failed search surfaces as a tool error.
type TavilyClient struct {
	client     *resty.Client
	maxResults int
	log        *logger.Logger
}

// NewTavilyClient creates a client from search config
func NewTavilyClient(cfg config.SearchConfig) *TavilyClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.TavilyKey).
		SetHeader("Content-Type", "application/json")

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	return &TavilyClient{
		client:     client,
		maxResults: maxResults,
		log:        logger.Component("tavily"),
	}
}

// Search runs a basic-depth web search
func (c *TavilyClient) Search(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "search query is empty")
	}

	var out Response
	var apiErr struct {
		Detail struct {
			Error string `json:"error"`
		} `json:"detail"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"query":          query,
			"search_depth":   "basic",
			"max_results":    c.maxResults,
			"include_answer": true,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/search")
	if err != nil {
		return nil, errors.Wrap(err, "tavily request")
	}
	if resp.IsError() {
		msg := apiErr.Detail.Error
		if msg == "" {
			msg = resp.String()
		}
		return nil, errors.Wrapf(errors.ErrExternal, "tavily API error (%d): %s", resp.StatusCode(), msg)
	}

	c.log.Debugf("Search %q returned %d results", query, len(out.Results))
	return &out, nil
}

// Format renders a response as compact text for the model
func (r *Response) Format() string {
	var b strings.Builder
	if r.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n", r.Answer)
	}
	for i, res := range r.Results {
		fmt.Fprintf(&b, "%d. %s (%s)\n%s\n", i+1, res.Title, res.URL, strings.TrimSpace(res.Content))
	}
	if b.Len() == 0 {
		return "No results."
	}
	return strings.TrimRight(b.String(), "\n")
}

// Tool exposes the client as the agent's query -> text search capability
func (c *TavilyClient) Tool() tools.Tool {
	return tools.New(
		ToolName,
		"Search the web for recent news and market context. Returns a short text digest.",
		tools.QuerySchema("search query, e.g. 'bitcoin ETF flows this week'"),
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			query, err := tools.StringArg(args, "query")
			if err != nil {
				return "", err
			}
			resp, err := c.Search(ctx, query)
			if err != nil {
				return "", err
			}
			return resp.Format(), nil
		},
	)
}
