package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.jup.ag/swap/v1"

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond caps outbound quote calls; 0 disables the limit.
	RequestsPerSecond float64
	Logger            *logrus.Logger
}

// Client fetches routed quotes. The settlement core never calls it; it is
// used off-path to pick a sensible min_output before submitting an order.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("jupiter http %d", e.StatusCode)
	}
	return fmt.Sprintf("jupiter http %d: %s", e.StatusCode, b)
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("jupiter rate limit: %w", err)
		}
	}

	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	if req.SlippageBps != nil {
		q.Set("slippageBps", strconv.FormatUint(uint64(*req.SlippageBps), 10))
	}
	if req.SwapMode != "" {
		q.Set("swapMode", req.SwapMode)
	}
	if len(req.Dexes) > 0 {
		q.Set("dexes", strings.Join(req.Dexes, ","))
	}
	if req.OnlyDirectRoutes {
		q.Set("onlyDirectRoutes", "true")
	}
	if req.MaxAccounts > 0 {
		q.Set("maxAccounts", strconv.FormatUint(req.MaxAccounts, 10))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter quote response: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"input_mint":  out.InputMint,
		"output_mint": out.OutputMint,
		"out_amount":  out.OutAmount,
		"hops":        len(out.RoutePlan),
		"took":        time.Since(start),
	}).Debug("jupiter quote")
	return &out, nil
}

// Plan quotes amount and derives the settlement minimum from the quote's
// slippage-adjusted threshold. Quotes whose price impact exceeds
// maxImpactPct are rejected; 0 disables the check.
func (c *Client) Plan(ctx context.Context, req QuoteRequest, maxImpactPct float64) (*Plan, error) {
	quote, err := c.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	p, err := quote.Plan()
	if err != nil {
		return nil, err
	}
	if maxImpactPct > 0 && p.PriceImpactPct.InexactFloat64() > maxImpactPct {
		return nil, fmt.Errorf("price impact %s%% exceeds %.4f%%", p.PriceImpactPct.String(), maxImpactPct)
	}
	return p, nil
}
