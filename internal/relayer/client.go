package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/amm"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/server"
	"github.com/aman-zulfiqar/superswap-settlement/internal/settlement"
	"github.com/aman-zulfiqar/superswap-settlement/internal/signer"
	"github.com/gagliardetto/solana-go"
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Signer  *signer.Signer
}

// Client talks to the coordinator API, signing every mutating request.
type Client struct {
	baseURL string
	apiKey  string
	signer  *signer.Signer
	http    *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("relayer: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		signer:  cfg.Signer,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// APIError is a non-2xx coordinator response.
type APIError struct {
	StatusCode int
	Response   server.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Kind != "" {
		return fmt.Sprintf("coordinator http %d: %s (%d): %s", e.StatusCode, e.Response.Kind, e.Response.ProgramCode, e.Response.Error)
	}
	return fmt.Sprintf("coordinator http %d: %s", e.StatusCode, e.Response.Error)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, signed bool) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if signed {
		if c.signer == nil {
			return fmt.Errorf("relayer: %s %s needs a signer", method, path)
		}
		if err := c.signer.SignRequest(req, body, time.Now()); err != nil {
			return err
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		if err := json.Unmarshal(raw, &apiErr.Response); err != nil {
			apiErr.Response.Error = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) Config(ctx context.Context) (*models.GlobalConfig, error) {
	var out models.GlobalConfig
	if err := c.do(ctx, http.MethodGet, "/v1/config", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Order(ctx context.Context, orderID uint64) (*models.SettlementOrder, error) {
	var out models.SettlementOrder
	if err := c.do(ctx, http.MethodGet, "/v1/settlements/"+strconv.FormatUint(orderID, 10), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Process submits a settlement. A committed failure returns the receipt
// together with the *APIError.
func (c *Client) Process(ctx context.Context, req *models.ProcessRequest) (*settlement.Receipt, error) {
	var out settlement.Receipt
	err := c.do(ctx, http.MethodPost, "/v1/settlements", server.NewProcessSettlementRequest(req), &out, true)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Response.Receipt != nil {
			raw, mErr := json.Marshal(apiErr.Response.Receipt)
			if mErr == nil && json.Unmarshal(raw, &out) == nil {
				return &out, err
			}
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refund(ctx context.Context, orderID uint64, destination solana.PublicKey) (*models.SettlementOrder, error) {
	var out models.SettlementOrder
	path := "/v1/settlements/" + strconv.FormatUint(orderID, 10) + "/refund"
	if err := c.do(ctx, http.MethodPost, path, server.RefundSettlementRequest{Destination: destination}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AMMQuote(ctx context.Context, in, out solana.PublicKey, amount uint64, slippageBps uint16) (*amm.SwapQuote, error) {
	q := url.Values{}
	q.Set("inputMint", in.String())
	q.Set("outputMint", out.String())
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(uint64(slippageBps), 10))

	var quote amm.SwapQuote
	if err := c.do(ctx, http.MethodGet, "/v1/amm/quote?"+q.Encode(), nil, &quote, false); err != nil {
		return nil, err
	}
	return &quote, nil
}
