package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aman-zulfiqar/superswap-settlement/internal/amm"
	"github.com/aman-zulfiqar/superswap-settlement/internal/jupiter"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
)

type quoteParams struct {
	inputMint   solana.PublicKey
	outputMint  solana.PublicKey
	amount      uint64
	slippageBps *uint16
}

// parseQuoteParams reads inputMint, outputMint, amount and slippageBps.
func (h *Handlers) parseQuoteParams(c echo.Context) (*quoteParams, error) {
	var p quoteParams
	in, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.QueryParam("inputMint")))
	if err != nil {
		return nil, h.err(c, http.StatusBadRequest, "invalid inputMint", map[string]any{"inputMint": "base58 public key required"})
	}
	out, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.QueryParam("outputMint")))
	if err != nil {
		return nil, h.err(c, http.StatusBadRequest, "invalid outputMint", map[string]any{"outputMint": "base58 public key required"})
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(c.QueryParam("amount")), 10, 64)
	if err != nil || amount == 0 {
		return nil, h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive uint64"})
	}
	p.inputMint, p.outputMint, p.amount = in, out, amount

	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be uint16"})
		}
		tmp := uint16(n)
		p.slippageBps = &tmp
	}
	return &p, nil
}

// Quote proxies a Jupiter quote and adds the derived settlement plan.
func (h *Handlers) Quote(c echo.Context) error {
	if h.Jupiter == nil {
		return h.err(c, http.StatusBadRequest, "jupiter is not configured", nil)
	}
	p, err := h.parseQuoteParams(c)
	if p == nil {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	quote, err := h.Jupiter.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   p.inputMint,
		OutputMint:  p.outputMint,
		Amount:      p.amount,
		SlippageBps: p.slippageBps,
	})
	if err != nil {
		return h.err(c, http.StatusBadGateway, "jupiter quote failed", map[string]any{"err": err.Error()})
	}
	plan, err := quote.Plan()
	if err != nil {
		return h.err(c, http.StatusBadGateway, "jupiter quote unreadable", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"quote": quote, "plan": plan})
}

// AMMQuote prices a swap against the local constant-product pools.
func (h *Handlers) AMMQuote(c echo.Context) error {
	if h.Pools == nil {
		return h.err(c, http.StatusBadRequest, "no pools configured", nil)
	}
	p, err := h.parseQuoteParams(c)
	if p == nil {
		return err
	}
	slippage := uint16(50)
	if p.slippageBps != nil {
		slippage = *p.slippageBps
	}

	q, err := h.Pools.Quote(h.Ledger, p.inputMint, p.outputMint, p.amount, slippage)
	if err != nil {
		if errors.Is(err, amm.ErrPoolNotFound) {
			return h.err(c, http.StatusNotFound, "pool not found", nil)
		}
		return h.err(c, http.StatusUnprocessableEntity, "quote failed", err.Error())
	}
	return c.JSON(http.StatusOK, q)
}
