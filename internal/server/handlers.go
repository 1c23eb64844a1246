package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/admin"
	"github.com/aman-zulfiqar/superswap-settlement/internal/amm"
	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/aman-zulfiqar/superswap-settlement/internal/jupiter"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/metrics"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	"github.com/aman-zulfiqar/superswap-settlement/internal/settlement"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Coordinator *settlement.Coordinator
	Admin       *admin.Service
	Store       storage.Store
	Ledger      *ledger.Ledger
	Pools       *amm.Registry   // optional
	Jupiter     *jupiter.Client // optional
	Metrics     *metrics.Recorder
	DevMode     bool
	Timeout     time.Duration
	Logger      *logrus.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		return h.err(c, http.StatusServiceUnavailable, "store unavailable", err.Error())
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

func (h *Handlers) ProcessSettlement(c echo.Context) error {
	var req ProcessSettlementRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	receipt, err := h.Coordinator.Process(ctx, callerFrom(c), req.Model())
	if err != nil {
		if receipt != nil {
			return h.codedError(c, err, receipt)
		}
		return h.codedError(c, err, nil)
	}
	return c.JSON(http.StatusOK, receipt)
}

func (h *Handlers) RefundSettlement(c echo.Context) error {
	id, err := parseOrderID(c)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid order id", nil)
	}
	var req RefundSettlementRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	o, err := h.Coordinator.Refund(ctx, callerFrom(c), &models.RefundRequest{OrderID: id, Destination: req.Destination})
	if err != nil {
		return h.codedError(c, err, nil)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handlers) GetSettlement(c echo.Context) error {
	id, err := parseOrderID(c)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid order id", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "settlement not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get settlement", err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

// ListSettlements returns the newest orders first.
// Accepts limit query parameter (default: 50, range: 1-200)
func (h *Handlers) ListSettlements(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxListOrders {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	items, err := h.Store.ListOrders(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list settlements", err.Error())
	}
	return c.JSON(http.StatusOK, ListResponse{Items: items})
}

func (h *Handlers) GetConfig(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	cfg, err := h.Store.GetConfig(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "program not initialized", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get config", err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handlers) GetAccount(c echo.Context) error {
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", nil)
	}
	acc, err := h.Ledger.Account(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return h.err(c, http.StatusNotFound, "account not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get account", err.Error())
	}
	return c.JSON(http.StatusOK, AccountResponse{
		Address: acc.Address,
		Owner:   acc.Owner,
		Mint:    acc.Mint,
		Symbol:  constants.Symbol(acc.Mint.String()),
		Amount:  acc.Amount,
	})
}

func (h *Handlers) Initialize(c echo.Context) error {
	var req models.InitializeParams
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	cfg, err := h.Admin.Initialize(ctx, callerFrom(c), req)
	if err != nil {
		return h.codedError(c, err, nil)
	}
	return c.JSON(http.StatusCreated, cfg)
}

func (h *Handlers) UpdateConfig(c echo.Context) error {
	var req models.UpdateConfigParams
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	cfg, err := h.Admin.UpdateConfig(ctx, callerFrom(c), req)
	if err != nil {
		return h.codedError(c, err, nil)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handlers) Pause(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	if err := h.Admin.Pause(ctx, callerFrom(c)); err != nil {
		return h.codedError(c, err, nil)
	}
	return c.JSON(http.StatusOK, StatusResponse{OK: true, Paused: true})
}

func (h *Handlers) Unpause(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()
	if err := h.Admin.Unpause(ctx, callerFrom(c)); err != nil {
		return h.codedError(c, err, nil)
	}
	return c.JSON(http.StatusOK, StatusResponse{OK: true, Paused: false})
}

func (h *Handlers) RecoverFunds(c echo.Context) error {
	var req models.RecoverFundsParams
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	if err := h.Admin.RecoverFunds(ctx, callerFrom(c), req); err != nil {
		return h.codedError(c, err, nil)
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

func parseOrderID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
