package server

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/signer"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
)

const callerKey = "caller"

// maxBodyBytes bounds the body read for signature verification.
const maxBodyBytes = 1 << 20

// VerifySignature authenticates the request signer and stores the key in
// the echo context. The body is restored for binding.
func VerifySignature(maxAge time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
			if err != nil {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body", Code: http.StatusBadRequest})
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			pub, err := signer.Verify(req.Method, req.URL.Path, req.Header, body, time.Now(), maxAge)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error: "invalid request signature",
					Code:  http.StatusUnauthorized,
					Kind:  err.Error(),
				})
			}
			c.Set(callerKey, pub)
			return next(c)
		}
	}
}

func callerFrom(c echo.Context) solana.PublicKey {
	pub, _ := c.Get(callerKey).(solana.PublicKey)
	return pub
}
