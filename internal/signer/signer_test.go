package signer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey_Formats(t *testing.T) {
	w := solana.NewWallet()

	fromB58, err := ParsePrivateKey(w.PrivateKey.String())
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), fromB58.PublicKey())

	ints := make([]int, len(w.PrivateKey))
	for i, b := range w.PrivateKey {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)
	fromJSON, err := ParsePrivateKey(string(raw))
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey(), fromJSON.PublicKey())

	_, err = ParsePrivateKey("[1,2,3]")
	assert.Error(t, err)
	_, err = ParsePrivateKey("[1,2,300]")
	assert.Error(t, err)
	_, err = ParsePrivateKey("0OIl")
	assert.Error(t, err)
}

func TestSignRequest_Verify(t *testing.T) {
	s := NewFromPrivateKey(solana.NewWallet().PrivateKey)
	now := time.Unix(1_760_000_000, 0)
	body := []byte(`{"order_id":1}`)

	req := httptest.NewRequest(http.MethodPost, "/v1/settlements", strings.NewReader(string(body)))
	require.NoError(t, s.SignRequest(req, body, now))

	pub, err := Verify(req.Method, req.URL.Path, req.Header, body, now.Add(5*time.Second), 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, s.PublicKey(), pub)

	t.Run("tampered body", func(t *testing.T) {
		_, err := Verify(req.Method, req.URL.Path, req.Header, []byte(`{"order_id":2}`), now, 30*time.Second)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("other path", func(t *testing.T) {
		_, err := Verify(req.Method, "/v1/admin/pause", req.Header, body, now, 30*time.Second)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale", func(t *testing.T) {
		_, err := Verify(req.Method, req.URL.Path, req.Header, body, now.Add(time.Minute), 30*time.Second)
		assert.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("missing headers", func(t *testing.T) {
		_, err := Verify(req.Method, req.URL.Path, http.Header{}, body, now, 30*time.Second)
		assert.ErrorIs(t, err, ErrMissingHeaders)
	})
}

func TestMessage_Layout(t *testing.T) {
	assert.Equal(t, "POST\n/v1/x\n42\n{}", string(Message("post", "/v1/x", 42, []byte("{}"))))
}
