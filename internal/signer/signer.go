package signer

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Request headers carrying the caller identity.
const (
	HeaderSigner    = "X-Signer"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

var (
	ErrMissingHeaders   = errors.New("signer: missing signature headers")
	ErrStaleTimestamp   = errors.New("signer: timestamp outside allowed skew")
	ErrInvalidSignature = errors.New("signer: signature does not verify")
)

// Signer signs API requests with an ed25519 key.
type Signer struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// New parses privateKey (base58 64-byte key or a solana-keygen JSON array).
func New(privateKey string) (*Signer, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, fmt.Errorf("signer: private key is required")
	}
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Signer{priv: priv, pub: priv.PublicKey()}, nil
}

// NewFromEnv reads RELAYER_PRIVATE_KEY.
func NewFromEnv() (*Signer, error) {
	return New(os.Getenv("RELAYER_PRIVATE_KEY"))
}

// NewFromPrivateKey wraps an already decoded key.
func NewFromPrivateKey(priv solana.PrivateKey) *Signer {
	return &Signer{priv: priv, pub: priv.PublicKey()}
}

func (s *Signer) Address() string             { return s.pub.String() }
func (s *Signer) PublicKey() solana.PublicKey { return s.pub }

// Message is the byte string covered by a request signature.
func Message(method, path string, timestamp int64, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('\n')
	b.Write(body)
	return b.Bytes()
}

// Sign returns the base58 signature of the request fields.
func (s *Signer) Sign(method, path string, timestamp int64, body []byte) (string, error) {
	sig, err := s.priv.Sign(Message(method, path, timestamp, body))
	if err != nil {
		return "", fmt.Errorf("signer: sign: %w", err)
	}
	return sig.String(), nil
}

// SignRequest sets the signature headers on req. body must be the exact
// bytes sent.
func (s *Signer) SignRequest(req *http.Request, body []byte, now time.Time) error {
	ts := now.Unix()
	sig, err := s.Sign(req.Method, req.URL.Path, ts, body)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderSigner, s.pub.String())
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, sig)
	return nil
}

// Verify checks a signed request and returns the signing key.
func Verify(method, path string, header http.Header, body []byte, now time.Time, maxSkew time.Duration) (solana.PublicKey, error) {
	signerHdr := header.Get(HeaderSigner)
	tsHdr := header.Get(HeaderTimestamp)
	sigHdr := header.Get(HeaderSignature)
	if signerHdr == "" || tsHdr == "" || sigHdr == "" {
		return solana.PublicKey{}, ErrMissingHeaders
	}

	pub, err := solana.PublicKeyFromBase58(signerHdr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("signer: invalid %s: %w", HeaderSigner, err)
	}
	ts, err := strconv.ParseInt(tsHdr, 10, 64)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("signer: invalid %s: %w", HeaderTimestamp, err)
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if maxSkew > 0 && skew > maxSkew {
		return solana.PublicKey{}, ErrStaleTimestamp
	}

	raw, err := base58.Decode(sigHdr)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return solana.PublicKey{}, fmt.Errorf("signer: invalid %s", HeaderSignature)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), Message(method, path, ts, body), raw) {
		return solana.PublicKey{}, ErrInvalidSignature
	}
	return pub, nil
}

// ParsePrivateKey accepts a base58 encoded 64-byte key or a JSON byte array.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("signer: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("signer: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("signer: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("signer: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signer: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}
