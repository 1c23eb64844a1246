package models

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Discriminator prefixes every encoded record with the first 8 bytes of
// sha256("account:<Name>").
type Discriminator [8]byte

func accountDiscriminator(name string) Discriminator {
	sum := sha256.Sum256([]byte("account:" + name))
	var d Discriminator
	copy(d[:], sum[:8])
	return d
}

var (
	ConfigDiscriminator = accountDiscriminator("GlobalConfig")
	OrderDiscriminator  = accountDiscriminator("SettlementOrder")
)

type configRecord struct {
	Admin          solana.PublicKey
	Relayer        solana.PublicKey
	SwapEngine     solana.PublicKey
	SettlementMint solana.PublicKey
	FeeRecipient   solana.PublicKey
	FeeBps         uint16
	Paused         bool
	Bump           uint8
}

type orderRecord struct {
	OrderID         uint64
	Recipient       solana.PublicKey
	GrossAmount     uint64
	MinOutput       uint64
	DestinationMint solana.PublicKey
	Deadline        int64
	Status          uint8
	Bump            uint8
	Address         solana.PublicKey
	FeeAmount       uint64
	OutputAmount    uint64
	CreatedAt       int64
	UpdatedAt       int64
}

// EncodeConfig serializes the configuration as a fixed-width borsh record.
func EncodeConfig(c *GlobalConfig) ([]byte, error) {
	rec := configRecord(*c)
	return encode(ConfigDiscriminator, &rec)
}

// DecodeConfig is the inverse of EncodeConfig.
func DecodeConfig(data []byte) (*GlobalConfig, error) {
	var rec configRecord
	if err := decode(ConfigDiscriminator, data, &rec); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c := GlobalConfig(rec)
	return &c, nil
}

// EncodeOrder serializes an order. Timestamps are kept at nanosecond precision.
func EncodeOrder(o *SettlementOrder) ([]byte, error) {
	if !o.Status.Valid() {
		return nil, fmt.Errorf("encode order %d: invalid status %d", o.OrderID, o.Status)
	}
	rec := orderRecord{
		OrderID:         o.OrderID,
		Recipient:       o.Recipient,
		GrossAmount:     o.GrossAmount,
		MinOutput:       o.MinOutput,
		DestinationMint: o.DestinationMint,
		Deadline:        o.Deadline,
		Status:          uint8(o.Status),
		Bump:            o.Bump,
		Address:         o.Address,
		FeeAmount:       o.FeeAmount,
		OutputAmount:    o.OutputAmount,
		CreatedAt:       unixNano(o.CreatedAt),
		UpdatedAt:       unixNano(o.UpdatedAt),
	}
	return encode(OrderDiscriminator, &rec)
}

// DecodeOrder is the inverse of EncodeOrder.
func DecodeOrder(data []byte) (*SettlementOrder, error) {
	var rec orderRecord
	if err := decode(OrderDiscriminator, data, &rec); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	status := OrderStatus(rec.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("decode order %d: invalid status %d", rec.OrderID, rec.Status)
	}
	return &SettlementOrder{
		OrderID:         rec.OrderID,
		Recipient:       rec.Recipient,
		GrossAmount:     rec.GrossAmount,
		MinOutput:       rec.MinOutput,
		DestinationMint: rec.DestinationMint,
		Deadline:        rec.Deadline,
		Status:          status,
		Bump:            rec.Bump,
		Address:         rec.Address,
		FeeAmount:       rec.FeeAmount,
		OutputAmount:    rec.OutputAmount,
		CreatedAt:       fromUnixNano(rec.CreatedAt),
		UpdatedAt:       fromUnixNano(rec.UpdatedAt),
	}, nil
}

func encode(d Discriminator, v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(d Discriminator, data []byte, v any) error {
	if len(data) < len(d) {
		return fmt.Errorf("record too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:len(d)], d[:]) {
		return fmt.Errorf("discriminator mismatch")
	}
	return bin.NewBorshDecoder(data[len(d):]).Decode(v)
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
