package models

import (
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of a settlement order.
type OrderStatus uint8

const (
	StatusPending OrderStatus = iota
	StatusCompleted
	StatusRefunded
	StatusFailed
)

var statusNames = [...]string{"pending", "completed", "refunded", "failed"}

func (s OrderStatus) String() string {
	if s.Valid() {
		return statusNames[s]
	}
	return fmt.Sprintf("OrderStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	return int(s) < len(statusNames)
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRefunded
}

// Refundable reports whether a refund may move the order to Refunded.
func (s OrderStatus) Refundable() bool {
	return s == StatusPending || s == StatusFailed
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid order status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *OrderStatus) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus parses a case-insensitive status name.
func ParseStatus(v string) (OrderStatus, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, n := range statusNames {
		if n == v {
			return OrderStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown order status %q", v)
}
