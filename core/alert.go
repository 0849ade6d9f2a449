package core

import (
	"fmt"
	"strconv"
	"time"
)

// AlertOp is the comparison operator of an alert condition.
type AlertOp string

const (
	OpLess         AlertOp = "<"
	OpLessEqual    AlertOp = "<="
	OpGreater      AlertOp = ">"
	OpGreaterEqual AlertOp = ">="
)

// Valid reports whether the operator is one of the supported four.
func (op AlertOp) Valid() bool {
	switch op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Compare applies the operator to (market value, threshold).
func (op AlertOp) Compare(market, threshold float64) bool {
	switch op {
	case OpLess:
		return market < threshold
	case OpLessEqual:
		return market <= threshold
	case OpGreater:
		return market > threshold
	case OpGreaterEqual:
		return market >= threshold
	}
	return false
}

// Describe translates the operator into english for notifications.
func (op AlertOp) Describe() string {
	switch op {
	case OpLess:
		return "less than"
	case OpLessEqual:
		return "less than or equal to"
	case OpGreater:
		return "greater than"
	case OpGreaterEqual:
		return "greater than or equal to"
	}
	return string(op)
}

// AlertKind selects which market value an alert compares against.
type AlertKind string

const (
	KindPrice    AlertKind = "price"
	KindChange1H AlertKind = "percent_1h"
	KindChange24 AlertKind = "percent_24h"
	KindChange7D AlertKind = "percent_7d"
)

// Label returns the short display suffix for the kind ("(1H)" etc.).
func (k AlertKind) Label(fiat string) string {
	switch k {
	case KindChange1H:
		return "% (1H)"
	case KindChange24:
		return "% (24H)"
	case KindChange7D:
		return "% (7D)"
	}
	return " " + fiat
}

// Alert is a one-shot user-defined trigger condition. It is persisted at
// creation and deleted as soon as its condition becomes true and the
// notification is sent.
type Alert struct {
	Owner       string    `json:"owner"`
	Num         int       `json:"num"`
	Currency    string    `json:"currency"`
	Op          AlertOp   `json:"op"`
	Value       float64   `json:"value"`
	Kind        AlertKind `json:"kind"`
	Fiat        string    `json:"fiat"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
}

// Describe renders the alert condition for listings and notifications,
// e.g. "Bitcoin is greater than 50000 USD".
func (a Alert) Describe() string {
	value := stripTrailingZeros(strconv.FormatFloat(a.Value, 'f', 6, 64))
	return fmt.Sprintf("*%s* is %s *%s*%s", a.Currency, a.Op.Describe(), value, a.Kind.Label(a.Fiat))
}

// AlertRef identifies a stored alert for batched deletion.
type AlertRef struct {
	Owner string
	Num   int
}
