package payment

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

type PromotionType string

const (
	PromotionPercent PromotionType = "percent"
	PromotionAmount  PromotionType = "amount"
)

// Promotion is display metadata only. Savings are always derived from the
// discounted room prices, never from Value.
type Promotion struct {
	Code  string        `json:"code,omitempty"`
	Type  PromotionType `json:"type"`
	Value float64       `json:"value"`
}

func (p *Promotion) Label() string {
	var amount string

	switch p.Type {
	case PromotionPercent:
		amount = strconv.FormatFloat(p.Value, 'f', -1, 64) + "%"
	case PromotionAmount:
		amount = amountPrinter.Sprintf("%d", int64(p.Value))
	default:
		return p.Code
	}

	if p.Code == "" {
		return "-" + amount
	}

	return fmt.Sprintf("%s (-%s)", p.Code, amount)
}
