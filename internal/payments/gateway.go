package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrGateway wraps every failure talking to the payment provider.
var ErrGateway = errors.New("payment gateway error")

// Gateway creates and captures payments with an external provider.
type Gateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentSession, error)
	CapturePayment(ctx context.Context, paymentID string) (*Capture, error)
}

// PaymentRequest describes a single line-item charge.
type PaymentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	SKU         string
	ReturnURL   string
	CancelURL   string
}

// PaymentSession is the provider handle the payer approves.
type PaymentSession struct {
	ID          string `json:"paymentId"`
	ApprovalURL string `json:"approvalUrl"`
}

// Capture is the settled result of an approved payment.
type Capture struct {
	ID     string
	Status string
}
