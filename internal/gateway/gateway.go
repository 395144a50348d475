// Package gateway holds the narrow payment-gateway contract the settlement
// engine depends on. Wire protocols beyond verify/payout/balance belong to
// the gateway SDK layer, not here.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusPending    Status = "pending"
)

var ErrUnknownGateway = errors.New("unknown gateway")

type Verification struct {
	Status   Status
	Amount   decimal.Decimal
	Currency string
}

type PayoutRequest struct {
	Reference     string
	ReceiverName  string
	ReceiverPhone string
	Amount        decimal.Decimal
	Currency      string
}

type PayoutResult struct {
	Success           bool
	ProviderReference string
	Message           string
}

type Client interface {
	// Verify asks the gateway for the authoritative state of a collection.
	Verify(ctx context.Context, gatewayTxID string) (Verification, error)
	// Payout disburses funds over one rail. railConfig is the rail's opaque
	// API configuration blob, passed through untouched.
	Payout(ctx context.Context, railConfig string, req PayoutRequest) (PayoutResult, error)
	// Balance reports the custodial balance held at the gateway for a
	// currency; Valid=false when the gateway cannot say.
	Balance(ctx context.Context, currency string) (decimal.NullDecimal, error)
}

type Registry struct {
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(name string, client Client) {
	r.clients[name] = client
}

func (r *Registry) Get(name string) (Client, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, name)
	}
	return client, nil
}
