package payline

import (
	"fmt"
	"net/url"
	"strings"
)

const checkoutBaseURL = "https://pay.payline.io/checkout"

// Config holds PayLine gateway configuration
type Config struct {
	MerchantID string
	Secret1    string // signs checkout requests
	Secret2    string // signs result callbacks
	TestMode   bool
}

// Client builds signed checkout URLs for the PayLine gateway. PayLine has no
// server-side create call; the user is redirected with a signed query string
// and the gateway confirms via the result callback.
type Client struct {
	config Config
}

// CheckoutRequest describes one payment to initiate
type CheckoutRequest struct {
	Amount      float64
	OrderID     string // merchant-side payment id, echoed back in the callback
	Description string
	Email       string
	Custom      map[string]string // optional pl_* parameters, echoed back signed
}

// CheckoutResponse carries the redirect URL
type CheckoutResponse struct {
	PaymentURL string
	OrderID    string
}

// NewClient creates a PayLine client
func NewClient(cfg Config) *Client {
	return &Client{config: cfg}
}

// CreateCheckout builds the signed redirect URL for a payment.
func (c *Client) CreateCheckout(req CheckoutRequest) (*CheckoutResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, fmt.Errorf("validation error: order id is empty")
	}
	if strings.TrimSpace(c.config.MerchantID) == "" {
		return nil, fmt.Errorf("payline config error: merchant_id is empty")
	}
	if strings.TrimSpace(c.config.Secret1) == "" {
		return nil, fmt.Errorf("payline config error: secret1 is empty")
	}

	amount := FormatAmount(req.Amount)

	custom := make(map[string]string, len(req.Custom))
	for k, v := range req.Custom {
		key := k
		if !strings.HasPrefix(strings.ToLower(k), "pl_") {
			key = "pl_" + k
		}
		custom[key] = v
	}

	base := BuildCheckoutSignatureBase(c.config.MerchantID, amount, req.OrderID, c.config.Secret1, custom)
	signature := Sign(base)

	params := url.Values{}
	params.Set("merchant", c.config.MerchantID)
	params.Set("amount", amount)
	params.Set("order", req.OrderID)
	params.Set("description", req.Description)
	params.Set("signature", signature)
	if req.Email != "" {
		params.Set("email", req.Email)
	}
	if c.config.TestMode {
		params.Set("test", "1")
	}
	for k, v := range custom {
		params.Set(k, v)
	}

	return &CheckoutResponse{
		PaymentURL: checkoutBaseURL + "?" + params.Encode(),
		OrderID:    req.OrderID,
	}, nil
}
