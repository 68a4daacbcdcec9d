package payline

import (
	"fmt"
	"strings"
)

// CallbackPayload represents the PayLine result callback (form-encoded, not
// JSON): the gateway posts amount, order id and a signature after the user
// completes payment.
type CallbackPayload struct {
	Amount    string
	OrderID   string
	Signature string
	Custom    map[string]string // pl_* parameters, part of the signature base
}

// VerifyResultSignature validates a result callback signature:
// SHA256(Amount:OrderID:Secret2[:pl_params]).
func VerifyResultSignature(amount, orderID, signature, secret2 string, custom map[string]string) bool {
	if secret2 == "" || signature == "" {
		return false
	}

	base := BuildResultSignatureBase(amount, orderID, secret2, custom)
	return VerifySignature(Sign(base), signature)
}

// ParseCallbackForm parses form-encoded callback data into a structured
// payload. Custom parameter key casing is preserved because it is part of the
// signature base.
func ParseCallbackForm(formValues map[string][]string) (*CallbackPayload, error) {
	amount := getFirstValue(formValues, "amount")
	orderID := getFirstValue(formValues, "order")
	signature := getFirstValue(formValues, "signature")

	if amount == "" {
		return nil, fmt.Errorf("amount is required")
	}
	if orderID == "" {
		return nil, fmt.Errorf("order is required")
	}
	if signature == "" {
		return nil, fmt.Errorf("signature is required")
	}

	custom := make(map[string]string)
	for key, values := range formValues {
		if !strings.HasPrefix(strings.ToLower(key), "pl_") || len(values) == 0 {
			continue
		}
		custom[key] = values[0]
	}

	return &CallbackPayload{
		Amount:    amount,
		OrderID:   orderID,
		Signature: signature,
		Custom:    custom,
	}, nil
}

// getFirstValue extracts the first value for a key, case-insensitive.
func getFirstValue(values map[string][]string, key string) string {
	for k, v := range values {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
