package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
)

// NotificationKind tags the two provider payload shapes.
type NotificationKind string

const (
	// KindPushResult is the push-payment callback: a result code plus a
	// name/value metadata list.
	KindPushResult NotificationKind = "push_result"
	// KindDirectPaybill is the direct paybill shape: transaction id, amount,
	// and bill reference as flat fields.
	KindDirectPaybill NotificationKind = "direct_paybill"
)

// Notification is the validated internal form both payload shapes resolve to.
// Amounts are carried in minor units end to end.
type Notification struct {
	Kind          NotificationKind
	Reference     string
	AmountCents   int64
	TransactionID string
	ResultCode    int
	ResultDesc    string
}

// Succeeded reports whether the provider marked the payment successful. The
// direct paybill shape only arrives for completed payments.
func (n Notification) Succeeded() bool {
	return n.Kind == KindDirectPaybill || n.ResultCode == 0
}

type pushResultPayload struct {
	ResultCode       *int   `json:"ResultCode"`
	ResultDesc       string `json:"ResultDesc"`
	CallbackMetadata struct {
		Item []metadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type metadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

type directPaybillPayload struct {
	TransID       string      `json:"TransID"`
	TransAmount   json.Number `json:"TransAmount"`
	BillRefNumber string      `json:"BillRefNumber"`
}

// ParseNotification decodes a provider webhook body into the tagged internal
// form, detecting the shape from the fields present.
func ParseNotification(body []byte) (*Notification, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook body")
	}
	if _, ok := fields["ResultCode"]; ok {
		return parsePushResult(body)
	}
	if _, ok := fields["TransID"]; ok {
		return parseDirectPaybill(body)
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unrecognized webhook payload shape")
}

func parsePushResult(body []byte) (*Notification, error) {
	var payload pushResultPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed push result")
	}
	if payload.ResultCode == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "push result missing ResultCode")
	}

	n := &Notification{
		Kind:       KindPushResult,
		ResultCode: *payload.ResultCode,
		ResultDesc: payload.ResultDesc,
	}
	for _, item := range payload.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			cents, err := parseAmountCents(item.Value)
			if err != nil {
				return nil, err
			}
			n.AmountCents = cents
		case "ReceiptNumber", "TransactionID":
			var v string
			if err := json.Unmarshal(item.Value, &v); err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt must be a string")
			}
			n.TransactionID = v
		case "AccountReference", "BillRefNumber":
			var v string
			if err := json.Unmarshal(item.Value, &v); err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "account reference must be a string")
			}
			n.Reference = strings.TrimSpace(v)
		}
	}

	// failed pushes carry no metadata; successful ones must identify the draft
	if n.ResultCode == 0 {
		if n.Reference == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "push result missing account reference")
		}
		if n.AmountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "push result missing amount")
		}
	}
	return n, nil
}

func parseDirectPaybill(body []byte) (*Notification, error) {
	var payload directPaybillPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed paybill notification")
	}
	if strings.TrimSpace(payload.TransID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paybill notification missing TransID")
	}
	if strings.TrimSpace(payload.BillRefNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paybill notification missing BillRefNumber")
	}
	cents, err := parseAmountCents(json.RawMessage(payload.TransAmount.String()))
	if err != nil {
		return nil, err
	}
	if cents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paybill amount must be positive")
	}
	return &Notification{
		Kind:          KindDirectPaybill,
		Reference:     strings.TrimSpace(payload.BillRefNumber),
		AmountCents:   cents,
		TransactionID: strings.TrimSpace(payload.TransID),
	}, nil
}

// parseAmountCents accepts a JSON number or numeric string in minor units.
func parseAmountCents(raw json.RawMessage) (int64, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid amount %q", text))
	}
	if !value.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be whole minor units")
	}
	return value.IntPart(), nil
}
