package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/catalog"
	"github.com/shopdeck/shopdeck-backend/internal/checkout"
	"github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/internal/orders"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/metrics"
	"github.com/shopdeck/shopdeck-backend/pkg/outbox"
	"github.com/shopdeck/shopdeck-backend/pkg/redis"
)

// Ack is the two-field acknowledgement the provider expects. Code 0 tells the
// provider to stop retrying; code 1 signals rejection.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func ackSuccess(desc string) Ack { return Ack{ResultCode: 0, ResultDesc: desc} }
func ackFailure(desc string) Ack { return Ack{ResultCode: 1, ResultDesc: desc} }

// reconcile outcomes used as metric labels
const (
	outcomeConfirmed      = "confirmed"
	outcomeValidated      = "validated"
	outcomeDuplicate      = "duplicate"
	outcomeBadReference   = "bad_reference"
	outcomeUnknownDraft   = "unknown_draft"
	outcomeExpired        = "expired"
	outcomeAmountMismatch = "amount_mismatch"
	outcomeTerminalDraft  = "terminal_draft"
	outcomePushFailed     = "push_failed"
	outcomeInternalError  = "internal_error"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type shortCodeResolver interface {
	Resolve(ctx context.Context, code string) (string, error)
}

type referenceDecoder interface {
	Decode(ref string) (string, error)
	Generate(token string) string
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the payment reconciliation engine: it turns provider webhook
// deliveries into draft transitions and, on confirmation, into the durable
// order plus its ledger entries, all inside one transaction.
type Service interface {
	HandleValidation(ctx context.Context, n Notification) Ack
	HandleConfirmation(ctx context.Context, n Notification) Ack
}

type service struct {
	tx       txRunner
	drafts   checkout.Repository
	orders   orders.Repository
	products catalog.Repository
	ledger   ledger.Service
	outbox   outboxPublisher
	kv       redis.KVStore
	resolver shortCodeResolver
	codec    referenceDecoder
	webhooks *metrics.WebhookMetrics
	logg     *logger.Logger
	ackTTL   time.Duration
}

// NewService builds the reconciliation engine.
func NewService(
	tx txRunner,
	drafts checkout.Repository,
	ordersRepo orders.Repository,
	products catalog.Repository,
	ledgerSvc ledger.Service,
	publisher outboxPublisher,
	kv redis.KVStore,
	resolver shortCodeResolver,
	codec referenceDecoder,
	webhooks *metrics.WebhookMetrics,
	logg *logger.Logger,
	ackTTL time.Duration,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if drafts == nil {
		return nil, fmt.Errorf("draft repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("short code resolver required")
	}
	if codec == nil {
		return nil, fmt.Errorf("reference codec required")
	}
	if ackTTL <= 0 {
		ackTTL = 72 * time.Hour
	}
	return &service{
		tx:       tx,
		drafts:   drafts,
		orders:   ordersRepo,
		products: products,
		ledger:   ledgerSvc,
		outbox:   publisher,
		kv:       kv,
		resolver: resolver,
		codec:    codec,
		webhooks: webhooks,
		logg:     logg,
		ackTTL:   ackTTL,
	}, nil
}

// HandleValidation is the provider's pre-payment check: it verifies the
// reference resolves to a live draft whose total matches the offered amount.
// A mismatched amount is terminal; the provider will not resubmit a
// different figure.
func (s *service) HandleValidation(ctx context.Context, n Notification) Ack {
	started := time.Now()
	ack, outcome := s.validate(ctx, n)
	s.observe(ctx, "validation", outcome, started)
	return ack
}

func (s *service) validate(ctx context.Context, n Notification) (Ack, string) {
	reference, ack := s.resolveReference(ctx, n.Reference)
	if ack != nil {
		return *ack, outcomeBadReference
	}

	draft, err := s.drafts.FindByReference(ctx, reference)
	if err != nil {
		return ackFailure("unknown account reference"), outcomeUnknownDraft
	}
	if draft.Status.IsTerminal() {
		return ackFailure("draft no longer payable"), outcomeTerminalDraft
	}
	if draft.Expired(time.Now()) {
		_ = s.drafts.UpdateStatus(ctx, draft.ID, enums.DraftStatusExpired, nil)
		return ackFailure("draft expired"), outcomeExpired
	}
	if n.AmountCents != draft.TotalCents {
		reason := fmt.Sprintf("amount mismatch: offered %d, expected %d", n.AmountCents, draft.TotalCents)
		_ = s.drafts.UpdateStatus(ctx, draft.ID, enums.DraftStatusFailed, map[string]any{
			"failure_reason": reason,
		})
		return ackFailure("amount mismatch"), outcomeAmountMismatch
	}

	if draft.Status == enums.DraftStatusPending {
		if err := s.drafts.UpdateStatus(ctx, draft.ID, enums.DraftStatusValidated, nil); err != nil {
			return ackFailure("internal error"), outcomeInternalError
		}
	}
	return ackSuccess("Accepted"), outcomeValidated
}

// HandleConfirmation applies the payment. Duplicate deliveries are tolerated
// at two levels: a fast receipt-id guard in Redis, and the draft-status check
// inside the transaction that is the actual correctness boundary.
func (s *service) HandleConfirmation(ctx context.Context, n Notification) Ack {
	started := time.Now()
	ack, outcome := s.confirm(ctx, n)
	s.observe(ctx, "confirmation", outcome, started)
	return ack
}

func (s *service) confirm(ctx context.Context, n Notification) (Ack, string) {
	reference, ack := s.resolveReference(ctx, n.Reference)
	if ack != nil {
		return *ack, outcomeBadReference
	}

	if !n.Succeeded() {
		return s.failPush(ctx, reference, n), outcomePushFailed
	}

	guardKey := ""
	if s.kv != nil && n.TransactionID != "" {
		guardKey = redis.IdempotencyKey("webhook", n.TransactionID)
		fresh, err := s.kv.SetNX(ctx, guardKey, reference, s.ackTTL)
		if err == nil && !fresh {
			// A held guard only proves an earlier delivery claimed the
			// receipt, not that its confirm landed. Only a CONFIRMED draft may
			// short-circuit; otherwise fall through to the transaction, where
			// the row lock serializes concurrent deliveries.
			draft, derr := s.drafts.FindByReference(ctx, reference)
			if derr == nil && draft.Status == enums.DraftStatusConfirmed {
				return ackSuccess("Duplicate delivery"), outcomeDuplicate
			}
		}
	}

	result := ackFailure("internal error")
	outcome := outcomeInternalError
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		drafts := s.drafts.WithTx(tx)

		draft, err := drafts.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			result, outcome = ackFailure("unknown account reference"), outcomeUnknownDraft
			return err
		}

		switch draft.Status {
		case enums.DraftStatusConfirmed:
			// duplicate delivery after a successful confirm
			result, outcome = ackSuccess("Already confirmed"), outcomeDuplicate
			return nil
		case enums.DraftStatusFailed, enums.DraftStatusExpired:
			result, outcome = ackFailure("draft no longer payable"), outcomeTerminalDraft
			return nil
		}

		if draft.Expired(time.Now()) {
			if err := drafts.UpdateStatus(ctx, draft.ID, enums.DraftStatusExpired, nil); err != nil {
				return err
			}
			result, outcome = ackFailure("draft expired"), outcomeExpired
			return nil
		}
		if n.AmountCents != draft.TotalCents {
			reason := fmt.Sprintf("amount mismatch: paid %d, expected %d", n.AmountCents, draft.TotalCents)
			if err := drafts.UpdateStatus(ctx, draft.ID, enums.DraftStatusFailed, map[string]any{
				"failure_reason": reason,
			}); err != nil {
				return err
			}
			result, outcome = ackFailure("amount mismatch"), outcomeAmountMismatch
			return nil
		}

		order, err := s.confirmDraft(ctx, tx, draft, n)
		if err != nil {
			return err
		}
		if s.logg != nil {
			logCtx := s.logg.WithReference(ctx, draft.Reference)
			s.logg.Info(logCtx, fmt.Sprintf("order %s confirmed from draft", order.ID))
		}
		result, outcome = ackSuccess("Confirmed"), outcomeConfirmed
		return nil
	})
	if txErr != nil && s.logg != nil {
		s.logg.Error(ctx, "payment confirmation transaction failed", txErr)
	}
	// only a landed confirmation may keep the receipt guard; anything else
	// must leave retries able to reach the draft again
	if guardKey != "" && outcome != outcomeConfirmed && outcome != outcomeDuplicate {
		_ = s.kv.Del(ctx, guardKey)
	}
	return result, outcome
}

// confirmDraft performs the atomic unit: stock decrement, order + suborder
// creation, ledger entries, outbox event, draft flip.
func (s *service) confirmDraft(ctx context.Context, tx *gorm.DB, draft *models.OrderDraft, n Notification) (*models.Order, error) {
	products := s.products.WithTx(tx)
	for _, item := range draft.Items {
		if err := products.DecrementStock(ctx, item.ProductID, item.Qty); err != nil {
			return nil, err
		}
	}

	order := buildOrder(draft, n.TransactionID)
	if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
		return nil, err
	}

	for _, sub := range order.Suborders {
		_, err := s.ledger.CreateVendorPayout(ctx, tx, ledger.VendorPayoutInput{
			OrderID:         order.ID,
			SuborderID:      sub.ID,
			VendorID:        sub.VendorID,
			GrossCents:      sub.GrossCents,
			CommissionCents: sub.CommissionCents,
			NetCents:        sub.NetCents,
		})
		if err != nil {
			return nil, err
		}
	}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderConfirmed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Data: map[string]any{
			"order_id":    order.ID.String(),
			"reference":   order.Reference,
			"total_cents": order.TotalCents,
			"suborders":   len(order.Suborders),
		},
	})
	if err != nil {
		return nil, err
	}

	err = s.drafts.WithTx(tx).UpdateStatus(ctx, draft.ID, enums.DraftStatusConfirmed, map[string]any{
		"provider_transaction_id": n.TransactionID,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// failPush marks the draft failed after an unsuccessful push payment. The
// provider is acknowledged with success: it reported the failure and will
// not retry.
func (s *service) failPush(ctx context.Context, reference string, n Notification) Ack {
	draft, err := s.drafts.FindByReference(ctx, reference)
	if err != nil {
		return ackSuccess("Acknowledged")
	}
	if !draft.Status.IsTerminal() {
		reason := fmt.Sprintf("push payment failed: %s", n.ResultDesc)
		_ = s.drafts.UpdateStatus(ctx, draft.ID, enums.DraftStatusFailed, map[string]any{
			"failure_reason": reason,
		})
	}
	return ackSuccess("Acknowledged")
}

func (s *service) resolveReference(ctx context.Context, raw string) (string, *Ack) {
	if raw == "" {
		a := ackFailure("missing account reference")
		return "", &a
	}
	full, err := s.resolver.Resolve(ctx, raw)
	if err != nil {
		full = raw
	}
	token, err := s.codec.Decode(full)
	if err != nil || token == "" {
		a := ackFailure("invalid account reference")
		return "", &a
	}
	// Look up by the canonical rendering: the codec tolerates case-mangled
	// deliveries but the draft row stores the reference exactly as issued.
	return s.codec.Generate(token), nil
}

func (s *service) observe(ctx context.Context, phase, outcome string, started time.Time) {
	if s.webhooks != nil {
		s.webhooks.Observe(outcome, time.Since(started))
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"phase": phase, "outcome": outcome})
		s.logg.Debug(logCtx, "payment webhook processed")
	}
}

func buildOrder(draft *models.OrderDraft, transactionID string) *models.Order {
	itemsByVendor := map[uuid.UUID][]models.SuborderItem{}
	for _, item := range draft.Items {
		itemsByVendor[item.VendorID] = append(itemsByVendor[item.VendorID], models.SuborderItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}

	suborders := make([]models.Suborder, 0, len(draft.VendorSplits))
	for _, split := range draft.VendorSplits {
		suborders = append(suborders, models.Suborder{
			ID:              uuid.New(),
			VendorID:        split.VendorID,
			ShopID:          split.ShopID,
			GrossCents:      split.GrossCents,
			CommissionCents: split.CommissionCents,
			NetCents:        split.NetCents,
			Status:          enums.SuborderStatusPending,
			Items:           itemsByVendor[split.VendorID],
		})
	}

	// ids assigned up front so the ledger rows written in the same
	// transaction can reference the suborders
	return &models.Order{
		ID:                    uuid.New(),
		DraftID:               draft.ID,
		Reference:             draft.Reference,
		BuyerID:               draft.BuyerID,
		SubtotalCents:         draft.SubtotalCents,
		PlatformFeeCents:      draft.PlatformFeeCents,
		TotalCents:            draft.TotalCents,
		ShippingAddress:       draft.ShippingAddress,
		PaymentStatus:         enums.PaymentStatusPaid,
		Status:                enums.OrderStatusProcessing,
		ProviderTransactionID: transactionID,
		Suborders:             suborders,
	}
}
