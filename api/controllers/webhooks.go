package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/shopdeck/shopdeck-backend/api/responses"
	paymentsvc "github.com/shopdeck/shopdeck-backend/internal/payments"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
)

// PaymentValidation answers the provider's pre-payment reference check.
func PaymentValidation(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	var handle func(ctx context.Context, n paymentsvc.Notification) paymentsvc.Ack
	if svc != nil {
		handle = svc.HandleValidation
	}
	return paymentWebhook(handle, logg)
}

// PaymentConfirmation processes the post-payment notification that turns a
// draft into an order.
func PaymentConfirmation(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	var handle func(ctx context.Context, n paymentsvc.Notification) paymentsvc.Ack
	if svc != nil {
		handle = svc.HandleConfirmation
	}
	return paymentWebhook(handle, logg)
}

// Webhook endpoints always return 200: the ack body tells the provider
// whether to retry, not the HTTP status.
func paymentWebhook(handle func(ctx context.Context, n paymentsvc.Notification) paymentsvc.Ack, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if handle == nil {
			responses.WriteRaw(w, http.StatusOK, paymentsvc.Ack{ResultCode: 1, ResultDesc: "Service unavailable"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "webhook body read failed", err)
			}
			responses.WriteRaw(w, http.StatusOK, paymentsvc.Ack{ResultCode: 1, ResultDesc: "Rejected"})
			return
		}

		notification, err := paymentsvc.ParseNotification(body)
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "webhook payload rejected", err)
			}
			responses.WriteRaw(w, http.StatusOK, paymentsvc.Ack{ResultCode: 1, ResultDesc: "Rejected"})
			return
		}

		responses.WriteRaw(w, http.StatusOK, handle(r.Context(), *notification))
	}
}
