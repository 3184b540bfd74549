package controllers

import (
	"crypto/hmac"
	"net/http"
	"strings"
	"time"

	"github.com/helpnet/helpnet-backend/api/middleware"
	"github.com/helpnet/helpnet-backend/api/responses"
	"github.com/helpnet/helpnet-backend/api/validators"
	"github.com/helpnet/helpnet-backend/internal/settlement"
	"github.com/helpnet/helpnet-backend/pkg/config"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	"github.com/helpnet/helpnet-backend/pkg/types"
)

const webhookSecretHeader = "X-HelpNet-Webhook-Secret"

type paymentWebhookRequest struct {
	EventID    string `json:"event_id" validate:"required"`
	OrderID    string `json:"order_id" validate:"required,uuid4"`
	MethodID   string `json:"method_id" validate:"required,uuid4"`
	Amount     string `json:"amount" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=confirmed rejected pending"`
	OccurredAt string `json:"occurred_at,omitempty"`
}

type manualPaymentRequest struct {
	OrderID  string `json:"order_id" validate:"required,uuid4"`
	MethodID string `json:"method_id" validate:"required,uuid4"`
	Amount   string `json:"amount" validate:"required"`
}

type sandboxPaymentRequest struct {
	OrderID  string `json:"order_id" validate:"required,uuid4"`
	MethodID string `json:"method_id" validate:"required,uuid4"`
	Amount   string `json:"amount" validate:"required"`
}

// PaymentWebhook ingests gateway confirmations authenticated by a shared secret.
func PaymentWebhook(cfg config.PaymentsConfig, svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		secret := strings.TrimSpace(r.Header.Get(webhookSecretHeader))
		if secret == "" || !hmac.Equal([]byte(secret), []byte(cfg.WebhookSecret)) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook secret"))
			return
		}

		var payload paymentWebhookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Status != enums.PaymentEventConfirmed.String() {
			if logg != nil {
				ctx := logg.WithFields(r.Context(), map[string]any{
					"event_id": payload.EventID,
					"status":   payload.Status,
				})
				logg.Info(ctx, "ignoring non-confirmed payment event")
			}
			responses.WriteSuccessStatus(w, http.StatusAccepted, nil)
			return
		}

		input, err := buildApplyPaymentInput(payload.OrderID, payload.MethodID, payload.Amount, enums.PaymentSourceWebhook)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(payload.OccurredAt); raw != "" {
			occurredAt, parseErr := time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid occurred_at"))
				return
			}
			input.OccurredAt = occurredAt
		}
		input.ActorRole = "gateway"

		result, err := svc.ApplyPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ManualPayment records an operator-confirmed payment against an order.
func ManualPayment(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		actorID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload manualPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildApplyPaymentInput(payload.OrderID, payload.MethodID, payload.Amount, enums.PaymentSourceManual)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ActorUserID = actorID
		input.ActorRole = middleware.RoleFromContext(r.Context())

		result, err := svc.ApplyPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SandboxPayment simulates a gateway confirmation in non-production environments.
func SandboxPayment(cfg config.PaymentsConfig, svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		if !cfg.SandboxEnabled {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "sandbox payments are disabled"))
			return
		}

		actorID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload sandboxPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildApplyPaymentInput(payload.OrderID, payload.MethodID, payload.Amount, enums.PaymentSourceSandbox)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ActorUserID = actorID
		input.ActorRole = middleware.RoleFromContext(r.Context())

		result, err := svc.ApplyPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func buildApplyPaymentInput(rawOrderID, rawMethodID, rawAmount string, source enums.PaymentSource) (settlement.ApplyPaymentInput, error) {
	var input settlement.ApplyPaymentInput

	orderID, err := validators.ParsePathUUID(rawOrderID, "order_id")
	if err != nil {
		return input, err
	}
	methodID, err := validators.ParsePathUUID(rawMethodID, "method_id")
	if err != nil {
		return input, err
	}
	amountCents, err := types.ParseBRL(rawAmount)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}

	input = settlement.ApplyPaymentInput{
		OrderID:     orderID,
		MethodID:    methodID,
		AmountCents: amountCents,
		Source:      source,
		OccurredAt:  time.Now().UTC(),
	}
	return input, nil
}
