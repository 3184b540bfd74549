package cron

import (
	"context"
	"fmt"

	"github.com/helpnet/helpnet-backend/pkg/logger"
)

type expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// PaymentExpirationJobParams configure the payment window sweep.
type PaymentExpirationJobParams struct {
	Logger     *logger.Logger
	Settlement expirer
}

// NewPaymentExpirationJob cancels orders whose payment window lapsed.
func NewPaymentExpirationJob(params PaymentExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	return &paymentExpirationJob{
		logg:       params.Logger,
		settlement: params.Settlement,
	}, nil
}

type paymentExpirationJob struct {
	logg       *logger.Logger
	settlement expirer
}

func (j *paymentExpirationJob) Name() string { return "payment-expiration" }

func (j *paymentExpirationJob) Run(ctx context.Context) error {
	expired, err := j.settlement.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("payment expiration sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "orders_expired", expired)
	j.logg.Info(logCtx, "payment expiration sweep complete")
	return nil
}
