package controllers

import (
	"net/http"

	"github.com/helpnet/helpnet-backend/api/responses"
	"github.com/helpnet/helpnet-backend/internal/paymentmethods"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/logger"
)

// ListPaymentMethods returns the methods currently accepted at checkout.
func ListPaymentMethods(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment methods service unavailable"))
			return
		}

		methods, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, methods)
	}
}
