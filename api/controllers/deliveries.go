package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/api/middleware"
	"github.com/helpnet/helpnet-backend/api/responses"
	"github.com/helpnet/helpnet-backend/api/validators"
	"github.com/helpnet/helpnet-backend/internal/deliveries"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	"github.com/helpnet/helpnet-backend/pkg/pagination"
)

type updateDeliveryStatusRequest struct {
	Status       string  `json:"status" validate:"required"`
	Carrier      *string `json:"carrier,omitempty" validate:"omitempty,max=120"`
	TrackingCode *string `json:"tracking_code,omitempty" validate:"omitempty,max=120"`
	Location     *string `json:"location,omitempty" validate:"omitempty,max=255"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// UpdateDeliveryStatus advances a vendor's delivery through the tracking flow.
func UpdateDeliveryStatus(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		actorID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveryID, err := deliveryIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDeliveryStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseDeliveryStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidStatus, err, "invalid delivery status"))
			return
		}

		input := deliveries.UpdateStatusInput{
			DeliveryID:   deliveryID,
			VendorID:     vendorID,
			Status:       status,
			Carrier:      payload.Carrier,
			TrackingCode: payload.TrackingCode,
			Location:     payload.Location,
			Notes:        payload.Notes,
			ActorUserID:  actorID,
			ActorRole:    middleware.RoleFromContext(r.Context()),
		}

		if err := svc.UpdateStatus(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// DeliveryDetail returns one delivery with its tracking history.
func DeliveryDetail(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		deliveryID, err := deliveryIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetDetail(r.Context(), deliveryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ListVendorDeliveries lists the authenticated vendor's deliveries, newest first.
func ListVendorDeliveries(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "deliveries service unavailable"))
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListVendor(r.Context(), vendorID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func actorVendorID(r *http.Request) (uuid.UUID, error) {
	vendorID := middleware.VendorIDFromContext(r.Context())
	if vendorID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	parsed, err := uuid.Parse(vendorID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}
	return parsed, nil
}

func deliveryIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "deliveryId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id is required")
	}
	return validators.ParsePathUUID(raw, "deliveryId")
}
