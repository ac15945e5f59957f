package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ridgeline-exteriors/booking-api/internal/auth"
	"github.com/ridgeline-exteriors/booking-api/internal/domain"
	"github.com/ridgeline-exteriors/booking-api/internal/mapper"
	"github.com/ridgeline-exteriors/booking-api/internal/repository"
	"github.com/ridgeline-exteriors/booking-api/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SyncHandler exposes order sync state and triggers
type SyncHandler struct {
	orders *repository.OrderRepository
	photos *repository.PhotoRepository
	jobs   *service.JobSyncService
	retry  *service.SyncRetryService
	logger *zap.Logger
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(
	orders *repository.OrderRepository,
	photos *repository.PhotoRepository,
	jobs *service.JobSyncService,
	retry *service.SyncRetryService,
	logger *zap.Logger,
) *SyncHandler {
	return &SyncHandler{
		orders: orders,
		photos: photos,
		jobs:   jobs,
		retry:  retry,
		logger: logger,
	}
}

// Get handles GET /api/v1/orders/{id}/sync
func (h *SyncHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	h.respondSyncState(w, r, order.ID)
}

// Sync handles POST /api/v1/orders/{id}/sync. A CRM failure is recorded on
// the order and reported in the body; the call itself still succeeds.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}

	if _, err := h.jobs.SyncOrder(r.Context(), order.ID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Warn("order sync did not complete",
			zap.String("order_id", order.ID.String()),
			zap.String("job_ref", order.JobRef),
			zap.Error(err),
		)
	}

	h.respondSyncState(w, r, order.ID)
}

// RetrySweep handles POST /api/v1/sync/retry
func (h *SyncHandler) RetrySweep(w http.ResponseWriter, r *http.Request) {
	sweep, err := h.retry.RunSweep(r.Context(), time.Now())
	if err != nil {
		h.logger.Error("retry sweep failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Retry sweep failed")
		return
	}
	respondJSON(w, http.StatusOK, sweep)
}

// loadAuthorized loads the order in the path and checks the caller may see it
func (h *SyncHandler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return nil, false
	}

	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return nil, false
		}
		h.logger.Error("failed to load order", zap.String("order_id", id.String()), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load order")
		return nil, false
	}

	// other users' orders are reported as missing
	if !userCtx.CanAccessUser(order.UserID) {
		respondWithError(w, http.StatusNotFound, "Order not found")
		return nil, false
	}
	return order, true
}

func (h *SyncHandler) respondSyncState(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to reload order", zap.String("order_id", id.String()), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	total, uploaded, err := h.photos.CountByOrder(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to count photos", zap.String("order_id", id.String()), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load order")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToOrderSyncDTO(order, total, uploaded))
}
