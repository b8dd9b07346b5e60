package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/auction"
	"github.com/The-Membrane/brane-auction/shared/models"
)

// AuctionService is the part of the service layer the handlers call
type AuctionService interface {
	Submit(ctx context.Context, req *models.SubmitRequest) (*models.SubmitResponse, error)
	Curate(ctx context.Context, req *models.CurateRequest) (*models.CurateResponse, error)
	PlaceBid(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error)
	Conclude(ctx context.Context) (*models.SettlementEvent, error)
	Config(ctx context.Context) (*auction.Config, error)
	Submissions(ctx context.Context, startAfter *uint64, limit uint32) ([]auction.SubmissionEntry, error)
	LiveAuction(ctx context.Context) (*auction.Auction, error)
	PendingAuctions(ctx context.Context) ([]*auction.Auction, error)
}

// Handler contains HTTP request handlers
type Handler struct {
	auctionService AuctionService
}

// NewHandler creates a new HTTP handler
func NewHandler(auctionService AuctionService) *Handler {
	return &Handler{
		auctionService: auctionService,
	}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/config", h.GetConfig).Methods("GET")
	api.HandleFunc("/submissions", h.ListSubmissions).Methods("GET")
	api.HandleFunc("/submissions", h.Submit).Methods("POST")
	api.HandleFunc("/curations", h.Curate).Methods("POST")
	api.HandleFunc("/auctions/live", h.GetLiveAuction).Methods("GET")
	api.HandleFunc("/auctions/pending", h.GetPendingAuctions).Methods("GET")
	api.HandleFunc("/auctions/live/bids", h.PlaceBid).Methods("POST")
	api.HandleFunc("/auctions/live/conclude", h.Conclude).Methods("POST")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	return router
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "api-gateway",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetConfig returns the auction configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.auctionService.Config(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// ListSubmissions pages through submissions in curation
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var startAfter *uint64
	if raw := q.Get("start_after"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start_after must be a submission id")
			return
		}
		startAfter = &id
	}

	var limit uint32
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = uint32(n)
	}

	entries, err := h.auctionService.Submissions(r.Context(), startAfter, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, models.SubmissionsResponse{Submissions: entries})
}

// Submit registers an artwork for curation
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Submitter == "" {
		respondError(w, http.StatusBadRequest, "Submitter is required")
		return
	}
	if req.ProceedRecipient == "" {
		req.ProceedRecipient = req.Submitter
	}

	resp, err := h.auctionService.Submit(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Curate applies a holder's vote to a batch of submissions
func (h *Handler) Curate(w http.ResponseWriter, r *http.Request) {
	var req models.CurateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Voter == "" {
		respondError(w, http.StatusBadRequest, "Voter is required")
		return
	}
	if len(req.SubmissionIDs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one submission id is required")
		return
	}

	resp, err := h.auctionService.Curate(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetLiveAuction returns the auction currently taking bids
func (h *Handler) GetLiveAuction(w http.ResponseWriter, r *http.Request) {
	live, err := h.auctionService.LiveAuction(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, live)
}

// GetPendingAuctions returns the queue, next auction first
func (h *Handler) GetPendingAuctions(w http.ResponseWriter, r *http.Request) {
	pending, err := h.auctionService.PendingAuctions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(pending),
		"auctions": pending,
	})
}

// PlaceBid handles bid placement requests
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var bidReq models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if bidReq.Bidder == "" {
		respondError(w, http.StatusBadRequest, "Bidder is required")
		return
	}

	response, err := h.auctionService.PlaceBid(r.Context(), &bidReq)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, response)
}

// Conclude settles the live auction
func (h *Handler) Conclude(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.auctionService.Conclude(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settlement)
}

// statusFor maps auction errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrInvalidArtworkURI),
		errors.Is(err, auction.ErrInvalidBidAsset),
		errors.Is(err, auction.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, auction.ErrHolderCheckFailed):
		return http.StatusForbidden
	case errors.Is(err, auction.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrAuctionEnded),
		errors.Is(err, auction.ErrAuctionStillLive),
		errors.Is(err, auction.ErrExceededSubmissionLimit):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
		respondError(w, status, "Internal error")
		return
	}
	respondError(w, status, err.Error())
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusRecorder captures the status code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"uri":      r.RequestURI,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}

// corsMiddleware adds CORS headers (for development)
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
