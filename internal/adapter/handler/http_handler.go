package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/core/service"
	"github.com/rl1809/inventory-ledger/internal/platform/logger"
)

type HTTPHandler struct {
	itemService *service.ItemService
	log         *logger.Logger
}

type ItemHTTPRequest struct {
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

type StockHTTPRequest struct {
	Quantity int `json:"quantity"`
}

type ItemHTTPResponse struct {
	ID                 int64            `json:"id"`
	Name               string           `json:"name"`
	Description        *string          `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	StockQuantity      int              `json:"stock_quantity"`
	CreatedAt          time.Time        `json:"created_at"`
	ModifiedAt         *time.Time       `json:"modified_at"`
	PreviousPrice      *decimal.Decimal `json:"previous_price,omitempty"`
	PriceChangePercent *decimal.Decimal `json:"price_change_percent,omitempty"`

	PriceCategory    string           `json:"price_category,omitempty"`
	PercentOfAverage *decimal.Decimal `json:"percent_of_average,omitempty"`
	PriceRank        int              `json:"price_rank,omitempty"`
	Percentile       *float64         `json:"percentile,omitempty"`
	PriceSegment     string           `json:"price_segment,omitempty"`
	StockStatus      string           `json:"stock_status,omitempty"`
}

type HistoryHTTPResponse struct {
	ItemID   int64            `json:"item_id"`
	Action   string           `json:"action"`
	OldPrice *decimal.Decimal `json:"old_price"`
	NewPrice *decimal.Decimal `json:"new_price"`
	OldStock *int             `json:"old_stock"`
	NewStock *int             `json:"new_stock"`
	ActionAt time.Time        `json:"action_at"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func NewHTTPHandler(itemService *service.ItemService, log *logger.Logger) *HTTPHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPHandler{itemService: itemService, log: log.With("component", "http")}
}

func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	s := r.PathPrefix("/api").Subrouter()
	s.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	s.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	s.HandleFunc("/items/{id:[0-9]+}", h.GetItem).Methods(http.MethodGet)
	s.HandleFunc("/items/{id:[0-9]+}", h.UpdateItem).Methods(http.MethodPut)
	s.HandleFunc("/items/{id:[0-9]+}", h.DeleteItem).Methods(http.MethodDelete)
	s.HandleFunc("/items/{id:[0-9]+}/stock", h.UpdateStock).Methods(http.MethodPut)
	s.HandleFunc("/items/{id:[0-9]+}/history", h.History).Methods(http.MethodGet)
	s.HandleFunc("/analytics/price-range", h.PriceRange).Methods(http.MethodGet)
	s.HandleFunc("/analytics/low-stock", h.LowStock).Methods(http.MethodGet)
	s.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)

	return h.logMiddleware(r)
}

func (h *HTTPHandler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug("request handled",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]ItemHTTPResponse, 0, len(items))
	for _, it := range items {
		out := toResponse(it.Item)
		out.PriceCategory = string(it.Category)
		pct := it.PercentOfAverage
		out.PercentOfAverage = &pct
		resp = append(resp, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	id, err := h.itemService.Create(r.Context(), req.input(), r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.itemService.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if item == nil {
		h.writeError(w, domain.NotFound("get", id))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*item))
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	in := req.input()
	item := domain.Item{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
	}
	if err := h.itemService.Update(r.Context(), item); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.itemService.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req StockHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	if err := h.itemService.UpdateStock(r.Context(), id, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entries, err := h.itemService.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]HistoryHTTPResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, HistoryHTTPResponse{
			ItemID:   e.ItemID,
			Action:   string(e.Action),
			OldPrice: e.OldPrice,
			NewPrice: e.NewPrice,
			OldStock: e.OldStock,
			NewStock: e.NewStock,
			ActionAt: e.ActionAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) PriceRange(w http.ResponseWriter, r *http.Request) {
	min, err := decimal.NewFromString(r.URL.Query().Get("min"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid min"})
		return
	}
	max, err := decimal.NewFromString(r.URL.Query().Get("max"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid max"})
		return
	}

	items, err := h.itemService.ByPriceRange(r.Context(), min, max)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]ItemHTTPResponse, 0, len(items))
	for _, it := range items {
		out := toResponse(it.Item)
		out.PriceRank = it.PriceRank
		p := it.Percentile
		out.Percentile = &p
		out.PriceSegment = string(it.Segment)
		resp = append(resp, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := strconv.Atoi(r.URL.Query().Get("threshold"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid threshold"})
		return
	}

	items, err := h.itemService.LowStock(r.Context(), threshold)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]ItemHTTPResponse, 0, len(items))
	for _, it := range items {
		out := toResponse(it.Item)
		out.StockStatus = string(it.Status)
		pct := it.PercentOfAverage
		out.PercentOfAverage = &pct
		resp = append(resp, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.itemService.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_items":   stats.TotalItems,
		"total_price":   stats.TotalPrice,
		"average_price": stats.AveragePrice,
		"last_updated":  stats.LastUpdated,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (req ItemHTTPRequest) input() domain.ItemInput {
	return domain.ItemInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	}
}

func toResponse(it domain.Item) ItemHTTPResponse {
	return ItemHTTPResponse{
		ID:                 it.ID,
		Name:               it.Name,
		Description:        it.Description,
		Price:              it.Price,
		StockQuantity:      it.StockQuantity,
		CreatedAt:          it.CreatedAt,
		ModifiedAt:         it.ModifiedAt,
		PreviousPrice:      it.PreviousPrice,
		PriceChangePercent: it.PriceChangePercent,
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid item id"})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	kind := domain.KindOf(err)
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrDuplicateRequest):
		status, message = http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrConnection):
		status, message = http.StatusServiceUnavailable, "database unavailable"
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "error", err, "kind", kind.String())
	}

	writeJSON(w, status, ErrorHTTPResponse{Success: false, Message: message, Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
