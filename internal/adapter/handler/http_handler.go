package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-ledger/internal/core/service"
)

type HTTPHandler struct {
	ledger       *service.Ledger
	orderService *service.OrderService
	validate     *validator.Validate
	logger       *zap.Logger
}

type InventoryHTTPRequest struct {
	Product  string `json:"product" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

type FulfillHTTPRequest struct {
	Product  string `json:"product" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
	OrderID  string `json:"order_id" validate:"omitempty,max=128"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(ledger *service.Ledger, orderService *service.OrderService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		ledger:       ledger,
		orderService: orderService,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Routes mounts the inventory endpoints on a chi router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.ListInventory)
		r.Post("/add", h.AddInventory)
		r.Post("/deduct", h.DeductInventory)
		r.Post("/fulfill", h.FulfillOrder)
		r.Get("/{product}", h.GetAvailableInventory)
		r.Post("/{product}/maxInventory", h.SetMaxInventoryLevel)
	})
	return r
}

func (h *HTTPHandler) AddInventory(w http.ResponseWriter, r *http.Request) {
	var req InventoryHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.ledger.Add(req.Product, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *HTTPHandler) DeductInventory(w http.ResponseWriter, r *http.Request) {
	var req InventoryHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if h.ledger.GetAvailable(req.Product) < req.Quantity {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "insufficient inventory"})
		return
	}

	if err := h.ledger.Deduct(req.Product, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *HTTPHandler) FulfillOrder(w http.ResponseWriter, r *http.Request) {
	var req FulfillHTTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if h.ledger.GetAvailable(req.Product) < req.Quantity {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "insufficient inventory"})
		return
	}

	f, err := h.orderService.Fulfill(r.Context(), req.OrderID, req.Product, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("X-Fulfillment-ID", f.ID)
	w.WriteHeader(http.StatusOK)
}

func (h *HTTPHandler) GetAvailableInventory(w http.ResponseWriter, r *http.Request) {
	product, ok := productParam(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.ledger.GetAvailable(product))
}

func (h *HTTPHandler) SetMaxInventoryLevel(w http.ResponseWriter, r *http.Request) {
	product, ok := productParam(w, r)
	if !ok {
		return
	}

	maxLevel, err := strconv.ParseInt(r.URL.Query().Get("maxInventory"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "maxInventory must be an integer"})
		return
	}
	if maxLevel <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "maxInventory must be greater than 0"})
		return
	}

	if err := h.ledger.SetMaxLevel(product, maxLevel); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.Snapshot())
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads and validates a JSON body, writing a 400 when it is unusable.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		message := "invalid request"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			message = validationMessage(verrs[0])
		}
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: message})
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "product is required"
	case "gt":
		return "quantity must be greater than 0"
	case "max":
		return "order_id is too long"
	}
	return "invalid request"
}

func productParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	product := chi.URLParam(r, "product")
	var err error
	// chi matches on RawPath when the request path carried escapes
	if r.URL.RawPath != "" {
		product, err = url.PathUnescape(product)
	}
	if err != nil || product == "" {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid product"})
		return "", false
	}
	return product, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrInvalidTransaction), errors.Is(err, service.ErrInsufficientInventory):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrDuplicateRequest):
		status = http.StatusConflict
		message = "duplicate request"
	case errors.Is(err, service.ErrDispatchBacklog):
		status = http.StatusServiceUnavailable
		message = err.Error()
	default:
		h.logger.Error("inventory request failed", zap.Error(err))
	}

	writeJSON(w, status, ErrorHTTPResponse{
		Success: false,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
