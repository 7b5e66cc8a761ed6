package order_api

import (
	"fmt"
	"net/http"
	"time"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order"
	"ms-restaurant/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		Logger:       log,
	}
}

type OrderItemRequest struct {
	MenuItemID string `json:"menuItemId" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
	Note       string `json:"note" validate:"max=255"`
}

type CreateOrderRequest struct {
	GuestID             string             `json:"guestId" validate:"omitempty,uuid"`
	UserID              string             `json:"userId" validate:"omitempty,uuid"`
	TableID             string             `json:"tableId" validate:"omitempty,uuid"`
	OrderType           string             `json:"orderType" validate:"omitempty,oneof=DINE_IN DELIVERY PICKUP"`
	Items               []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	SpecialInstructions string             `json:"specialInstructions" validate:"max=500"`
	DeliveryAddress     string             `json:"deliveryAddress" validate:"max=255"`
	CustomerName        string             `json:"customerName" validate:"max=100"`
	CustomerPhone       string             `json:"customerPhone" validate:"max=20"`
	EstimatedReadyTime  *time.Time         `json:"estimatedReadyTime"`
}

type CreateOnlineOrderRequest struct {
	CustomerName        string             `json:"customerName" validate:"required,max=100"`
	CustomerPhone       string             `json:"customerPhone" validate:"required,max=20"`
	DeliveryAddress     string             `json:"deliveryAddress" validate:"max=255"`
	OrderType           string             `json:"orderType" validate:"required,oneof=DELIVERY PICKUP"`
	GuestID             string             `json:"guestId" validate:"omitempty,uuid"`
	UserID              string             `json:"userId" validate:"omitempty,uuid"`
	Items               []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	SpecialInstructions string             `json:"specialInstructions" validate:"max=500"`
	EstimatedReadyTime  *time.Time         `json:"estimatedReadyTime"`
}

type UpdateOrderRequest struct {
	SpecialInstructions *string    `json:"specialInstructions" validate:"omitempty,max=500"`
	DeliveryAddress     *string    `json:"deliveryAddress" validate:"omitempty,max=255"`
	CustomerPhone       *string    `json:"customerPhone" validate:"omitempty,max=20"`
	EstimatedReadyTime  *time.Time `json:"estimatedReadyTime"`
	Status              *string    `json:"status" validate:"omitempty,oneof=pending preparing served cancelled"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type MarkPaidRequest struct {
	IsPaid *bool `json:"isPaid" validate:"required"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Post("/online", h.CreateOnlineOrder)
		r.Get("/", h.ListOrders)
		r.Get("/stats", h.GetStats)
		r.Get("/period", h.ListOrdersInPeriod)
		r.Get("/guest/{guestId}", h.ListGuestOrders)
		r.Get("/user/{userId}", h.ListUserOrders)

		r.Route("/{orderId}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Patch("/", h.UpdateOrder)
			r.Delete("/", h.DeleteOrder)
			r.Patch("/status", h.UpdateStatus)
			r.Patch("/paid", h.MarkPaid)
			r.Post("/cancel", h.CancelOrder)
		})
	})
}

func toItemInputs(items []OrderItemRequest) []order.ItemInput {
	out := make([]order.ItemInput, len(items))
	for i, it := range items {
		out[i] = order.ItemInput{MenuItemID: it.MenuItemID, Quantity: it.Quantity, Note: it.Note}
	}
	return out
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	req, err := utils.DecodeAndValidate[CreateOrderRequest](r)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateOrder: invalid request: %v", err))
		utils.WriteError(w, err)
		return
	}

	created, err := h.OrderService.Create(r.Context(), order.CreateOrderInput{
		GuestID:             req.GuestID,
		UserID:              req.UserID,
		TableID:             req.TableID,
		OrderType:           models.OrderType(req.OrderType),
		Items:               toItemInputs(req.Items),
		SpecialInstructions: req.SpecialInstructions,
		DeliveryAddress:     req.DeliveryAddress,
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		EstimatedReadyTime:  req.EstimatedReadyTime,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOrder: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Order created successfully", created)
}

func (h *Handler) CreateOnlineOrder(w http.ResponseWriter, r *http.Request) {
	req, err := utils.DecodeAndValidate[CreateOnlineOrderRequest](r)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateOnlineOrder: invalid request: %v", err))
		utils.WriteError(w, err)
		return
	}

	created, err := h.OrderService.CreateOnlineOrder(r.Context(), order.CreateOnlineOrderInput{
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		DeliveryAddress:     req.DeliveryAddress,
		OrderType:           models.OrderType(req.OrderType),
		GuestID:             req.GuestID,
		UserID:              req.UserID,
		Items:               toItemInputs(req.Items),
		SpecialInstructions: req.SpecialInstructions,
		EstimatedReadyTime:  req.EstimatedReadyTime,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateOnlineOrder: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Online order created successfully", created)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := utils.QueryInt(r, "page", 1)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	limit, err := utils.QueryInt(r, "limit", 10)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	result, err := h.OrderService.FindAll(r.Context(), order.ListOrdersInput{
		Status:  q.Get("status"),
		GuestID: q.Get("guestId"),
		UserID:  q.Get("userId"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Orders retrieved", result)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.OrderService.GetOrderStats(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetStats: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order statistics retrieved", stats)
}

// parseDate accepts RFC 3339 or a plain date. A plain end date covers the whole day.
func parseDate(raw, name string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperr.BadRequest("Start and end dates are required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.BadRequest("Invalid %s date format", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func (h *Handler) ListOrdersInPeriod(w http.ResponseWriter, r *http.Request) {
	start, err := parseDate(r.URL.Query().Get("startDate"), "start", false)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	end, err := parseDate(r.URL.Query().Get("endDate"), "end", true)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	orders, err := h.OrderService.FindOrdersInPeriod(r.Context(), start, end)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Orders retrieved", orders)
}

func (h *Handler) ListGuestOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.FindByGuest(r.Context(), chi.URLParam(r, "guestId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Guest orders retrieved", orders)
}

func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.FindByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "User orders retrieved", orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Debug("API", fmt.Sprintf("GetOrder: orderId=%s", orderID))

	found, err := h.OrderService.FindByID(r.Context(), orderID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order retrieved", found)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	req, err := utils.DecodeAndValidate[UpdateOrderRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	in := order.UpdateOrderInput{
		SpecialInstructions: req.SpecialInstructions,
		DeliveryAddress:     req.DeliveryAddress,
		CustomerPhone:       req.CustomerPhone,
		EstimatedReadyTime:  req.EstimatedReadyTime,
	}
	if req.Status != nil {
		status := models.OrderStatus(*req.Status)
		in.Status = &status
	}

	updated, err := h.OrderService.Update(r.Context(), orderID, in)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateOrder: orderId=%s: %v", orderID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order updated successfully", updated)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	req, err := utils.DecodeAndValidate[UpdateStatusRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	updated, err := h.OrderService.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateStatus: orderId=%s status=%s: %v", orderID, req.Status, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order status updated successfully", updated)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	req, err := utils.DecodeAndValidate[MarkPaidRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	updated, err := h.OrderService.MarkAsPaid(r.Context(), orderID, *req.IsPaid)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("MarkPaid: orderId=%s: %v", orderID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order payment status updated", updated)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	cancelled, err := h.OrderService.Cancel(r.Context(), orderID)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CancelOrder: orderId=%s: %v", orderID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order cancelled successfully", cancelled)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	if err := h.OrderService.Remove(r.Context(), orderID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteOrder: orderId=%s: %v", orderID, err))
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("DeleteOrder: order %s removed", orderID))
	w.WriteHeader(http.StatusNoContent)
}
