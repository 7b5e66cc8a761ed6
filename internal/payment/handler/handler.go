package handler

import (
	"fmt"
	"net/http"
	"time"

	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/payment"
	"ms-restaurant/internal/utils"

	"github.com/go-chi/chi/v5"
)

type PaymentHandler struct {
	PaymentService *payment.PaymentService
	Logger         *logger.Logger
}

func NewPaymentHandler(paymentService *payment.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		PaymentService: paymentService,
		Logger:         log,
	}
}

type CreatePaymentRequest struct {
	Method  string     `json:"method" validate:"required,oneof=cash qr"`
	Amount  int64      `json:"amount" validate:"required,gt=0"`
	PaidAt  *time.Time `json:"paidAt"`
	GuestID string     `json:"guestId" validate:"omitempty,uuid"`
	UserID  string     `json:"userId" validate:"omitempty,uuid"`
	Orders  []string   `json:"orders" validate:"required,min=1,dive,uuid"`
}

type UpdatePaymentRequest struct {
	Method     *string    `json:"method" validate:"omitempty,oneof=cash qr stripe"`
	Amount     *int64     `json:"amount" validate:"omitempty,gt=0"`
	PaidAt     *time.Time `json:"paidAt"`
	IsRefunded *bool      `json:"isRefunded"`
}

type CreateLinkRequest struct {
	OrderID     string `json:"orderId" validate:"required,uuid"`
	Amount      int64  `json:"amount" validate:"gte=0"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl" validate:"omitempty,url"`
	CancelURL   string `json:"cancelUrl" validate:"omitempty,url"`
}

type ConfirmPaymentRequest struct {
	OrderID   string  `json:"orderId" validate:"required,uuid"`
	OrderCode int64   `json:"orderCode" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.CreatePayment)
		r.Get("/", h.ListPayments)
		r.Post("/link", h.CreatePaymentLink)
		r.Post("/confirm", h.ConfirmPayment)
		r.Get("/{paymentId}", h.GetPayment)
		r.Patch("/{paymentId}", h.UpdatePayment)
		r.Delete("/{paymentId}", h.DeletePayment)
	})
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	req, err := utils.DecodeAndValidate[CreatePaymentRequest](r)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreatePayment: invalid request: %v", err))
		utils.WriteError(w, err)
		return
	}

	created, err := h.PaymentService.Create(r.Context(), payment.CreatePaymentInput{
		Method:   req.Method,
		Amount:   req.Amount,
		PaidAt:   req.PaidAt,
		GuestID:  req.GuestID,
		UserID:   req.UserID,
		OrderIDs: req.Orders,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePayment: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Payment created successfully", created)
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.PaymentService.FindAll(r.Context(), page, limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payments retrieved", result)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	found, err := h.PaymentService.FindByID(r.Context(), chi.URLParam(r, "paymentId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment retrieved", found)
}

func (h *PaymentHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")
	req, err := utils.DecodeAndValidate[UpdatePaymentRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	updated, err := h.PaymentService.Update(r.Context(), paymentID, payment.UpdatePaymentInput{
		Method:     req.Method,
		Amount:     req.Amount,
		PaidAt:     req.PaidAt,
		IsRefunded: req.IsRefunded,
	})
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdatePayment: paymentId=%s: %v", paymentID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment updated successfully", updated)
}

func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")
	if err := h.PaymentService.Remove(r.Context(), paymentID); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentHandler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	req, err := utils.DecodeAndValidate[CreateLinkRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	link, err := h.PaymentService.CreatePaymentLink(r.Context(), payment.CreateLinkInput{
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePaymentLink: orderId=%s: %v", req.OrderID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Payment link created", link)
}

func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	req, err := utils.DecodeAndValidate[ConfirmPaymentRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	confirmed, err := h.PaymentService.ConfirmPayment(r.Context(), payment.ConfirmInput{
		OrderID:   req.OrderID,
		OrderCode: req.OrderCode,
		Amount:    req.Amount,
	})
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("ConfirmPayment: orderId=%s code=%d: %v", req.OrderID, req.OrderCode, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment confirmed", confirmed)
}
