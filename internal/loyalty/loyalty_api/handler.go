package loyalty_api

import (
	"fmt"
	"net/http"

	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/loyalty"
	"ms-restaurant/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	LoyaltyService *loyalty.Service
	Logger         *logger.Logger
}

func NewHandler(svc *loyalty.Service, log *logger.Logger) *Handler {
	return &Handler{LoyaltyService: svc, Logger: log}
}

type CreateAccountRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Points int64  `json:"points" validate:"gte=0"`
}

type PointsRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/loyalty", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/", h.CreateAccount)
		r.Get("/{userId}", h.GetAccount)
		r.Get("/{userId}/history", h.GetHistory)
		r.Post("/{userId}/add", h.AddPoints)
		r.Post("/{userId}/redeem", h.RedeemPoints)
	})
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.LoyaltyService.FindAll(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListAccounts: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Loyalty accounts retrieved", accounts)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	req, err := utils.DecodeAndValidate[CreateAccountRequest](r)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateAccount: invalid request: %v", err))
		utils.WriteError(w, err)
		return
	}

	account, err := h.LoyaltyService.CreateAccount(r.Context(), req.UserID, req.Points)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateAccount: userId=%s: %v", req.UserID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Loyalty account created", account)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	account, err := h.LoyaltyService.FindByUser(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Loyalty account retrieved", account)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	history, err := h.LoyaltyService.History(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Loyalty history retrieved", history)
}

func (h *Handler) AddPoints(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	req, err := utils.DecodeAndValidate[PointsRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	account, err := h.LoyaltyService.AddPoints(r.Context(), userID, req.Points)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddPoints: userId=%s: %v", userID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Points added", account)
}

func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	req, err := utils.DecodeAndValidate[PointsRequest](r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	account, err := h.LoyaltyService.RedeemPoints(r.Context(), userID, req.Points)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("RedeemPoints: userId=%s: %v", userID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Points redeemed", account)
}
