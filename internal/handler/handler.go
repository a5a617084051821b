// Package handler содержит HTTP-обработчики API движка лояльности и комиссий.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kdiomande/fidelite-system/internal/middleware"
	"github.com/kdiomande/fidelite-system/internal/model"
	"github.com/kdiomande/fidelite-system/internal/repository"
	"github.com/kdiomande/fidelite-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string, role model.UserRole) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)

	ProcessOrderEvent(ctx context.Context, evt model.OrderEvent) (*service.OrderOutcome, error)

	GetAccountOverview(ctx context.Context, userID int64) (*service.AccountOverview, error)
	GetTransactions(ctx context.Context, userID int64) ([]model.PointsTransaction, error)
	GetAchievements(ctx context.Context, userID int64) ([]service.AchievementState, error)
	AuditAccount(ctx context.Context, userID int64) (*service.AccountAudit, error)
	AdjustPoints(ctx context.Context, accountID, delta int64, note string) error

	GenerateReferralCode(ctx context.Context, referrerID int64) (*model.Referral, error)
	ListReferralCodes(ctx context.Context, referrerID int64) ([]model.Referral, error)
	RedeemReferralCode(ctx context.Context, code string, redeemerID int64) (*model.Referral, error)

	GetAffiliateBalance(ctx context.Context, influencerID int64) (*service.AffiliateBalance, error)
	ListCommissions(ctx context.Context, influencerID int64) ([]model.Commission, error)
	CreatePayoutRequest(ctx context.Context, influencerID, amount int64, method, details string) (*model.PayoutRequest, error)
	ListPayouts(ctx context.Context, influencerID int64) ([]model.PayoutRequest, error)
	ResolvePayout(ctx context.Context, id uuid.UUID, to model.PayoutStatus, note string) error
	MarkCommissionPaid(ctx context.Context, id uuid.UUID) error
	UpdateSetting(ctx context.Context, key, value string) error
}

// Handler реализует HTTP-обработчики API движка.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	webhookToken   string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, webhookToken string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		webhookToken:   webhookToken,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	role := model.RoleCustomer
	switch req.Role {
	case "", string(model.RoleCustomer):
	case string(model.RoleInfluencer):
		role = model.RoleInfluencer
	default:
		// Администраторов через публичную регистрацию не создать.
		http.Error(w, "unsupported role", http.StatusUnprocessableEntity)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password, role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, role)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, user.Role)
	w.WriteHeader(http.StatusOK)
}

type orderEventRequest struct {
	OrderID        string  `json:"order_id"`
	Status         string  `json:"status"`
	CustomerID     int64   `json:"customer_id"`
	Total          int64   `json:"total"`
	InfluencerID   *int64  `json:"influencer_id,omitempty"`
	CommissionRate *string `json:"commission_rate,omitempty"`
}

type orderEventResponse struct {
	PointsCredited    bool     `json:"points_credited"`
	Points            int64    `json:"points"`
	CommissionCreated bool     `json:"commission_created"`
	CommissionAmount  int64    `json:"commission_amount"`
	CommissionVoided  bool     `json:"commission_voided"`
	AlreadyRecorded   bool     `json:"already_recorded"`
	Achievements      []string `json:"achievements,omitempty"`
}

// OrderWebhook принимает событие смены статуса заказа от витрины магазина.
func (h *Handler) OrderWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookToken == "" || r.Header.Get("X-Webhook-Token") != h.webhookToken {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req orderEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	evt := model.OrderEvent{
		OrderID:      req.OrderID,
		Status:       model.OrderStatus(req.Status),
		CustomerID:   req.CustomerID,
		Total:        req.Total,
		InfluencerID: req.InfluencerID,
	}

	if req.CommissionRate != nil {
		rate, err := decimal.NewFromString(*req.CommissionRate)
		if err != nil {
			http.Error(w, "malformed commission rate", http.StatusUnprocessableEntity)
			return
		}
		evt.CommissionRate = &rate
	}

	outcome, err := h.service.ProcessOrderEvent(r.Context(), evt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrderEvent):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrCommissionAlreadyPaid):
			http.Error(w, "commission already paid", http.StatusConflict)
		default:
			h.logger.Error("order event error", zap.Error(err), zap.String("order", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	resp := orderEventResponse{
		PointsCredited:    outcome.PointsCredited,
		Points:            outcome.Points,
		CommissionCreated: outcome.CommissionCreated,
		CommissionAmount:  outcome.CommissionAmount,
		CommissionVoided:  outcome.CommissionVoided,
		AlreadyRecorded:   outcome.AlreadyRecorded,
	}
	for _, a := range outcome.UnlockedAchievements {
		resp.Achievements = append(resp.Achievements, a.ID)
	}

	h.writeJSON(w, resp)
}

type accountResponse struct {
	Points          int64    `json:"points"`
	Spend           int64    `json:"spend"`
	OrderCount      int64    `json:"order_count"`
	Tier            string   `json:"tier"`
	DiscountRate    string   `json:"discount_rate"`
	Benefits        []string `json:"benefits"`
	NextTier        *string  `json:"next_tier"`
	PointsNeeded    int64    `json:"points_needed"`
	ProgressPercent float64  `json:"progress_percent"`
}

// GetAccount возвращает бонусный счёт текущего пользователя с уровнем и прогрессом.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	overview, err := h.service.GetAccountOverview(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get account error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, accountResponse{
		Points:          overview.Points,
		Spend:           overview.Spend,
		OrderCount:      overview.OrderCount,
		Tier:            overview.Tier.Name,
		DiscountRate:    overview.Tier.DiscountRate.String(),
		Benefits:        overview.Tier.Benefits,
		NextTier:        overview.Progress.NextName,
		PointsNeeded:    overview.Progress.PointsNeeded,
		ProgressPercent: overview.Progress.Percent,
	})
}

type transactionResponse struct {
	Delta       int64   `json:"delta"`
	Reason      string  `json:"reason"`
	OrderID     *string `json:"order_id,omitempty"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

// GetTransactions возвращает журнал бонусных транзакций текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	transactions, err := h.service.GetTransactions(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get transactions error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(transactions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, transactionResponse{
			Delta:       t.Delta,
			Reason:      string(t.Reason),
			OrderID:     t.OrderID,
			Description: t.Description,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, resp)
}

type achievementResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Reward   int64  `json:"reward"`
	Unlocked bool   `json:"unlocked"`
}

// GetAchievements возвращает каталог достижений с отметками о разблокировке.
func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	states, err := h.service.GetAchievements(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get achievements error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]achievementResponse, 0, len(states))
	for _, st := range states {
		resp = append(resp, achievementResponse{
			ID:       st.Definition.ID,
			Title:    st.Definition.Title,
			Reward:   st.Definition.Reward,
			Unlocked: st.Unlocked,
		})
	}

	h.writeJSON(w, resp)
}

type referralResponse struct {
	Code        string `json:"code"`
	Status      string `json:"status"`
	BonusPoints int64  `json:"bonus_points"`
	CreatedAt   string `json:"created_at"`
}

// CreateReferralCode выпускает новый реферальный код текущего пользователя.
func (h *Handler) CreateReferralCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ref, err := h.service.GenerateReferralCode(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("generate referral code error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, referralResponse{
		Code:        ref.Code,
		Status:      string(ref.Status),
		BonusPoints: ref.BonusPoints,
		CreatedAt:   ref.CreatedAt.Format(time.RFC3339),
	})
}

// GetReferralCodes возвращает коды, выпущенные текущим пользователем.
func (h *Handler) GetReferralCodes(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	refs, err := h.service.ListReferralCodes(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("list referral codes error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(refs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]referralResponse, 0, len(refs))
	for _, ref := range refs {
		resp = append(resp, referralResponse{
			Code:        ref.Code,
			Status:      string(ref.Status),
			BonusPoints: ref.BonusPoints,
			CreatedAt:   ref.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, resp)
}

type redeemRequest struct {
	Code string `json:"code"`
}

// RedeemReferralCode активирует реферальный код от имени текущего пользователя.
func (h *Handler) RedeemReferralCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ref, err := h.service.RedeemReferralCode(r.Context(), req.Code, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSelfReferral):
			http.Error(w, "self referral is forbidden", http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrReferralInvalid):
			http.Error(w, "referral code invalid", http.StatusConflict)
		default:
			h.logger.Error("redeem referral error", zap.Error(err), zap.Int64("userID", identity.UserID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, referralResponse{
		Code:        ref.Code,
		Status:      string(ref.Status),
		BonusPoints: ref.BonusPoints,
		CreatedAt:   ref.CreatedAt.Format(time.RFC3339),
	})
}

type balanceResponse struct {
	Available  int64   `json:"available"`
	MinAmount  int64   `json:"min_amount"`
	CanRequest bool    `json:"can_request"`
	Progress   float64 `json:"progress"`
}

// GetAffiliateBalance возвращает доступный остаток комиссий текущего инфлюенсера.
func (h *Handler) GetAffiliateBalance(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetAffiliateBalance(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get balance error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, balanceResponse{
		Available:  balance.Available,
		MinAmount:  balance.MinAmount,
		CanRequest: balance.CanRequest,
		Progress:   balance.Progress,
	})
}

type commissionResponse struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	OrderTotal int64   `json:"order_total"`
	Rate       string  `json:"rate"`
	Amount     int64   `json:"amount"`
	Status     string  `json:"status"`
	PaidAt     *string `json:"paid_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// GetCommissions возвращает комиссии текущего инфлюенсера.
func (h *Handler) GetCommissions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	commissions, err := h.service.ListCommissions(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get commissions error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(commissions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]commissionResponse, 0, len(commissions))
	for _, c := range commissions {
		item := commissionResponse{
			ID:         c.ID.String(),
			OrderID:    c.OrderID,
			OrderTotal: c.OrderTotal,
			Rate:       c.Rate.String(),
			Amount:     c.Amount,
			Status:     string(c.Status),
			CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		}
		if c.PaidAt != nil {
			paidAt := c.PaidAt.Format(time.RFC3339)
			item.PaidAt = &paidAt
		}
		resp = append(resp, item)
	}

	h.writeJSON(w, resp)
}

type payoutRequestBody struct {
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	MethodDetails string `json:"method_details"`
}

type payoutResponse struct {
	ID            string  `json:"id"`
	Amount        int64   `json:"amount"`
	Method        string  `json:"method"`
	MethodDetails string  `json:"method_details"`
	Status        string  `json:"status"`
	AdminNote     string  `json:"admin_note,omitempty"`
	RequestedAt   string  `json:"requested_at"`
	ResolvedAt    *string `json:"resolved_at,omitempty"`
}

func toPayoutResponse(p model.PayoutRequest) payoutResponse {
	resp := payoutResponse{
		ID:            p.ID.String(),
		Amount:        p.Amount,
		Method:        p.Method,
		MethodDetails: p.MethodDetails,
		Status:        string(p.Status),
		AdminNote:     p.AdminNote,
		RequestedAt:   p.RequestedAt.Format(time.RFC3339),
	}
	if p.ResolvedAt != nil {
		resolvedAt := p.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &resolvedAt
	}
	return resp
}

// CreatePayout создаёт заявку на выплату для текущего инфлюенсера.
func (h *Handler) CreatePayout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req payoutRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Amount <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	payoutReq, err := h.service.CreatePayoutRequest(r.Context(), identity.UserID, req.Amount, req.Method, req.MethodDetails)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPayoutMethod):
			http.Error(w, "unsupported payout method", http.StatusUnprocessableEntity)
		case errors.Is(err, service.ErrBelowMinimum):
			http.Error(w, "minimum payout amount not reached", http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrInsufficientBalance):
			http.Error(w, "insufficient available balance", http.StatusPaymentRequired)
		default:
			h.logger.Error("create payout error", zap.Error(err), zap.Int64("userID", identity.UserID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, toPayoutResponse(*payoutReq))
}

// GetPayouts возвращает заявки текущего инфлюенсера на выплату.
func (h *Handler) GetPayouts(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	payouts, err := h.service.ListPayouts(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get payouts error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(payouts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]payoutResponse, 0, len(payouts))
	for _, p := range payouts {
		resp = append(resp, toPayoutResponse(p))
	}

	h.writeJSON(w, resp)
}

// PayCommission отмечает комиссию выплаченной (административная операция).
func (h *Handler) PayCommission(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.MarkCommissionPaid(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCommissionNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrCommissionAlreadyPaid):
			http.Error(w, "commission already paid", http.StatusConflict)
		case errors.Is(err, repository.ErrCommissionVoided):
			http.Error(w, "commission voided", http.StatusConflict)
		default:
			h.logger.Error("pay commission error", zap.Error(err), zap.String("commission", id.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type resolvePayoutRequest struct {
	Action string `json:"action"`
	Note   string `json:"note"`
}

// ResolvePayout выполняет административное решение по заявке на выплату.
func (h *Handler) ResolvePayout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req resolvePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var to model.PayoutStatus
	switch req.Action {
	case "approve":
		to = model.PayoutApproved
	case "reject":
		to = model.PayoutRejected
	case "pay":
		to = model.PayoutPaid
	default:
		http.Error(w, "unknown action", http.StatusUnprocessableEntity)
		return
	}

	if err := h.service.ResolvePayout(r.Context(), id, to, req.Note); err != nil {
		switch {
		case errors.Is(err, repository.ErrPayoutNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrInvalidPayoutTransition):
			http.Error(w, "invalid payout status transition", http.StatusConflict)
		default:
			h.logger.Error("resolve payout error", zap.Error(err), zap.String("payout", id.String()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type adjustRequest struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note"`
}

// AdjustAccount записывает административную корректировку баллов счёта.
func (h *Handler) AdjustAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AdjustPoints(r.Context(), accountID, req.Delta, req.Note); err != nil {
		if errors.Is(err, service.ErrInvalidAdjustment) {
			http.Error(w, "adjustment delta must be non-zero", http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("adjust account error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type auditResponse struct {
	StoredPoints  int64 `json:"stored_points"`
	DerivedPoints int64 `json:"derived_points"`
	Consistent    bool  `json:"consistent"`
}

// AuditAccount сверяет денормализованный баланс счёта с суммой журнала транзакций.
func (h *Handler) AuditAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	audit, err := h.service.AuditAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("audit account error", zap.Error(err), zap.Int64("accountID", accountID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, auditResponse{
		StoredPoints:  audit.StoredPoints,
		DerivedPoints: audit.DerivedPoints,
		Consistent:    audit.Consistent,
	})
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpdateSetting сохраняет бизнес-настройку движка.
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateSetting(r.Context(), req.Key, req.Value); err != nil {
		if errors.Is(err, service.ErrUnknownSetting) {
			http.Error(w, "unknown setting key", http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error("update setting error", zap.Error(err), zap.String("key", req.Key))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
