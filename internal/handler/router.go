package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/kdiomande/fidelite-system/internal/middleware"
	"github.com/kdiomande/fidelite-system/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware движка лояльности.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Витрина магазина шлёт события заказов с общим секретом, без cookie.
		r.Post("/webhooks/orders", h.OrderWebhook)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/loyalty/account", h.GetAccount)
			r.Get("/loyalty/transactions", h.GetTransactions)
			r.Get("/loyalty/achievements", h.GetAchievements)

			r.Post("/referral/codes", h.CreateReferralCode)
			r.Get("/referral/codes", h.GetReferralCodes)
			r.Post("/referral/redeem", h.RedeemReferralCode)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleInfluencer))

				r.Get("/affiliate/commissions", h.GetCommissions)
				r.Get("/affiliate/balance", h.GetAffiliateBalance)
				r.Post("/affiliate/payouts", h.CreatePayout)
				r.Get("/affiliate/payouts", h.GetPayouts)
			})

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleAdmin))

				r.Post("/admin/commissions/{id}/pay", h.PayCommission)
				r.Post("/admin/payouts/{id}/resolve", h.ResolvePayout)
				r.Post("/admin/accounts/{id}/adjust", h.AdjustAccount)
				r.Get("/admin/accounts/{id}/audit", h.AuditAccount)
				r.Put("/admin/settings", h.UpdateSetting)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
