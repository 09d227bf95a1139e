package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/custodial-ledger/internal/api/handlers"
	"github.com/baharkarakas/custodial-ledger/internal/auth"
	"github.com/baharkarakas/custodial-ledger/internal/config"
	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/middleware"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/realtime"
	"github.com/baharkarakas/custodial-ledger/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	Tokens   *auth.TokenManager
	UserSvc  *services.UserService
	TxnSvc   *services.TransactionService
	Engine   *services.ApprovalEngine
	StatsSvc *services.StatsService
	BankSvc  *services.BankService
	Hub      *realtime.Hub
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.Tokens, d.UserSvc)
	userH := handlers.NewUserHandler(d.UserSvc, d.TxnSvc, d.Hub)
	adminH := handlers.NewAdminHandler(d.UserSvc, d.TxnSvc, d.Engine, d.StatsSvc)
	bankH := handlers.NewBankHandler(d.BankSvc)
	am := middleware.NewAuthMiddleware(d.Tokens)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.Get("/banks", bankH.Active)

		r.Group(func(r chi.Router) {
			r.Use(am.Auth)

			// ---------- account ----------
			r.Get("/me", userH.Me)
			r.Get("/ws", userH.Live)

			// ---------- transactions ----------
			r.Post("/transactions/deposit", userH.Deposit)
			r.Post("/transactions/withdraw", userH.Withdraw)
			r.Get("/transactions", userH.List)
			r.Get("/transactions/{id}", userH.Get)

			// ---------- operator ----------
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/requests", adminH.Pending)
				r.Get("/requests/{id}", adminH.Get)
				r.Post("/requests/{id}/approve", adminH.Approve)
				r.Post("/requests/{id}/reject", adminH.Reject)
				r.Post("/requests/{id}/decision", adminH.Decision)
				r.Get("/users", adminH.ListUsers)
				r.Post("/users/{id}/deactivate", adminH.Deactivate)
				r.Get("/stats", adminH.StatsSummary)
				r.Get("/banks", bankH.All)
				r.Post("/banks", bankH.Create)
				r.Post("/banks/{id}/active", bankH.SetActive)
			})
		})
	})

	return r
}
