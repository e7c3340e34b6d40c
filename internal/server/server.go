package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/handler"
	"github.com/tmoreland/chorepoints/internal/ledger"
	"github.com/tmoreland/chorepoints/internal/middleware"
	"github.com/tmoreland/chorepoints/internal/push"
	"github.com/tmoreland/chorepoints/internal/store"
	ws "github.com/tmoreland/chorepoints/internal/websocket"
)

// Config carries everything the server needs from the environment.
type Config struct {
	TokenSecret   []byte
	SecureCookies bool
	// TrustProxyHeaders keys rate limiting and request logs on
	// CF-Connecting-IP / X-Forwarded-For instead of RemoteAddr. Only set
	// this behind a proxy that strips inbound values.
	TrustProxyHeaders bool
	Ledger            ledger.Config
	VAPIDPublicKey    string
	VAPIDPrivateKey   string
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	familyH     *handler.FamilyHandler
	taskH       *handler.TaskHandler
	approvalH   *handler.ApprovalHandler
	rewardH     *handler.RewardHandler
	progressH   *handler.ProgressHandler
	characterH  *handler.CharacterHandler
	pushH       *handler.PushHandler
	issuer      *auth.TokenIssuer
	rateLimiter *middleware.RateLimiter
	reminder    *push.Reminder
	trustProxy  bool
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyStore := store.NewFamilyStore(db)
	profileStore := store.NewProfileStore(db)
	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)
	approvalStore := store.NewApprovalStore(db)
	progressStore := store.NewProgressStore(db)
	completionStore := store.NewCompletionStore(db)
	characterStore := store.NewCharacterStore(db)
	pushStore := store.NewPushStore(db)

	lg := ledger.New(db, cfg.Ledger, logger.With("component", "ledger"))
	issuer := auth.NewTokenIssuer(cfg.TokenSecret)

	// Push is optional: without VAPID keys the API works, notifications
	// are just skipped.
	var pushSvc *push.Service
	var notifier *push.Notifier
	var reminder *push.Reminder
	var pushH *handler.PushHandler
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushLogger := logger.With("component", "push")
		pushSvc = push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, profileStore, pushLogger)
		reminder = push.NewReminder(notifier, approvalStore, taskStore, profileStore, pushLogger)
		pushH = handler.NewPushHandler(pushStore, pushSvc, pushLogger)
	}

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(familyStore, profileStore, issuer, cfg.SecureCookies, logger.With("component", "auth")),
		familyH:     handler.NewFamilyHandler(familyStore, profileStore, logger.With("component", "family")),
		taskH:       handler.NewTaskHandler(taskStore, profileStore, lg, hub, notifier, logger.With("component", "task")),
		approvalH:   handler.NewApprovalHandler(approvalStore, taskStore, lg, hub, notifier, logger.With("component", "approval")),
		rewardH:     handler.NewRewardHandler(rewardStore, lg, hub, logger.With("component", "reward")),
		progressH:   handler.NewProgressHandler(progressStore, completionStore, profileStore, logger.With("component", "progress")),
		characterH:  handler.NewCharacterHandler(characterStore, profileStore, completionStore, logger.With("component", "character")),
		pushH:       pushH,
		issuer:      issuer,
		rateLimiter: middleware.NewRateLimiter(),
		reminder:    reminder,
		trustProxy:  cfg.TrustProxyHeaders,
		logger:      logger,
	}
}

// Reminder returns the approval reminder loop, nil when push is disabled.
func (s *Server) Reminder() *push.Reminder {
	return s.reminder
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind RequireAuth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"), s.trustProxy)(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r, s.trustProxy)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	parent := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireParent(h)
	}

	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Family
	mux.HandleFunc("GET /api/family", s.familyH.Mine)
	mux.HandleFunc("GET /api/family/members", s.familyH.Members)
	mux.Handle("DELETE /api/family/members/{id}", parent(s.familyH.DeactivateMember))

	// Tasks
	mux.Handle("POST /api/tasks", parent(s.taskH.Create))
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/mine", s.taskH.ListMine)
	mux.Handle("PUT /api/tasks/{id}", parent(s.taskH.Update))
	mux.Handle("DELETE /api/tasks/{id}", parent(s.taskH.Delete))
	mux.Handle("POST /api/tasks/{id}/assign", parent(s.taskH.Assign))
	mux.Handle("POST /api/tasks/{id}/unassign", parent(s.taskH.Unassign))
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.HandleFunc("POST /api/tasks/{id}/uncomplete", s.taskH.Uncomplete)

	// Approvals
	mux.Handle("GET /api/approvals/pending", parent(s.approvalH.ListPending))
	mux.Handle("POST /api/approvals/{id}/approve", parent(s.approvalH.Approve))
	mux.Handle("POST /api/approvals/{id}/deny", parent(s.approvalH.Deny))

	// Rewards
	mux.Handle("POST /api/rewards", parent(s.rewardH.Create))
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("PUT /api/rewards/{id}", parent(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", parent(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)

	// Characters
	mux.HandleFunc("GET /api/characters", s.characterH.List)

	// Progress
	mux.HandleFunc("GET /api/progress/today", s.progressH.Today)
	mux.HandleFunc("GET /api/progress/weekly", s.progressH.Weekly)
	mux.HandleFunc("GET /api/progress/history", s.progressH.History)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
