package web

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-marketplace/internal/usecase"
)

// Server is the operator console API: manual purchase confirmation, promo and
// tier management, referral listing, and dashboard stats.
type Server struct {
	purchaseUC usecase.PurchaseUseCase
	promoUC    usecase.PromoUseCase
	catalogUC  usecase.CatalogUseCase
	statsUC    usecase.StatsUseCase
	referralUC usecase.ReferralUseCase
	apiKey     string
	log        *zerolog.Logger
}

func NewServer(
	purchaseUC usecase.PurchaseUseCase,
	promoUC usecase.PromoUseCase,
	catalogUC usecase.CatalogUseCase,
	statsUC usecase.StatsUseCase,
	referralUC usecase.ReferralUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "AdminServer").Logger()
	return &Server{
		purchaseUC: purchaseUC, promoUC: promoUC, catalogUC: catalogUC,
		statsUC: statsUC, referralUC: referralUC, apiKey: apiKey, log: &l,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())

	statsHandler := s.authMiddleware(statsHandler(s.statsUC))
	mux.Handle("/api/v1/stats", statsHandler)

	purchasesRouter := s.authMiddleware(s.purchasesRouter())
	mux.Handle("/api/v1/purchases", purchasesRouter)
	mux.Handle("/api/v1/purchases/", purchasesRouter)

	promosRouter := s.authMiddleware(s.promosRouter())
	mux.Handle("/api/v1/promos", promosRouter)
	mux.Handle("/api/v1/promos/", promosRouter)

	tiersRouter := s.authMiddleware(s.tiersRouter())
	mux.Handle("/api/v1/tiers", tiersRouter)
	mux.Handle("/api/v1/tiers/", tiersRouter)

	referralsRouter := s.authMiddleware(s.referralsRouter())
	mux.Handle("/api/v1/referrals/", referralsRouter)
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// purchasesRouter handles /api/v1/purchases/{id}/confirm and .../fail.
func (s *Server) purchasesRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/purchases")
		path = strings.Trim(path, "/")

		if path == "" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		parts := strings.Split(path, "/")
		if len(parts) != 2 || r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch parts[1] {
		case "confirm":
			purchaseConfirmHandler(s.purchaseUC, parts[0])(w, r)
		case "fail":
			purchaseFailHandler(s.purchaseUC, parts[0])(w, r)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	})
}

func (s *Server) promosRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/promos")
		path = strings.Trim(path, "/")

		if path == "" {
			switch r.Method {
			case http.MethodGet:
				promosListHandler(s.promoUC)(w, r)
			case http.MethodPost:
				promosCreateHandler(s.promoUC)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		if r.Method == http.MethodDelete {
			promosDeactivateHandler(s.promoUC, path)(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

func (s *Server) tiersRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/tiers")
		path = strings.Trim(path, "/")

		if path == "" {
			switch r.Method {
			case http.MethodGet:
				tiersListHandler(s.catalogUC)(w, r)
			case http.MethodPost:
				tiersCreateHandler(s.catalogUC)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		switch r.Method {
		case http.MethodPut:
			tiersUpdateHandler(s.catalogUC, path)(w, r)
		case http.MethodDelete:
			tiersDeleteHandler(s.catalogUC, path)(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (s *Server) referralsRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/referrals"), "/")
		if code == "" || r.Method != http.MethodGet {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		referralsListHandler(s.referralUC, code)(w, r)
	})
}
