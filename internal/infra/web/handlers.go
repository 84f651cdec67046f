package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/usecase"
)

func purchaseConfirmHandler(uc usecase.PurchaseUseCase, purchaseID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := uc.Confirm(r.Context(), purchaseID)
		if err != nil {
			writeError(w, err)
			return
		}
		// Idempotent: an already-terminal purchase comes back unchanged.
		writeJSON(w, http.StatusOK, map[string]string{"id": p.ID, "status": string(p.Status)})
	}
}

func purchaseFailHandler(uc usecase.PurchaseUseCase, purchaseID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := uc.Fail(r.Context(), purchaseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": p.ID, "status": string(p.Status)})
	}
}

type promoCreateRequest struct {
	Code           string  `json:"code"`
	Kind           string  `json:"kind"` // percent | fixed
	Value          int64   `json:"value"`
	MaxUses        *int    `json:"max_uses,omitempty"`
	MaxUsesPerUser *int    `json:"max_uses_per_user,omitempty"`
	TierID         *string `json:"tier_id,omitempty"`
	Method         *string `json:"method,omitempty"`
	ExpiresAt      *string `json:"expires_at,omitempty"` // RFC 3339
}

func promosCreateHandler(uc usecase.PromoUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req promoCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		var method *model.PaymentMethod
		if req.Method != nil {
			m, err := model.ParsePaymentMethod(*req.Method)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			method = &m
		}
		var expiresAt *time.Time
		if req.ExpiresAt != nil {
			t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				http.Error(w, "expires_at must be RFC 3339", http.StatusBadRequest)
				return
			}
			expiresAt = &t
		}

		pc, err := uc.Create(r.Context(), req.Code, model.DiscountKind(req.Kind), req.Value, req.MaxUses, req.MaxUsesPerUser, req.TierID, method, expiresAt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, pc)
	}
}

func promosListHandler(uc usecase.PromoUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := uc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, codes)
	}
}

func promosDeactivateHandler(uc usecase.PromoUseCase, code string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Deactivate(r.Context(), code); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type tierCreateRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceUSDCents   int64  `json:"price_usd_cents"`
	PriceLYDDirhams int64  `json:"price_lyd_dirhams"`
	Level           string `json:"level"`
	Instructor      string `json:"instructor"`
}

func tiersCreateHandler(uc usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tierCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		tier, err := uc.Create(r.Context(), req.Name, req.Description, req.PriceUSDCents, req.PriceLYDDirhams, req.Level, req.Instructor)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tier)
	}
}

func tiersListHandler(uc usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tiers, err := uc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tiers)
	}
}

type tierUpdateRequest struct {
	PriceUSDCents   *int64  `json:"price_usd_cents,omitempty"`
	PriceLYDDirhams *int64  `json:"price_lyd_dirhams,omitempty"`
	Description     *string `json:"description,omitempty"`
}

func tiersUpdateHandler(uc usecase.CatalogUseCase, tierID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tierUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		tier, err := uc.Update(r.Context(), tierID, req.PriceUSDCents, req.PriceLYDDirhams, req.Description)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tier)
	}
}

func tiersDeleteHandler(uc usecase.CatalogUseCase, tierID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Delete(r.Context(), tierID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func statsHandler(uc usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		week, month, year, err := uc.Revenue(ctx)
		if err != nil {
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}
		counts, err := uc.PurchaseCounts(ctx)
		if err != nil {
			http.Error(w, "Failed to get purchase counts", http.StatusInternalServerError)
			return
		}

		response := struct {
			Purchases map[model.PurchaseStatus]int `json:"purchases_by_status"`
			Revenue   struct {
				Week  int64 `json:"week"`
				Month int64 `json:"month"`
				Year  int64 `json:"year"`
			} `json:"revenue_usd_cents"`
		}{
			Purchases: counts,
		}
		response.Revenue.Week = week
		response.Revenue.Month = month
		response.Revenue.Year = year

		writeJSON(w, http.StatusOK, response)
	}
}

func referralsListHandler(uc usecase.ReferralUseCase, code string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credits, err := uc.ListCredits(r.Context(), code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, credits)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
