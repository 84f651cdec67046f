package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"course-marketplace/internal/domain"
	"course-marketplace/internal/domain/model"
	"course-marketplace/internal/usecase"
)

// Server is the public checkout API consumed by the web client.
type Server struct {
	pricingUC  usecase.PricingUseCase
	checkoutUC usecase.CheckoutUseCase
	purchaseUC usecase.PurchaseUseCase
	accessUC   usecase.AccessUseCase
	catalogUC  usecase.CatalogUseCase
	jwtSecret  string
	log        *zerolog.Logger
}

func NewServer(
	pricingUC usecase.PricingUseCase,
	checkoutUC usecase.CheckoutUseCase,
	purchaseUC usecase.PurchaseUseCase,
	accessUC usecase.AccessUseCase,
	catalogUC usecase.CatalogUseCase,
	jwtSecret string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "APIServer").Logger()
	return &Server{
		pricingUC: pricingUC, checkoutUC: checkoutUC, purchaseUC: purchaseUC,
		accessUC: accessUC, catalogUC: catalogUC, jwtSecret: jwtSecret, log: &l,
	}
}

// Router builds the chi mux for the public API.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tiers", s.handleListTiers)
		r.Get("/tiers/{tierID}", s.handleGetTier)

		r.Group(func(r chi.Router) {
			r.Use(Auth(s.jwtSecret))
			r.Post("/purchases/quote", s.handleQuote)
			r.Post("/purchases", s.handleCreatePurchase)
			r.Post("/purchases/{purchaseID}/proof", s.handleSubmitProof)
			r.Get("/purchases/{purchaseID}", s.handleGetPurchase)
			r.Get("/purchases", s.handleListPurchases)
			r.Get("/access/{tierID}", s.handleAccess)
		})
	})
	return r
}

// quoteRequest deliberately has no ref_code field: referral codes never move
// the price, so a quote ignores them even when the client sends one.
type quoteRequest struct {
	TierID    string `json:"tier_id"`
	Method    string `json:"method"`
	Country   string `json:"country"`
	PromoCode string `json:"promo_code,omitempty"`
}

type quoteResponse struct {
	BaseUsed       int64  `json:"base_used"`
	Discount       int64  `json:"discount"`
	Due            int64  `json:"due"`
	Currency       string `json:"currency"`
	LocalDue       int64  `json:"local_due,omitempty"`
	LocalCurrency  string `json:"local_currency,omitempty"`
	Provider       string `json:"provider"`
	PricingApplied bool   `json:"pricing_applied"`
	PromoReason    string `json:"promo_reason,omitempty"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	method, err := model.ParsePaymentMethod(req.Method)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q, err := s.pricingUC.Quote(r.Context(), req.TierID, method, req.Country, req.PromoCode, UserID(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		BaseUsed:       q.BaseUsed,
		Discount:       q.Discount,
		Due:            q.Due,
		Currency:       q.Currency,
		LocalDue:       q.LocalDue,
		LocalCurrency:  q.LocalCurrency,
		Provider:       string(q.Method),
		PricingApplied: q.PricingApplied,
		PromoReason:    q.PromoReason,
	})
}

type createPurchaseRequest struct {
	TierID         string `json:"tier_id"`
	Method         string `json:"method"`
	Country        string `json:"country"`
	CourseLanguage string `json:"course_language"`
	PromoCode      string `json:"promo_code,omitempty"`
	RefCode        string `json:"ref_code,omitempty"`
}

type createPurchaseResponse struct {
	PurchaseID    string `json:"purchase_id"`
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	Address       string `json:"address,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	LocalAmount   int64  `json:"local_amount,omitempty"`
	LocalCurrency string `json:"local_currency,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	method, err := model.ParsePaymentMethod(req.Method)
	if err != nil {
		s.writeError(w, err)
		return
	}
	receipt, err := s.checkoutUC.CreatePurchase(r.Context(), UserID(r.Context()), req.TierID, method, req.Country, req.CourseLanguage, req.PromoCode, req.RefCode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := createPurchaseResponse{
		PurchaseID:    receipt.Purchase.ID,
		Provider:      string(receipt.Provider),
		Status:        string(receipt.Purchase.Status),
		Address:       receipt.Address,
		Amount:        receipt.AmountCents,
		LocalAmount:   receipt.LocalAmount,
		LocalCurrency: receipt.LocalCurrency,
	}
	if receipt.Provider != model.MethodFree {
		resp.Currency = "USDT"
	}
	if receipt.Purchase.ExpiresAt != nil {
		resp.ExpiresAt = receipt.Purchase.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	writeJSON(w, http.StatusCreated, resp)
}

type submitProofRequest struct {
	TxHash    string `json:"tx_hash,omitempty"`
	FromPhone string `json:"from_phone,omitempty"`
}

func (s *Server) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	purchaseID := chi.URLParam(r, "purchaseID")
	if err := s.purchaseUC.SubmitProof(r.Context(), UserID(r.Context()), purchaseID, req.TxHash, req.FromPhone); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

type purchaseView struct {
	ID            string `json:"id"`
	TierID        string `json:"tier_id"`
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	BasePrice     int64  `json:"base_price"`
	FinalPrice    int64  `json:"final_price"`
	PromoCode     string `json:"promo_code,omitempty"`
	ReferralCode  string `json:"referral_code,omitempty"`
	HasProof      bool   `json:"has_proof"`
	CreatedAt     string `json:"created_at"`
	ConfirmedAt   string `json:"confirmed_at,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

func toPurchaseView(p *model.Purchase) purchaseView {
	v := purchaseView{
		ID:         p.ID,
		TierID:     p.TierID,
		Provider:   string(p.Method),
		Status:     string(p.Status),
		BasePrice:  p.BasePriceCents,
		FinalPrice: p.FinalPriceCents,
		HasProof:   p.HasProof(),
		CreatedAt:  p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if p.PromoCode != nil {
		v.PromoCode = *p.PromoCode
	}
	if p.ReferralCode != nil {
		v.ReferralCode = *p.ReferralCode
	}
	if p.ConfirmedAt != nil {
		v.ConfirmedAt = p.ConfirmedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if p.ExpiresAt != nil {
		v.ExpiresAt = p.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}

func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := s.purchaseUC.GetForUser(r.Context(), UserID(r.Context()), chi.URLParam(r, "purchaseID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseView(p))
}

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	list, err := s.purchaseUC.ListByUser(r.Context(), UserID(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]purchaseView, 0, len(list))
	for _, p := range list {
		views = append(views, toPurchaseView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	ok, err := s.accessUC.HasAccess(r.Context(), UserID(r.Context()), chi.URLParam(r, "tierID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_access": ok})
}

type tierView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PriceUSDCents   int64  `json:"price_usd_cents"`
	PriceLYDDirhams int64  `json:"price_lyd_dirhams,omitempty"`
	Level           string `json:"level,omitempty"`
	Instructor      string `json:"instructor,omitempty"`
	Free            bool   `json:"free"`
}

func toTierView(t *model.CourseTier) tierView {
	return tierView{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		PriceUSDCents:   t.PriceUSDCents,
		PriceLYDDirhams: t.PriceLYDDirhams,
		Level:           t.Level,
		Instructor:      t.Instructor,
		Free:            t.Free(),
	}
}

func (s *Server) handleListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := s.catalogUC.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]tierView, 0, len(tiers))
	for _, t := range tiers {
		views = append(views, toTierView(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

func (s *Server) handleGetTier(w http.ResponseWriter, r *http.Request) {
	t, err := s.catalogUC.Get(r.Context(), chi.URLParam(r, "tierID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTierView(t))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to HTTP statuses. Validation errors are
// 400, business-rule rejections 409, missing entities 404; anything else is a
// storage failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUnknownMethod),
		errors.Is(err, domain.ErrProofMismatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrAlreadyEnrolled),
		errors.Is(err, domain.ErrProofAlreadySubmitted),
		errors.Is(err, domain.ErrPurchaseNotPending),
		errors.Is(err, domain.ErrPromoExhausted),
		errors.Is(err, domain.ErrCheckoutLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
