package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danuputra/tokoku/internal/auth"
	"github.com/danuputra/tokoku/internal/catalog"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/orders"
	"github.com/danuputra/tokoku/internal/rewards"
	"github.com/danuputra/tokoku/internal/session"
	"github.com/danuputra/tokoku/internal/wallet"
)

// api exposes the storefront workflows over local HTTP. The runtime holds a
// single session, like the browser client it replaces; /api/me endpoints
// operate on whoever is currently signed in.
type api struct {
	auth     *auth.Service
	catalog  *catalog.Service
	wallet   *wallet.Service
	orders   *orders.Service
	rewards  *rewards.Service
	sessions *session.Actor
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", a.handleRegister)
	mux.HandleFunc("POST /api/login", a.handleLogin)
	mux.HandleFunc("POST /api/logout", a.handleLogout)
	mux.HandleFunc("GET /api/me", a.handleMe)
	mux.HandleFunc("GET /api/me/wallet", a.handleWallet)
	mux.HandleFunc("GET /api/me/orders", a.handleOrders)
	mux.HandleFunc("POST /api/me/orders", a.handlePlaceOrder)
	mux.HandleFunc("GET /api/me/rewards", a.handleRewards)
	mux.HandleFunc("GET /api/products", a.handleProducts)
	mux.HandleFunc("GET /api/products/{slug}", a.handleProduct)
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		Name         string `json:"name"`
		Username     string `json:"username"`
		ReferralCode string `json:"referral_code"`
	}
	if !decode(w, r, &in) {
		return
	}

	profile, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Email:        in.Email,
		Password:     in.Password,
		Name:         in.Name,
		Username:     in.Username,
		ReferralCode: in.ReferralCode,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}

	if err := a.auth.Login(r.Context(), in.Email, in.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a.sessions.Snapshot().Profile)
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	snapshot := a.sessions.Snapshot()
	if !snapshot.IsAuthenticated() {
		writeError(w, apperrors.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, snapshot.Profile)
}

func (a *api) handleWallet(w http.ResponseWriter, r *http.Request) {
	snapshot := a.sessions.Snapshot()
	if !snapshot.IsAuthenticated() {
		writeError(w, apperrors.NewUnauthenticatedError())
		return
	}

	found, err := a.wallet.Fetch(r.Context(), snapshot.Account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (a *api) handleOrders(w http.ResponseWriter, r *http.Request) {
	snapshot := a.sessions.Snapshot()
	if !snapshot.IsAuthenticated() {
		writeError(w, apperrors.NewUnauthenticatedError())
		return
	}

	list, err := a.orders.ListForUser(r.Context(), snapshot.Account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (a *api) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	snapshot := a.sessions.Snapshot()
	if !snapshot.IsAuthenticated() {
		writeError(w, apperrors.NewUnauthenticatedError())
		return
	}

	var in struct {
		ProductSlug string `json:"product_slug"`
		Quantity    int    `json:"quantity"`
		Note        string `json:"note"`
	}
	if !decode(w, r, &in) {
		return
	}

	order, err := a.orders.Place(r.Context(), snapshot.Account.ID, in.ProductSlug, in.Quantity, in.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (a *api) handleRewards(w http.ResponseWriter, r *http.Request) {
	snapshot := a.sessions.Snapshot()
	if !snapshot.IsAuthenticated() {
		writeError(w, apperrors.NewUnauthenticatedError())
		return
	}

	events, err := a.rewards.ListEvents(r.Context(), snapshot.Account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func (a *api) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.catalog.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (a *api) handleProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.catalog.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "permintaan tidak valid"})
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	body := map[string]string{"error": "Terjadi kesalahan, coba lagi nanti"}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr != nil {
		body["code"] = appErr.Code
		if appErr.UserMessage != "" {
			body["error"] = appErr.UserMessage
		}

		switch appErr.Code {
		case apperrors.CodeValidation, apperrors.CodeDuplicateUsername,
			apperrors.CodeSelfReferral, apperrors.CodeUnknownReferral:
			code = http.StatusBadRequest
		case apperrors.CodeUnauthenticated:
			code = http.StatusUnauthorized
		case apperrors.CodeProfileNotFound:
			code = http.StatusNotFound
		case apperrors.CodeExternalAPI:
			code = http.StatusBadGateway
		default:
			code = http.StatusUnprocessableEntity
		}
	}

	writeJSON(w, code, body)
}
