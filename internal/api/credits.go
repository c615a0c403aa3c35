package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// ─── Credit Handlers ────────────────────────────────────────────────────────
// The CRUD route layer (external collaborator) authenticates the seller and
// forwards the identity in the X-Seller-ID header.

// sellerID extracts the authenticated seller from the request.
func sellerID(r *http.Request) string {
	return r.Header.Get("X-Seller-ID")
}

// handleBalance returns the seller's credit balance.
// GET /api/credits/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	seller := sellerID(r)
	if seller == "" {
		writeError(w, http.StatusUnauthorized, "missing seller identity")
		return
	}

	balance, err := s.ledger.Balance(seller)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance": balance,
	})
}

// handlePackages returns the purchasable credit packages.
// GET /api/credits/packages
func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"packages":  s.credits.Packages,
		"isEnabled": s.credits.Enabled,
		"mode":      s.credits.Mode,
	})
}

// handleTransactions returns the seller's transaction history.
// GET /api/credits/transactions
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	seller := sellerID(r)
	if seller == "" {
		writeError(w, http.StatusUnauthorized, "missing seller identity")
		return
	}

	txns, err := s.ledger.Transactions(seller, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txns,
	})
}

// handlePurchase credits the seller with a package's credits.
// POST /api/credits/purchase {packageType, paymentMethod, phoneNumber}
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	seller := sellerID(r)
	if seller == "" {
		writeError(w, http.StatusUnauthorized, "missing seller identity")
		return
	}

	var req struct {
		PackageType   string `json:"packageType"`
		PaymentMethod string `json:"paymentMethod"`
		PhoneNumber   string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var pkg *domain.CreditPackage
	for i := range s.credits.Packages {
		if s.credits.Packages[i].Type == req.PackageType {
			pkg = &s.credits.Packages[i]
			break
		}
	}
	if pkg == nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown package type %q", req.PackageType))
		return
	}

	meta := fmt.Sprintf("%s via %s", req.PackageType, req.PaymentMethod)
	newBalance, err := s.ledger.Purchase(seller, pkg.Credits, meta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"newBalance": newBalance,
	})
}

// handleConsume atomically checks and spends the cost of an action.
// POST /api/credits/consume {actionType}
//
// 200 {success, newBalance} on success.
// 402 {error, message, creditsInfo:{currentBalance, requiredCredits}} when
// the balance cannot cover the cost — this status is the contract clients
// key off for insufficient-credit signaling.
// 400 for an unknown action type (configuration error, never silently free).
func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	seller := sellerID(r)
	if seller == "" {
		writeError(w, http.StatusUnauthorized, "missing seller identity")
		return
	}

	var req struct {
		ActionType string `json:"actionType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newBalance, err := s.ledger.Consume(seller, req.ActionType)

	var insufficient *domain.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":   "INSUFFICIENT_CREDITS",
			"message": fmt.Sprintf("action %s requires %d credits", req.ActionType, insufficient.Required),
			"creditsInfo": map[string]interface{}{
				"currentBalance":  insufficient.Balance,
				"requiredCredits": insufficient.Required,
			},
		})
		return
	}
	var unknown *domain.UnknownActionTypeError
	if errors.As(err, &unknown) {
		writeError(w, http.StatusBadRequest, unknown.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"newBalance": newBalance,
	})
}
