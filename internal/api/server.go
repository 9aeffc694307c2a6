package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/mintbay/nft-marketplace/internal/auth"
	"github.com/mintbay/nft-marketplace/internal/ledger"
	"github.com/mintbay/nft-marketplace/internal/marketplace"
	"github.com/mintbay/nft-marketplace/internal/metadata"
	"github.com/mintbay/nft-marketplace/internal/repository"
	"github.com/mintbay/nft-marketplace/internal/token"
	"go.uber.org/zap"
)

// Server exposes the marketplace operation surface over HTTP. The caller
// address comes from the X-Caller header; authentication is outside the
// engine's scope.
type Server struct {
	engine      *marketplace.Engine
	collection  *token.Collection
	metadata    metadata.Service
	listingRepo repository.ListingRepository
	actionRepo  repository.ActionRepository
}

func NewServer(
	engine *marketplace.Engine,
	collection *token.Collection,
	metadataService metadata.Service,
	listingRepo repository.ListingRepository,
	actionRepo repository.ActionRepository,
) Server {
	return Server{engine, collection, metadataService, listingRepo, actionRepo}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/tokens/mint", s.handleMint).Methods("POST")
	r.HandleFunc("/tokens/owner-mint", s.handleOwnerMint).Methods("POST")
	r.HandleFunc("/tokens/withdraw", s.handleMintWithdraw).Methods("POST")
	r.HandleFunc("/tokens/{tokenId}", s.handleGetToken).Methods("GET")
	r.HandleFunc("/tokens/{tokenId}/approve", s.handleApprove).Methods("POST")

	r.HandleFunc("/listings", s.handleList).Methods("POST")
	r.HandleFunc("/listings", s.handleSellerListings).Methods("GET").Queries("seller", "{seller}")
	r.HandleFunc("/listings/active", s.handleActiveListings).Methods("GET")
	r.HandleFunc("/listings/{listingId}", s.handleGetListing).Methods("GET")
	r.HandleFunc("/listings/{listingId}", s.handleCancel).Methods("DELETE")
	r.HandleFunc("/listings/{listingId}/buy", s.handleBuy).Methods("POST")
	r.HandleFunc("/listings/{listingId}/price", s.handleUpdatePrice).Methods("PUT")
	r.HandleFunc("/listings/{listingId}/actions", s.handleListingActions).Methods("GET")

	r.HandleFunc("/funds/withdraw", s.handleFundsWithdraw).Methods("POST")

	r.NotFoundHandler = notFoundHandler()

	return r
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenUri string `json:"tokenUri"`
		Payment  string `json:"payment"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	payment, err := parseAmount(req.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tokenId, err := s.collection.Mint(caller(r), req.TokenUri, payment)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"tokenId": tokenId})
}

func (s Server) handleOwnerMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To       string `json:"to"`
		TokenUri string `json:"tokenUri"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	tokenId, err := s.collection.OwnerMint(caller(r), req.To, req.TokenUri)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"tokenId": tokenId})
}

func (s Server) handleMintWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := s.collection.Withdraw(caller(r))
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"amount": amount.Dec()})
}

func (s Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	tokenId, err := pathId(r, "tokenId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	t, err := s.collection.Token(tokenId)
	if err != nil {
		writeFailure(w, err)
		return
	}

	if md, err := s.metadata.GetMetadata(t); err == nil {
		t.HasMetadata = true
		t.Metadata = md
	} else {
		t.MetadataError = err.Error()
	}

	writeJSON(w, http.StatusOK, t)
}

func (s Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	tokenId, err := pathId(r, "tokenId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Spender string `json:"spender"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.collection.Approve(caller(r), req.Spender, tokenId); err != nil {
		writeFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenContract string `json:"tokenContract"`
		TokenId       uint64 `json:"tokenId"`
		Price         string `json:"price"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	listingId, err := s.engine.ListNFT(caller(r), req.TokenContract, req.TokenId, price)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"listingId": listingId})
}

func (s Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	listingId, err := pathId(r, "listingId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Payment string `json:"payment"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	payment, err := parseAmount(req.Payment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.BuyNFT(caller(r), listingId, payment); err != nil {
		writeFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	listingId, err := pathId(r, "listingId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.CancelListing(caller(r), listingId); err != nil {
		writeFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	listingId, err := pathId(r, "listingId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Price string `json:"price"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.UpdatePrice(caller(r), listingId, price); err != nil {
		writeFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleActiveListings(w http.ResponseWriter, r *http.Request) {
	ids := s.engine.GetActiveListings()

	listings := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		if listing, ok := s.engine.Listing(id); ok {
			listings = append(listings, listing)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ids":      ids,
		"listings": listings,
	})
}

func (s Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listingId, err := pathId(r, "listingId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	listing, ok := s.engine.Listing(listingId)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("listing not found"))
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

func (s Server) handleSellerListings(w http.ResponseWriter, r *http.Request) {
	if s.listingRepo == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("history not available"))
		return
	}

	listings, total, err := s.listingRepo.GetListingsBySeller(r.URL.Query().Get("seller"), 100, 1)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Api: Failed to get seller listings")
		writeError(w, http.StatusInternalServerError, errors.New("failed to get listings"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":    total,
		"listings": listings,
	})
}

func (s Server) handleListingActions(w http.ResponseWriter, r *http.Request) {
	if s.actionRepo == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("history not available"))
		return
	}

	listingId, err := pathId(r, "listingId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	actions, total, err := s.actionRepo.GetActionsByListing(listingId, 100, 1)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Api: Failed to get listing actions")
		writeError(w, http.StatusInternalServerError, errors.New("failed to get actions"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"actions": actions,
	})
}

func (s Server) handleFundsWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := s.engine.WithdrawFunds(caller(r))
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"amount": amount.Dec()})
}

func (s Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}

	return true
}

func caller(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Caller"))
}

func pathId(r *http.Request, name string) (uint64, error) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return 0, errors.New("invalid parameters")
	}

	return strconv.ParseUint(raw, 10, 64)
}

func parseAmount(raw string) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uint256.NewInt(0), nil
	}

	if strings.HasPrefix(raw, "0x") {
		return uint256.FromHex(raw)
	}

	return uint256.FromDecimal(raw)
}

// writeFailure maps domain errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, marketplace.ErrListingNotActive),
		errors.Is(err, token.ErrTokenNotFound),
		errors.Is(err, token.ErrUnknownContract):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, marketplace.ErrInsufficientPayment),
		errors.Is(err, token.ErrInvalidPayment),
		errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, marketplace.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, token.ErrSupplyExhausted),
		errors.Is(err, marketplace.ErrNotTokenOwner),
		errors.Is(err, token.ErrNotApproved),
		errors.Is(err, marketplace.ErrTransferFailed):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().With(zap.Error(err)).Error("Api: Failed to encode response")
	}
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, "Page not found")
	})
}
