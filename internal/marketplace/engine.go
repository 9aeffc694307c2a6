package marketplace

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/mintbay/nft-marketplace/internal/auth"
	"github.com/mintbay/nft-marketplace/internal/entity"
	"github.com/mintbay/nft-marketplace/internal/event"
	"github.com/mintbay/nft-marketplace/internal/ledger"
	"github.com/mintbay/nft-marketplace/internal/token"
	"go.uber.org/zap"
)

// Engine owns the three shared marketplace resources: the listing table,
// the active-listing index and the platform fee balance. Every operation
// runs under one mutex, so operations are serialized and each one either
// commits completely or leaves no trace. Internal state is mutated before
// any outbound transfer; a transfer failure rolls the mutation back.
type Engine struct {
	mu sync.Mutex

	address string
	access  auth.AccessControl
	bank    ledger.Bank
	tokens  token.Directory

	store           *ListingStore
	index           *ActiveIndex
	platformBalance *uint256.Int
}

func NewEngine(address string, access auth.AccessControl, bank ledger.Bank, tokens token.Directory) *Engine {
	return &Engine{
		address:         address,
		access:          access,
		bank:            bank,
		tokens:          tokens,
		store:           NewListingStore(),
		index:           NewActiveIndex(),
		platformBalance: uint256.NewInt(0),
	}
}

func (e *Engine) Address() string {
	return e.address
}

// ListNFT escrows the caller's token with the engine and creates an
// active listing. The caller must own the token and must have approved
// the engine for it.
func (e *Engine) ListNFT(caller, tokenContract string, tokenId uint64, price *uint256.Int) (uint64, error) {
	if price == nil || price.IsZero() {
		return 0, ErrInvalidPrice
	}

	registry, err := e.tokens.Get(tokenContract)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	owner, err := registry.OwnerOf(tokenId)
	if err != nil || owner != caller {
		return 0, ErrNotTokenOwner
	}

	if err := registry.TransferFrom(e.address, caller, e.address, tokenId); err != nil {
		return 0, fmt.Errorf("%w: escrow: %s", ErrTransferFailed, err)
	}

	listing := e.store.Append(caller, tokenContract, tokenId, price)
	e.index.Add(listing.Id)

	zap.L().With(
		zap.Uint64("listingId", listing.Id),
		zap.String("seller", caller),
		zap.String("contract", tokenContract),
		zap.Uint64("tokenId", tokenId),
		zap.String("price", price.Dec()),
	).Info("Marketplace: Listed token")

	event.EmitEvent(event.ListedEvent, snapshot(listing))

	return listing.Id, nil
}

// BuyNFT settles an active listing: the payment is collected, the fee is
// credited to the platform balance, the seller is paid, the token goes to
// the buyer and any surplus payment returns to the buyer. A failure in
// any transfer reverts the whole purchase.
func (e *Engine) BuyNFT(caller string, listingId uint64, payment *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, ok := e.store.Get(listingId)
	if !ok || !listing.IsActive {
		return ErrListingNotActive
	}

	if payment == nil || payment.Lt(listing.Price) {
		return ErrInsufficientPayment
	}

	registry, err := e.tokens.Get(listing.TokenContract)
	if err != nil {
		return err
	}

	price := listing.Price.Clone()
	platformFee, sellerProceeds := SplitPrice(price)
	refund := new(uint256.Int).Sub(payment, price)

	if err := e.bank.Transfer(caller, e.address, payment); err != nil {
		return fmt.Errorf("%w: collect payment: %s", ErrTransferFailed, err)
	}

	listing.IsActive = false
	listing.State = entity.ListingSold
	e.index.Remove(listingId)
	e.platformBalance.Add(e.platformBalance, platformFee)

	revert := func() {
		listing.IsActive = true
		listing.State = entity.ListingActive
		e.index.Add(listingId)
		e.platformBalance.Sub(e.platformBalance, platformFee)
	}

	if err := e.bank.Transfer(e.address, listing.Seller, sellerProceeds); err != nil {
		revert()
		e.refund(caller, payment)
		return fmt.Errorf("%w: pay seller: %s", ErrTransferFailed, err)
	}

	if err := registry.TransferFrom(e.address, e.address, caller, listing.TokenId); err != nil {
		revert()
		if undo := e.bank.Transfer(listing.Seller, e.address, sellerProceeds); undo != nil {
			zap.L().With(zap.Error(undo), zap.Uint64("listingId", listingId)).
				Error("Marketplace: Failed to claw back seller proceeds")
		}
		e.refund(caller, payment)
		return fmt.Errorf("%w: deliver token: %s", ErrTransferFailed, err)
	}

	if !refund.IsZero() {
		if err := e.bank.Transfer(e.address, caller, refund); err != nil {
			revert()
			if undo := registry.TransferFrom(e.address, caller, e.address, listing.TokenId); undo != nil {
				zap.L().With(zap.Error(undo), zap.Uint64("listingId", listingId)).
					Error("Marketplace: Failed to reclaim token")
			}
			if undo := e.bank.Transfer(listing.Seller, e.address, sellerProceeds); undo != nil {
				zap.L().With(zap.Error(undo), zap.Uint64("listingId", listingId)).
					Error("Marketplace: Failed to claw back seller proceeds")
			}
			e.refund(caller, payment)
			return fmt.Errorf("%w: refund surplus: %s", ErrTransferFailed, err)
		}
	}

	zap.L().With(
		zap.Uint64("listingId", listingId),
		zap.String("buyer", caller),
		zap.String("seller", listing.Seller),
		zap.String("cost", price.Dec()),
		zap.String("fee", platformFee.Dec()),
	).Info("Marketplace: Sold token")

	event.EmitEvent(event.SoldEvent, entity.Sale{
		Listing:  snapshot(listing),
		Buyer:    caller,
		Cost:     price.Dec(),
		Fee:      platformFee.Dec(),
		Proceeds: sellerProceeds.Dec(),
		Refund:   refund.Dec(),
	})

	return nil
}

// refund returns the collected payment to the buyer after a failed
// purchase. The buyer's funds just left this account, so the transfer
// back cannot come up short.
func (e *Engine) refund(caller string, payment *uint256.Int) {
	if err := e.bank.Transfer(e.address, caller, payment); err != nil {
		zap.L().With(zap.Error(err), zap.String("buyer", caller)).
			Error("Marketplace: Failed to return payment")
	}
}

// CancelListing deactivates a listing and returns the escrowed token to
// the seller.
func (e *Engine) CancelListing(caller string, listingId uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, ok := e.store.Get(listingId)
	if !ok {
		return ErrListingNotActive
	}

	if listing.Seller != caller {
		return auth.ErrUnauthorized
	}

	if !listing.IsActive {
		return ErrListingNotActive
	}

	registry, err := e.tokens.Get(listing.TokenContract)
	if err != nil {
		return err
	}

	listing.IsActive = false
	listing.State = entity.ListingCancelled
	e.index.Remove(listingId)

	if err := registry.TransferFrom(e.address, e.address, listing.Seller, listing.TokenId); err != nil {
		listing.IsActive = true
		listing.State = entity.ListingActive
		e.index.Add(listingId)
		return fmt.Errorf("%w: return token: %s", ErrTransferFailed, err)
	}

	zap.L().With(
		zap.Uint64("listingId", listingId),
		zap.String("seller", caller),
	).Info("Marketplace: Cancelled listing")

	event.EmitEvent(event.CancelledEvent, snapshot(listing))

	return nil
}

// UpdatePrice reprices an active listing in place. The index is not
// touched.
func (e *Engine) UpdatePrice(caller string, listingId uint64, newPrice *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, ok := e.store.Get(listingId)
	if !ok {
		return ErrListingNotActive
	}

	if listing.Seller != caller {
		return auth.ErrUnauthorized
	}

	if !listing.IsActive {
		return ErrListingNotActive
	}

	if newPrice == nil || newPrice.IsZero() {
		return ErrInvalidPrice
	}

	listing.Price = newPrice.Clone()
	listing.PriceUnits = newPrice.Dec()

	zap.L().With(
		zap.Uint64("listingId", listingId),
		zap.String("price", newPrice.Dec()),
	).Info("Marketplace: Updated price")

	event.EmitEvent(event.PriceUpdatedEvent, snapshot(listing))

	return nil
}

// GetActiveListings returns the ids of all currently active listings, in
// no particular order.
func (e *Engine) GetActiveListings() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.index.Ids()
}

// Listing returns a copy of one listing record, active or not.
func (e *Engine) Listing(listingId uint64) (entity.Listing, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, ok := e.store.Get(listingId)
	if !ok {
		return entity.Listing{}, false
	}

	return snapshot(listing), true
}

// WithdrawFunds pays the accumulated platform balance to the owner and
// resets it. An empty balance is a successful no-op.
func (e *Engine) WithdrawFunds(caller string) (*uint256.Int, error) {
	if !e.access.IsOwner(caller) {
		return nil, auth.ErrUnauthorized
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	amount := e.platformBalance.Clone()
	if amount.IsZero() {
		return amount, nil
	}

	e.platformBalance.Clear()

	if err := e.bank.Transfer(e.address, e.access.Owner(), amount); err != nil {
		e.platformBalance.Set(amount)
		return nil, fmt.Errorf("%w: withdraw funds: %s", ErrTransferFailed, err)
	}

	zap.L().With(
		zap.String("to", e.access.Owner()),
		zap.String("amount", amount.Dec()),
	).Info("Marketplace: Withdrawn platform funds")

	event.EmitEvent(event.FundsWithdrawnEvent, entity.Withdrawal{
		Source: "platform",
		To:     e.access.Owner(),
		Amount: amount.Dec(),
	})

	return amount, nil
}

// PlatformBalance returns a copy of the accumulated platform fees.
func (e *Engine) PlatformBalance() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.platformBalance.Clone()
}

// snapshot copies a listing for use outside the engine's lock.
func snapshot(listing *entity.Listing) entity.Listing {
	out := *listing
	out.Price = listing.Price.Clone()

	return out
}
