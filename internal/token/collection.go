package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/mintbay/nft-marketplace/internal/auth"
	"github.com/mintbay/nft-marketplace/internal/entity"
	"github.com/mintbay/nft-marketplace/internal/event"
	"github.com/mintbay/nft-marketplace/internal/ledger"
	"go.uber.org/zap"
)

var (
	ErrInvalidPayment  = errors.New("invalid payment amount")
	ErrSupplyExhausted = errors.New("max supply reached")
	ErrTokenNotFound   = errors.New("token not found")
	ErrNotApproved     = errors.New("caller is not owner nor approved")
)

// Registry is the token-ownership ledger the marketplace escrows against.
// A Collection implements it; the engine never depends on the concrete type.
type Registry interface {
	OwnerOf(tokenId uint64) (string, error)
	Approve(caller, spender string, tokenId uint64) error
	TransferFrom(caller, from, to string, tokenId uint64) error
	TokenURI(tokenId uint64) (string, error)
}

// Collection mints tokens against a fixed price up to a hard supply cap.
// Token ids come from one sequential counter shared by paid and owner
// mints, so owner mints count against the cap as well.
type Collection struct {
	mu sync.Mutex

	address string
	name    string
	symbol  string

	access    auth.AccessControl
	bank      ledger.Bank
	mintPrice *uint256.Int
	maxSupply uint32
	minted    uint32

	owners    map[uint64]string
	uris      map[uint64]string
	approvals map[uint64]string
}

func NewCollection(address, name, symbol string, access auth.AccessControl, bank ledger.Bank, mintPrice *uint256.Int, maxSupply uint32) *Collection {
	return &Collection{
		address:   address,
		name:      name,
		symbol:    symbol,
		access:    access,
		bank:      bank,
		mintPrice: mintPrice.Clone(),
		maxSupply: maxSupply,
		owners:    make(map[uint64]string),
		uris:      make(map[uint64]string),
		approvals: make(map[uint64]string),
	}
}

func (c *Collection) Address() string {
	return c.address
}

func (c *Collection) MintPrice() *uint256.Int {
	return c.mintPrice.Clone()
}

func (c *Collection) Minted() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.minted
}

// Mint assigns the next sequential token id to the caller. The attached
// payment must equal the mint price exactly.
func (c *Collection) Mint(caller, tokenUri string, payment *uint256.Int) (uint64, error) {
	if payment == nil || !payment.Eq(c.mintPrice) {
		return 0, fmt.Errorf("%w: contract requires %s", ErrInvalidPayment, c.mintPrice.Dec())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.minted == c.maxSupply {
		return 0, ErrSupplyExhausted
	}

	if err := c.bank.Transfer(caller, c.address, payment); err != nil {
		return 0, fmt.Errorf("mint payment: %w", err)
	}

	return c.assign(caller, caller, tokenUri), nil
}

// OwnerMint is the free owner-only mint. It shares the id counter with
// Mint and is bounded by the same supply cap.
func (c *Collection) OwnerMint(caller, to, tokenUri string) (uint64, error) {
	if !c.access.IsOwner(caller) {
		return 0, auth.ErrUnauthorized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.minted == c.maxSupply {
		return 0, ErrSupplyExhausted
	}

	return c.assign(caller, to, tokenUri), nil
}

func (c *Collection) assign(minter, to, tokenUri string) uint64 {
	tokenId := uint64(c.minted)
	c.owners[tokenId] = to
	c.uris[tokenId] = tokenUri
	c.minted++

	zap.L().With(
		zap.String("contract", c.address),
		zap.Uint64("tokenId", tokenId),
		zap.String("to", to),
		zap.String("uri", tokenUri),
	).Info("Collection: Minted token")

	event.EmitEvent(event.TokenMintedEvent, entity.Token{
		Contract: c.address,
		TokenId:  tokenId,
		Owner:    to,
		TokenUri: tokenUri,
		MintedBy: minter,
	})

	return tokenId
}

// Withdraw pays the accumulated mint revenue to the owner. An empty
// balance is a successful no-op.
func (c *Collection) Withdraw(caller string) (*uint256.Int, error) {
	if !c.access.IsOwner(caller) {
		return nil, auth.ErrUnauthorized
	}

	balance := c.bank.BalanceOf(c.address)
	if balance.IsZero() {
		return balance, nil
	}

	if err := c.bank.Transfer(c.address, c.access.Owner(), balance); err != nil {
		return nil, fmt.Errorf("withdraw mint revenue: %w", err)
	}

	zap.L().With(
		zap.String("contract", c.address),
		zap.String("to", c.access.Owner()),
		zap.String("amount", balance.Dec()),
	).Info("Collection: Withdrawn mint revenue")

	return balance, nil
}

func (c *Collection) OwnerOf(tokenId uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[tokenId]
	if !ok {
		return "", ErrTokenNotFound
	}

	return owner, nil
}

func (c *Collection) TokenURI(tokenId uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uri, ok := c.uris[tokenId]
	if !ok {
		return "", ErrTokenNotFound
	}

	return uri, nil
}

// Approve grants spender the right to transfer one token. Only the
// current token owner can approve; the approval clears on transfer.
func (c *Collection) Approve(caller, spender string, tokenId uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[tokenId]
	if !ok {
		return ErrTokenNotFound
	}

	if owner != caller {
		return ErrNotApproved
	}

	c.approvals[tokenId] = spender

	return nil
}

// TransferFrom moves a token between holders. The caller must be the
// current owner or the approved spender, and from must match the owner.
func (c *Collection) TransferFrom(caller, from, to string, tokenId uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[tokenId]
	if !ok {
		return ErrTokenNotFound
	}

	if owner != from {
		return ErrNotApproved
	}

	if caller != owner && c.approvals[tokenId] != caller {
		return ErrNotApproved
	}

	c.owners[tokenId] = to
	delete(c.approvals, tokenId)

	return nil
}

// Token returns the read model for one minted token.
func (c *Collection) Token(tokenId uint64) (entity.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[tokenId]
	if !ok {
		return entity.Token{}, ErrTokenNotFound
	}

	return entity.Token{
		Contract: c.address,
		TokenId:  tokenId,
		Owner:    owner,
		TokenUri: c.uris[tokenId],
	}, nil
}
