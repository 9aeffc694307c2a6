package marketplace

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/mintbay/nft-marketplace/internal/auth"
	"github.com/mintbay/nft-marketplace/internal/entity"
	"github.com/mintbay/nft-marketplace/internal/ledger"
	"github.com/mintbay/nft-marketplace/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerAddr  = "0xowner"
	marketAddr = "0xmarket"
	nftAddr    = "0xnft"
	sellerAddr = "0xseller"
	buyerAddr  = "0xbuyer"
)

var (
	oneEther     = uint256.NewInt(1_000_000_000_000_000_000)
	oneEtherHalf = uint256.NewInt(1_500_000_000_000_000_000)
	twoEther     = uint256.NewInt(2_000_000_000_000_000_000)
)

type market struct {
	bank       ledger.Bank
	collection *token.Collection
	engine     *Engine
}

func newMarket(t *testing.T) market {
	t.Helper()

	access := auth.NewOwnable(ownerAddr)
	bank := ledger.NewBank()

	collection := token.NewCollection(nftAddr, "Test Collection", "TST", access, bank, uint256.NewInt(1), 100)

	directory := token.NewDirectory()
	directory.Add(collection.Address(), collection)

	return market{
		bank:       bank,
		collection: collection,
		engine:     NewEngine(marketAddr, access, bank, directory),
	}
}

// listToken mints a token to the seller, approves the engine and lists it
// at the given price.
func (m market) listToken(t *testing.T, price *uint256.Int) uint64 {
	t.Helper()

	tokenId, err := m.collection.OwnerMint(ownerAddr, sellerAddr, "ipfs://QmToken")
	require.NoError(t, err)
	require.NoError(t, m.collection.Approve(sellerAddr, marketAddr, tokenId))

	listingId, err := m.engine.ListNFT(sellerAddr, nftAddr, tokenId, price)
	require.NoError(t, err)

	return listingId
}

func TestListNFT(t *testing.T) {
	m := newMarket(t)

	listingId := m.listToken(t, oneEther)

	listing, ok := m.engine.Listing(listingId)
	require.True(t, ok)
	assert.Equal(t, sellerAddr, listing.Seller)
	assert.Equal(t, oneEther, listing.Price)
	assert.True(t, listing.IsActive)
	assert.Equal(t, entity.ListingActive, listing.State)

	// The token is escrowed with the engine.
	owner, err := m.collection.OwnerOf(listing.TokenId)
	require.NoError(t, err)
	assert.Equal(t, marketAddr, owner)

	assert.Equal(t, []uint64{listingId}, m.engine.GetActiveListings())
}

func TestListNFTZeroPrice(t *testing.T) {
	m := newMarket(t)

	_, err := m.engine.ListNFT(sellerAddr, nftAddr, 0, uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = m.engine.ListNFT(sellerAddr, nftAddr, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestListNFTNotOwner(t *testing.T) {
	m := newMarket(t)

	tokenId, err := m.collection.OwnerMint(ownerAddr, sellerAddr, "ipfs://QmToken")
	require.NoError(t, err)

	_, err = m.engine.ListNFT(buyerAddr, nftAddr, tokenId, oneEther)
	assert.ErrorIs(t, err, ErrNotTokenOwner)

	_, err = m.engine.ListNFT(sellerAddr, nftAddr, 99, oneEther)
	assert.ErrorIs(t, err, ErrNotTokenOwner)
}

func TestListNFTWithoutApproval(t *testing.T) {
	m := newMarket(t)

	tokenId, err := m.collection.OwnerMint(ownerAddr, sellerAddr, "ipfs://QmToken")
	require.NoError(t, err)

	_, err = m.engine.ListNFT(sellerAddr, nftAddr, tokenId, oneEther)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, 0, len(m.engine.GetActiveListings()))
}

func TestListNFTUnknownContract(t *testing.T) {
	m := newMarket(t)

	_, err := m.engine.ListNFT(sellerAddr, "0xunknown", 0, oneEther)
	assert.ErrorIs(t, err, token.ErrUnknownContract)
}

func TestBuyNFTDistributesFunds(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	m.bank.Deposit(buyerAddr, twoEther)

	require.NoError(t, m.engine.BuyNFT(buyerAddr, listingId, oneEther))

	// 2.5% platform cut, remainder to the seller.
	assert.Equal(t, uint256.NewInt(975_000_000_000_000_000), m.bank.BalanceOf(sellerAddr))
	assert.Equal(t, uint256.NewInt(25_000_000_000_000_000), m.engine.PlatformBalance())
	assert.Equal(t, oneEther, m.bank.BalanceOf(buyerAddr))

	listing, ok := m.engine.Listing(listingId)
	require.True(t, ok)
	assert.False(t, listing.IsActive)
	assert.Equal(t, entity.ListingSold, listing.State)
	assert.Equal(t, 0, len(m.engine.GetActiveListings()))

	owner, err := m.collection.OwnerOf(listing.TokenId)
	require.NoError(t, err)
	assert.Equal(t, buyerAddr, owner)
}

func TestBuyNFTRefundsOverpayment(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	m.bank.Deposit(buyerAddr, twoEther)

	require.NoError(t, m.engine.BuyNFT(buyerAddr, listingId, oneEtherHalf))

	// Overpayment above the price comes straight back to the buyer.
	assert.Equal(t, oneEther, m.bank.BalanceOf(buyerAddr))
	assert.Equal(t, uint256.NewInt(975_000_000_000_000_000), m.bank.BalanceOf(sellerAddr))
	assert.Equal(t, uint256.NewInt(25_000_000_000_000_000), m.engine.PlatformBalance())
}

func TestBuyNFTInsufficientPayment(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	m.bank.Deposit(buyerAddr, twoEther)

	err := m.engine.BuyNFT(buyerAddr, listingId, uint256.NewInt(999))
	assert.ErrorIs(t, err, ErrInsufficientPayment)

	err = m.engine.BuyNFT(buyerAddr, listingId, nil)
	assert.ErrorIs(t, err, ErrInsufficientPayment)

	assert.Equal(t, twoEther, m.bank.BalanceOf(buyerAddr))
}

func TestBuyNFTTwice(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	m.bank.Deposit(buyerAddr, twoEther)
	m.bank.Deposit("0xother", twoEther)

	require.NoError(t, m.engine.BuyNFT(buyerAddr, listingId, oneEther))

	// A consumed listing cannot be bought again.
	err := m.engine.BuyNFT("0xother", listingId, oneEther)
	assert.ErrorIs(t, err, ErrListingNotActive)
	assert.Equal(t, twoEther, m.bank.BalanceOf("0xother"))
}

func TestBuyNFTUnknownListing(t *testing.T) {
	m := newMarket(t)

	err := m.engine.BuyNFT(buyerAddr, 42, oneEther)
	assert.ErrorIs(t, err, ErrListingNotActive)
}

func TestBuyNFTWithoutFunds(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	err := m.engine.BuyNFT(buyerAddr, listingId, oneEther)
	assert.ErrorIs(t, err, ErrTransferFailed)

	listing, ok := m.engine.Listing(listingId)
	require.True(t, ok)
	assert.True(t, listing.IsActive)
	assert.True(t, uint256.NewInt(0).Eq(m.engine.PlatformBalance()))
}

// failingBank rejects any transfer towards one address so settlement
// failures mid-purchase can be simulated.
type failingBank struct {
	ledger.Bank
	failTo string
}

func (b failingBank) Transfer(from, to string, amount *uint256.Int) error {
	if to == b.failTo {
		return errors.New("transfer rejected")
	}

	return b.Bank.Transfer(from, to, amount)
}

func TestBuyNFTRevertsWhenSellerPayoutFails(t *testing.T) {
	access := auth.NewOwnable(ownerAddr)
	inner := ledger.NewBank()
	bank := failingBank{Bank: inner, failTo: sellerAddr}

	collection := token.NewCollection(nftAddr, "Test Collection", "TST", access, inner, uint256.NewInt(1), 100)
	directory := token.NewDirectory()
	directory.Add(collection.Address(), collection)

	engine := NewEngine(marketAddr, access, bank, directory)

	tokenId, err := collection.OwnerMint(ownerAddr, sellerAddr, "ipfs://QmToken")
	require.NoError(t, err)
	require.NoError(t, collection.Approve(sellerAddr, marketAddr, tokenId))

	listingId, err := engine.ListNFT(sellerAddr, nftAddr, tokenId, oneEther)
	require.NoError(t, err)

	inner.Deposit(buyerAddr, twoEther)

	err = engine.BuyNFT(buyerAddr, listingId, oneEther)
	assert.ErrorIs(t, err, ErrTransferFailed)

	// Nothing moved and the listing is back on the market.
	assert.Equal(t, twoEther, inner.BalanceOf(buyerAddr))
	assert.True(t, uint256.NewInt(0).Eq(inner.BalanceOf(sellerAddr)))
	assert.True(t, uint256.NewInt(0).Eq(engine.PlatformBalance()))

	listing, ok := engine.Listing(listingId)
	require.True(t, ok)
	assert.True(t, listing.IsActive)
	assert.Equal(t, entity.ListingActive, listing.State)
	assert.Equal(t, []uint64{listingId}, engine.GetActiveListings())

	owner, err := collection.OwnerOf(tokenId)
	require.NoError(t, err)
	assert.Equal(t, marketAddr, owner)
}

// flakyRegistry rejects transfers towards one address so a failed token
// delivery can be simulated.
type flakyRegistry struct {
	token.Registry
	failTo string
}

func (r flakyRegistry) TransferFrom(caller, from, to string, tokenId uint64) error {
	if to == r.failTo {
		return errors.New("transfer rejected")
	}

	return r.Registry.TransferFrom(caller, from, to, tokenId)
}

func TestBuyNFTRevertsWhenTokenDeliveryFails(t *testing.T) {
	access := auth.NewOwnable(ownerAddr)
	bank := ledger.NewBank()

	collection := token.NewCollection(nftAddr, "Test Collection", "TST", access, bank, uint256.NewInt(1), 100)
	directory := token.NewDirectory()
	directory.Add(collection.Address(), flakyRegistry{Registry: collection, failTo: buyerAddr})

	engine := NewEngine(marketAddr, access, bank, directory)

	tokenId, err := collection.OwnerMint(ownerAddr, sellerAddr, "ipfs://QmToken")
	require.NoError(t, err)
	require.NoError(t, collection.Approve(sellerAddr, marketAddr, tokenId))

	listingId, err := engine.ListNFT(sellerAddr, nftAddr, tokenId, oneEther)
	require.NoError(t, err)

	bank.Deposit(buyerAddr, twoEther)

	err = engine.BuyNFT(buyerAddr, listingId, oneEther)
	assert.ErrorIs(t, err, ErrTransferFailed)

	// Seller proceeds are clawed back and the payment returned in full.
	assert.Equal(t, twoEther, bank.BalanceOf(buyerAddr))
	assert.True(t, uint256.NewInt(0).Eq(bank.BalanceOf(sellerAddr)))
	assert.True(t, uint256.NewInt(0).Eq(engine.PlatformBalance()))

	listing, ok := engine.Listing(listingId)
	require.True(t, ok)
	assert.True(t, listing.IsActive)

	owner, err := collection.OwnerOf(tokenId)
	require.NoError(t, err)
	assert.Equal(t, marketAddr, owner)
}

func TestCancelListing(t *testing.T) {
	m := newMarket(t)

	first := m.listToken(t, oneEther)
	second := m.listToken(t, oneEther)
	third := m.listToken(t, oneEther)

	require.NoError(t, m.engine.CancelListing(sellerAddr, second))

	// The cancelled id leaves the index; survivor order is unspecified.
	assert.ElementsMatch(t, []uint64{first, third}, m.engine.GetActiveListings())

	listing, ok := m.engine.Listing(second)
	require.True(t, ok)
	assert.False(t, listing.IsActive)
	assert.Equal(t, entity.ListingCancelled, listing.State)

	// The escrowed token goes back to the seller.
	owner, err := m.collection.OwnerOf(listing.TokenId)
	require.NoError(t, err)
	assert.Equal(t, sellerAddr, owner)
}

func TestCancelListingNotSeller(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	err := m.engine.CancelListing(buyerAddr, listingId)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.True(t, m.engine.GetActiveListings()[0] == listingId)
}

func TestCancelListingInactive(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	require.NoError(t, m.engine.CancelListing(sellerAddr, listingId))

	err := m.engine.CancelListing(sellerAddr, listingId)
	assert.ErrorIs(t, err, ErrListingNotActive)

	err = m.engine.CancelListing(sellerAddr, 42)
	assert.ErrorIs(t, err, ErrListingNotActive)
}

func TestUpdatePrice(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	require.NoError(t, m.engine.UpdatePrice(sellerAddr, listingId, twoEther))

	listing, ok := m.engine.Listing(listingId)
	require.True(t, ok)
	assert.Equal(t, twoEther, listing.Price)
	assert.Equal(t, twoEther.Dec(), listing.PriceUnits)

	// The new price drives settlement.
	m.bank.Deposit(buyerAddr, twoEther)
	require.NoError(t, m.engine.BuyNFT(buyerAddr, listingId, twoEther))
	assert.Equal(t, uint256.NewInt(50_000_000_000_000_000), m.engine.PlatformBalance())
}

func TestUpdatePriceNotSeller(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	err := m.engine.UpdatePrice(buyerAddr, listingId, twoEther)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestUpdatePriceInactive(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	require.NoError(t, m.engine.CancelListing(sellerAddr, listingId))

	err := m.engine.UpdatePrice(sellerAddr, listingId, twoEther)
	assert.ErrorIs(t, err, ErrListingNotActive)

	err = m.engine.UpdatePrice(sellerAddr, 42, twoEther)
	assert.ErrorIs(t, err, ErrListingNotActive)
}

func TestUpdatePriceZero(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	err := m.engine.UpdatePrice(sellerAddr, listingId, uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidPrice)

	listing, _ := m.engine.Listing(listingId)
	assert.Equal(t, oneEther, listing.Price)
}

func TestWithdrawFunds(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	m.bank.Deposit(buyerAddr, oneEther)
	require.NoError(t, m.engine.BuyNFT(buyerAddr, listingId, oneEther))

	amount, err := m.engine.WithdrawFunds(ownerAddr)
	require.NoError(t, err)

	assert.Equal(t, uint256.NewInt(25_000_000_000_000_000), amount)
	assert.Equal(t, uint256.NewInt(25_000_000_000_000_000), m.bank.BalanceOf(ownerAddr))
	assert.True(t, uint256.NewInt(0).Eq(m.engine.PlatformBalance()))
}

func TestWithdrawFundsEmptyBalance(t *testing.T) {
	m := newMarket(t)

	amount, err := m.engine.WithdrawFunds(ownerAddr)
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestWithdrawFundsNotOwner(t *testing.T) {
	m := newMarket(t)

	_, err := m.engine.WithdrawFunds(buyerAddr)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestListingSnapshotIsIsolated(t *testing.T) {
	m := newMarket(t)
	listingId := m.listToken(t, oneEther)

	listing, ok := m.engine.Listing(listingId)
	require.True(t, ok)

	listing.Price.SetUint64(1)
	listing.IsActive = false

	fresh, _ := m.engine.Listing(listingId)
	assert.Equal(t, oneEther, fresh.Price)
	assert.True(t, fresh.IsActive)
}
