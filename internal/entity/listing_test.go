package entity

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListing(t *testing.T) {
	price := uint256.NewInt(1_000_000_000_000_000_000)

	listing := NewListing(3, "0xseller", "0xnft", 7, price)

	assert.True(t, listing.IsActive)
	assert.Equal(t, ListingActive, listing.State)
	assert.Equal(t, "1000000000000000000", listing.PriceUnits)
	assert.Equal(t, "listing-3", listing.Slug())

	// The listing keeps its own copy of the price.
	price.SetUint64(1)
	assert.Equal(t, uint256.NewInt(1_000_000_000_000_000_000), listing.Price)
}

func TestListingMarshalsPriceAsUnits(t *testing.T) {
	listing := NewListing(3, "0xseller", "0xnft", 7, uint256.NewInt(500))

	body, err := json.Marshal(listing)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, "500", decoded["price"])
	assert.Equal(t, "active", decoded["state"])
	assert.NotContains(t, decoded, "Price")
}
