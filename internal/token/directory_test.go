package token

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/mintbay/nft-marketplace/internal/auth"
	"github.com/mintbay/nft-marketplace/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory(t *testing.T) {
	directory := NewDirectory()

	_, err := directory.Get(nftAddr)
	assert.ErrorIs(t, err, ErrUnknownContract)

	collection := NewCollection(nftAddr, "Test Collection", "TST", auth.NewOwnable(ownerAddr), ledger.NewBank(), uint256.NewInt(1), 10)
	directory.Add(collection.Address(), collection)

	registry, err := directory.Get(nftAddr)
	require.NoError(t, err)
	assert.Same(t, collection, registry)
}
