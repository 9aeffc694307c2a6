package marketplace

import (
	"github.com/holiman/uint256"
	"github.com/mintbay/nft-marketplace/internal/entity"
)

// ListingStore is the canonical append-only listing table. Ids are dense,
// assigned in creation order starting at zero, and never reused; consumed
// listings stay in the table with their active flag off.
type ListingStore struct {
	listings []*entity.Listing
}

func NewListingStore() *ListingStore {
	return &ListingStore{listings: make([]*entity.Listing, 0)}
}

// Append stores a new active listing and returns its id.
func (s *ListingStore) Append(seller, tokenContract string, tokenId uint64, price *uint256.Int) *entity.Listing {
	listing := entity.NewListing(uint64(len(s.listings)), seller, tokenContract, tokenId, price)
	s.listings = append(s.listings, &listing)

	return &listing
}

func (s *ListingStore) Get(listingId uint64) (*entity.Listing, bool) {
	if listingId >= uint64(len(s.listings)) {
		return nil, false
	}

	return s.listings[listingId], true
}

func (s *ListingStore) Len() int {
	return len(s.listings)
}
