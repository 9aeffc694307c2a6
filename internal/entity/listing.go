package entity

import (
	"fmt"

	"github.com/gosimple/slug"
	"github.com/holiman/uint256"
)

type ListingState string

const (
	ListingActive    ListingState = "active"
	ListingSold      ListingState = "sold"
	ListingCancelled ListingState = "cancelled"
)

// Listing is the canonical record of a sale offer. Records are never
// deleted; a consumed listing keeps its row with IsActive flipped off and
// the terminal state recorded.
type Listing struct {
	Id            uint64       `json:"id"`
	Seller        string       `json:"seller"`
	TokenContract string       `json:"tokenContract"`
	TokenId       uint64       `json:"tokenId"`
	Price         *uint256.Int `json:"-"`
	PriceUnits    string       `json:"price"`
	IsActive      bool         `json:"isActive"`
	State         ListingState `json:"state"`
}

func NewListing(id uint64, seller, tokenContract string, tokenId uint64, price *uint256.Int) Listing {
	return Listing{
		Id:            id,
		Seller:        seller,
		TokenContract: tokenContract,
		TokenId:       tokenId,
		Price:         price.Clone(),
		PriceUnits:    price.Dec(),
		IsActive:      true,
		State:         ListingActive,
	}
}

func (l Listing) Slug() string {
	return CreateListingSlug(l.Id)
}

func CreateListingSlug(listingId uint64) string {
	return slug.Make(fmt.Sprintf("listing-%d", listingId))
}
