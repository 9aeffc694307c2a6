package entity

import (
	"crypto/md5"
	"fmt"
)

// MarketAction is the immutable history row archived for every committed
// operation. Sold and cancelled listings are indistinguishable in the
// listing table's IsActive flag alone; the action stream keeps them apart.
type MarketAction struct {
	Action    ActionType `json:"action"`
	ListingId uint64     `json:"listingId"`
	Contract  string     `json:"contract"`
	TokenId   uint64     `json:"tokenId"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Cost      string     `json:"cost"`
	Fee       string     `json:"fee"`
	Seq       uint64     `json:"seq"`
}

type ActionType string

const (
	MintAction        ActionType = "mint"
	ListingAction     ActionType = "listing"
	SaleAction        ActionType = "sale"
	DelistingAction   ActionType = "delisting"
	PriceUpdateAction ActionType = "price-update"
	WithdrawalAction  ActionType = "withdrawal"
)

func (a MarketAction) Slug() string {
	return CreateMarketActionSlug(a.ListingId, a.Contract, a.TokenId, string(a.Action), a.Seq)
}

func CreateMarketActionSlug(listingId uint64, contract string, tokenId uint64, action string, seq uint64) string {
	data := []byte(fmt.Sprintf("action-%d-%s-%d-%s-%d", listingId, contract, tokenId, action, seq))
	return fmt.Sprintf("%x", md5.Sum(data))
}
