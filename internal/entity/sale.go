package entity

// Sale captures one consumed listing together with the fund split that
// settled it.
type Sale struct {
	Listing  Listing `json:"listing"`
	Buyer    string  `json:"buyer"`
	Cost     string  `json:"cost"`
	Fee      string  `json:"fee"`
	Proceeds string  `json:"proceeds"`
	Refund   string  `json:"refund"`
}

func (s Sale) Slug() string {
	return CreateListingSlug(s.Listing.Id) + "-sale"
}

// Withdrawal records a platform or mint-revenue payout to the owner.
type Withdrawal struct {
	Source string `json:"source"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}
