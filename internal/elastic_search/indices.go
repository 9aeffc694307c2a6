package elastic_search

import (
	"fmt"

	"github.com/mintbay/nft-marketplace/internal/config"
)

type Indices string

var (
	ListingIndex Indices = "listing"
	ActionIndex  Indices = "action"
	TokenIndex   Indices = "token"
	ErrorIndex   Indices = "error"
)

// Get prefixes the index with the configured network and namespace.
func (i *Indices) Get() string {
	return fmt.Sprintf("%s.%s.%s", config.Get().Network, config.Get().Index, string(*i))
}

func All() []Indices {
	return []Indices{
		ListingIndex,
		ActionIndex,
		TokenIndex,
		ErrorIndex,
	}
}
