package event

type Type string

const (
	TokenMintedEvent    Type = "TokenMintedEvent"
	ListedEvent         Type = "ListedEvent"
	SoldEvent           Type = "SoldEvent"
	CancelledEvent      Type = "CancelledEvent"
	PriceUpdatedEvent   Type = "PriceUpdatedEvent"
	FundsWithdrawnEvent Type = "FundsWithdrawnEvent"
)
