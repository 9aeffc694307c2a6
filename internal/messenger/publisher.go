package messenger

import (
	"encoding/json"

	"github.com/mintbay/nft-marketplace/internal/event"
	"go.uber.org/zap"
)

// Publisher forwards committed market events onto the market.events queue.
type Publisher struct {
	service MessageService
}

func NewPublisher(service MessageService) Publisher {
	return Publisher{service}
}

func (p Publisher) Subscribe() {
	for _, t := range []event.Type{
		event.TokenMintedEvent,
		event.ListedEvent,
		event.SoldEvent,
		event.CancelledEvent,
		event.PriceUpdatedEvent,
		event.FundsWithdrawnEvent,
	} {
		event.AddEventListener(t, p.publish(t))
	}
}

func (p Publisher) publish(eventType event.Type) func(msg interface{}) {
	return func(msg interface{}) {
		body, err := json.Marshal(map[string]interface{}{
			"type":    string(eventType),
			"payload": msg,
		})
		if err != nil {
			zap.L().With(zap.Error(err), zap.String("type", string(eventType))).
				Error("Publisher: Failed to marshal event")
			return
		}

		if err := p.service.SendMessage(MarketEvents, body); err != nil {
			zap.L().With(zap.Error(err), zap.String("type", string(eventType))).
				Error("Publisher: Failed to publish event")
		}
	}
}
