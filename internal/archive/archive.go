package archive

import (
	"errors"
	"sync/atomic"

	"github.com/mintbay/nft-marketplace/internal/dev"
	"github.com/mintbay/nft-marketplace/internal/elastic_search"
	"github.com/mintbay/nft-marketplace/internal/entity"
	"github.com/mintbay/nft-marketplace/internal/event"
	"go.uber.org/zap"
)

// Archiver projects committed engine events into the elastic indices: the
// listing table mirror and the append-only action history. It is a pure
// read-side consumer; the engine's in-memory state stays canonical.
type Archiver interface {
	Subscribe()
	OnMinted(msg interface{})
	OnListed(msg interface{})
	OnSold(msg interface{})
	OnCancelled(msg interface{})
	OnPriceUpdated(msg interface{})
	OnWithdrawn(msg interface{})
}

type archiver struct {
	elastic elastic_search.Index
	seq     *uint64
}

func NewArchiver(elastic elastic_search.Index) Archiver {
	return archiver{elastic: elastic, seq: new(uint64)}
}

func (a archiver) Subscribe() {
	event.AddEventListener(event.TokenMintedEvent, a.OnMinted)
	event.AddEventListener(event.ListedEvent, a.OnListed)
	event.AddEventListener(event.SoldEvent, a.OnSold)
	event.AddEventListener(event.CancelledEvent, a.OnCancelled)
	event.AddEventListener(event.PriceUpdatedEvent, a.OnPriceUpdated)
	event.AddEventListener(event.FundsWithdrawnEvent, a.OnWithdrawn)
}

func (a archiver) OnMinted(msg interface{}) {
	token, ok := msg.(entity.Token)
	if !ok {
		a.badPayload("OnMinted", msg)
		return
	}

	a.elastic.AddIndexRequest(elastic_search.TokenIndex.Get(), token)
	a.elastic.AddIndexRequest(elastic_search.ActionIndex.Get(), entity.MarketAction{
		Action:   entity.MintAction,
		Contract: token.Contract,
		TokenId:  token.TokenId,
		To:       token.Owner,
		Seq:      a.next(),
	})
	a.elastic.BatchPersist()
}

func (a archiver) OnListed(msg interface{}) {
	listing, ok := msg.(entity.Listing)
	if !ok {
		a.badPayload("OnListed", msg)
		return
	}

	a.elastic.AddIndexRequest(elastic_search.ListingIndex.Get(), listing)
	a.elastic.AddIndexRequest(elastic_search.ActionIndex.Get(), entity.MarketAction{
		Action:    entity.ListingAction,
		ListingId: listing.Id,
		Contract:  listing.TokenContract,
		TokenId:   listing.TokenId,
		From:      listing.Seller,
		Cost:      listing.PriceUnits,
		Seq:       a.next(),
	})
	a.elastic.BatchPersist()
}

func (a archiver) OnSold(msg interface{}) {
	sale, ok := msg.(entity.Sale)
	if !ok {
		a.badPayload("OnSold", msg)
		return
	}

	a.elastic.AddUpdateRequest(elastic_search.ListingIndex.Get(), sale.Listing)
	a.elastic.AddIndexRequest(elastic_search.ActionIndex.Get(), entity.MarketAction{
		Action:    entity.SaleAction,
		ListingId: sale.Listing.Id,
		Contract:  sale.Listing.TokenContract,
		TokenId:   sale.Listing.TokenId,
		From:      sale.Listing.Seller,
		To:        sale.Buyer,
		Cost:      sale.Cost,
		Fee:       sale.Fee,
		Seq:       a.next(),
	})
	a.elastic.BatchPersist()
}

func (a archiver) OnCancelled(msg interface{}) {
	listing, ok := msg.(entity.Listing)
	if !ok {
		a.badPayload("OnCancelled", msg)
		return
	}

	a.elastic.AddUpdateRequest(elastic_search.ListingIndex.Get(), listing)
	a.elastic.AddIndexRequest(elastic_search.ActionIndex.Get(), entity.MarketAction{
		Action:    entity.DelistingAction,
		ListingId: listing.Id,
		Contract:  listing.TokenContract,
		TokenId:   listing.TokenId,
		From:      listing.Seller,
		Seq:       a.next(),
	})
	a.elastic.BatchPersist()
}

func (a archiver) OnPriceUpdated(msg interface{}) {
	listing, ok := msg.(entity.Listing)
	if !ok {
		a.badPayload("OnPriceUpdated", msg)
		return
	}

	a.elastic.AddUpdateRequest(elastic_search.ListingIndex.Get(), listing)
	a.elastic.AddIndexRequest(elastic_search.ActionIndex.Get(), entity.MarketAction{
		Action:    entity.PriceUpdateAction,
		ListingId: listing.Id,
		Contract:  listing.TokenContract,
		TokenId:   listing.TokenId,
		From:      listing.Seller,
		Cost:      listing.PriceUnits,
		Seq:       a.next(),
	})
	a.elastic.BatchPersist()
}

func (a archiver) OnWithdrawn(msg interface{}) {
	withdrawal, ok := msg.(entity.Withdrawal)
	if !ok {
		a.badPayload("OnWithdrawn", msg)
		return
	}

	a.elastic.AddIndexRequest(elastic_search.ActionIndex.Get(), entity.MarketAction{
		Action: entity.WithdrawalAction,
		To:     withdrawal.To,
		Cost:   withdrawal.Amount,
		Seq:    a.next(),
	})
	a.elastic.BatchPersist()
}

func (a archiver) next() uint64 {
	return atomic.AddUint64(a.seq, 1)
}

func (a archiver) badPayload(handler string, msg interface{}) {
	zap.L().With(
		zap.String("handler", handler),
		zap.Any("msg", msg),
	).Error("Archiver: Unexpected event payload")

	a.elastic.AddIndexRequest(
		elastic_search.ErrorIndex.Get(),
		dev.NewError("archive", handler, errors.New("unexpected event payload"), map[string]interface{}{"msg": msg}),
	)
}
