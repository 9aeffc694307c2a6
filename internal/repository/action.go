package repository

import (
	"context"
	"encoding/json"

	"github.com/mintbay/nft-marketplace/internal/elastic_search"
	"github.com/mintbay/nft-marketplace/internal/entity"
	"github.com/olivere/elastic/v7"
)

type ActionRepository interface {
	GetActionsByToken(contract string, tokenId uint64, size, page int) ([]entity.MarketAction, int64, error)
	GetActionsByListing(listingId uint64, size, page int) ([]entity.MarketAction, int64, error)
}

type actionRepository struct {
	elastic elastic_search.Index
}

func NewActionRepository(elastic elastic_search.Index) ActionRepository {
	return actionRepository{elastic}
}

func (r actionRepository) GetActionsByToken(contract string, tokenId uint64, size, page int) ([]entity.MarketAction, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("contract.keyword", contract),
		elastic.NewTermQuery("tokenId", tokenId),
	)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.ActionIndex.Get()).
		Query(query).
		Sort("seq", true).
		Size(size).
		From((page - 1) * size))

	return r.findMany(result, err)
}

func (r actionRepository) GetActionsByListing(listingId uint64, size, page int) ([]entity.MarketAction, int64, error) {
	query := elastic.NewTermQuery("listingId", listingId)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.ActionIndex.Get()).
		Query(query).
		Sort("seq", true).
		Size(size).
		From((page - 1) * size))

	return r.findMany(result, err)
}

func (r actionRepository) findMany(results *elastic.SearchResult, err error) ([]entity.MarketAction, int64, error) {
	actions := make([]entity.MarketAction, 0)

	if err != nil {
		return actions, 0, err
	}

	for _, hit := range results.Hits.Hits {
		var action entity.MarketAction
		if err := json.Unmarshal(hit.Source, &action); err == nil {
			actions = append(actions, action)
		}
	}

	return actions, results.TotalHits(), nil
}

func search(service *elastic.SearchService) (*elastic.SearchResult, error) {
	return service.Do(context.Background())
}
