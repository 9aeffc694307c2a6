package repository

import (
	"encoding/json"
	"errors"

	"github.com/mintbay/nft-marketplace/internal/elastic_search"
	"github.com/mintbay/nft-marketplace/internal/entity"
	"github.com/olivere/elastic/v7"
)

var (
	ErrListingNotFound = errors.New("listing not found")
)

type ListingRepository interface {
	GetListing(listingId uint64) (entity.Listing, error)
	GetActiveListings(size, page int) ([]entity.Listing, int64, error)
	GetListingsBySeller(seller string, size, page int) ([]entity.Listing, int64, error)
}

type listingRepository struct {
	elastic elastic_search.Index
}

func NewListingRepository(elastic elastic_search.Index) ListingRepository {
	return listingRepository{elastic}
}

func (r listingRepository) GetListing(listingId uint64) (entity.Listing, error) {
	query := elastic.NewTermQuery("id", listingId)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingIndex.Get()).
		Query(query).
		Size(1))

	return r.findOne(result, err)
}

func (r listingRepository) GetActiveListings(size, page int) ([]entity.Listing, int64, error) {
	query := elastic.NewTermQuery("isActive", true)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingIndex.Get()).
		Query(query).
		Sort("id", true).
		Size(size).
		From((page - 1) * size))

	return r.findMany(result, err)
}

func (r listingRepository) GetListingsBySeller(seller string, size, page int) ([]entity.Listing, int64, error) {
	query := elastic.NewTermQuery("seller.keyword", seller)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingIndex.Get()).
		Query(query).
		Sort("id", true).
		Size(size).
		From((page - 1) * size))

	return r.findMany(result, err)
}

func (r listingRepository) findOne(results *elastic.SearchResult, err error) (entity.Listing, error) {
	if err != nil {
		return entity.Listing{}, err
	}

	if len(results.Hits.Hits) == 0 {
		return entity.Listing{}, ErrListingNotFound
	}

	var listing entity.Listing
	hit := results.Hits.Hits[0]
	err = json.Unmarshal(hit.Source, &listing)

	return listing, err
}

func (r listingRepository) findMany(results *elastic.SearchResult, err error) ([]entity.Listing, int64, error) {
	listings := make([]entity.Listing, 0)

	if err != nil {
		return listings, 0, err
	}

	for _, hit := range results.Hits.Hits {
		var listing entity.Listing
		if err := json.Unmarshal(hit.Source, &listing); err == nil {
			listings = append(listings, listing)
		}
	}

	return listings, results.TotalHits(), nil
}
