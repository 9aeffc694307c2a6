package di

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/mintbay/nft-marketplace/internal/api"
	"github.com/mintbay/nft-marketplace/internal/archive"
	"github.com/mintbay/nft-marketplace/internal/auth"
	"github.com/mintbay/nft-marketplace/internal/config"
	"github.com/mintbay/nft-marketplace/internal/elastic_search"
	"github.com/mintbay/nft-marketplace/internal/ledger"
	"github.com/mintbay/nft-marketplace/internal/marketplace"
	"github.com/mintbay/nft-marketplace/internal/messenger"
	"github.com/mintbay/nft-marketplace/internal/metadata"
	"github.com/mintbay/nft-marketplace/internal/repository"
	"github.com/mintbay/nft-marketplace/internal/token"
	"github.com/patrickmn/go-cache"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

var Definitions = []di.Def{
	{
		Name: "elastic",
		Build: func(ctn di.Container) (interface{}, error) {
			elastic, err := elastic_search.New()
			if err != nil {
				zap.L().With(zap.Error(err)).Fatal("Failed to start ES")
			}

			return elastic, nil
		},
	},
	{
		Name: "cache",
		Build: func(ctn di.Container) (interface{}, error) {
			return cache.New(5*time.Minute, 10*time.Minute), nil
		},
	},
	{
		Name: "bank",
		Build: func(ctn di.Container) (interface{}, error) {
			return ledger.NewBank(), nil
		},
	},
	{
		Name: "access",
		Build: func(ctn di.Container) (interface{}, error) {
			return auth.NewOwnable(config.Get().Owner), nil
		},
	},
	{
		Name: "directory",
		Build: func(ctn di.Container) (interface{}, error) {
			return token.NewDirectory(), nil
		},
	},
	{
		Name: "collection",
		Build: func(ctn di.Container) (interface{}, error) {
			mintPrice, err := uint256.FromDecimal(config.Get().MintPrice)
			if err != nil {
				zap.L().With(zap.Error(err)).Fatal("Invalid mint price")
			}

			collection := token.NewCollection(
				config.Get().TokenAddress,
				config.Get().CollectionName,
				config.Get().CollectionSym,
				ctn.Get("access").(auth.AccessControl),
				ctn.Get("bank").(ledger.Bank),
				mintPrice,
				uint32(config.Get().MaxSupply),
			)

			directory := ctn.Get("directory").(token.Directory)
			directory.Add(collection.Address(), collection)

			return collection, nil
		},
	},
	{
		Name: "engine",
		Build: func(ctn di.Container) (interface{}, error) {
			return marketplace.NewEngine(
				config.Get().MarketAddress,
				ctn.Get("access").(auth.AccessControl),
				ctn.Get("bank").(ledger.Bank),
				ctn.Get("directory").(token.Directory),
			), nil
		},
	},
	{
		Name: "listing.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewListingRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "action.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewActionRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "metadata",
		Build: func(ctn di.Container) (interface{}, error) {
			return metadata.NewMetadataService(metadata.NewClient(), ctn.Get("cache").(*cache.Cache)), nil
		},
	},
	{
		Name: "messenger",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewMessenger(config.Get().AmqpUri), nil
		},
	},
	{
		Name: "publisher",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewPublisher(ctn.Get("messenger").(messenger.MessageService)), nil
		},
	},
	{
		Name: "archiver",
		Build: func(ctn di.Container) (interface{}, error) {
			return archive.NewArchiver(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "api",
		Build: func(ctn di.Container) (interface{}, error) {
			var listingRepo repository.ListingRepository
			var actionRepo repository.ActionRepository
			if config.Get().ElasticSearch.Enabled {
				listingRepo = ctn.Get("listing.repo").(repository.ListingRepository)
				actionRepo = ctn.Get("action.repo").(repository.ActionRepository)
			}

			return api.NewServer(
				ctn.Get("engine").(*marketplace.Engine),
				ctn.Get("collection").(*token.Collection),
				ctn.Get("metadata").(metadata.Service),
				listingRepo,
				actionRepo,
			), nil
		},
	},
}

func NewContainer() di.Container {
	builder, err := di.NewBuilder()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to create DI builder")
	}

	if err := builder.Add(Definitions...); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to register DI definitions")
	}

	return builder.Build()
}
