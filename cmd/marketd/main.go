package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mintbay/nft-marketplace/internal/api"
	"github.com/mintbay/nft-marketplace/internal/archive"
	"github.com/mintbay/nft-marketplace/internal/config"
	"github.com/mintbay/nft-marketplace/internal/config/di"
	"github.com/mintbay/nft-marketplace/internal/elastic_search"
	"github.com/mintbay/nft-marketplace/internal/messenger"
	"go.uber.org/zap"
)

func main() {
	config.Init("marketd")
	container := di.NewContainer()

	if config.Get().ElasticSearch.Enabled {
		container.Get("elastic").(elastic_search.Index).InstallMappings()
		container.Get("archiver").(archive.Archiver).Subscribe()
	}

	if config.Get().AmqpUri != "" {
		container.Get("publisher").(messenger.Publisher).Subscribe()
	}

	go health()

	zap.L().With(
		zap.String("port", config.Get().ApiPort),
		zap.String("market", config.Get().MarketAddress),
	).Info("Marketplace Started")

	server := container.Get("api").(api.Server)
	if err := http.ListenAndServe(":"+config.Get().ApiPort, server.Router()); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start marketplace")
	}
}

func health() {
	if err := http.ListenAndServe(":"+config.Get().HealthPort, router()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health check")
	}
}

func router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	return r
}
