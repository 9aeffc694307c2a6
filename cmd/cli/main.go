package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/mintbay/nft-marketplace/internal/config"
	"github.com/mintbay/nft-marketplace/internal/config/di"
	"github.com/mintbay/nft-marketplace/internal/messenger"
	"github.com/mintbay/nft-marketplace/internal/repository"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	listingRepo      repository.ListingRepository
	actionRepo       repository.ActionRepository
	messengerService messenger.MessageService
)

func main() {
	config.Init("cli")

	container := di.NewContainer()
	listingRepo = container.Get("listing.repo").(repository.ListingRepository)
	actionRepo = container.Get("action.repo").(repository.ActionRepository)
	messengerService = container.Get("messenger").(messenger.MessageService)

	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:   "listings",
				Usage:  "Show the indexed active listings",
				Action: showListings,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 25, Usage: "Page size"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
				},
			},
			{
				Name:   "actions",
				Usage:  "Show the action history for a token",
				Action: showActions,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Value: "", Usage: "Token contract address"},
				},
			},
			{
				Name:   "queueSize",
				Usage:  "Show the market events queue size",
				Action: showQueueSize,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start CLI")
	}
}

func showListings(c *cli.Context) error {
	listings, total, err := listingRepo.GetActiveListings(c.Int("size"), c.Int("page"))
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Could not get active listings")
		return err
	}

	zap.S().Infof("Active listings: %d", total)
	for _, listing := range listings {
		body, _ := json.Marshal(listing)
		fmt.Println(string(body))
	}

	return nil
}

func showActions(c *cli.Context) error {
	contract := c.String("contract")
	if contract == "" {
		contract = config.Get().TokenAddress
	}

	tokenId, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		zap.L().Error("No token id provided")
		return nil
	}

	actions, total, err := actionRepo.GetActionsByToken(contract, tokenId, 100, 1)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Could not get token actions")
		return err
	}

	zap.S().Infof("Actions for token %d: %d", tokenId, total)
	for _, action := range actions {
		body, _ := json.Marshal(action)
		fmt.Println(string(body))
	}

	return nil
}

func showQueueSize(c *cli.Context) error {
	size, err := messengerService.GetQueueSize(messenger.MarketEvents)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Could not get the queue size")
		return err
	}

	zap.S().Infof("Queue %s: %d messages", messenger.MarketEvents, *size)

	return nil
}
