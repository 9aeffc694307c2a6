package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mintbay/nft-marketplace/internal/config"
	"github.com/mintbay/nft-marketplace/internal/entity"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrNoSuchMetadata   = errors.New("metadata not available")
	ErrBadGatewayStatus = errors.New("bad gateway status")
)

// Service fetches a token's metadata JSON from its tokenURI. ipfs:// uris
// are tried against each configured gateway in turn; successful fetches
// are cached.
type Service interface {
	GetMetadata(token entity.Token) (map[string]interface{}, error)
}

type service struct {
	client *retryablehttp.Client
	cache  *cache.Cache
}

func NewMetadataService(client *retryablehttp.Client, cache *cache.Cache) Service {
	return service{client, cache}
}

func (s service) GetMetadata(token entity.Token) (map[string]interface{}, error) {
	if cached, found := s.cache.Get(token.Slug()); found {
		return cached.(map[string]interface{}), nil
	}

	metadataUri, err := token.MetadataUri()
	if err != nil {
		return nil, err
	}

	for _, uri := range s.resolve(metadataUri) {
		md, err := s.fetch(uri)
		if err != nil {
			zap.L().With(
				zap.Error(err),
				zap.String("uri", uri),
				zap.Uint64("tokenId", token.TokenId),
			).Debug("Metadata: Fetch failed")
			continue
		}

		s.cache.Set(token.Slug(), md, cache.DefaultExpiration)
		return md, nil
	}

	return nil, ErrNoSuchMetadata
}

func (s service) resolve(metadataUri string) []string {
	if !strings.HasPrefix(metadataUri, "ipfs://") {
		return []string{metadataUri}
	}

	path := strings.TrimPrefix(metadataUri, "ipfs://")

	uris := make([]string, 0, len(config.Get().IpfsHosts))
	for _, host := range config.Get().IpfsHosts {
		uris = append(uris, fmt.Sprintf("%s/ipfs/%s", host, path))
	}

	return uris
}

func (s service) fetch(uri string) (map[string]interface{}, error) {
	resp, err := s.client.Get(uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%w: %s", ErrBadGatewayStatus, resp.Status)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	var md map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &md); err != nil {
		return nil, err
	}

	return md, nil
}

// NewClient builds the retrying http client used for gateway fetches.
func NewClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = config.Get().MetadataRetries
	client.HTTPClient.Timeout = time.Duration(config.Get().MetadataTimeout) * time.Second
	client.Logger = nil

	return client
}
