package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mintbay/nft-marketplace/internal/log"
	"go.uber.org/zap"
)

type Config struct {
	Env     string
	Network string
	Index   string
	Debug   bool

	ApiPort    string
	HealthPort string
	LogPath    string

	Owner          string
	MarketAddress  string
	TokenAddress   string
	CollectionName string
	CollectionSym  string
	MintPrice      string
	MaxSupply      uint

	MetadataRetries int
	MetadataTimeout int
	IpfsHosts       []string

	AmqpUri string

	ElasticSearch ElasticSearchConfig
	Aws           AwsConfig
}

type AwsConfig struct {
	AccessKey string
	SecretKey string
	Token     string
	Region    string
}

type ElasticSearchConfig struct {
	Enabled          bool
	Hosts            []string
	Sniff            bool
	HealthCheck      bool
	Debug            bool
	Aws              bool
	Username         string
	Password         string
	MappingDir       string
	BulkPersistCount int
	Refresh          string
}

var ipfsHosts = []string{
	"https://gateway.pinata.cloud",
	"https://cloudflare-ipfs.com",
	"https://gateway.ipfs.io",
}

func Init(app string) {
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Unable to load .env, using environment")
	}

	initLogger(app)
}

func initLogger(app string) {
	log.NewLogger(fmt.Sprintf("%s/%s.log", Get().LogPath, app), Get().Debug)
}

func Get() *Config {
	return &Config{
		Env:             getString("ENV", ""),
		Network:         getString("NETWORK", "mainnet"),
		Index:           getString("INDEX_NAME", "market"),
		Debug:           getBool("DEBUG", false),
		ApiPort:         getString("API_PORT", "8080"),
		HealthPort:      getString("HEALTH_PORT", "8081"),
		LogPath:         getString("LOG_PATH", "./var/logs"),
		Owner:           getString("PLATFORM_OWNER", ""),
		MarketAddress:   getString("MARKET_ADDRESS", "0x6d61726b6574706c616365"),
		TokenAddress:    getString("TOKEN_ADDRESS", "0x636f6c6c656374696f6e"),
		CollectionName:  getString("COLLECTION_NAME", "NFT Collection"),
		CollectionSym:   getString("COLLECTION_SYMBOL", "NFT"),
		MintPrice:       getString("MINT_PRICE", "10000000000000000"),
		MaxSupply:       getUint("MAX_SUPPLY", 10000),
		MetadataRetries: getInt("METADATA_RETRIES", 3),
		MetadataTimeout: getInt("METADATA_TIMEOUT", 10),
		IpfsHosts:       getSlice("IPFS_HOSTS", ipfsHosts, ","),
		AmqpUri:         getString("AMQP_URI", ""),
		Aws: AwsConfig{
			AccessKey: getString("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getString("AWS_SECRET_KEY_ID", ""),
			Token:     getString("AWS_TOKEN", ""),
			Region:    getString("AWS_REGION", ""),
		},
		ElasticSearch: ElasticSearchConfig{
			Enabled:          getBool("ELASTIC_SEARCH_ENABLED", false),
			Hosts:            getSlice("ELASTIC_SEARCH_HOSTS", make([]string, 0), ","),
			Sniff:            getBool("ELASTIC_SEARCH_SNIFF", true),
			HealthCheck:      getBool("ELASTIC_SEARCH_HEALTH_CHECK", true),
			Debug:            getBool("ELASTIC_SEARCH_DEBUG", false),
			Aws:              getBool("ELASTIC_SEARCH_AWS", false),
			Username:         getString("ELASTIC_SEARCH_USERNAME", ""),
			Password:         getString("ELASTIC_SEARCH_PASSWORD", ""),
			MappingDir:       getString("ELASTIC_SEARCH_MAPPING_DIR", "/data/mappings"),
			BulkPersistCount: getInt("ELASTIC_SEARCH_BULK_PERSIST_COUNT", 300),
			Refresh:          getString("ELASTIC_SEARCH_REFRESH", "wait_for"),
		},
	}
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, _, err := big.ParseFloat(valStr, 10, 0, big.ToNearestEven)
	if err != nil {
		return defaultValue
	}

	intVal, _ := val.Int64()
	return int(intVal)
}

func getUint(key string, defaultValue uint) uint {
	return uint(getInt(key, int(defaultValue)))
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}

func getSlice(key string, defaultVal []string, sep string) []string {
	valStr := getString(key, "")
	if valStr == "" {
		return defaultVal
	}

	return strings.Split(valStr, sep)
}
