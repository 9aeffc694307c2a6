package entity

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/gosimple/slug"
)

// Token is one minted token within a collection.
type Token struct {
	Contract string `json:"contract"`
	TokenId  uint64 `json:"tokenId"`
	Owner    string `json:"owner"`
	TokenUri string `json:"tokenUri"`
	MintedBy string `json:"mintedBy"`

	HasMetadata   bool        `json:"hasMetadata"`
	MetadataError string      `json:"metadataError"`
	Metadata      interface{} `json:"metadata"`
}

func (t Token) Slug() string {
	return CreateTokenSlug(t.TokenId, t.Contract)
}

func CreateTokenSlug(tokenId uint64, contract string) string {
	return slug.Make(fmt.Sprintf("token-%d-%s", tokenId, contract))
}

// MetadataUri resolves the location of the token's metadata document.
// ipfs:// uris and bare CIDs embedded in gateway urls are normalised to
// ipfs:// so the metadata service can pick a healthy gateway.
func (t Token) MetadataUri() (string, error) {
	metadataUri := t.TokenUri

	if ipfs := getIpfs(metadataUri); ipfs != "" {
		return ipfs, nil
	}

	if len(metadataUri) < 4 || metadataUri[:4] != "http" {
		return "", errors.New("invalid metadata uri")
	}

	return metadataUri, nil
}

func getIpfs(metadataUri string) string {
	if len(metadataUri) < 7 {
		return ""
	}

	if metadataUri[:7] == "ipfs://" {
		return metadataUri
	}

	re := regexp.MustCompile("(Qm[1-9A-HJ-NP-Za-km-z]{44})")
	parts := re.FindStringSubmatch(metadataUri)
	if len(parts) == 2 {
		return "ipfs://" + parts[1]
	}

	return ""
}
