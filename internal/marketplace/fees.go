package marketplace

import "github.com/holiman/uint256"

const (
	// PlatformFeeBps is the marketplace cut in basis points (2.5%).
	PlatformFeeBps = 250
	FeeDenominator = 10000
)

// SplitPrice computes the platform cut and the seller proceeds for a sale
// price. Integer division truncates toward zero, so prices below 40 units
// carry no fee; the two parts always sum back to the full price.
//
// price = q*10000 + r, so floor(price*250/10000) = q*250 + floor(r*250/10000).
// Splitting the multiplication this way keeps the intermediate product
// inside 256 bits for any price.
func SplitPrice(price *uint256.Int) (platformFee, sellerProceeds *uint256.Int) {
	bps := uint256.NewInt(PlatformFeeBps)
	den := uint256.NewInt(FeeDenominator)

	q := new(uint256.Int).Div(price, den)
	r := new(uint256.Int).Mod(price, den)

	platformFee = new(uint256.Int).Mul(q, bps)
	rem := new(uint256.Int).Mul(r, bps)
	rem.Div(rem, den)
	platformFee.Add(platformFee, rem)

	sellerProceeds = new(uint256.Int).Sub(price, platformFee)

	return platformFee, sellerProceeds
}
