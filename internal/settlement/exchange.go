package settlement

import (
	"fmt"

	"cosmossdk.io/math"
)

// Exchange quotes the fixed-rate token sale: buying and selling each pay a fee in basis points.
type Exchange struct {
	TokensPerWei int64
	BuyFeeBps    uint32
	SellFeeBps   uint32
}

// DefaultExchange is 100 tokens per wei with a 1% buy fee and a 2% sell fee.
var DefaultExchange = Exchange{TokensPerWei: 100, BuyFeeBps: 100, SellFeeBps: 200}

// Validate rejects rates the contract would refuse.
func (e Exchange) Validate() error {
	if e.TokensPerWei <= 0 {
		return fmt.Errorf("tokens per wei must be positive, got %d", e.TokensPerWei)
	}
	if e.BuyFeeBps > MaxRakeBps || e.SellFeeBps > MaxRakeBps {
		return fmt.Errorf("%w: buy %d bps, sell %d bps", ErrFeeTooHigh, e.BuyFeeBps, e.SellFeeBps)
	}
	return nil
}

// TokensForWei returns the tokens received for wei after the buy fee.
func (e Exchange) TokensForWei(wei math.Int) (math.Int, error) {
	if wei.IsNegative() {
		return math.Int{}, ErrNegativeAmount
	}
	gross := wei.MulRaw(e.TokensPerWei)
	return gross.MulRaw(int64(BasisPoints - e.BuyFeeBps)).QuoRaw(BasisPoints), nil
}

// WeiForTokens returns the wei received for tokens after the sell fee.
func (e Exchange) WeiForTokens(tokens math.Int) (math.Int, error) {
	if tokens.IsNegative() {
		return math.Int{}, ErrNegativeAmount
	}
	gross := tokens.QuoRaw(e.TokensPerWei)
	return gross.MulRaw(int64(BasisPoints - e.SellFeeBps)).QuoRaw(BasisPoints), nil
}
