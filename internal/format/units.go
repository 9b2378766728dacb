// Package format converts base units to display units and renders values the
// way the explorer shows them (Croatian labels, hr-HR dates).
package format

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

const (
	weiDecimals      = 18
	gweiDecimals     = 9
	satoshiDecimals  = 8
	lamportsDecimals = 9
)

func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiDecimals)
}

// ParseWei reads a wei amount written either as a decimal string or as a 0x hex
// quantity.
func ParseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := hexutil.DecodeBig(strings.ToLower(s))
		if err == nil {
			return n, nil
		}
		// hexutil rejects leading zeros, which some providers emit
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid wei amount %q: %w", s, err)
		}
		return n, nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		// some APIs render large integers in scientific notation
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid wei amount %q", s)
		}
		return d.Truncate(0).BigInt(), nil
	}
	return n, nil
}

// WeiStringToEth is ParseWei followed by WeiToEth; invalid input yields zero.
func WeiStringToEth(s string) decimal.Decimal {
	wei, err := ParseWei(s)
	if err != nil {
		return decimal.Zero
	}
	return WeiToEth(wei)
}

func GweiFromWei(wei decimal.Decimal) decimal.Decimal {
	return wei.Shift(-gweiDecimals)
}

func SatoshiToBTC(sat int64) decimal.Decimal {
	return decimal.New(sat, -satoshiDecimals)
}

func LamportsToSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, -lamportsDecimals)
}
