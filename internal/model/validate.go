package model

import "regexp"

var (
	ethAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	ethTxHashRe  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	btcHash64Re  = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
)

func IsEthAddress(s string) bool { return ethAddressRe.MatchString(s) }

func IsEthTxHash(s string) bool { return ethTxHashRe.MatchString(s) }

// IsBtcHash matches a Bitcoin txid or block hash.
func IsBtcHash(s string) bool { return btcHash64Re.MatchString(s) }
