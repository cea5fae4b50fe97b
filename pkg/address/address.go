// Package address converts Bitcoin output scripts to mainnet addresses.
package address

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Params is the network every conversion uses.
var Params = &chaincfg.MainNetParams

// FromScriptHex decodes a hex output script into its address.
// It returns false for empty input, bad hex, or scripts with no single address form.
func FromScriptHex(scriptHex string) (string, bool) {
	scriptHex = strings.TrimSpace(scriptHex)
	if scriptHex == "" {
		return "", false
	}
	raw, err := hex.DecodeString(scriptHex)
	if err != nil {
		return "", false
	}
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(raw, Params)
	if err != nil || len(addrs) != 1 {
		return "", false
	}
	return addrs[0].EncodeAddress(), true
}
