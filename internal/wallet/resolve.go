package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Context is the subset of the mini-app host context that carries wallet hints.
type Context struct {
	User *ContextUser `json:"user,omitempty"`
}

type ContextUser struct {
	Fid               int64              `json:"fid,omitempty"`
	Username          string             `json:"username,omitempty"`
	ConnectedWallet   string             `json:"connectedWallet,omitempty"`
	VerifiedAddresses *VerifiedAddresses `json:"verified_addresses,omitempty"`
	CustodyAddress    string             `json:"custody_address,omitempty"`
}

type VerifiedAddresses struct {
	Primary      *PrimaryAddress `json:"primary,omitempty"`
	EthAddresses []string        `json:"eth_addresses,omitempty"`
}

type PrimaryAddress struct {
	EthAddress string `json:"eth_address,omitempty"`
}

// IsAddress reports whether s is a 20-byte hex account address. Mixed-case input
// must carry a valid EIP-55 checksum; all-lower and all-upper hex is accepted.
func IsAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(s).Hex()[2:] == body
}

// Resolve picks the best wallet for a user: the explicit address, then the
// connected wallet, the primary verified address, the first verified address,
// and finally the custody address. Invalid candidates are skipped.
func Resolve(explicit string, ctx *Context) (string, bool) {
	for _, candidate := range candidates(explicit, ctx) {
		if candidate != "" && IsAddress(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func candidates(explicit string, ctx *Context) []string {
	out := []string{strings.TrimSpace(explicit)}
	if ctx == nil || ctx.User == nil {
		return out
	}
	u := ctx.User
	out = append(out, u.ConnectedWallet)
	if v := u.VerifiedAddresses; v != nil {
		if v.Primary != nil {
			out = append(out, v.Primary.EthAddress)
		}
		// only the first verified address is considered
		if len(v.EthAddresses) > 0 {
			out = append(out, v.EthAddresses[0])
		}
	}
	return append(out, u.CustodyAddress)
}
