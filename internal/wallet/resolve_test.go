package wallet

import "testing"

const (
	lowerAddr    = "0x1234567890123456789012345678901234567890"
	checksumAddr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	otherAddr    = "0x2345678901234567890123456789012345678901"
)

func TestIsAddress(t *testing.T) {
	cases := map[string]bool{
		lowerAddr:    true,
		checksumAddr: true,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed": true,
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD": false, // bad checksum
		"0x1234": false,
		"":       false,
		"0xZZ34567890123456789012345678901234567890": false,
	}
	for in, want := range cases {
		if got := IsAddress(in); got != want {
			t.Fatalf("IsAddress(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolvePriority(t *testing.T) {
	ctx := &Context{User: &ContextUser{
		ConnectedWallet: "not-an-address",
		VerifiedAddresses: &VerifiedAddresses{
			Primary:      &PrimaryAddress{EthAddress: ""},
			EthAddresses: []string{otherAddr, lowerAddr},
		},
		CustodyAddress: checksumAddr,
	}}

	if got, ok := Resolve(lowerAddr, ctx); !ok || got != lowerAddr {
		t.Fatalf("explicit address should win, got %q", got)
	}
	if got, ok := Resolve("", ctx); !ok || got != otherAddr {
		t.Fatalf("expected first verified address, got %q", got)
	}

	ctx.User.VerifiedAddresses = nil
	if got, ok := Resolve("bogus", ctx); !ok || got != checksumAddr {
		t.Fatalf("expected custody address, got %q", got)
	}

	if _, ok := Resolve("", nil); ok {
		t.Fatalf("expected no address without hints")
	}
}
