package domain

import "fmt"

// ChainFamily groups the chains that share a wallet, address format and
// transaction shape.
type ChainFamily string

const (
	ChainFamilyEVM    ChainFamily = "evm"
	ChainFamilySolana ChainFamily = "solana"
)

// ChainFamilies lists every supported family in a stable order.
var ChainFamilies = []ChainFamily{ChainFamilyEVM, ChainFamilySolana}

// signedOnCodes maps a family to the code the backend expects in signed_on.
var signedOnCodes = map[ChainFamily]string{
	ChainFamilyEVM:    "Eth",
	ChainFamilySolana: "Sol",
}

// SignedOnCode returns the backend code ("Eth" or "Sol") for the family.
func (f ChainFamily) SignedOnCode() string {
	return signedOnCodes[f]
}

// Other returns the opposite family.
func (f ChainFamily) Other() ChainFamily {
	if f == ChainFamilyEVM {
		return ChainFamilySolana
	}
	return ChainFamilyEVM
}

func (f ChainFamily) Valid() bool {
	_, ok := signedOnCodes[f]
	return ok
}

func (f ChainFamily) String() string {
	return string(f)
}

// ParseChainFamily accepts either the family name or the signed_on code.
func ParseChainFamily(s string) (ChainFamily, error) {
	switch s {
	case "evm", "eth", "Eth", "ethereum":
		return ChainFamilyEVM, nil
	case "solana", "sol", "Sol":
		return ChainFamilySolana, nil
	}
	return "", fmt.Errorf("unknown chain family %q", s)
}
