package domain

// Identity is the active user as reported by the profile service.
type Identity struct {
	ID              string `json:"id"`
	EthereumAddress string `json:"ethereum_address,omitempty"`
	SolanaAddress   string `json:"solana_address,omitempty"`
}

// Address returns the associated address for a family, or "" when none.
func (i Identity) Address(family ChainFamily) string {
	switch family {
	case ChainFamilyEVM:
		return i.EthereumAddress
	case ChainFamilySolana:
		return i.SolanaAddress
	}
	return ""
}

// Addresses is the read model exposed by the address registry.
type Addresses struct {
	Ethereum string
	Solana   string
}

func (a Addresses) Has(family ChainFamily) bool {
	switch family {
	case ChainFamilyEVM:
		return a.Ethereum != ""
	case ChainFamilySolana:
		return a.Solana != ""
	}
	return false
}

// Any reports whether at least one family is associated.
func (a Addresses) Any() bool {
	return a.Ethereum != "" || a.Solana != ""
}
