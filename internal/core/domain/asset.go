package domain

import (
	"fmt"
	"strings"
)

// Asset is the user-visible deposit currency code.
type Asset string

const (
	AssetEth   Asset = "Eth"
	AssetUsdc  Asset = "Usdc"
	AssetSol   Asset = "Sol"
	AssetSusdc Asset = "Susdc"
)

// DefaultAsset is selected whenever the deposit workflow is (re)opened.
const DefaultAsset = AssetEth

type TokenKind string

const (
	TokenKindNative TokenKind = "native"
	TokenKindERC20  TokenKind = "erc20"
	TokenKindSPL    TokenKind = "spl"
)

// AssetInfo binds an asset to its chain family and token kind.
type AssetInfo struct {
	Asset    Asset
	Family   ChainFamily
	Kind     TokenKind
	Symbol   string
	Decimals int32
}

// Assets is the closed lookup table of supported deposit assets.
var Assets = map[Asset]AssetInfo{
	AssetEth:   {Asset: AssetEth, Family: ChainFamilyEVM, Kind: TokenKindNative, Symbol: "ETH", Decimals: 18},
	AssetUsdc:  {Asset: AssetUsdc, Family: ChainFamilyEVM, Kind: TokenKindERC20, Symbol: "USDC", Decimals: 6},
	AssetSol:   {Asset: AssetSol, Family: ChainFamilySolana, Kind: TokenKindNative, Symbol: "SOL", Decimals: 9},
	AssetSusdc: {Asset: AssetSusdc, Family: ChainFamilySolana, Kind: TokenKindSPL, Symbol: "SOL USDC", Decimals: 6},
}

// AssetOrder is the display order used by the CLI.
var AssetOrder = []Asset{AssetEth, AssetUsdc, AssetSol, AssetSusdc}

// Info returns the lookup entry. It panics on an asset outside the closed set,
// which ParseAsset prevents.
func (a Asset) Info() AssetInfo {
	info, ok := Assets[a]
	if !ok {
		panic(fmt.Sprintf("domain: unknown asset %q", string(a)))
	}
	return info
}

func (a Asset) Family() ChainFamily {
	return a.Info().Family
}

// IsToken reports whether the asset is a token rather than the chain's native coin.
func (a Asset) IsToken() bool {
	return a.Info().Kind != TokenKindNative
}

func (a Asset) Valid() bool {
	_, ok := Assets[a]
	return ok
}

func (a Asset) String() string {
	return string(a)
}

// ParseAsset resolves a code case-insensitively ("sol", "SOL", "Sol").
func ParseAsset(s string) (Asset, error) {
	for code := range Assets {
		if strings.EqualFold(string(code), strings.TrimSpace(s)) {
			return code, nil
		}
	}
	return "", fmt.Errorf("unsupported asset %q", s)
}
