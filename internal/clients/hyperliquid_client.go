package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// HyperliquidMainnetURL public Hyperliquid API endpoint.
const HyperliquidMainnetURL = "https://api.hyperliquid.xyz"

// NewHyperliquidInfo creates a Hyperliquid Info client for market data.
// The SDK builds Info from a signing exchange; without a private key an ephemeral one is generated,
// which is enough for the public endpoints. An empty baseURL means mainnet.
func NewHyperliquidInfo(privateKeyHex, baseURL string) (*hyperliquid.Info, error) {
	if baseURL == "" {
		baseURL = HyperliquidMainnetURL
	}

	privateKey, err := hyperliquidKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	pubECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}
	accountAddr := crypto.PubkeyToAddress(*pubECDSA).Hex()

	ex := hyperliquid.NewExchange(
		context.Background(),
		privateKey,
		baseURL,
		nil,
		"",
		accountAddr,
		nil,
	)

	return ex.Info(), nil
}

func hyperliquidKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	key := strings.TrimSpace(privateKeyHex)
	if key == "" {
		return crypto.GenerateKey()
	}
	key = strings.TrimPrefix(strings.TrimPrefix(key, "0x"), "0X")

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("invalid hyperliquid private key: %w", err)
	}
	return privateKey, nil
}
