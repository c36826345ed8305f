package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/scalpscan/internal/services/market/providers"
)

// newServiceProvider creates the market data gateway for the client type.
// This is the single point of truth for dispatching to platform-specific implementations.
func newServiceProvider(client any) (providers.Provider, error) {
	switch c := client.(type) {
	case *binance.Client:
		return providers.NewBinanceProvider(c), nil
	case *bybit.Client:
		return providers.NewBybitProvider(c), nil
	case *hyperliquid.Info:
		return providers.NewHyperliquidProvider(c), nil
	default:
		return nil, fmt.Errorf("unsupported client type: %T", client)
	}
}
