package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"go.uber.org/zap"

	"github.com/fazecat/flowlens/Internal/types"
	"github.com/fazecat/flowlens/Internal/utils"
)

const (
	alpacaPaperURL = "https://paper-api.alpaca.markets"
	alpacaDataURL  = "https://data.alpaca.markets"
)

// AlpacaSource downloads bar history from the Alpaca data API. Alpaca
// publishes no aggressor-side volume, so order-flow fields are
// approximated from bar shape; the engine itself never knows the
// difference.
type AlpacaSource struct {
	apiKey    string
	secretKey string
	client    *alpaca.Client
	http      *http.Client
	log       *zap.SugaredLogger
}

// NewAlpacaSource reads credentials from ALPACA_API_KEY /
// ALPACA_API_SECRET.
func NewAlpacaSource(log *zap.SugaredLogger) (*AlpacaSource, error) {
	apiKey := os.Getenv("ALPACA_API_KEY")
	secretKey := os.Getenv("ALPACA_API_SECRET")
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("ALPACA_API_KEY and ALPACA_API_SECRET must be set")
	}

	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: secretKey,
		BaseURL:   alpacaPaperURL,
	})

	return &AlpacaSource{
		apiKey:    apiKey,
		secretKey: secretKey,
		client:    client,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}, nil
}

// MarketOpen asks the trading API clock whether the market is open.
func (s *AlpacaSource) MarketOpen() (bool, error) {
	clock, err := s.client.GetClock()
	if err != nil {
		return false, fmt.Errorf("fetching market clock: %w", err)
	}
	return clock.IsOpen, nil
}

// alpacaBar mirrors the v2 stock bars payload.
type alpacaBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

// FetchTriggerBars downloads up to limit bars of the given timeframe
// and converts them to Bar records.
func (s *AlpacaSource) FetchTriggerBars(symbol, timeframe string, limit int) ([]types.Bar, error) {
	dur, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}
	start := time.Now().UTC().Add(-dur * time.Duration(limit+2))

	apiURL := fmt.Sprintf(
		"%s/v2/stocks/%s/bars?timeframe=%s&limit=%d&start=%s",
		alpacaDataURL, url.PathEscape(symbol), timeframe, limit,
		url.QueryEscape(start.Format(time.RFC3339)),
	)
	s.log.Debugw("fetching bars", "url", apiURL)

	var payload struct {
		Bars []alpacaBar `json:"bars"`
	}
	err = utils.RetryWithBackoff(func() error {
		req, err := http.NewRequest(http.MethodGet, apiURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("APCA-API-KEY-ID", s.apiKey)
		req.Header.Set("APCA-API-SECRET-KEY", s.secretKey)

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("alpaca data API returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&payload)
	}, utils.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("downloading %s bars for %s: %w", timeframe, symbol, err)
	}
	if len(payload.Bars) == 0 {
		return nil, fmt.Errorf("no %s bars returned for %s", timeframe, symbol)
	}

	bars := make([]types.Bar, len(payload.Bars))
	for i, ab := range payload.Bars {
		bars[i] = approximateOrderFlow(ab, i)
	}
	s.log.Infow("downloaded bars", "symbol", symbol, "timeframe", timeframe, "count", len(bars))
	return bars, nil
}

// approximateOrderFlow splits a plain OHLCV bar into an order-flow Bar.
// The buy share follows the close's position in the range, the POC
// falls back to the typical price and imbalance data stays empty.
func approximateOrderFlow(ab alpacaBar, index int) types.Bar {
	bar := types.Bar{
		Timestamp: ab.Timestamp,
		Index:     index,
		Open:      ab.Open,
		High:      ab.High,
		Low:       ab.Low,
		Close:     ab.Close,
		Volume:    ab.Volume,
	}

	buyShare := 0.5
	if r := ab.High - ab.Low; r > 0 {
		buyShare = (ab.Close - ab.Low) / r
	}
	bar.BuyVolume = ab.Volume * buyShare
	bar.SellVolume = ab.Volume - bar.BuyVolume
	bar.Delta = bar.BuyVolume - bar.SellVolume
	if bar.Delta > 0 {
		bar.MaxDelta = bar.Delta
	} else {
		bar.MinDelta = bar.Delta
	}
	bar.POC = bar.TypicalPrice()
	return bar
}
