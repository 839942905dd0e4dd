// FILE: gateway.go
// GatewayExecutor talks to an external execution gateway over HTTP —
// generalized from the teacher's broker_bridge.go (a single-exchange
// FastAPI sidecar client) into a multi-exchange, multi-leg adapter, since
// this engine trades spot+perp pairs across several venues behind one
// gateway process rather than one REST client per exchange.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwonlabs/xge/internal/model"
)

// GatewayExecutor is an OrderExecutionPort and MarketDataPort backed by
// an HTTP gateway (e.g. a ccxt-backed sidecar), the live counterpart to
// PaperExecutor.
type GatewayExecutor struct {
	base string
	hc   *http.Client
}

// NewGatewayExecutor builds a client against baseURL, defaulting to the
// teacher's local-sidecar convention when unset.
func NewGatewayExecutor(baseURL string) *GatewayExecutor {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8787"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &GatewayExecutor{base: baseURL, hc: &http.Client{Timeout: 15 * time.Second}}
}

func (g *GatewayExecutor) Name() string { return "gateway" }

// Connect asks the gateway to establish (or verify) a session for
// exchangeID, mirroring executor.py's connect_exchange credential check.
func (g *GatewayExecutor) Connect(ctx context.Context, exchangeID string) error {
	u := fmt.Sprintf("%s/exchange/%s/connect", g.base, url.PathEscape(exchangeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}
	res, err := g.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("gateway connect %s: %d: %s", exchangeID, res.StatusCode, string(b))
	}
	return nil
}

type legFillsResponse struct {
	Spot model.LegFill `json:"spot"`
	Perp model.LegFill `json:"perp"`
}

func (g *GatewayExecutor) postJSON(ctx context.Context, path string, body any) (legFillsResponse, error) {
	var out legFillsResponse
	bs, err := json.Marshal(body)
	if err != nil {
		return out, err
	}
	u := g.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(bs))
	if err != nil {
		return out, fmt.Errorf("newrequest %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "xge/gateway")

	res, err := g.hc.Do(req)
	if err != nil {
		return out, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return out, fmt.Errorf("%s %d: %s", path, res.StatusCode, string(b))
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%s: decode: %w", path, err)
	}
	return out, nil
}

// ExecuteOpen asks the gateway to buy spot and short perp per signal.
func (g *GatewayExecutor) ExecuteOpen(ctx context.Context, signal model.TradeSignal) (model.LegFill, model.LegFill, error) {
	out, err := g.postJSON(ctx, "/trade/open", signal)
	if err != nil {
		return model.LegFill{}, model.LegFill{}, fmt.Errorf("gateway open: %w", err)
	}
	return out.Spot, out.Perp, nil
}

// ExecuteClose asks the gateway to sell spot and cover perp for the
// given quantities.
func (g *GatewayExecutor) ExecuteClose(ctx context.Context, signal model.TradeSignal, spotQuantity, perpQuantity float64) (model.LegFill, model.LegFill, error) {
	body := struct {
		model.TradeSignal
		SpotQuantity float64 `json:"spot_quantity"`
		PerpQuantity float64 `json:"perp_quantity"`
	}{signal, spotQuantity, perpQuantity}
	out, err := g.postJSON(ctx, "/trade/close", body)
	if err != nil {
		return model.LegFill{}, model.LegFill{}, fmt.Errorf("gateway close: %w", err)
	}
	return out.Spot, out.Perp, nil
}

func (g *GatewayExecutor) getJSON(ctx context.Context, path string, out any) error {
	u := g.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("newrequest %s: %w", path, err)
	}
	req.Header.Set("User-Agent", "xge/gateway")

	res, err := g.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s %d: %s", path, res.StatusCode, string(b))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// GetOrderBook fetches the current top-of-book for exchange/symbol.
func (g *GatewayExecutor) GetOrderBook(ctx context.Context, exchangeID, symbol string) (model.OrderBookSnapshot, error) {
	var out model.OrderBookSnapshot
	path := fmt.Sprintf("/market/%s/orderbook?symbol=%s", url.PathEscape(exchangeID), url.QueryEscape(symbol))
	if err := g.getJSON(ctx, path, &out); err != nil {
		return model.OrderBookSnapshot{}, fmt.Errorf("gateway orderbook: %w", err)
	}
	return out, nil
}

// GetFundingRate fetches the current funding rate for exchange/symbol.
func (g *GatewayExecutor) GetFundingRate(ctx context.Context, exchangeID, symbol string) (model.FundingEntry, error) {
	var out model.FundingEntry
	path := fmt.Sprintf("/market/%s/funding?symbol=%s", url.PathEscape(exchangeID), url.QueryEscape(symbol))
	if err := g.getJSON(ctx, path, &out); err != nil {
		return model.FundingEntry{}, fmt.Errorf("gateway funding: %w", err)
	}
	return out, nil
}

// GetFundingHistory fetches the last `periods` funding entries, oldest first.
func (g *GatewayExecutor) GetFundingHistory(ctx context.Context, exchangeID, symbol string, periods int) ([]model.FundingEntry, error) {
	var out []model.FundingEntry
	path := fmt.Sprintf("/market/%s/funding/history?symbol=%s&periods=%d", url.PathEscape(exchangeID), url.QueryEscape(symbol), periods)
	if err := g.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("gateway funding history: %w", err)
	}
	return out, nil
}

// GetVolume24h fetches 24h quote volume for exchange/symbol.
func (g *GatewayExecutor) GetVolume24h(ctx context.Context, exchangeID, symbol string) (float64, error) {
	var out struct {
		Volume24h float64 `json:"volume_24h"`
	}
	path := fmt.Sprintf("/market/%s/volume?symbol=%s", url.PathEscape(exchangeID), url.QueryEscape(symbol))
	if err := g.getJSON(ctx, path, &out); err != nil {
		return 0, fmt.Errorf("gateway volume: %w", err)
	}
	return out.Volume24h, nil
}

// GetOpenInterest fetches current and 24h-ago open interest for
// exchange/symbol's perp market.
func (g *GatewayExecutor) GetOpenInterest(ctx context.Context, exchangeID, symbol string) (current, dayAgo float64, err error) {
	var out struct {
		Current float64 `json:"open_interest"`
		DayAgo  float64 `json:"open_interest_24h_ago"`
	}
	path := fmt.Sprintf("/market/%s/open_interest?symbol=%s", url.PathEscape(exchangeID), url.QueryEscape(symbol))
	if err := g.getJSON(ctx, path, &out); err != nil {
		return 0, 0, fmt.Errorf("gateway open_interest: %w", err)
	}
	return out.Current, out.DayAgo, nil
}
