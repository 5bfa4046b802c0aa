// Package zora adapts a Zora coin-creation signer relay to the minter capability.
// The relay holds the signing key and submits the createCoin transaction.
package zora

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/cuongbtq/kamo-scheduler/internal/capability"
)

const (
	// DefaultChainID is Base mainnet
	DefaultChainID  = 8453
	DefaultCurrency = "ETH"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 512
	maxBody        = 1 << 20
	maxSymbolLen   = 6
	fallbackSymbol = "COIN"
)

var _ capability.Minter = (*Client)(nil)

// Config holds relay client configuration
type Config struct {
	BaseURL          string
	Token            string
	ChainID          int
	Currency         string
	PlatformReferrer string
	Timeout          time.Duration
}

// Client submits coin creations to the relay
type Client struct {
	baseURL          string
	token            string
	chainID          int
	currency         string
	platformReferrer string
	httpClient       *http.Client
	logger           *slog.Logger
}

// NewClient creates a new relay client
func NewClient(config Config, logger *slog.Logger) *Client {
	chainID := config.ChainID
	if chainID == 0 {
		chainID = DefaultChainID
	}

	currency := config.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:          strings.TrimRight(config.BaseURL, "/"),
		token:            config.Token,
		chainID:          chainID,
		currency:         currency,
		platformReferrer: config.PlatformReferrer,
		httpClient:       &http.Client{Timeout: timeout},
		logger:           logger,
	}
}

// GenerateSymbol derives a ticker from a title: alphanumerics only, at most
// six characters, upper-cased, COIN when nothing is left.
func GenerateSymbol(title string) string {
	var b strings.Builder
	for _, r := range title {
		if b.Len() == maxSymbolLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return fallbackSymbol
	}
	return b.String()
}

type metadata struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

type createCoinBody struct {
	Creator          string   `json:"creator"`
	Name             string   `json:"name"`
	Symbol           string   `json:"symbol"`
	Description      string   `json:"description,omitempty"`
	Metadata         metadata `json:"metadata"`
	Currency         string   `json:"currency"`
	ChainID          int      `json:"chain_id"`
	PayoutRecipient  string   `json:"payout_recipient"`
	PlatformReferrer string   `json:"platform_referrer,omitempty"`
}

// Mint creates a content coin through the relay
func (c *Client) Mint(ctx context.Context, req capability.MintRequest) (capability.MintResult, error) {
	symbol := req.Symbol
	if symbol == "" {
		symbol = GenerateSymbol(req.Title)
	}

	body := createCoinBody{
		Creator:          req.CreatorAddress,
		Name:             req.Title,
		Symbol:           symbol,
		Description:      req.Description,
		Metadata:         metadata{Type: "RAW_URI", URI: req.MetadataURI},
		Currency:         c.currency,
		ChainID:          c.chainID,
		PayoutRecipient:  req.CreatorAddress,
		PlatformReferrer: c.platformReferrer,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return capability.MintResult{}, capability.MintError(fmt.Errorf("failed to encode coin: %w", err))
	}

	respBody, err := c.post(ctx, "/coins", payload)
	if err != nil {
		return capability.MintResult{}, capability.MintError(err)
	}

	result, err := normalizeMintResult(respBody)
	if err != nil {
		return capability.MintResult{}, capability.MintError(err)
	}

	c.logger.Info("Coin created",
		slog.String("coin_address", result.CoinAddress),
		slog.String("tx_hash", result.TxHash),
		slog.String("symbol", symbol),
	)

	return result, nil
}

type mintPayload struct {
	Address         string `json:"address"`
	Hash            string `json:"hash"`
	CoinAddress     string `json:"coinAddress"`
	TransactionHash string `json:"transactionHash"`
}

func (p mintPayload) result() capability.MintResult {
	r := capability.MintResult{CoinAddress: p.Address, TxHash: p.Hash}
	if r.CoinAddress == "" {
		r.CoinAddress = p.CoinAddress
	}
	if r.TxHash == "" {
		r.TxHash = p.TransactionHash
	}
	return r
}

type mintResponse struct {
	mintPayload
	Result *mintPayload `json:"result"`
}

func normalizeMintResult(body []byte) (capability.MintResult, error) {
	var resp mintResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return capability.MintResult{}, fmt.Errorf("failed to decode coin response: %w", err)
	}

	result := resp.result()
	if result.CoinAddress == "" && resp.Result != nil {
		result = resp.Result.result()
	}

	if result.CoinAddress == "" || result.TxHash == "" {
		return capability.MintResult{}, errors.New("coin response missing address or transaction hash")
	}

	return result, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zora relay request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read zora relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("zora relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("zora relay response exceeds %d bytes", maxBody)
	}

	return body, nil
}
