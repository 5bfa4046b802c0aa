// Package neynar adapts the Neynar Farcaster HTTP API to the publisher, wallet
// resolver and signer checker capabilities.
package neynar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/capability"
)

const (
	DefaultBaseURL = "https://api.neynar.com"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
	maxBody        = 1 << 20

	// signerApprovedCode is the numeric form of the approved signer status
	signerApprovedCode = 2
)

var (
	_ capability.Publisher      = (*Client)(nil)
	_ capability.WalletResolver = (*Client)(nil)
	_ capability.SignerChecker  = (*Client)(nil)
)

// Config holds Neynar client configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// AllowCustodyFallback lets ResolveAddress return the custody address
	// when the user has no verified address.
	AllowCustodyFallback bool
}

// Client talks to the Neynar REST API
type Client struct {
	baseURL      string
	apiKey       string
	allowCustody bool
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a new Neynar client
func NewClient(config Config, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       config.APIKey,
		allowCustody: config.AllowCustodyFallback,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

type embed struct {
	URL string `json:"url"`
}

type publishBody struct {
	SignerUUID string  `json:"signer_uuid"`
	Text       string  `json:"text"`
	Embeds     []embed `json:"embeds,omitempty"`
	Idem       string  `json:"idem,omitempty"`
}

// Publish submits a cast and returns its hash
func (c *Client) Publish(ctx context.Context, req capability.PublishRequest) (string, error) {
	body := publishBody{
		SignerUUID: req.SignerUUID,
		Text:       req.Text,
		Idem:       req.IdempotencyKey,
	}
	if req.MediaURL != "" {
		body.Embeds = []embed{{URL: req.MediaURL}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", capability.PublishError(fmt.Errorf("failed to encode cast: %w", err))
	}

	respBody, err := c.do(ctx, http.MethodPost, "/v2/farcaster/cast", payload)
	if err != nil {
		return "", capability.PublishError(err)
	}

	hash, err := normalizeCastHash(respBody)
	if err != nil {
		return "", capability.PublishError(err)
	}

	c.logger.Debug("Cast published",
		slog.String("cast_hash", hash),
		slog.String("idem", req.IdempotencyKey),
	)

	return hash, nil
}

// castResponse covers every response shape seen from the cast endpoint
type castResponse struct {
	Hash string `json:"hash"`
	Cast *struct {
		Hash string `json:"hash"`
	} `json:"cast"`
	Result *struct {
		Hash string `json:"hash"`
	} `json:"result"`
}

func normalizeCastHash(body []byte) (string, error) {
	var resp castResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode cast response: %w", err)
	}

	switch {
	case resp.Hash != "":
		return resp.Hash, nil
	case resp.Cast != nil && resp.Cast.Hash != "":
		return resp.Cast.Hash, nil
	case resp.Result != nil && resp.Result.Hash != "":
		return resp.Result.Hash, nil
	}

	return "", errors.New("cast response carried no hash")
}

type user struct {
	VerifiedAddresses struct {
		EthAddresses []string `json:"eth_addresses"`
	} `json:"verified_addresses"`
	Verifications  []string `json:"verifications"`
	CustodyAddress string   `json:"custody_address"`
}

type bulkUsersResponse struct {
	Users  []user `json:"users"`
	Result *struct {
		Users []user `json:"users"`
	} `json:"result"`
}

// ResolveAddress looks up the wallet address for a Farcaster ID
func (c *Client) ResolveAddress(ctx context.Context, ownerID string) (string, error) {
	fid, err := strconv.ParseUint(ownerID, 10, 64)
	if err != nil {
		return "", capability.ResolveError(fmt.Errorf("invalid fid %q", ownerID))
	}

	respBody, err := c.do(ctx, http.MethodGet, "/v2/farcaster/user/bulk?fids="+strconv.FormatUint(fid, 10), nil)
	if err != nil {
		return "", capability.ResolveError(err)
	}

	var resp bulkUsersResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", capability.ResolveError(fmt.Errorf("failed to decode users response: %w", err))
	}

	users := resp.Users
	if len(users) == 0 && resp.Result != nil {
		users = resp.Result.Users
	}
	if len(users) == 0 {
		return "", nil
	}

	address, custody := pickWallet(users[0])
	if custody {
		if !c.allowCustody {
			return "", nil
		}
		c.logger.Warn("Falling back to custody address",
			slog.String("fid", ownerID),
		)
	}

	return address, nil
}

// pickWallet prefers verified addresses and reports whether the result is the custody address
func pickWallet(u user) (string, bool) {
	if len(u.VerifiedAddresses.EthAddresses) > 0 && u.VerifiedAddresses.EthAddresses[0] != "" {
		return u.VerifiedAddresses.EthAddresses[0], false
	}
	if len(u.Verifications) > 0 && u.Verifications[0] != "" {
		return u.Verifications[0], false
	}
	if u.CustodyAddress != "" {
		return u.CustodyAddress, true
	}
	return "", false
}

// signerResponse covers the status field names seen from the signer endpoint.
// Status is either a name such as "approved" or a numeric code.
type signerResponse struct {
	Status       json.RawMessage `json:"status"`
	SignerStatus json.RawMessage `json:"signer_status"`
	Result       *struct {
		Status json.RawMessage `json:"status"`
	} `json:"result"`
}

// LookupSigner fetches the live approval status of a managed signer
func (c *Client) LookupSigner(ctx context.Context, signerUUID string) (capability.SignerStatus, error) {
	if signerUUID == "" {
		return capability.SignerStatus{}, capability.SignerError(errors.New("signer uuid is required"))
	}

	respBody, err := c.do(ctx, http.MethodGet, "/v2/farcaster/signer?signer_uuid="+url.QueryEscape(signerUUID), nil)
	if err != nil {
		return capability.SignerStatus{}, capability.SignerError(err)
	}

	status, err := normalizeSignerStatus(respBody)
	if err != nil {
		return capability.SignerStatus{}, capability.SignerError(err)
	}

	return status, nil
}

func normalizeSignerStatus(body []byte) (capability.SignerStatus, error) {
	var resp signerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return capability.SignerStatus{}, fmt.Errorf("failed to decode signer response: %w", err)
	}

	raw := resp.Status
	if len(raw) == 0 && resp.Result != nil {
		raw = resp.Result.Status
	}
	if len(raw) == 0 {
		raw = resp.SignerStatus
	}
	if len(raw) == 0 || string(raw) == "null" {
		return capability.SignerStatus{}, nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return capability.SignerStatus{
			Status:   name,
			Approved: strings.EqualFold(name, "approved"),
		}, nil
	}

	var code int
	if err := json.Unmarshal(raw, &code); err != nil {
		return capability.SignerStatus{}, fmt.Errorf("unexpected signer status %s", raw)
	}
	return capability.SignerStatus{
		Status:   strconv.Itoa(code),
		Approved: code == signerApprovedCode,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("neynar request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read neynar response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.logger.Error("Neynar rejected the API key")
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("neynar returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("neynar response exceeds %d bytes", maxBody)
	}

	return body, nil
}
