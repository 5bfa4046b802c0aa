// Package capability declares the external collaborators the job pipelines
// depend on: a post publisher, a coin minter, a wallet resolver and a signer
// checker.
package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongbtq/kamo-scheduler/internal/domain"
)

// Capability operation names, used as CapabilityError.Op
const (
	OpPublish = "publish"
	OpMint    = "mint"
	OpResolve = "resolve"
	OpSigner  = "lookup signer"
)

// ErrNotConfigured is wrapped by every call to an Unavailable capability
var ErrNotConfigured = errors.New("not configured")

// PublishRequest is a single post submission
type PublishRequest struct {
	SignerUUID     string
	Text           string
	MediaURL       string
	IdempotencyKey string
}

// Publisher submits posts and returns the remote post identifier
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (string, error)
}

// MintRequest describes a content coin to create
type MintRequest struct {
	CreatorAddress string
	Title          string
	Description    string
	MetadataURI    string
	Symbol         string
}

// MintResult identifies a created coin on chain
type MintResult struct {
	CoinAddress string
	TxHash      string
}

// Minter creates content coins
type Minter interface {
	Mint(ctx context.Context, req MintRequest) (MintResult, error)
}

// WalletResolver maps an owner identifier to a wallet address.
// An empty address with a nil error means the owner has none.
type WalletResolver interface {
	ResolveAddress(ctx context.Context, ownerID string) (string, error)
}

// SignerStatus is the live approval state of a delegated signer
type SignerStatus struct {
	Status   string `json:"status,omitempty"`
	Approved bool   `json:"approved"`
}

// SignerChecker reports whether a signer may publish on the owner's behalf
type SignerChecker interface {
	LookupSigner(ctx context.Context, signerUUID string) (SignerStatus, error)
}

// PublishError wraps a publisher failure
func PublishError(err error) error {
	return domain.NewCapabilityError(OpPublish, err)
}

// MintError wraps a minter failure
func MintError(err error) error {
	return domain.NewCapabilityError(OpMint, err)
}

// ResolveError wraps a wallet resolver failure
func ResolveError(err error) error {
	return domain.NewCapabilityError(OpResolve, err)
}

// SignerError wraps a signer lookup failure
func SignerError(err error) error {
	return domain.NewCapabilityError(OpSigner, err)
}

// Unavailable stands in for a capability whose credentials are missing.
// Every call fails, so jobs depending on it end up failed at sweep time.
type Unavailable struct {
	Name string
}

var (
	_ Publisher      = Unavailable{}
	_ Minter         = Unavailable{}
	_ WalletResolver = Unavailable{}
	_ SignerChecker  = Unavailable{}
)

func (u Unavailable) err() error {
	return fmt.Errorf("%s %w", u.Name, ErrNotConfigured)
}

// Publish always fails
func (u Unavailable) Publish(ctx context.Context, req PublishRequest) (string, error) {
	return "", PublishError(u.err())
}

// Mint always fails
func (u Unavailable) Mint(ctx context.Context, req MintRequest) (MintResult, error) {
	return MintResult{}, MintError(u.err())
}

// ResolveAddress always fails
func (u Unavailable) ResolveAddress(ctx context.Context, ownerID string) (string, error) {
	return "", ResolveError(u.err())
}

// LookupSigner always fails
func (u Unavailable) LookupSigner(ctx context.Context, signerUUID string) (SignerStatus, error) {
	return SignerStatus{}, SignerError(u.err())
}
