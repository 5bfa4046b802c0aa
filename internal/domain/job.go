package domain

import "time"

// CastJob is a social post scheduled for publication
type CastJob struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"ownerId,omitempty" db:"owner_id"`
	SignerUUID     string    `json:"signerUuid,omitempty" db:"signer_uuid"`
	Text           string    `json:"text" db:"text"`
	MediaURL       string    `json:"mediaUrl,omitempty" db:"media_url"`
	DueAt          time.Time `json:"when" db:"due_at"`
	IdempotencyKey string    `json:"idem" db:"idempotency_key"`
	Status         Status    `json:"status" db:"status"`
	CastHash       string    `json:"castHash,omitempty" db:"cast_hash"`
	Error          string    `json:"error,omitempty" db:"error"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// CoinJob is a content coin scheduled for creation
type CoinJob struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"ownerId,omitempty" db:"owner_id"`
	WalletAddress  string    `json:"walletAddress,omitempty" db:"wallet_address"`
	CreatorAddress string    `json:"creatorAddress" db:"creator_address"`
	Title          string    `json:"title" db:"title"`
	Caption        string    `json:"caption" db:"caption"`
	Symbol         string    `json:"symbol,omitempty" db:"symbol"`
	MediaURL       string    `json:"mediaUrl" db:"media_url"`
	MediaMime      string    `json:"mediaMime,omitempty" db:"media_mime"`
	DueAt          time.Time `json:"when" db:"due_at"`
	MetadataURI    string    `json:"metadataUri,omitempty" db:"metadata_uri"`
	Status         Status    `json:"status" db:"status"`
	CoinAddress    string    `json:"coinAddress,omitempty" db:"coin_address"`
	TxHash         string    `json:"txHash,omitempty" db:"tx_hash"`
	Error          string    `json:"error,omitempty" db:"error"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// DefaultIdempotencyKey derives the idempotency key used when the caller supplies none
func DefaultIdempotencyKey(id string) string {
	return "idem_" + id
}

// Key, State, Owner and Due expose the fields the queue store indexes on.

func (j *CastJob) Key() string { return j.ID }
func (j *CastJob) State() Status { return j.Status }
func (j *CastJob) Owner() string { return j.OwnerID }
func (j *CastJob) Due() time.Time { return j.DueAt }
func (j *CastJob) Stamp(now time.Time) { j.UpdatedAt = now }

// DedupKey is the idempotency key; no two stored casts share one
func (j *CastJob) DedupKey() string { return j.IdempotencyKey }
func (j *CoinJob) Key() string { return j.ID }
func (j *CoinJob) State() Status { return j.Status }
func (j *CoinJob) Owner() string { return j.OwnerID }
func (j *CoinJob) Due() time.Time { return j.DueAt }
func (j *CoinJob) Stamp(now time.Time) { j.UpdatedAt = now }

// Cancel moves a pending cast job to canceled
func (j *CastJob) Cancel() error {
	if j.Status != StatusPending {
		return transitionError("cancel", j.Status)
	}
	j.Status = StatusCanceled
	return nil
}

// Reschedule changes the due time of a pending cast job
func (j *CastJob) Reschedule(when time.Time) error {
	if j.Status != StatusPending {
		return transitionError("reschedule", j.Status)
	}
	j.DueAt = when.UTC()
	return nil
}

// Claim marks a pending cast job as publishing so no other sweep selects it
func (j *CastJob) Claim() error {
	if j.Status != StatusPending {
		return transitionError("claim", j.Status)
	}
	j.Status = StatusPublishing
	return nil
}

// MarkPosted records a successful publication
func (j *CastJob) MarkPosted(castHash string) error {
	if j.Status != StatusPublishing {
		return transitionError("complete", j.Status)
	}
	j.Status = StatusPosted
	j.CastHash = castHash
	j.Error = ""
	return nil
}

// MarkFailed records a failed publication; failed is terminal
func (j *CastJob) MarkFailed(reason string) error {
	if j.Status != StatusPublishing {
		return transitionError("fail", j.Status)
	}
	j.Status = StatusFailed
	j.Error = reason
	return nil
}

// Cancel moves a pending coin job to canceled
func (j *CoinJob) Cancel() error {
	if j.Status != StatusPending {
		return transitionError("cancel", j.Status)
	}
	j.Status = StatusCanceled
	return nil
}

// Reschedule changes the due time of a pending coin job
func (j *CoinJob) Reschedule(when time.Time) error {
	if j.Status != StatusPending {
		return transitionError("reschedule", j.Status)
	}
	j.DueAt = when.UTC()
	return nil
}

// Claim marks a pending coin job as creating so no other sweep selects it
func (j *CoinJob) Claim() error {
	if j.Status != StatusPending {
		return transitionError("claim", j.Status)
	}
	j.Status = StatusCreating
	return nil
}

// MarkCreated records the minted coin
func (j *CoinJob) MarkCreated(coinAddress, txHash string) error {
	if j.Status != StatusCreating {
		return transitionError("complete", j.Status)
	}
	j.Status = StatusCreated
	j.CoinAddress = coinAddress
	j.TxHash = txHash
	j.Error = ""
	return nil
}

// MarkFailed records a failed coin creation; failed is terminal
func (j *CoinJob) MarkFailed(reason string) error {
	if j.Status != StatusCreating {
		return transitionError("fail", j.Status)
	}
	j.Status = StatusFailed
	j.Error = reason
	return nil
}
