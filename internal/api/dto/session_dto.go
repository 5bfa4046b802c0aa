package dto

import "github.com/cuongbtq/kamo-scheduler/internal/session"

type CreateSessionRequest struct {
	OwnerID    string `json:"ownerId" binding:"required"`
	SignerUUID string `json:"signerUuid"`
}

type WalletRequest struct {
	OwnerID string `form:"owner_id"`
}

type WalletResponse struct {
	OwnerID string `json:"ownerId"`
	Address string `json:"address"`
}

// SessionResponse is a session together with the live state of its signer
type SessionResponse struct {
	session.Session
	Status   string `json:"status,omitempty"`
	Approved bool   `json:"approved"`
}

type SignerStatusResponse struct {
	SignerUUID string `json:"signerUuid"`
	Status     string `json:"status,omitempty"`
	Approved   bool   `json:"approved"`
}
