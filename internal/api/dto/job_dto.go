package dto

import "time"

type ScheduleCastRequest struct {
	Text           string    `json:"text" binding:"required"`
	When           time.Time `json:"when" binding:"required"`
	MediaURL       string    `json:"mediaUrl"`
	SignerUUID     string    `json:"signerUuid"`
	OwnerID        string    `json:"ownerId"`
	IdempotencyKey string    `json:"idem"`
}

type ScheduleCoinRequest struct {
	Title         string    `json:"title" binding:"required"`
	Caption       string    `json:"caption" binding:"required"`
	MediaURL      string    `json:"mediaUrl" binding:"required"`
	MediaMime     string    `json:"mediaMime"`
	When          time.Time `json:"when" binding:"required"`
	Symbol        string    `json:"symbol"`
	WalletAddress string    `json:"walletAddress"`
	OwnerID       string    `json:"ownerId"`
	MetadataURI   string    `json:"metadataUri"`
	MetadataCID   string    `json:"metadataCid"`
}

type RescheduleRequest struct {
	When time.Time `json:"when" binding:"required"`
}

type ListJobsRequest struct {
	Status  string `form:"status"`
	OwnerID string `form:"owner_id"`
}

type JobResponse[T any] struct {
	Job T `json:"job"`
}

type ListJobsResponse[T any] struct {
	Jobs []T `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
