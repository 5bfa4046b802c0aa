package domain

// Outcome is the per-job result of a sweep
type Outcome struct {
	ID          string `json:"id"`
	OK          bool   `json:"ok"`
	CastHash    string `json:"hash,omitempty"`
	CoinAddress string `json:"coinAddress,omitempty"`
	TxHash      string `json:"txHash,omitempty"`
	Error       string `json:"error,omitempty"`
}
