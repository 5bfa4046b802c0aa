package session

import (
	"github.com/cuongbtq/kamo-scheduler/internal/scheduler"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
)

// The Bind functions fill only empty fields; values supplied by the caller
// always win. A nil session leaves the input untouched.

// BindCast defaults the owner and signer of a cast request
func BindCast(sess *Session, in *scheduler.CastInput) {
	if sess == nil {
		return
	}
	if in.OwnerID == "" {
		in.OwnerID = sess.OwnerID
	}
	if in.SignerUUID == "" {
		in.SignerUUID = sess.SignerUUID
	}
}

// BindCoin defaults the owner of a coin request
func BindCoin(sess *Session, in *scheduler.CoinInput) {
	if sess == nil {
		return
	}
	if in.OwnerID == "" {
		in.OwnerID = sess.OwnerID
	}
}

// BindOwner defaults the owner filter of a queue listing
func BindOwner(sess *Session, filter *storage.Filter) {
	if sess == nil {
		return
	}
	if filter.OwnerID == "" {
		filter.OwnerID = sess.OwnerID
	}
}
