package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
)

// SecureModeHash returns HMAC-SHA256(sdk_key, user.key) hex-encoded, for
// front-end SDKs operating in secure mode to prove a user object wasn't
// tampered with client-side.
func (c *Client) SecureModeHash(user *ldmodel.User) string {
	if user == nil {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.SDKKey))
	mac.Write([]byte(user.Key))
	return hex.EncodeToString(mac.Sum(nil))
}
