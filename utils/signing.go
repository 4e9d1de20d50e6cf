// utils/signing.go
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer produces and checks the HMAC-SHA256 signatures used for
// direct-to-storage upload URLs and token-gated asset reads. The two
// purposes are separated by a canonical-string tag so an upload
// signature can never double as a read token.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// UploadSignatureTTL is how long a signed upload URL stays valid.
const UploadSignatureTTL = 15 * time.Minute

func (s *Signer) sign(canonical string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignUpload binds a storage key, mime type and unix expiry under the
// server secret.
func (s *Signer) SignUpload(key, mime string, expiresUnix int64) string {
	return s.sign(fmt.Sprintf("upload:%s:%d:%s", key, expiresUnix, mime))
}

// VerifyUpload recomputes the upload signature and compares exactly.
// Expiry is checked separately by the caller; replay within the window
// is possible and accepted.
func (s *Signer) VerifyUpload(key, mime string, expiresUnix int64, sig string) bool {
	expected := s.SignUpload(key, mime, expiresUnix)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// SignAsset issues a read-access token for an asset id. Asset tokens do
// not embed an expiry; every pair listing mints fresh ones anyway.
func (s *Signer) SignAsset(assetID string) string {
	return s.sign(fmt.Sprintf("asset:%s", assetID))
}

func (s *Signer) VerifyAsset(assetID, sig string) bool {
	expected := s.SignAsset(assetID)
	return hmac.Equal([]byte(expected), []byte(sig))
}
