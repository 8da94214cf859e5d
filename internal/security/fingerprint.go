package security

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"strings"
)

// RequestMetadata is the connection-level view of a client used for device binding.
type RequestMetadata struct {
	UserAgent      string
	AcceptLanguage string
	Platform       string
	IPAddress      string
}

// Fingerprint returns a hex SHA-256 over the ordered tuple
// (user agent, accept-language, platform hint, source IP).
// Each component is length-prefixed so bytes cannot shift between fields.
func Fingerprint(meta RequestMetadata) string {
	h := sha256.New()
	var n [4]byte
	for _, part := range []string{meta.UserAgent, meta.AcceptLanguage, meta.Platform, meta.IPAddress} {
		binary.BigEndian.PutUint32(n[:], uint32(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RequestMetadataFromHTTP reads the fingerprint inputs from r. clientIP is resolved by
// the transport (proxy-aware) and passed in as is.
func RequestMetadataFromHTTP(r *http.Request, clientIP string) RequestMetadata {
	return RequestMetadata{
		UserAgent:      r.Header.Get("User-Agent"),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Platform:       strings.Trim(r.Header.Get("Sec-CH-UA-Platform"), `"`),
		IPAddress:      clientIP,
	}
}
