package gccpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signature algorithm constants required by GCCPay.
const (
	SignMethod  = "HmacSHA256"
	SignVersion = "1"
)

// Signer produces the GCCPay request signature and the matching auth
// headers. The timestamp placed in the signed string is always the one
// sent in x-auth-timestamp.
type Signer struct {
	clientKey    string
	clientSecret string
	now          func() time.Time
}

func NewSigner(clientKey, clientSecret string) *Signer {
	return &Signer{
		clientKey:    clientKey,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// Sign computes the signature for one outbound call. operationName is
// the provider-defined method label (e.g. "merchant.addOrder"), not the
// HTTP verb.
func (s *Signer) Sign(uri, operationName string) (signature string, timestamp int64) {
	timestamp = s.now().Unix()
	return s.signAt(uri, operationName, timestamp), timestamp
}

func (s *Signer) signAt(uri, operationName string, timestamp int64) string {
	fields := map[string]string{
		"uri":         uri,
		"key":         s.clientKey,
		"timestamp":   strconv.FormatInt(timestamp, 10),
		"signMethod":  SignMethod,
		"signVersion": SignVersion,
		"method":      operationName,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+url.QueryEscape(fields[k]))
	}
	signStr := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(s.clientSecret))
	mac.Write([]byte(signStr))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the full auth header set for a call. Sign and Headers
// share one timestamp per call via the returned values of Sign; callers
// use this helper to get both at once.
func (s *Signer) Headers(uri, operationName string) map[string]string {
	signature, timestamp := s.Sign(uri, operationName)
	return map[string]string{
		"Content-Type":        "application/json",
		"x-auth-signature":    signature,
		"x-auth-key":          s.clientKey,
		"x-auth-timestamp":    strconv.FormatInt(timestamp, 10),
		"x-auth-sign-method":  SignMethod,
		"x-auth-sign-version": SignVersion,
	}
}
