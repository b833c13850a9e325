// Package webhook is the ingestion boundary for payment provider callbacks:
// signature verification over the raw body, event parsing, and the mapping of
// each event to at most one state transition.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"builders-core/internal/models"
)

// Verifier checks provider signatures before any business payload is parsed.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
}

// NewVerifier creates a Verifier with the shared signing secret and the
// accepted clock skew for the signed timestamp.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), tolerance: tolerance}
}

// Verify validates a signature header of the form "t=<unix>,v1=<hex hmac>"
// where the HMAC-SHA256 is computed over "<unix>.<raw body>". Comparison is
// constant-time. Any failure wraps models.ErrSignatureInvalid.
func (v *Verifier) Verify(body []byte, header string, now time.Time) error {
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", models.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return fmt.Errorf("%w: no matching signature", models.ErrSignatureInvalid)
}

// Sign produces a valid header for the given body. Used by tests and the
// local provider simulator.
func (v *Verifier) Sign(body []byte, now time.Time) string {
	ts := now.Unix()
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", models.ErrSignatureInvalid)
	}

	var timestamp int64
	var signatures []string
	sawTimestamp := false

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", models.ErrSignatureInvalid)
			}
			timestamp = ts
			sawTimestamp = true
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if !sawTimestamp || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed signature header", models.ErrSignatureInvalid)
	}
	return timestamp, signatures, nil
}
