package webhook

import (
	"testing"
	"time"

	"builders-core/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAcceptsOwnSignature(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	header := v.Sign(body, now)
	assert.NoError(t, v.Verify(body, header, now))

	// Skew inside the tolerance window still verifies, both directions.
	assert.NoError(t, v.Verify(body, header, now.Add(4*time.Minute)))
	assert.NoError(t, v.Verify(body, header, now.Add(-4*time.Minute)))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	header := v.Sign([]byte(`{"id":"evt_1"}`), now)
	err := v.Verify([]byte(`{"id":"evt_2"}`), header, now)
	assert.ErrorIs(t, err, models.ErrSignatureInvalid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewVerifier("whsec_a", 5*time.Minute)
	verifier := NewVerifier("whsec_b", 5*time.Minute)
	body := []byte(`{"id":"evt_1"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := verifier.Verify(body, signer.Sign(body, now), now)
	assert.ErrorIs(t, err, models.ErrSignatureInvalid)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	body := []byte(`{"id":"evt_1"}`)
	signed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	header := v.Sign(body, signed)
	err := v.Verify(body, header, signed.Add(6*time.Minute))
	require.ErrorIs(t, err, models.ErrSignatureInvalid)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestVerifyRejectsMalformedHeaders(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	body := []byte(`{"id":"evt_1"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, header := range []string{
		"",
		"v1=deadbeef",
		"t=1748779200",
		"t=notanumber,v1=deadbeef",
		"garbage",
	} {
		err := v.Verify(body, header, now)
		assert.ErrorIs(t, err, models.ErrSignatureInvalid, "header %q", header)
	}
}

func TestVerifyAcceptsAnyMatchingV1(t *testing.T) {
	// Secret rotation sends two v1 entries; one valid signature is enough.
	v := NewVerifier("whsec_test", 5*time.Minute)
	body := []byte(`{"id":"evt_1"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	good := v.Sign(body, now)
	stacked := good + ",v1=0000000000000000000000000000000000000000000000000000000000000000"
	assert.NoError(t, v.Verify(body, stacked, now))
}
