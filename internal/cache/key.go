// Package cache stores computed match responses keyed by patient profile.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/trialscout-server/internal/domain"
)

const keyPrefix = "match:"

// Key derives the cache key for a normalized profile. Versions (registry,
// dataset) are folded in so a data update never serves stale results.
func Key(profile domain.PatientProfile, versions ...string) (string, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encoding profile for cache key: %w", err)
	}

	h := sha256.New()
	h.Write(data)
	for _, v := range versions {
		h.Write([]byte{0})
		h.Write([]byte(v))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
