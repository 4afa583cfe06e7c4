package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with older digests.
const (
	DomainRecord = "reqtrack/record/v1"
	DomainReport = "reqtrack/report/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint is the content hash of a single record. Two records with the
// same field values hash the same regardless of key order in the file.
// Fractional numbers, which only unmodeled fields can hold, are hashed by
// their literal text.
func Fingerprint(rec any) (string, error) {
	generic, err := genericOf(rec)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: %w", err)
	}
	canonical, err := canonicalOf(literalFractions(generic))
	if err != nil {
		return "", fmt.Errorf("Fingerprint: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

func literalFractions(v any) any {
	switch val := v.(type) {
	case json.Number:
		if _, err := strconv.ParseInt(val.String(), 10, 64); err != nil {
			return val.String()
		}
	case []any:
		for i := range val {
			val[i] = literalFractions(val[i])
		}
	case map[string]any:
		for k := range val {
			val[k] = literalFractions(val[k])
		}
	}
	return v
}

// Digest hashes an arbitrary report value under the report domain.
func Digest(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("Digest: %w", err)
	}
	return hashWithDomain(DomainReport, canonical), nil
}
