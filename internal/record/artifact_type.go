package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ArtifactType categorizes an artifact.
type ArtifactType string

const (
	TypePolicy         ArtifactType = "policy"
	TypeCatalog        ArtifactType = "catalog"
	TypeClassification ArtifactType = "classification"
	TypeRule           ArtifactType = "rule"
)

// Valid reports whether t is a known artifact type.
func (t ArtifactType) Valid() bool {
	switch t {
	case TypePolicy, TypeCatalog, TypeClassification, TypeRule:
		return true
	}
	return false
}

// ArtifactTypes is the artifact "type" field.
//
// Older files store a bare string; newer files store an array. Decoding
// accepts both and always yields a list, encoding always writes an array.
type ArtifactTypes []ArtifactType

// UnmarshalJSON accepts either "policy" or ["policy", "rule"].
func (t *ArtifactTypes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*t = ArtifactTypes{ArtifactType(single)}
		return nil
	}
	var list []ArtifactType
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("type must be a string or an array of strings: %w", err)
	}
	if list == nil {
		list = ArtifactTypes{}
	}
	*t = list
	return nil
}

// MarshalJSON always writes an array.
func (t ArtifactTypes) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ArtifactType(t))
}

// Invalid returns the first member that is not a known type, if any.
func (t ArtifactTypes) Invalid() (ArtifactType, bool) {
	for _, v := range t {
		if !v.Valid() {
			return v, true
		}
	}
	return "", false
}
