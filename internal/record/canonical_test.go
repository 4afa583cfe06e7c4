package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"empty array", []string{}, "[]"},
		{"sorted keys", map[string]int{"zebra": 1, "alpha": 2}, `{"alpha":2,"zebra":1}`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]float64{"x": 1.5})
	assert.Error(t, err)
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 even though its UTF-8 bytes sort after.
	obj := map[string]int{
		"\uE000":     1,
		"\U00010000": 2,
	}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	// A literal backslash followed by "u2028" stays escaped.
	got, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestFingerprintStable(t *testing.T) {
	req := Requirement{
		ID:        "REQ-001",
		Title:     "Login",
		Status:    StatusActive,
		Type:      RequirementFunctional,
		Statement: "Users can log in",
		Rationale: "Access",
	}

	a, err := Fingerprint(req)
	require.NoError(t, err)
	b, err := Fingerprint(req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	req.Title = "Logout"
	c, err := Fingerprint(req)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFingerprintDomainSeparation(t *testing.T) {
	v := map[string]string{"id": "REQ-001"}
	fp, err := Fingerprint(v)
	require.NoError(t, err)
	dg, err := Digest(v)
	require.NoError(t, err)
	assert.NotEqual(t, fp, dg)
}

func TestFingerprintUnmodeledFractions(t *testing.T) {
	feat := Feature{ID: "FEAT-001", Extra: Extra{"score": []byte(`1.5`)}}
	a, err := Fingerprint(feat)
	require.NoError(t, err)

	feat.Extra["score"] = []byte(`2.5`)
	b, err := Fingerprint(feat)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = MarshalCanonical(feat)
	assert.Error(t, err)
}
