package maintenance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/respawn/internal/domain"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPatchMetadata(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  map[string]any
	}{
		{"existing keys preserved", []byte(`{"a":1}`), map[string]any{"a": float64(1), "requestType": "federated"}},
		{"null column", nil, map[string]any{"requestType": "federated"}},
		{"empty string", []byte(""), map[string]any{"requestType": "federated"}},
		{"whitespace", []byte("  \n"), map[string]any{"requestType": "federated"}},
		{"json null", []byte("null"), map[string]any{"requestType": "federated"}},
		{"empty object", []byte("{}"), map[string]any{"requestType": "federated"}},
		{"overwrites request type", []byte(`{"requestType":"local","b":"x"}`), map[string]any{"requestType": "federated", "b": "x"}},
		{"nested values kept", []byte(`{"n":{"deep":[1,2]}}`), map[string]any{
			"n":           map[string]any{"deep": []any{float64(1), float64(2)}},
			"requestType": "federated",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := PatchMetadata(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decode(t, out))
		})
	}
}

func TestPatchMetadata_PreservesNumbers(t *testing.T) {
	out, err := PatchMetadata([]byte(`{"big":12345678901234567890}`))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"big":12345678901234567890`)
}

func TestPatchMetadata_Idempotent(t *testing.T) {
	once, err := PatchMetadata([]byte(`{"a":1}`))
	require.NoError(t, err)
	twice, err := PatchMetadata(once)
	require.NoError(t, err)
	assert.JSONEq(t, string(once), string(twice))
}

func TestPatchMetadata_RejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[1,2]`, `"text"`, `42`, `{broken`} {
		t.Run(input, func(t *testing.T) {
			_, err := PatchMetadata([]byte(input))
			assert.ErrorIs(t, err, domain.ErrInvalidMetadata)
		})
	}
}
