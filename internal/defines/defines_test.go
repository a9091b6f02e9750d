package defines

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/buildstamp/internal/domain/buildinfo"
)

func sampleVersion() buildinfo.ComposedVersion {
	return buildinfo.ComposedVersion{
		Name: "2.0.0-abcdef123+100",
		Code: 100,
		Hash: "abcdef123",
		Time: 1700000000,
	}
}

// TestLines checks the plain lines and their fixed order.
func TestLines(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"pili.name=2.0.0-abcdef123+100",
		"pili.code=100",
		"pili.hash=abcdef123",
		"pili.time=1700000000",
	}, Lines(sampleVersion(), "pili"))
}

// TestEncode_DecodeRoundtrip verifies each token decodes to exactly its source line, in order.
func TestEncode_DecodeRoundtrip(t *testing.T) {
	t.Parallel()

	payload := Encode(sampleVersion(), "pili")

	tokens := strings.Split(payload, ",")
	require.Len(t, tokens, 4)

	want := Lines(sampleVersion(), "pili")
	for i, token := range tokens {
		raw, err := base64.StdEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Equal(t, want[i], string(raw))
	}

	lines, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, want, lines)
}

// TestEncode_MatchesFlutterFormat pins the exact payload for a known version.
func TestEncode_MatchesFlutterFormat(t *testing.T) {
	t.Parallel()

	v := buildinfo.ComposedVersion{Name: "1.1.5-N/A+1", Code: 1, Hash: "N/A", Time: 0}

	require.Equal(t,
		"cGlsaS5uYW1lPTEuMS41LU4vQSsx,cGlsaS5jb2RlPTE=,cGlsaS5oYXNoPU4vQQ==,cGlsaS50aW1lPTA=",
		Encode(v, "pili"))
}

// TestParse_KeyOrder ensures the decoded keys come back as name, code, hash, time.
func TestParse_KeyOrder(t *testing.T) {
	t.Parallel()

	defs, err := Parse(Encode(sampleVersion(), "app"))
	require.NoError(t, err)
	require.Len(t, defs, len(Keys()))

	for i, key := range Keys() {
		require.Equal(t, "app."+key, defs[i].Key)
	}

	require.Equal(t, "2.0.0-abcdef123+100", defs[0].Value)
	require.Equal(t, "app.code=100", defs[1].String())
}

// TestDecode_Errors rejects empty payloads and invalid tokens.
func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := Decode("  ")
	require.ErrorIs(t, err, errEmptyPayload)

	_, err = Decode("cGlsaS5jb2RlPTE=,!!!")
	require.ErrorContains(t, err, "#1")

	_, err = Parse(base64.StdEncoding.EncodeToString([]byte("no-separator")))
	require.ErrorIs(t, err, errMalformedToken)
}
