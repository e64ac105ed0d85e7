package casefold

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeASCII(t *testing.T) {
	require.Equal(t, "alice[away]", Normalize(ASCII, "Alice[Away]"))
}

func TestNormalizeRFC1459(t *testing.T) {
	require.Equal(t, "alice{away}^", Normalize(RFC1459, "Alice[Away]~"))
}

func TestNormalizeRFC1459Strict(t *testing.T) {
	require.Equal(t, "alice{away}~", Normalize(RFC1459Strict, "Alice[Away]~"))
}

func TestNormalizeChannelPreservesSigil(t *testing.T) {
	require.Equal(t, "#room{1}", NormalizeChannel(RFC1459, "#Room[1]"))
	require.Equal(t, "&staff", NormalizeChannel(RFC1459, "&Staff"))
}

func TestNormalizeUnknownMapping(t *testing.T) {
	require.Equal(t, "Alice", Normalize(Mapping("bogus"), "Alice"),
		"expected passthrough for unknown mapping")
}

func TestFoldIdempotent(t *testing.T) {
	for _, m := range []Mapping{ASCII, RFC1459, RFC1459Strict} {
		s := "Alice[Bob]~{Carl}|^Dan\\"
		once := Normalize(m, s)
		twice := Normalize(m, once)
		require.Equal(t, once, twice, "%s: fold not idempotent", m)
	}
}

func TestNormalizeHighBytePassthrough(t *testing.T) {
	s := string([]byte{0xC3, 0xA9}) // e-acute, UTF-8
	require.Equal(t, s, Normalize(RFC1459, s), "expected high bytes untouched")
}
