package tfir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_RoundTrip(t *testing.T) {
	testIDs := []string{
		"aws_iam_role.abcd-shop-role.arn",
		"data.aws_availability_zones.available.names[0]",
		"a.b[3].c",
	}

	for _, id := range testIDs {
		t.Run(id, func(t *testing.T) {
			addr, err := ParseAddress(id)
			require.NoError(t, err)
			assert.Equal(t, id, addr.String())

			again, err := ParseAddress(addr.String())
			require.NoError(t, err)
			assert.Equal(t, addr, again)
		})
	}
}

func TestParseAddress_Errors(t *testing.T) {
	for _, raw := range []string{"", "a..b", "a.b[x]", "a.$b"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAddress(raw)
			assert.Error(t, err)
		})
	}
}

func TestLabel(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"abcd-shop-fn", "abcd-shop-fn"},
		{"1a2b-shop", "_1a2b-shop"},
		{"with space.dot", "with_space_dot"},
		{"", "_"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Label(tc.in))
		})
	}
}
