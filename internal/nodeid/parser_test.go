// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		rawID        string
		expectErr    bool
		expectedAddr *Address
	}{
		{
			name:  "simple path",
			rawID: "a.b.c",
			expectedAddr: &Address{
				Path: []PathSegment{NewPathSegment("a"), NewPathSegment("b"), NewPathSegment("c")},
			},
		},
		{
			name:  "node instance with session key",
			rawID: "smooth_mask.smooth[01:test]",
			expectedAddr: &Address{
				Path: []PathSegment{NewPathSegment("smooth_mask"), NewPathSegmentWithKey("smooth", "01:test")},
			},
		},
		{
			name:  "key containing dots",
			rawID: "statistics.merge_visits[sub.1:*]",
			expectedAddr: &Address{
				Path: []PathSegment{NewPathSegment("statistics"), NewPathSegmentWithKey("merge_visits", "sub.1:*")},
			},
		},
		{
			name:      "error - empty path segment",
			rawID:     "a..b",
			expectErr: true,
		},
		{
			name:      "error - empty key",
			rawID:     "a.b[]",
			expectErr: true,
		},
		{
			name:      "error - unbalanced brackets",
			rawID:     "a.b[01",
			expectErr: true,
		},
		{
			name:      "error - nested brackets",
			rawID:     "a.b[[x]]",
			expectErr: true,
		},
		{
			name:      "error - empty string",
			rawID:     "",
			expectErr: true,
		},
		{
			name:      "error - invalid segment name just hyphen",
			rawID:     "a.-",
			expectErr: true,
		},
		{
			name:      "error - trailing dot",
			rawID:     "a.",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.rawID)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, addr)
			assert.True(t, tc.expectedAddr.Equal(addr), "Parsed address does not match expected address")
		})
	}
}

func TestMustParse_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustParse("a..b") })
	assert.NotPanics(t, func() { MustParse("a.b[*:*]") })
}
