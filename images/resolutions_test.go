package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInputResolution_Edge checks the edge length of every supported resolution.
func TestInputResolution_Edge(t *testing.T) {
	testCases := []struct {
		res      InputResolution
		expected int
	}{
		{ResolutionLow, 320},
		{ResolutionMedium, 416},
		{ResolutionHigh, 640},
		{ResolutionUltra, 1280},
		{InputResolution("bogus"), 416},
	}

	for _, tc := range testCases {
		t.Run(string(tc.res), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.res.Edge())
		})
	}
}

func TestParseInputResolution(t *testing.T) {
	testCases := []struct {
		in       string
		expected InputResolution
		wantErr  bool
	}{
		{in: "low", expected: ResolutionLow},
		{in: "HIGH", expected: ResolutionHigh},
		{in: " ultra ", expected: ResolutionUltra},
		{in: "416", expected: ResolutionMedium},
		{in: "", expected: DefaultResolution},
		{in: "512", wantErr: true},
		{in: "extreme", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseInputResolution(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
