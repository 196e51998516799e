package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	testCases := []struct {
		in        string
		want      Frequency
		expectErr bool
	}{
		{"", PerSession, false},
		{"per_session", PerSession, false},
		{"per_subject", PerSubject, false},
		{"per_visit", PerVisit, false},
		{"per_dataset", PerDataset, false},
		{"per_study", PerDataset, false},
		{" PER_SUBJECT ", PerSubject, false},
		{"per_scan", PerSession, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFrequency(tc.in)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFrequency_AxesRoundTrip(t *testing.T) {
	for _, f := range []Frequency{PerSession, PerSubject, PerVisit, PerDataset} {
		assert.Equal(t, f, f.Axes().Frequency(), f.String())
	}
}

func TestAxes_SetOperations(t *testing.T) {
	session := PerSession.Axes()

	assert.Equal(t, PerSubject.Axes(), session.Without(AxisVisit))
	assert.Equal(t, PerVisit.Axes(), session.Without(AxisSubject))
	assert.Equal(t, session, PerSubject.Axes().Union(PerVisit.Axes()))
	assert.Equal(t, Axes{}, PerSubject.Axes().Intersect(PerVisit.Axes()))
	assert.True(t, session.Has(AxisVisit))
	assert.False(t, PerDataset.Axes().Has(AxisSubject))
	assert.Equal(t, "{subject,visit}", session.String())
}

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("visit_id")
	require.NoError(t, err)
	assert.Equal(t, AxisVisit, a)

	a, err = ParseAxis("")
	require.NoError(t, err)
	assert.Equal(t, AxisNone, a)

	_, err = ParseAxis("session")
	require.Error(t, err)
}

func TestKey_StringParseProject(t *testing.T) {
	k := SessionKey("01", "test")
	assert.Equal(t, "01:test", k.String())
	assert.Equal(t, "01:*", k.Project(PerSubject.Axes()).String())
	assert.Equal(t, "*:*", k.Project(Axes{}).String())
	assert.Equal(t, PerVisit, k.Project(PerVisit.Axes()).Frequency())

	parsed, err := ParseKey("*:retest")
	require.NoError(t, err)
	assert.Equal(t, Key{Visit: "retest"}, parsed)

	_, err = ParseKey("nocolon")
	require.Error(t, err)

	assert.Equal(t, "ALL_retest", parsed.PathComponent())
}
