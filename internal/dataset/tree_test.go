package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *Tree {
	return NewTree([]Key{
		SessionKey("02", "test"),
		SessionKey("01", "retest"),
		SessionKey("01", "test"),
		SessionKey("02", "retest"),
		SessionKey("01", "test"), // duplicates are ignored
	})
}

func TestNewTree_SortsAndDeduplicates(t *testing.T) {
	tree := newTestTree()

	assert.Equal(t, []string{"01", "02"}, tree.Subjects)
	assert.Equal(t, []string{"retest", "test"}, tree.Visits)
	assert.Equal(t, []Key{
		SessionKey("01", "retest"), SessionKey("01", "test"),
		SessionKey("02", "retest"), SessionKey("02", "test"),
	}, tree.Sessions)
}

func TestTree_Keys(t *testing.T) {
	tree := newTestTree()

	assert.Len(t, tree.Keys(PerSession), 4)
	assert.Equal(t, []Key{{Subject: "01"}, {Subject: "02"}}, tree.Keys(PerSubject))
	assert.Equal(t, []Key{{Visit: "retest"}, {Visit: "test"}}, tree.Keys(PerVisit))
	assert.Equal(t, []Key{{}}, tree.Keys(PerDataset))
}

func TestTree_Matching(t *testing.T) {
	tree := newTestTree()

	// A per-subject node joining over visits sees every visit of its subject.
	assert.Equal(t,
		[]Key{SessionKey("01", "retest"), SessionKey("01", "test")},
		tree.Matching(PerSession, Key{Subject: "01"}))

	// A per-session consumer of per-dataset data sees the single dataset key.
	assert.Equal(t, []Key{{}}, tree.Matching(PerDataset, SessionKey("02", "test")))

	// A per-session consumer of per-subject data sees its subject only.
	assert.Equal(t, []Key{{Subject: "02"}}, tree.Matching(PerSubject, SessionKey("02", "test")))
}

func TestTree_Restrict(t *testing.T) {
	tree := newTestTree()

	restricted, err := tree.Restrict([]string{"02"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"02"}, restricted.Subjects)
	assert.Len(t, restricted.Sessions, 2)

	restricted, err = tree.Restrict(nil, []string{"test"})
	require.NoError(t, err)
	assert.Equal(t, []Key{SessionKey("01", "test"), SessionKey("02", "test")}, restricted.Sessions)

	_, err = tree.Restrict([]string{"99"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `subject "99" not found`)
}
