package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertNodeRan checks captured log output for the completion line of a node
// instance, e.g. "copy_pipeline.copy[s1:v1]".
func AssertNodeRan(t *testing.T, logs, nodeID string) {
	t.Helper()
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "Finished node") && strings.Contains(line, "nodeID="+nodeID) {
			return
		}
	}
	require.Fail(t, "node did not run", "no completion log line for %s", nodeID)
}
