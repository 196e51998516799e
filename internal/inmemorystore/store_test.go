package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/neurogrid/internal/iface"
	"github.com/vk/neurogrid/internal/node"
	"github.com/vk/neurogrid/internal/nodeid"
)

func TestSetAndGetStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("brain_extraction.bet[s1:v1]")

	status, err := s.GetStatus(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, node.StatusPending, status)

	require.NoError(t, s.SetStatus(ctx, addr, node.StatusRunning))

	status, err = s.GetStatus(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, node.StatusRunning, status)
}

func TestSetAndGetOutput(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("brain_extraction.bet[s1:v1]")

	output, err := s.GetOutput(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, output)

	expected := iface.Outputs{"out_file": "/work/T1w_brain.nii.gz"}
	require.NoError(t, s.SetOutput(ctx, addr, expected))
	expected["out_file"] = "changed"

	got, err := s.GetOutput(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, iface.Outputs{"out_file": "/work/T1w_brain.nii.gz"}, got)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := nodeid.MustParse("brain_extraction.bet[s1:v1]")

	got, err := s.GetError(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, got)

	expected := errors.New("bet exited with status 1")
	require.NoError(t, s.SetError(ctx, addr, expected))

	got, err = s.GetError(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	const numGoroutines = 100
	addrOf := func(i int) nodeid.Address {
		return nodeid.Instance("p", "n", fmt.Sprintf("s%d:*", i))
	}

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := range numGoroutines {
		go func() {
			defer wg.Done()
			addr := addrOf(i)
			_ = s.SetStatus(ctx, addr, node.StatusCompleted)
			_ = s.SetOutput(ctx, addr, iface.Outputs{"n": i})
			_ = s.SetError(ctx, addr, fmt.Errorf("error for node %d", i))
		}()
	}
	wg.Wait()

	wg.Add(numGoroutines)
	for i := range numGoroutines {
		go func() {
			defer wg.Done()
			addr := addrOf(i)

			status, err := s.GetStatus(ctx, addr)
			assert.NoError(t, err)
			assert.Equal(t, node.StatusCompleted, status, "mismatched status for node %d", i)

			output, err := s.GetOutput(ctx, addr)
			assert.NoError(t, err)
			assert.Equal(t, iface.Outputs{"n": i}, output, "mismatched output for node %d", i)

			nodeErr, err := s.GetError(ctx, addr)
			assert.NoError(t, err)
			assert.EqualError(t, nodeErr, fmt.Sprintf("error for node %d", i))
		}()
	}
	wg.Wait()
}
