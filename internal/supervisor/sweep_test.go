package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconnect_SweepIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.store.Put(ctx, "256700000001", []byte("a")))
	require.NoError(t, h.store.Put(ctx, "256700000002", []byte("b")))

	results, err := h.sup.Reconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SweepResult{
		{Number: "256700000001", Status: SweepInitiated},
		{Number: "256700000002", Status: SweepInitiated},
	}, results)

	results, err = h.sup.Reconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepInProgress, results[0].Status)
	assert.Equal(t, SweepInProgress, results[1].Status)
	assert.Equal(t, 2, h.dialer.Dials())
}

func TestReconnect_SkipsOpenConnections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.store.Put(ctx, testNumber, []byte("a")))

	_, err := h.sup.Connect(ctx, testNumber)
	require.NoError(t, err)
	h.open(t, testNumber, h.dialer.Last())

	results, err := h.sup.Reconnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SweepResult{{Number: testNumber, Status: SweepAlreadyConnected}}, results)
	assert.Equal(t, 1, h.dialer.Dials())
}

func TestReconnect_NothingStored(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.sup.Reconnect(context.Background())
	assert.ErrorIs(t, err, ErrNothingToReconnect)

	_, err = h.sup.ConnectKnown(context.Background())
	assert.ErrorIs(t, err, ErrNothingToReconnect)
}

func TestConnectKnown_ReportsFailures(t *testing.T) {
	h := newHarness(t, nil)
	_, _ = h.numbers.Add("256700000003")
	h.dialer.DialErr = assert.AnError

	results, err := h.sup.ConnectKnown(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, SweepFailed, results[0].Status)
	assert.NotEmpty(t, results[0].Error)
}

func TestSweep_CancelledContext(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Timings.SweepDelay = time.Hour })
	ctx, cancel := context.WithCancel(context.Background())

	results := h.sup.Sweep(ctx, []string{"256700000001"})
	assert.Equal(t, SweepInitiated, results[0].Status)

	cancel()
	results = h.sup.Sweep(ctx, []string{"256700000002"})
	assert.Equal(t, SweepFailed, results[0].Status)
}
