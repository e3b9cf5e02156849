//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"courier/internal/audit"
	"courier/pkg/requestcontext"
	"courier/pkg/testutil/containers"
)

func TestStoreProducesEvents(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := New(rp.Brokers, "courier.security.test")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureTopic(ctx, 1, 1))
	// second call is a no-op
	require.NoError(t, store.EnsureTopic(ctx, 1, 1))

	event := audit.NewEvent(requestcontext.WithRequestID(ctx, "req-1"), audit.ActionAuthFailed, "invalid_token", "")
	require.NoError(t, store.Append(ctx, []audit.Event{event}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics("courier.security.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, "req-1", string(records[0].Key))
	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, audit.ActionAuthFailed, got.Action)
}
