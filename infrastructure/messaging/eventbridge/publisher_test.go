package eventbridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kbweb/domain/core/valueobjects"
	"kbweb/domain/events"
)

type fakeAPI struct {
	mu     sync.Mutex
	inputs []*eventbridge.PutEventsInput
	fail   int
	failed int32
}

func (f *fakeAPI) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("throttled")
	}
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for range in.Entries {
		entry := types.PutEventsResultEntry{}
		if f.failed > 0 {
			entry.ErrorCode = aws.String("InternalFailure")
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func newTestPublisher(api API) *Publisher {
	p := NewPublisher(api, "kbweb-test", zap.NewNop())
	p.backoff = time.Millisecond
	return p
}

func powerEvent(action uint64) events.DomainEvent {
	return events.NewSetPowerCalculated(valueobjects.Addr(action), 600, 3, 800, time.Unix(1700000000, 0))
}

func TestPublisher_Publish(t *testing.T) {
	// Arrange
	api := &fakeAPI{}
	p := newTestPublisher(api)

	// Act
	err := p.Publish(context.Background(), powerEvent(500))

	// Assert
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)
	entry := api.inputs[0].Entries[0]
	assert.Equal(t, "kbweb-test", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeSetPowerCalculated, aws.ToString(entry.DetailType))
	assert.Contains(t, aws.ToString(entry.Detail), `"power":3`)
	assert.Equal(t, []string{"kbweb:element:500"}, entry.Resources)
}

func TestPublisher_PublishBatchSplitsByTen(t *testing.T) {
	api := &fakeAPI{}
	p := newTestPublisher(api)
	batch := make([]events.DomainEvent, 23)
	for i := range batch {
		batch[i] = powerEvent(uint64(i + 1))
	}

	err := p.PublishBatch(context.Background(), batch)

	require.NoError(t, err)
	require.Len(t, api.inputs, 3)
	assert.Len(t, api.inputs[0].Entries, 10)
	assert.Len(t, api.inputs[2].Entries, 3)
}

func TestPublisher_RetriesTransientFailure(t *testing.T) {
	api := &fakeAPI{fail: 2}
	p := newTestPublisher(api)

	err := p.Publish(context.Background(), powerEvent(500))

	require.NoError(t, err)
	assert.Len(t, api.inputs, 3)
}

func TestPublisher_FailedEntriesGiveUp(t *testing.T) {
	api := &fakeAPI{failed: 1}
	p := newTestPublisher(api)

	err := p.Publish(context.Background(), powerEvent(500))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, api.inputs, 3)
}

func TestPublisher_EmptyBatch(t *testing.T) {
	api := &fakeAPI{}
	p := newTestPublisher(api)

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Empty(t, api.inputs)
}
