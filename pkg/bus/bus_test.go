package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purpleshop/filebridge/pkg/platform"
)

func TestPostBus_PublishConsume(t *testing.T) {
	pb := NewPostBus()
	defer pb.Close()

	msg := &platform.Message{ID: "m1", ChannelID: "c1"}
	require.NoError(t, pb.Publish(context.Background(), InboundPost{Message: msg}))

	got, ok := pb.Consume(context.Background())
	require.True(t, ok)
	assert.Equal(t, "m1", got.Message.ID)
}

func TestPostBus_PublishAfterClose(t *testing.T) {
	pb := NewPostBus()
	pb.Close()

	err := pb.Publish(context.Background(), InboundPost{})
	assert.ErrorIs(t, err, ErrBusClosed)

	_, ok := pb.Consume(context.Background())
	assert.False(t, ok)
}

func TestPostBus_DrainsBufferAfterClose(t *testing.T) {
	pb := NewPostBus()

	const n = 50
	for i := 0; i < n; i++ {
		msg := &platform.Message{ID: "m", ChannelID: "c1"}
		require.NoError(t, pb.Publish(context.Background(), InboundPost{Message: msg}))
	}
	pb.Close()

	// Every post accepted before the close must still come out.
	for i := 0; i < n; i++ {
		_, ok := pb.Consume(context.Background())
		require.True(t, ok, "post %d lost after close", i)
	}
	_, ok := pb.Consume(context.Background())
	assert.False(t, ok)
}

func TestPostBus_ConsumeRespectsContext(t *testing.T) {
	pb := NewPostBus()
	defer pb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := pb.Consume(ctx)
	assert.False(t, ok)
}
