package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purpleshop/filebridge/pkg/platform"
	"github.com/purpleshop/filebridge/pkg/platform/platformtest"
)

func seedMessage(client *platformtest.FakeClient) *platform.Message {
	msg := &platform.Message{
		ID:        "m1",
		ChannelID: "c1",
		Attachments: []platform.Attachment{
			{ID: "a1", Name: "pack.mcaddon", Size: 2048, URL: "https://cdn.test/a1", ContentType: "application/zip"},
			{ID: "a2", Name: "notes.txt", Size: 12, URL: "https://cdn.test/a2", ContentType: "text/plain"},
		},
	}
	client.Seed(msg)
	return msg
}

func TestOne(t *testing.T) {
	client := platformtest.NewFakeClient("g1")
	seedMessage(client)
	r := NewResolver(client)

	att, err := r.One(context.Background(), "c1", "m1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "pack.mcaddon", att.Name)
	assert.Equal(t, int64(2048), att.Size)
}

func TestOne_Idempotent(t *testing.T) {
	client := platformtest.NewFakeClient("g1")
	seedMessage(client)
	r := NewResolver(client)

	first, err := r.One(context.Background(), "c1", "m1", "a2")
	require.NoError(t, err)
	second, err := r.One(context.Background(), "c1", "m1", "a2")
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Size, second.Size)
}

func TestOne_NotFoundCasesIndistinguishable(t *testing.T) {
	client := platformtest.NewFakeClient("g1")
	seedMessage(client)
	r := NewResolver(client)

	// Live message, absent attachment id.
	_, err := r.One(context.Background(), "c1", "m1", "nope")
	assert.ErrorIs(t, err, platform.ErrNotFound)

	// Message deleted upstream.
	client.Remove("c1", "m1")
	_, err = r.One(context.Background(), "c1", "m1", "a1")
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestAll(t *testing.T) {
	client := platformtest.NewFakeClient("g1")
	seedMessage(client)
	r := NewResolver(client)

	atts, err := r.All(context.Background(), "c1", "m1")
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "a1", atts[0].ID)
	assert.Equal(t, "a2", atts[1].ID)
}

func TestAll_EmptyIsNotAnError(t *testing.T) {
	client := platformtest.NewFakeClient("g1")
	client.Seed(&platform.Message{ID: "m2", ChannelID: "c1"})
	r := NewResolver(client)

	atts, err := r.All(context.Background(), "c1", "m2")
	require.NoError(t, err)
	assert.Empty(t, atts)
}
