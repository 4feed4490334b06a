package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_SingleAndBundleShapes(t *testing.T) {
	single := Identifier{GuildID: "1401", ChannelID: "1440", MessageID: "99", AttachmentID: "7"}
	assert.Equal(t, "/f/1401/1440/99/7", Encode(single))

	bundle := Identifier{GuildID: "1401", ChannelID: "1440", MessageID: "99"}
	assert.Equal(t, "/fb/1401/1440/99", Encode(bundle))
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
	}{
		{"numeric", Identifier{GuildID: "1401622759582466229", ChannelID: "1440439526324441262", MessageID: "123", AttachmentID: "456"}},
		{"bundle", Identifier{GuildID: "g", ChannelID: "c", MessageID: "m"}},
		{"reserved characters", Identifier{GuildID: "a/b", ChannelID: "c?d", MessageID: "e f", AttachmentID: "g%h"}},
		{"unicode", Identifier{GuildID: "กิลด์", ChannelID: "ห้อง", MessageID: "โพสต์", AttachmentID: "ไฟล์"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(Encode(tt.id))
			require.NoError(t, err)
			assert.Equal(t, tt.id, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	paths := []string{
		"",
		"/",
		"/x/1/2/3/4",
		"/f/1/2/3",      // single link missing a segment
		"/fb/1/2/3/4",   // bundle link with an extra segment
		"/f/1/2/3/",     // trailing empty segment
		"/fb/1//3",      // empty middle segment
		"/f/1/2/3/%zz",  // bad percent escape
		"/download/1/2", // unrelated path
	}
	for _, p := range paths {
		_, err := Decode(p)
		assert.ErrorIs(t, err, ErrMalformedLink, "path %q", p)
	}
}

func TestDecode_BundleHasNoAttachment(t *testing.T) {
	id, err := Decode("/fb/1/2/3")
	require.NoError(t, err)
	assert.True(t, id.IsBundle())

	id, err = Decode("/f/1/2/3/4")
	require.NoError(t, err)
	assert.False(t, id.IsBundle())
}

func TestDecodeSegments(t *testing.T) {
	id, err := DecodeSegments("g", "c", "m", "a")
	require.NoError(t, err)
	assert.Equal(t, Identifier{GuildID: "g", ChannelID: "c", MessageID: "m", AttachmentID: "a"}, id)

	_, err = DecodeSegments("g", "", "m", "")
	assert.ErrorIs(t, err, ErrMalformedLink)
}
