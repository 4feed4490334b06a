// Package link encodes and decodes share links for stored files.
//
// A link addresses a file through the platform's four-level hierarchy:
// guild / channel / message / attachment. Two path shapes exist:
//
//	/f/<guild>/<channel>/<message>/<attachment>  one attachment
//	/fb/<guild>/<channel>/<message>              all attachments of a message
//
// Each segment is percent-encoded independently, so decode(encode(id)) holds
// even for identifiers carrying reserved characters. Links embed no expiry or
// signature; validity is delegated to whether the stored message still exists.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedLink is returned when a path does not parse as a share link.
var ErrMalformedLink = errors.New("malformed link")

// Identifier is the immutable address tuple behind a share link.
// AttachmentID is empty for bundle links covering all attachments.
type Identifier struct {
	GuildID      string
	ChannelID    string
	MessageID    string
	AttachmentID string
}

// IsBundle reports whether the identifier addresses a whole message.
func (id Identifier) IsBundle() bool {
	return id.AttachmentID == ""
}

// Encode returns the share path for id: "/f/..." for a single attachment,
// "/fb/..." for a bundle.
func Encode(id Identifier) string {
	segs := []string{id.GuildID, id.ChannelID, id.MessageID}
	prefix := "/fb/"
	if !id.IsBundle() {
		segs = append(segs, id.AttachmentID)
		prefix = "/f/"
	}
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return prefix + strings.Join(segs, "/")
}

// Decode parses a share path produced by Encode. It accepts both path
// shapes and returns ErrMalformedLink for everything else.
func Decode(path string) (Identifier, error) {
	var rest string
	var want int
	switch {
	case strings.HasPrefix(path, "/f/"):
		rest, want = path[len("/f/"):], 4
	case strings.HasPrefix(path, "/fb/"):
		rest, want = path[len("/fb/"):], 3
	default:
		return Identifier{}, fmt.Errorf("%w: %q", ErrMalformedLink, path)
	}

	segs := strings.Split(rest, "/")
	if len(segs) != want {
		return Identifier{}, fmt.Errorf("%w: expected %d segments, got %d", ErrMalformedLink, want, len(segs))
	}

	decoded := make([]string, len(segs))
	for i, s := range segs {
		if s == "" {
			return Identifier{}, fmt.Errorf("%w: empty segment", ErrMalformedLink)
		}
		d, err := url.PathUnescape(s)
		if err != nil {
			return Identifier{}, fmt.Errorf("%w: %v", ErrMalformedLink, err)
		}
		decoded[i] = d
	}

	id := Identifier{
		GuildID:   decoded[0],
		ChannelID: decoded[1],
		MessageID: decoded[2],
	}
	if want == 4 {
		id.AttachmentID = decoded[3]
	}
	return id, nil
}

// DecodeSegments builds an Identifier from already-split path segments, as
// delivered by a router's URL parameters. Router parameters arrive
// percent-decoded, so segments are taken verbatim.
func DecodeSegments(guildID, channelID, messageID, attachmentID string) (Identifier, error) {
	if guildID == "" || channelID == "" || messageID == "" {
		return Identifier{}, fmt.Errorf("%w: empty segment", ErrMalformedLink)
	}
	return Identifier{
		GuildID:      guildID,
		ChannelID:    channelID,
		MessageID:    messageID,
		AttachmentID: attachmentID,
	}, nil
}
