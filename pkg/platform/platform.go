// Package platform defines the chat-platform surface the relay depends on.
// The concrete Discord implementation lives in platform/discord; tests use
// in-memory fakes of Client.
package platform

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound covers both a deleted message and a missing attachment
	// id on a live message; callers cannot and must not distinguish them.
	ErrNotFound = errors.New("not found")

	// ErrUpstream indicates the platform API or CDN call failed or
	// timed out.
	ErrUpstream = errors.New("upstream unavailable")
)

type User struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	Bot         bool
}

// Attachment is live metadata for one file on a message. URL is minted
// fresh by the platform and expires quickly; fetch immediately, never
// persist it.
type Attachment struct {
	ID          string
	Name        string
	Size        int64
	URL         string
	ContentType string
}

type Message struct {
	ID          string
	GuildID     string
	ChannelID   string
	Content     string
	Author      User
	Attachments []Attachment
}

// Identity is a per-channel impersonation handle (a webhook): posts sent
// through it carry an arbitrary display name and avatar.
type Identity struct {
	ID    string
	Token string
}

// File is an outbound file part of a Post.
type File struct {
	Name   string
	Reader io.Reader
}

// Post is an outbound message published through an Identity.
type Post struct {
	Content   string
	Username  string
	AvatarURL string
	Files     []File
}

// Client is the chat-platform client consumed by the relay and gateway.
type Client interface {
	// Message fetches a message with live attachment metadata.
	// Returns ErrNotFound if the message no longer exists.
	Message(ctx context.Context, channelID, messageID string) (*Message, error)

	// UploadFiles posts one message carrying the given files into a
	// channel and returns the created message, whose identifiers address
	// the stored bytes. Attachments come back in posted order.
	UploadFiles(ctx context.Context, channelID string, files []File) (*Message, error)

	// EnsureIdentity finds or creates the impersonation identity for a
	// channel. Creation races resolve by reusing the existing identity.
	EnsureIdentity(ctx context.Context, channelID, name string) (Identity, error)

	// SendAs publishes a post through an identity.
	SendAs(ctx context.Context, channelID string, id Identity, post Post) error

	// Reply posts a plain message referencing an existing one.
	Reply(ctx context.Context, channelID, messageID, content string) error

	// DeleteMessage removes a message. Callers tolerate failure.
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}
