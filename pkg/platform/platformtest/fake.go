// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/purpleshop/filebridge/pkg/platform"
)

// SentPost records one SendAs call.
type SentPost struct {
	ChannelID string
	Identity  platform.Identity
	Post      platform.Post
	FileData  [][]byte
}

// Reply records one Reply call.
type Reply struct {
	ChannelID string
	MessageID string
	Content   string
}

// FakeClient is an in-memory platform.Client. Messages are addressed by
// channel and message id; attachment URLs resolve through Files.
type FakeClient struct {
	mu sync.Mutex

	GuildID  string
	messages map[string]*platform.Message // channelID/messageID
	nextID   int

	// Files holds byte content per attachment id.
	Files map[string][]byte

	// BaseFileURL prefixes attachment URLs minted by UploadFiles. Point
	// it at an httptest.Server running FileServer to make them live.
	BaseFileURL string

	// FailUpload makes UploadFile fail for matching filenames.
	FailUpload func(filename string) error

	// UploadErrAll makes every upload fail.
	UploadErrAll error

	// DeleteErr makes DeleteMessage fail (insufficient rights case).
	DeleteErr error

	identities      map[string]platform.Identity
	IdentityCreates int

	Sent    []SentPost
	Replies []Reply
	Deleted []string
}

func NewFakeClient(guildID string) *FakeClient {
	return &FakeClient{
		GuildID:    guildID,
		messages:   make(map[string]*platform.Message),
		Files:      make(map[string][]byte),
		identities: make(map[string]platform.Identity),
	}
}

func key(channelID, messageID string) string { return channelID + "/" + messageID }

// Seed installs a message as if it had been posted on the platform.
func (f *FakeClient) Seed(msg *platform.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.GuildID == "" {
		msg.GuildID = f.GuildID
	}
	f.messages[key(msg.ChannelID, msg.ID)] = msg
}

// Remove deletes a seeded message, simulating upstream deletion.
func (f *FakeClient) Remove(channelID, messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, key(channelID, messageID))
}

// StoredMessages returns all messages currently in a channel.
func (f *FakeClient) StoredMessages(channelID string) []*platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*platform.Message
	for _, m := range f.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (f *FakeClient) Message(_ context.Context, channelID, messageID string) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[key(channelID, messageID)]
	if !ok {
		return nil, fmt.Errorf("fetching message: %w", platform.ErrNotFound)
	}
	cp := *msg
	cp.Attachments = append([]platform.Attachment(nil), msg.Attachments...)
	return &cp, nil
}

func (f *FakeClient) UploadFiles(_ context.Context, channelID string, files []platform.File) (*platform.Message, error) {
	contents := make([][]byte, 0, len(files))
	for _, file := range files {
		data, err := io.ReadAll(file.Reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", platform.ErrUpstream, err)
		}
		contents = append(contents, data)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UploadErrAll != nil {
		return nil, f.UploadErrAll
	}
	if f.FailUpload != nil {
		for _, file := range files {
			if err := f.FailUpload(file.Name); err != nil {
				return nil, err
			}
		}
	}

	f.nextID++
	msgID := "stored-" + strconv.Itoa(f.nextID)
	msg := &platform.Message{
		ID:        msgID,
		GuildID:   f.GuildID,
		ChannelID: channelID,
	}
	for i, file := range files {
		attID := fmt.Sprintf("att-%d-%d", f.nextID, i)
		f.Files[attID] = contents[i]
		msg.Attachments = append(msg.Attachments, platform.Attachment{
			ID:   attID,
			Name: file.Name,
			Size: int64(len(contents[i])),
			URL:  f.BaseFileURL + "/" + attID,
		})
	}
	f.messages[key(channelID, msgID)] = msg
	return msg, nil
}

func (f *FakeClient) EnsureIdentity(_ context.Context, channelID, name string) (platform.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.identities[channelID]; ok {
		return id, nil
	}
	f.IdentityCreates++
	id := platform.Identity{ID: "hook-" + channelID, Token: "token-" + name}
	f.identities[channelID] = id
	return id, nil
}

func (f *FakeClient) SendAs(_ context.Context, channelID string, id platform.Identity, post platform.Post) error {
	var fileData [][]byte
	for _, file := range post.Files {
		data, err := io.ReadAll(file.Reader)
		if err != nil {
			return fmt.Errorf("%w: %v", platform.ErrUpstream, err)
		}
		fileData = append(fileData, data)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, SentPost{ChannelID: channelID, Identity: id, Post: post, FileData: fileData})
	return nil
}

func (f *FakeClient) Reply(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies = append(f.Replies, Reply{ChannelID: channelID, MessageID: messageID, Content: content})
	return nil
}

// FileServer serves stored attachment bytes at /<attachmentID>, standing
// in for the platform CDN in tests.
func (f *FakeClient) FileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/")
		f.mu.Lock()
		data, ok := f.Files[id]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})
}

func (f *FakeClient) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.messages, key(channelID, messageID))
	f.Deleted = append(f.Deleted, key(channelID, messageID))
	return nil
}
