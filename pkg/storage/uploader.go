// Package storage places file bytes into the storage channel and captures
// the identifiers the platform assigns to them. It only moves bytes; what
// the stored post looks like is the relay pipeline's business.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/purpleshop/filebridge/pkg/platform"
)

// Receipt addresses one stored file.
type Receipt struct {
	GuildID      string
	ChannelID    string
	MessageID    string
	AttachmentID string
	Name         string
	Size         int64

	// URL is the freshly minted fetch URL of the stored copy. It expires
	// quickly; use it immediately or re-resolve.
	URL string
}

// Payload is a named byte source: either a remote URL (platform CDN) or an
// in-memory buffer. Callers of Uploader never need to know which.
type Payload struct {
	Name string
	open func(ctx context.Context) (io.ReadCloser, error)
}

// FromBytes wraps an in-memory buffer as a Payload.
func FromBytes(name string, data []byte) Payload {
	return Payload{
		Name: name,
		open: func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromURL wraps a remote URL as a Payload. Bytes are streamed at upload
// time through the given HTTP client.
func FromURL(client *http.Client, name, url string) Payload {
	return Payload{
		Name: name,
		open: func(ctx context.Context) (io.ReadCloser, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", platform.ErrUpstream, err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("fetching %s: %w: %v", name, platform.ErrUpstream, err)
			}
			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				return nil, fmt.Errorf("fetching %s: %w: status %d", name, platform.ErrUpstream, resp.StatusCode)
			}
			return resp.Body, nil
		},
	}
}

// Failure reports one payload that could not be stored.
type Failure struct {
	Name string
	Err  error
}

// BatchResult aggregates one UploadBatch run. Receipts keep the input
// order of the payloads that made it into storage.
type BatchResult struct {
	Receipts []Receipt
	Failures []Failure
}

// Uploader pushes payloads into a fixed storage channel.
type Uploader struct {
	client    platform.Client
	channelID string
}

func NewUploader(client platform.Client, channelID string) *Uploader {
	return &Uploader{client: client, channelID: channelID}
}

// Upload stores a single payload.
func (u *Uploader) Upload(ctx context.Context, p Payload) (Receipt, error) {
	res := u.UploadBatch(ctx, []Payload{p})
	if len(res.Receipts) == 1 {
		return res.Receipts[0], nil
	}
	if len(res.Failures) == 1 {
		return Receipt{}, res.Failures[0].Err
	}
	return Receipt{}, fmt.Errorf("uploading %s: %w: no receipt", p.Name, platform.ErrUpstream)
}

// UploadBatch stores all payloads as attachments of one storage post, so a
// single link can later address the whole batch. A payload whose byte
// source cannot be opened is dropped without aborting its siblings; only
// the final platform send is all-or-nothing.
func (u *Uploader) UploadBatch(ctx context.Context, payloads []Payload) BatchResult {
	var res BatchResult

	var files []platform.File
	var opened []io.ReadCloser
	defer func() {
		for _, rc := range opened {
			rc.Close()
		}
	}()

	for _, p := range payloads {
		body, err := p.open(ctx)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Name: p.Name, Err: err})
			continue
		}
		opened = append(opened, body)
		files = append(files, platform.File{Name: p.Name, Reader: body})
	}

	if len(files) == 0 {
		return res
	}

	msg, err := u.client.UploadFiles(ctx, u.channelID, files)
	if err != nil {
		for _, f := range files {
			res.Failures = append(res.Failures, Failure{Name: f.Name, Err: err})
		}
		return res
	}

	if len(msg.Attachments) != len(files) {
		err := fmt.Errorf("%w: stored %d of %d files", platform.ErrUpstream, len(msg.Attachments), len(files))
		for _, f := range files {
			res.Failures = append(res.Failures, Failure{Name: f.Name, Err: err})
		}
		return res
	}

	for i, att := range msg.Attachments {
		res.Receipts = append(res.Receipts, Receipt{
			GuildID:      msg.GuildID,
			ChannelID:    msg.ChannelID,
			MessageID:    msg.ID,
			AttachmentID: att.ID,
			Name:         files[i].Name,
			Size:         att.Size,
			URL:          att.URL,
		})
	}
	return res
}
