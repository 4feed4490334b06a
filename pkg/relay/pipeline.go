// Package relay watches inbound posts and moves eligible files into the
// storage channel, replacing the original post with share links published
// under the original author's displayed identity.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/purpleshop/filebridge/pkg/archive"
	"github.com/purpleshop/filebridge/pkg/bus"
	"github.com/purpleshop/filebridge/pkg/link"
	"github.com/purpleshop/filebridge/pkg/logger"
	"github.com/purpleshop/filebridge/pkg/metrics"
	"github.com/purpleshop/filebridge/pkg/platform"
	"github.com/purpleshop/filebridge/pkg/storage"
)

// ErrEmptyBatch aborts a run whose forwarding produced zero stored files.
// The original post stays untouched in that case.
var ErrEmptyBatch = errors.New("no files stored")

// maxArchiveFetchBytes caps how much of a stored archive is pulled back for
// icon extraction.
const maxArchiveFetchBytes = 64 << 20

// BaseURLProvider supplies the externally reachable origin for absolute
// links.
type BaseURLProvider interface {
	BaseURL() string
}

type Pipeline struct {
	client           platform.Client
	uploader         *storage.Uploader
	baseURL          BaseURLProvider
	guildID          string
	storageChannelID string
	identities       *IdentityRegistry

	httpClient  *http.Client
	callTimeout time.Duration

	// shuffle orders archive candidates for icon extraction; the default
	// is a random permutation so bundle previews vary.
	shuffle func(n int) []int
}

type Option func(*Pipeline)

// WithShuffle replaces the random candidate ordering, letting tests pin a
// deterministic icon search order.
func WithShuffle(f func(n int) []int) Option {
	return func(p *Pipeline) { p.shuffle = f }
}

// WithHTTPClient replaces the HTTP client used for CDN fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.httpClient = c }
}

// WithCallTimeout bounds each upstream step of a run.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.callTimeout = d }
}

func New(
	client platform.Client,
	uploader *storage.Uploader,
	baseURL BaseURLProvider,
	guildID, storageChannelID string,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		client:           client,
		uploader:         uploader,
		baseURL:          baseURL,
		guildID:          guildID,
		storageChannelID: storageChannelID,
		identities:       NewIdentityRegistry(client),
		httpClient:       &http.Client{Timeout: 60 * time.Second},
		callTimeout:      30 * time.Second,
		shuffle:          rand.Perm,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run consumes inbound posts until the bus closes or ctx is canceled. Runs
// are processed one at a time; every run is independent and holds no state
// afterward.
func (p *Pipeline) Run(ctx context.Context, pb *bus.PostBus) {
	for {
		post, ok := pb.Consume(ctx)
		if !ok {
			return
		}
		res := p.safeProcess(ctx, post)
		forwarded := 0
		if res.Outcome == OutcomeRelayed {
			forwarded = len(res.Entries)
		}
		metrics.RecordRun(string(res.Outcome), forwarded)
		if res.Err != nil {
			logger.WarnCF("relay", "Run ended with error", map[string]any{
				"run":     res.RunID,
				"outcome": string(res.Outcome),
				"error":   res.Err.Error(),
			})
		}
	}
}

// safeProcess guards Process so a single malformed post can never take the
// relay worker down.
func (p *Pipeline) safeProcess(ctx context.Context, post bus.InboundPost) (res RunResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("relay", "Recovered from panic in pipeline", map[string]any{"panic": fmt.Sprint(r)})
			res = RunResult{Outcome: OutcomeAborted, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.Process(ctx, post)
}

// Process runs one inbound post through the pipeline and returns a typed
// result describing what happened and why items were dropped.
func (p *Pipeline) Process(ctx context.Context, post bus.InboundPost) RunResult {
	res := RunResult{RunID: uuid.NewString()}
	msg := post.Message

	if msg == nil || post.FromAutomated || msg.GuildID != p.guildID {
		res.Outcome = OutcomeIgnored
		return res
	}

	// Files posted straight into the storage channel are already stored;
	// only a link reply is appended, nothing is re-forwarded.
	if msg.ChannelID == p.storageChannelID {
		return p.replyWithLinks(ctx, res, msg)
	}

	var eligible []platform.Attachment
	for _, att := range msg.Attachments {
		if EligibleForRelay(att.Name) {
			eligible = append(eligible, att)
		} else {
			res.Drops = append(res.Drops, Drop{Name: att.Name, Reason: DropIneligible})
		}
	}
	if len(eligible) == 0 {
		res.Outcome = OutcomeFiltered
		return res
	}

	// Forwarding: copy bytes into storage, one storage post per run so a
	// single bundle link can address the whole batch.
	payloads := make([]storage.Payload, 0, len(eligible))
	for _, att := range eligible {
		payloads = append(payloads, storage.FromURL(p.httpClient, att.Name, att.URL))
	}

	fctx, cancel := context.WithTimeout(ctx, p.callTimeout*time.Duration(len(payloads)+1))
	batch := p.uploader.UploadBatch(fctx, payloads)
	cancel()

	for _, f := range batch.Failures {
		res.Drops = append(res.Drops, Drop{Name: f.Name, Reason: DropUploadFailed, Err: f.Err})
		logger.WarnCF("relay", "Attachment dropped", map[string]any{
			"run": res.RunID, "file": f.Name, "error": f.Err.Error(),
		})
	}
	if len(batch.Receipts) == 0 {
		res.Outcome = OutcomeAborted
		res.Err = fmt.Errorf("forwarding message %s: %w", msg.ID, ErrEmptyBatch)
		return res
	}

	return p.replaceOriginal(ctx, res, msg, batch.Receipts)
}

// replaceOriginal publishes the single composite replacement post and then
// deletes the original. Deletion failure is tolerated: duplicate visible
// content beats silently dropped content.
func (p *Pipeline) replaceOriginal(ctx context.Context, res RunResult, msg *platform.Message, receipts []storage.Receipt) RunResult {
	base := p.baseURL.BaseURL()

	for _, rec := range receipts {
		path := link.Encode(link.Identifier{
			GuildID:      rec.GuildID,
			ChannelID:    rec.ChannelID,
			MessageID:    rec.MessageID,
			AttachmentID: rec.AttachmentID,
		})
		res.Entries = append(res.Entries, Entry{
			Link:        path,
			DisplayName: rec.Name,
			SizeKB:      kb(rec.Size),
		})
	}

	if len(receipts) == 1 {
		res.Link = res.Entries[0].Link
	} else {
		res.Link = link.Encode(link.Identifier{
			GuildID:   receipts[0].GuildID,
			ChannelID: receipts[0].ChannelID,
			MessageID: receipts[0].MessageID,
		})
	}

	icon := p.findIcon(ctx, receipts)
	res.IconAttached = icon != nil

	outbound := platform.Post{
		Content:   p.composeContent(msg.Content, base, res),
		Username:  msg.Author.DisplayName,
		AvatarURL: msg.Author.AvatarURL,
	}
	if icon != nil {
		outbound.Files = []platform.File{{Name: "pack_icon.png", Reader: bytes.NewReader(icon)}}
	}

	sctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	identity, err := p.identities.Lookup(sctx, msg.ChannelID)
	if err != nil {
		res.Outcome = OutcomeAborted
		res.Err = fmt.Errorf("relay identity for channel %s: %w", msg.ChannelID, err)
		return res
	}
	if err := p.client.SendAs(sctx, msg.ChannelID, identity, outbound); err != nil {
		res.Outcome = OutcomeAborted
		res.Err = fmt.Errorf("publishing replacement: %w", err)
		return res
	}

	dctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	if err := p.client.DeleteMessage(dctx, msg.ChannelID, msg.ID); err != nil {
		logger.WarnCF("relay", "Could not delete original post", map[string]any{
			"run": res.RunID, "message": msg.ID, "error": err.Error(),
		})
	} else {
		res.DeletedOriginal = true
	}

	res.Outcome = OutcomeRelayed
	logger.InfoCF("relay", "Post relayed", map[string]any{
		"run":     res.RunID,
		"files":   len(res.Entries),
		"dropped": len(res.Drops),
		"link":    res.Link,
	})
	return res
}

func (p *Pipeline) composeContent(original, base string, res RunResult) string {
	var b strings.Builder
	if original != "" {
		b.WriteString(original)
		b.WriteString("\n\n")
	}

	if len(res.Entries) == 1 {
		e := res.Entries[0]
		fmt.Fprintf(&b, "**%s** (%d KB)\n[Download](%s)", e.DisplayName, e.SizeKB, base+e.Link)
		return b.String()
	}

	fmt.Fprintf(&b, "[Download all files](%s)", base+res.Link)
	for _, e := range res.Entries {
		fmt.Fprintf(&b, "\n- %s (%d KB)", e.DisplayName, e.SizeKB)
	}
	return b.String()
}

// findIcon tries archive receipts in randomized order and returns the
// first embedded icon found, or nil. Failures only suppress the preview.
func (p *Pipeline) findIcon(ctx context.Context, receipts []storage.Receipt) []byte {
	var candidates []storage.Receipt
	for _, rec := range receipts {
		if archive.IsArchiveName(rec.Name) {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	for _, idx := range p.shuffle(len(candidates)) {
		rec := candidates[idx]
		ictx, cancel := context.WithTimeout(ctx, p.callTimeout)
		data, err := p.fetchCapped(ictx, rec.URL)
		cancel()
		if err != nil {
			logger.DebugCF("relay", "Icon candidate fetch failed", map[string]any{
				"file": rec.Name, "error": err.Error(),
			})
			continue
		}
		if icon, ok := archive.ExtractIcon(data); ok {
			return icon
		}
	}
	return nil
}

func (p *Pipeline) fetchCapped(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrUpstream, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", platform.ErrUpstream, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", platform.ErrUpstream, err)
	}
	if len(data) > maxArchiveFetchBytes {
		return nil, fmt.Errorf("%w: archive exceeds %d bytes", platform.ErrUpstream, maxArchiveFetchBytes)
	}
	return data, nil
}

// replyWithLinks handles direct posts in the storage channel: the files are
// already durably stored, so the run only appends a reply carrying their
// share links.
func (p *Pipeline) replyWithLinks(ctx context.Context, res RunResult, msg *platform.Message) RunResult {
	base := p.baseURL.BaseURL()

	var lines []string
	for _, att := range msg.Attachments {
		if !EligibleForLink(att.Name) {
			res.Drops = append(res.Drops, Drop{Name: att.Name, Reason: DropIneligible})
			continue
		}
		path := link.Encode(link.Identifier{
			GuildID:      msg.GuildID,
			ChannelID:    msg.ChannelID,
			MessageID:    msg.ID,
			AttachmentID: att.ID,
		})
		res.Entries = append(res.Entries, Entry{Link: path, DisplayName: att.Name, SizeKB: kb(att.Size)})
		lines = append(lines, fmt.Sprintf("[%s](%s)", att.Name, base+path))
	}
	if len(res.Entries) == 0 {
		res.Outcome = OutcomeFiltered
		return res
	}

	rctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	if err := p.client.Reply(rctx, msg.ChannelID, msg.ID, strings.Join(lines, "\n")); err != nil {
		res.Outcome = OutcomeAborted
		res.Err = fmt.Errorf("link reply: %w", err)
		return res
	}

	res.Outcome = OutcomeReplied
	return res
}

func kb(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + 1023) / 1024
}
