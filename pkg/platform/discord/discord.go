// Package discord implements platform.Client on top of discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/purpleshop/filebridge/pkg/logger"
	"github.com/purpleshop/filebridge/pkg/platform"
)

// Client wraps a discordgo session as a platform.Client and delivers
// inbound message events to a registered handler.
type Client struct {
	session *discordgo.Session
	running atomic.Bool
	handler func(msg *platform.Message, fromAutomated bool)
}

func New(token string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	return &Client{session: session}, nil
}

// OnMessage registers the inbound message handler. Must be called before
// Start. fromAutomated is true for bot and webhook authors, which the relay
// ignores to avoid reprocessing its own posts.
func (c *Client) OnMessage(handler func(msg *platform.Message, fromAutomated bool)) {
	c.handler = handler
}

func (c *Client) Start(ctx context.Context) error {
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if c.handler == nil {
			return
		}
		automated := m.Author == nil || m.Author.Bot || m.WebhookID != ""
		c.handler(convertMessage(m.Message), automated)
	})

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	c.running.Store(true)
	logger.InfoCF("discord", "Gateway connected", map[string]any{
		"user": c.session.State.User.Username,
	})

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

func (c *Client) Stop() {
	if c.running.CompareAndSwap(true, false) {
		if err := c.session.Close(); err != nil {
			logger.WarnCF("discord", "Error closing session", map[string]any{"error": err.Error()})
		}
	}
}

func (c *Client) IsRunning() bool {
	return c.running.Load()
}

func (c *Client) Message(ctx context.Context, channelID, messageID string) (*platform.Message, error) {
	msg, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapErr("fetching message", err)
	}
	return convertMessage(msg), nil
}

func (c *Client) UploadFiles(ctx context.Context, channelID string, files []platform.File) (*platform.Message, error) {
	outbound := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		outbound = append(outbound, &discordgo.File{Name: f.Name, Reader: f.Reader})
	}
	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Files: outbound,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapErr("uploading files", err)
	}
	return convertMessage(msg), nil
}

func (c *Client) EnsureIdentity(ctx context.Context, channelID, name string) (platform.Identity, error) {
	hooks, err := c.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Identity{}, wrapErr("listing webhooks", err)
	}
	for _, h := range hooks {
		if h.Name == name && h.Token != "" {
			return platform.Identity{ID: h.ID, Token: h.Token}, nil
		}
	}

	hook, err := c.session.WebhookCreate(channelID, name, "", discordgo.WithContext(ctx))
	if err != nil {
		// A concurrent create may have won; re-list and reuse.
		hooks, listErr := c.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
		if listErr == nil {
			for _, h := range hooks {
				if h.Name == name && h.Token != "" {
					return platform.Identity{ID: h.ID, Token: h.Token}, nil
				}
			}
		}
		return platform.Identity{}, wrapErr("creating webhook", err)
	}
	return platform.Identity{ID: hook.ID, Token: hook.Token}, nil
}

func (c *Client) SendAs(ctx context.Context, channelID string, id platform.Identity, post platform.Post) error {
	files := make([]*discordgo.File, 0, len(post.Files))
	for _, f := range post.Files {
		files = append(files, &discordgo.File{Name: f.Name, Reader: f.Reader})
	}
	_, err := c.session.WebhookExecute(id.ID, id.Token, true, &discordgo.WebhookParams{
		Content:   post.Content,
		Username:  post.Username,
		AvatarURL: post.AvatarURL,
		Files:     files,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return wrapErr("executing webhook", err)
	}
	return nil
}

func (c *Client) Reply(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		ChannelID: channelID,
		MessageID: messageID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return wrapErr("sending reply", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return wrapErr("deleting message", err)
	}
	return nil
}

func convertMessage(m *discordgo.Message) *platform.Message {
	msg := &platform.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		display := m.Author.GlobalName
		if display == "" {
			display = m.Author.Username
		}
		msg.Author = platform.User{
			ID:          m.Author.ID,
			Username:    m.Author.Username,
			DisplayName: display,
			AvatarURL:   m.Author.AvatarURL(""),
			Bot:         m.Author.Bot,
		}
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, platform.Attachment{
			ID:          a.ID,
			Name:        a.Filename,
			Size:        int64(a.Size),
			URL:         a.URL,
			ContentType: a.ContentType,
		})
	}
	return msg
}

// wrapErr maps discordgo REST errors onto the platform error taxonomy.
func wrapErr(op string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, platform.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, platform.ErrUpstream, err)
}
