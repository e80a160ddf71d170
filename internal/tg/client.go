// Package tg is the Telegram transport layer. It normalizes incoming
// updates into conversation events and exposes typed send helpers.
package tg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"gopkg.in/telebot.v3"

	"donor-bot/internal/convo"
	"donor-bot/internal/metrics"
)

// commands registered with the bot. Everything else arrives as plain text.
var commands = []string{
	"start", "cancel", "logout",
	"card", "link", "amount", "upload", "history",
	"report", "broadcast", "manual_trigger",
}

// Processor consumes normalized events. Implemented by *convo.Engine.
type Processor interface {
	Process(ctx context.Context, ev convo.Event) error
}

// Config defines Telegram client settings.
type Config struct {
	Token       string
	PollTimeout time.Duration
	// HandleTimeout bounds the processing of a single update.
	HandleTimeout time.Duration
	Metrics       *metrics.Metrics
}

// Client wraps a telebot bot.
type Client struct {
	bot       *telebot.Bot
	processor Processor
	metrics   *metrics.Metrics
	logger    *slog.Logger
	timeout   time.Duration
}

var (
	approveBtn = telebot.Btn{Unique: "approve"}
	denyBtn    = telebot.Btn{Unique: "deny"}
)

// New connects to the Telegram Bot API and registers the update handlers.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		metrics: cfg.Metrics,
		logger:  logger.With("component", "tg"),
		timeout: cfg.HandleTimeout,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: &telebot.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, tc telebot.Context) {
			c.metrics.Errors.WithLabelValues("tg").Inc()
			c.logger.Error("update handling failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	c.bot = bot
	c.registerHandlers()
	return c, nil
}

// SetProcessor wires the conversation engine.
func (c *Client) SetProcessor(p Processor) {
	c.processor = p
}

// Start begins long polling and blocks until ctx is cancelled.
func (c *Client) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.bot.Stop()
	}()
	c.logger.Info("telegram polling started", "bot", c.bot.Me.Username)
	c.bot.Start()
	return nil
}

func (c *Client) registerHandlers() {
	for _, name := range commands {
		name := name
		c.bot.Handle("/"+name, func(tc telebot.Context) error {
			return c.dispatch(convo.Event{
				Kind:    convo.KindCommand,
				ChatID:  tc.Chat().ID,
				Command: name,
				Args:    tc.Args(),
			})
		})
	}

	c.bot.Handle(telebot.OnText, func(tc telebot.Context) error {
		return c.dispatch(convo.Event{
			Kind:   convo.KindText,
			ChatID: tc.Chat().ID,
			Text:   tc.Text(),
		})
	})

	c.bot.Handle(telebot.OnPhoto, func(tc telebot.Context) error {
		photo := tc.Message().Photo
		if photo == nil {
			return nil
		}
		return c.dispatch(convo.Event{
			Kind:     convo.KindPhoto,
			ChatID:   tc.Chat().ID,
			PhotoRef: photo.FileID,
		})
	})

	c.bot.Handle(&approveBtn, c.decisionHandler(convo.ActionApprove))
	c.bot.Handle(&denyBtn, c.decisionHandler(convo.ActionDeny))
}

func (c *Client) decisionHandler(action string) telebot.HandlerFunc {
	return func(tc telebot.Context) error {
		paymentID, err := strconv.ParseInt(tc.Data(), 10, 64)
		if err != nil {
			c.logger.Warn("malformed callback payload", "data", tc.Data())
			return tc.Respond()
		}
		if err := c.dispatch(convo.Event{
			Kind:      convo.KindAction,
			ChatID:    tc.Chat().ID,
			Action:    action,
			PaymentID: paymentID,
		}); err != nil {
			return err
		}
		return tc.Respond()
	}
}

func (c *Client) dispatch(ev convo.Event) error {
	if c.processor == nil {
		c.logger.Warn("update dropped, no processor wired", "kind", ev.Kind)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.processor.Process(ctx, ev)
}

// SendText delivers a plain text message to a chat.
func (c *Client) SendText(_ context.Context, chatID int64, text string) error {
	if _, err := c.bot.Send(&telebot.User{ID: chatID}, text); err != nil {
		return fmt.Errorf("send text to %d: %w", chatID, err)
	}
	c.metrics.TGOutgoingMessages.WithLabelValues("text").Inc()
	return nil
}

// SendPhoto re-sends an already uploaded photo by its file id.
func (c *Client) SendPhoto(_ context.Context, chatID int64, fileRef, caption string) error {
	photo := &telebot.Photo{
		File:    telebot.File{FileID: fileRef},
		Caption: caption,
	}
	if _, err := c.bot.Send(&telebot.User{ID: chatID}, photo); err != nil {
		return fmt.Errorf("send photo to %d: %w", chatID, err)
	}
	c.metrics.TGOutgoingMessages.WithLabelValues("photo").Inc()
	return nil
}

// SendDocument uploads and delivers a document.
func (c *Client) SendDocument(_ context.Context, chatID int64, filename string, data io.Reader) error {
	doc := &telebot.Document{
		File:     telebot.FromReader(data),
		FileName: filename,
	}
	if _, err := c.bot.Send(&telebot.User{ID: chatID}, doc); err != nil {
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	c.metrics.TGOutgoingMessages.WithLabelValues("document").Inc()
	return nil
}

// SendApprovalPrompt posts the proof photo to the admin with approve and
// deny buttons carrying the payment id as callback payload.
func (c *Client) SendApprovalPrompt(_ context.Context, chatID int64, fileRef, caption string, paymentID int64) error {
	payload := strconv.FormatInt(paymentID, 10)
	markup := c.bot.NewMarkup()
	markup.Inline(markup.Row(
		markup.Data("تأیید ✅", approveBtn.Unique, payload),
		markup.Data("رد ❌", denyBtn.Unique, payload),
	))

	photo := &telebot.Photo{
		File:    telebot.File{FileID: fileRef},
		Caption: caption,
	}
	if _, err := c.bot.Send(&telebot.User{ID: chatID}, photo, markup); err != nil {
		return fmt.Errorf("send approval prompt to %d: %w", chatID, err)
	}
	c.metrics.TGOutgoingMessages.WithLabelValues("approval").Inc()
	return nil
}

// FetchFile downloads a file from Telegram by its file id.
func (c *Client) FetchFile(_ context.Context, fileRef string) (io.ReadCloser, error) {
	file := telebot.File{FileID: fileRef}
	rc, err := c.bot.File(&file)
	if err != nil {
		return nil, fmt.Errorf("fetch file %s: %w", fileRef, err)
	}
	return rc, nil
}
