// Package telegram adapts the notifier boundary onto the Telegram Bot API
// via telebot. Flood-wait responses are translated into the pipeline's
// rate-limit error so the delivery gate can back off.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"feedrelay/internal/notifier"
	"feedrelay/pkg/logx"
)

type Config struct {
	Token string
}

type Adapter struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// Send-only bot: no poller, updates are never consumed.
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Adapter{bot: b, log: log}, nil
}

func (a *Adapter) SendText(ctx context.Context, dest, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(recipient(dest), text, sendOptions())
	return mapError(err)
}

func (a *Adapter) SendDocument(ctx context.Context, dest string, doc notifier.Document, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(doc.Data)),
		FileName: doc.Name,
		Caption:  caption,
	}
	_, err := a.bot.Send(recipient(dest), d, sendOptions())
	return mapError(err)
}

func sendOptions() *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}
}

// mapError surfaces Telegram's flood-wait as the pipeline's typed
// rate-limit signal; everything else passes through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var flood *tele.FloodError
	if errors.As(err, &flood) {
		return &notifier.RateLimitError{
			RetryAfter: time.Duration(flood.RetryAfter) * time.Second,
			Err:        err,
		}
	}
	return err
}

// chatRef addresses a chat by its raw recipient string, which lets
// "@channelname" destinations through (telebot's Chat type only carries
// numeric ids).
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

func recipient(dest string) tele.Recipient {
	dest = strings.TrimSpace(dest)
	if id, err := strconv.ParseInt(dest, 10, 64); err == nil {
		return tele.ChatID(id)
	}
	return chatRef(dest)
}
