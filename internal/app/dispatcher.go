package app

import (
	"context"
	"sync/atomic"

	domainTelegram "rea_rating_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/telebot.v3"
)

// Notification is one outbound delta message, produced by reconciliation
// and consumed exactly once by the dispatcher.
type Notification struct {
	ChatID  int64
	Message string // MarkdownV2, already escaped
}

// Dispatcher fans notifications out to the Telegram transport, bounded by
// a concurrency cap. Delivery is fire-and-forget: a failed send is logged
// and neither retried nor allowed to block other recipients.
type Dispatcher struct {
	client domainTelegram.Client
	limit  int
	logger *logrus.Entry
}

func NewDispatcher(client domainTelegram.Client, limit int, logger *logrus.Entry) *Dispatcher {
	return &Dispatcher{client: client, limit: limit, logger: logger}
}

func (d *Dispatcher) DispatchAll(ctx context.Context, notifications []Notification) {
	g := new(errgroup.Group)
	g.SetLimit(d.limit)
	var dropped atomic.Int64
	for _, n := range notifications {
		n := n
		g.Go(func() error {
			if ctx.Err() != nil {
				// Shutting down; drop the remaining sends.
				dropped.Add(1)
				return nil
			}
			opts := &telebot.SendOptions{ParseMode: telebot.ModeMarkdownV2}
			if err := d.client.SendMessage(n.ChatID, n.Message, opts); err != nil {
				d.logger.WithFields(logrus.Fields{
					"chat_id": n.ChatID,
					"stage":   "dispatch",
				}).WithError(err).Error("Failed to send notification")
			}
			return nil
		})
	}
	_ = g.Wait()
	if n := dropped.Load(); n > 0 {
		d.logger.WithFields(logrus.Fields{
			"dropped": n,
			"stage":   "dispatch",
		}).Warn("Dropped pending notifications on shutdown")
	}
}
