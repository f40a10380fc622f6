package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"codegate/bot"
)

// TelegramHandler is a slog.Handler that forwards records at or above
// minLevel to the administrator's Telegram chat, after letting the wrapped
// handler write them normally.
type TelegramHandler struct {
	handler  slog.Handler
	bot      *bot.TgBot
	minLevel slog.Level
	mu       sync.Mutex
	attrs    []slog.Attr
	group    string
}

func NewTelegramHandler(handler slog.Handler, tgBot *bot.TgBot, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		bot:      tgBot,
		minLevel: minLevel,
		attrs:    make([]slog.Attr, 0),
	}
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.handler.Handle(ctx, record)
	if err != nil {
		return err
	}

	if record.Level < h.minLevel || h.bot == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var msg string
	if h.group != "" {
		msg = fmt.Sprintf("`%s.%s`", h.group, record.Message)
	} else {
		msg = fmt.Sprintf("`%s`", record.Message)
	}

	for _, attr := range h.attrs {
		msg += bot.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg += bot.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
		return true
	})

	h.bot.SendToAdmin(msg, record.Level)
	return nil
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		bot:      h.bot,
		minLevel: h.minLevel,
		attrs:    newAttrs,
		group:    h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		bot:      h.bot,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}
