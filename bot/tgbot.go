// Package bot implements the Telegram front end of the access-code service.
//
// Architecture overview:
//   - tgbot.go     — TgBot struct, lifecycle (Start/Stop), Core interface
//   - commands.go  — /start, /help and the admin /purge command
//   - callbacks.go — Inline keyboard callback handlers (menu actions, code use)
//   - messages.go  — Free-text handler consuming the pending action
//   - menus.go     — Inline menu builders and per-role command menus
//   - sweeper.go   — Interval retention purge
//   - helpers.go   — Sanitize, plainResponse, reportError, splitMessage
//
// Flow for multi-step actions: a menu button records a pending action for the
// user (impl/session), the next plain-text message from that user consumes it
// and dispatches to the core. The pending slot is cleared unconditionally,
// even when the operation itself is rejected.
package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codegate/entity"
	"codegate/impl/session"
	"codegate/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
)

// BotConfig holds Telegram-specific configuration loaded from the YAML config file.
type BotConfig struct {
	AdminId       int64
	SweepInterval time.Duration
}

// Core defines the registry and access-control operations the bot depends on.
// Implemented by impl/core.
type Core interface {
	AddCode(value string) (*entity.Code, error)
	GenerateCode() (*entity.Code, error)
	DeleteCode(value string) error
	CheckCode(value string) (*entity.Code, error)
	UseCode(value string) error
	ListCodes() ([]*entity.Code, error)
	PurgeExpired() (int64, error)
	IsAdmin(userId int64) bool
	IsAllowed(userId int64) (bool, error)
	ToggleUser(userId int64) (bool, error)
}

// TgBot is the central Telegram bot instance.
type TgBot struct {
	log      *slog.Logger
	api      *tgbotapi.Bot
	core     Core
	sessions *session.Tracker
	updater  *ext.Updater
	sweeper  *Sweeper
	config   BotConfig
	now      func() time.Time
}

func NewTgBot(apiKey string, core Core, sessions *session.Tracker, log *slog.Logger, cfg BotConfig) (*TgBot, error) {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 12 * time.Hour
	}

	tgBot := &TgBot{
		log:      log.With(sl.Module("tgbot")),
		core:     core,
		sessions: sessions,
		config:   cfg,
		now:      time.Now,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) Start() error {
	t.sweeper = NewSweeper(t, t.config.SweepInterval)
	t.sweeper.StartTicker()

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	// Commands
	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("purge", t.purge))

	// Menu actions that prompt for the next message
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbAddCode), t.onMenuAction))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbDeleteCode), t.onMenuAction))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbManageUsers), t.onMenuAction))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbCheckCode), t.onMenuAction))

	// Immediate menu actions
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbListCodes), t.onListCodes))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbGenerate), t.onGenerateCode))

	// Per-code actions attached to check results
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbUseCode), t.onUseCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbCancelCode), t.onCancelCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbBackCode), t.onBackCallback))

	// Free-text messages consume the pending action
	dispatcher.AddHandler(handlers.NewMessage(func(msg *tgbotapi.Message) bool {
		return msg.Text != "" && !strings.HasPrefix(msg.Text, "/")
	}, t.onText))

	t.setDefaultCommands()
	t.setUserCommands(t.config.AdminId, true)

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.sweeper != nil {
		t.sweeper.Stop()
	}
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}
