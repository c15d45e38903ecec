// Package bot implements the Telegram front of the group guard.
//
// Architecture overview:
//   - tgbot.go     — TgBot struct, lifecycle (Start/Stop), Database interface
//   - commands.go  — User-facing commands: /start, /link, /stats, /ranking, /lang, /help
//   - callbacks.go — Inline keyboard builders and callback query handlers
//   - members.go   — Join/leave flow: de-dup, restriction, captcha, timeout kick
//   - action.go    — Typed parsing of callback payloads
//   - helpers.go   — Shared utilities: plainResponse, sendWithKeyboard, reportError
//
// Flow for a new group member:
//
//	join → de-dup check → restrict → language keyboard → captcha (image + A-D)
//	  correct answer → lift restriction, mark verified, welcome
//	  wrong answer or timeout → kick (ban+unban), erase from invite stats
//
// Deferred work (timeout kick, prompt cleanup) goes through the durable
// scheduler, so pending kicks survive a restart.
package bot

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"

	"groupwarden/entity"
	"groupwarden/impl/invite"
	"groupwarden/impl/lang"
	"groupwarden/impl/stats"
	"groupwarden/impl/verify"
	"groupwarden/internal/scheduler"
	"groupwarden/lib/sl"
)

// BotConfig holds Telegram-specific configuration loaded from the YAML
// config file.
type BotConfig struct {
	GroupChatId      int64
	ChallengeTimeout time.Duration
	RankingLimit     int
}

// Database defines the storage operations the bot uses directly; the
// rest goes through the impl services.
type Database interface {
	EnsureUser(userId int64, username, firstName, lastName string) error
	RecordJoinEvent(chatId, userId, bucket, oldestLive int64) (bool, error)
}

// TgBot is the central Telegram bot instance. It owns no business
// logic; commands and callbacks delegate to the impl services and the
// scheduler.
type TgBot struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	db      Database
	verify  *verify.Service
	invite  *invite.Service
	stats   *stats.Service
	lang    *lang.Service
	sched   *scheduler.Scheduler
	updater *ext.Updater
	config  BotConfig

	mu           sync.Mutex
	timeoutTasks map[int64]string // user id → pending verify_timeout task id
}

func NewTgBot(
	apiKey string,
	db Database,
	verifySvc *verify.Service,
	inviteSvc *invite.Service,
	statsSvc *stats.Service,
	langSvc *lang.Service,
	sched *scheduler.Scheduler,
	log *slog.Logger,
	cfg BotConfig,
) (*TgBot, error) {
	if cfg.ChallengeTimeout == 0 {
		cfg.ChallengeTimeout = 5 * time.Minute
	}
	if cfg.RankingLimit == 0 {
		cfg.RankingLimit = 20
	}

	tgBot := &TgBot{
		log:          log.With(sl.Module("tgbot")),
		db:           db,
		verify:       verifySvc,
		invite:       inviteSvc,
		stats:        statsSvc,
		lang:         langSvc,
		sched:        sched,
		config:       cfg,
		timeoutTasks: make(map[int64]string),
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) Start() error {
	// scheduler callbacks must be registered before pending rows are
	// re-armed
	t.sched.Register(entity.TaskVerifyTimeout, t.onVerifyTimeout)
	t.sched.Register(entity.TaskDeleteMessage, t.onDeleteMessage)
	if err := t.sched.Every(time.Minute, t.verify.CleanupExpired); err != nil {
		return err
	}
	if err := t.sched.Start(); err != nil {
		return err
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	// User commands
	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("link", t.link))
	dispatcher.AddHandler(handlers.NewCommand("stats", t.statsCmd))
	dispatcher.AddHandler(handlers.NewCommand("ranking", t.ranking))
	dispatcher.AddHandler(handlers.NewCommand("lang", t.langCmd))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))

	// Membership events
	dispatcher.AddHandler(handlers.NewMessage(hasNewMembers, t.onNewMembers))
	dispatcher.AddHandler(handlers.NewMessage(hasLeftMember, t.onMemberLeft))
	dispatcher.AddHandler(handlers.NewChatMember(memberJoinedViaLink, t.onJoinViaLink))

	// Callback query handlers
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbLanguage), t.onLanguageCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbCaptcha), t.onCaptchaCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbPage), t.onPageCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbRanking), t.onRankingCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbNoop), t.onNoopCallback))

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			AllowedUpdates: []string{
				"message", "callback_query", "chat_member",
			},
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
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
	t.sched.Stop()
}
