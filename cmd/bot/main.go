package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"groupwarden/bot"
	"groupwarden/impl/auth"
	"groupwarden/impl/core"
	"groupwarden/impl/invite"
	"groupwarden/impl/lang"
	"groupwarden/impl/stats"
	"groupwarden/impl/verify"
	"groupwarden/internal/config"
	"groupwarden/internal/database"
	"groupwarden/internal/http-server/api"
	"groupwarden/internal/scheduler"
	"groupwarden/lib/logger"
	"groupwarden/lib/sl"
)

const logFileName = "groupwarden.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting groupwarden", slog.String("config", *configPath), slog.String("env", conf.Env))

	db, err := database.NewSQLClient(conf)
	if err != nil {
		log.Error("database connection", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	langService := lang.New(db, conf.Bot.DefaultLanguage, log)
	if err = langService.LoadCatalog(conf.Bot.LanguagesFile); err != nil {
		log.Error("language catalog", sl.Err(err))
		os.Exit(1)
	}
	if err = langService.SyncToDB(); err != nil {
		log.Error("language sync", sl.Err(err))
		os.Exit(1)
	}

	timeout := time.Duration(conf.Bot.ChallengeTimeoutSec) * time.Second
	verifyService := verify.New(db, timeout, conf.Bot.MaxAttempts, log)
	inviteService := invite.New(db, conf.Bot.MembersPerPage, log)
	statsService := stats.New(db, conf.Bot.RankingLimit, log)

	sched, err := scheduler.New(db, log)
	if err != nil {
		log.Error("scheduler", sl.Err(err))
		os.Exit(1)
	}

	tgBot, err := bot.NewTgBot(
		conf.Telegram.ApiKey,
		db,
		verifyService,
		inviteService,
		statsService,
		langService,
		sched,
		log,
		bot.BotConfig{
			GroupChatId:      conf.Telegram.GroupChatId,
			ChallengeTimeout: timeout,
			RankingLimit:     conf.Bot.RankingLimit,
		},
	)
	if err != nil {
		log.Error("telegram bot", sl.Err(err))
		os.Exit(1)
	}

	if conf.Api.Enabled {
		handler := core.New(log)
		handler.SetAuthService(auth.New(conf.Api.Token))
		handler.SetStatsService(statsService)
		handler.SetInviteService(inviteService)
		go func() {
			if err := api.New(conf, log, handler); err != nil {
				log.Error("api server", sl.Err(err))
			}
		}()
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		tgBot.Stop()
	}()

	if err = tgBot.Start(); err != nil {
		log.Error("telegram bot stopped", sl.Err(err))
		os.Exit(1)
	}
}
