package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"codegate/bot"
	"codegate/impl/core"
	"codegate/impl/session"
	"codegate/internal/config"
	"codegate/internal/database"
	"codegate/internal/http-server/api"
	"codegate/internal/mysql"
	"codegate/lib/logger"
	"codegate/lib/sl"
)

const logFileName = "codegate.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting codegate", slog.String("config", *configPath), slog.String("env", conf.Env))

	var db core.Database
	switch {
	case conf.Mongo.Enabled:
		db = database.NewMongoClient(conf)
	case conf.MySql.Enabled:
		sqlClient, err := mysql.NewSQLClient(conf)
		if err != nil {
			log.Error("connecting to mysql", sl.Err(err))
			os.Exit(1)
		}
		defer sqlClient.Close()
		db = sqlClient
	default:
		log.Error("no storage backend enabled in configuration")
		os.Exit(1)
	}

	registry := core.New(db, conf.Telegram.AdminId, conf.Telegram.CodeLength, log)
	if err := registry.Init(); err != nil {
		log.Error("initializing registry", sl.Err(err))
		os.Exit(1)
	}

	sessions := session.New()
	tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, registry, sessions, log, bot.BotConfig{
		AdminId:       conf.Telegram.AdminId,
		SweepInterval: time.Duration(conf.Telegram.SweepIntervalH) * time.Hour,
	})
	if err != nil {
		log.Error("creating telegram bot", sl.Err(err))
		os.Exit(1)
	}

	go func() {
		if err = tgBot.Start(); err != nil {
			log.Error("starting telegram bot", sl.Err(err))
		}
	}()
	defer tgBot.Stop()

	// Errors logged by the API server are also forwarded to the admin chat.
	apiLog := slog.New(logger.NewTelegramHandler(log.Handler(), tgBot, slog.LevelError))
	if err = api.New(conf, apiLog, registry); err != nil {
		log.Error("api server stopped", sl.Err(err))
	}
}
