package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/mediabot-go/api"
	"github.com/yourusername/mediabot-go/internal/app"
	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/internal/infrastructure"
	"github.com/yourusername/mediabot-go/pkg/logger"
)

const version = "1.0.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mediabot",
	Short: "Telegram bot that fetches YouTube and VK media as audio or video",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(configPath)
	},
	SilenceUsage: true,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a config file with default values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.SaveConfig(domain.DefaultConfig(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./configs/config.yaml)")
	rootCmd.AddCommand(initConfigCmd)
}

func runBot(configPath string) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if config.Extractor.LogsDir == "" {
		config.Extractor.LogsDir = config.Logging.LogsDir
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		Name:       "mediabot",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting mediabot",
		zap.String("version", version),
		zap.String("staging_dir", config.Staging.Dir),
		zap.String("audio_codec", config.Extractor.AudioCodec),
		zap.Int("search_limit", config.Search.Limit),
		zap.Bool("rapidapi", config.Search.RapidAPIKey != ""))

	repo, err := infrastructure.NewSQLiteRequestRepository(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	bot, err := tgbotapi.NewBotAPI(config.Bot.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	bot.Debug = config.Bot.Debug
	log.Info("Authorized on Telegram", zap.String("username", bot.Self.UserName))

	chat := infrastructure.NewTelegramChat(bot, config.Bot.SendRate, log.Named("telegram"))
	notifier := infrastructure.NewNotificationService(chat, config.Bot.AdminChatID, log.Named("notify"))
	extractor := infrastructure.NewYTDLPExtractor(&config.Extractor, multiLog)
	staging := infrastructure.NewStagingStore(config.Staging.Dir, log.Named("staging"))

	var providers []domain.Searcher
	if config.Search.RapidAPIKey != "" {
		providers = append(providers, infrastructure.NewRapidAPISearcher(config.Search.RapidAPIKey, config.Search.RapidAPIHost))
	}
	providers = append(providers, extractor)
	searcher := infrastructure.NewFallbackSearcher(log.Named("search"), providers...)

	controller := app.NewController(repo, extractor, staging, chat, notifier, &config.Extractor, log.Named("lifecycle"), multiLog)
	orchestrator := app.NewSearchOrchestrator(searcher, chat, controller, &config.Search, log.Named("search"), multiLog)
	dispatcher := app.NewDispatcher(controller, orchestrator, chat, log.Named("dispatcher"), multiLog)
	poller := infrastructure.NewTelegramPoller(bot, dispatcher, config.Bot.PollTimeout, log.Named("poller"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dispatcher.Start(ctx); err != nil {
		return err
	}

	var server *http.Server
	if config.Server.Enabled {
		addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
		server = &http.Server{
			Addr:    addr,
			Handler: api.SetupRouter(repo, dispatcher, multiLog, log.Named("http"), version),
		}
		go func() {
			log.Info("HTTP server listening", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				multiLog.LogAppError("HTTP server failed", zap.Error(err))
				log.Error("HTTP server failed", zap.Error(err))
			}
		}()
	}

	notifier.NotifyStarted(ctx, version)

	if err := poller.Run(ctx); err != nil {
		log.Error("Poller stopped", zap.Error(err))
	}
	log.Info("Shutting down...")

	if err := dispatcher.Stop(); err != nil {
		log.Error("Error stopping dispatcher", zap.Error(err))
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	log.Info("Bot exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
