package cmd

import (
	"context"
	"os"
	"time"

	"github.com/AzielCF/az-relay/botengine"
	"github.com/AzielCF/az-relay/botengine/providers"
	"github.com/AzielCF/az-relay/botengine/rules"
	"github.com/AzielCF/az-relay/channel/domain/event"
	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	channelRepo "github.com/AzielCF/az-relay/channel/repository"
	channelUsecase "github.com/AzielCF/az-relay/channel/usecase"
	coreconfig "github.com/AzielCF/az-relay/core/config"
	coreDB "github.com/AzielCF/az-relay/core/database"
	"github.com/AzielCF/az-relay/crm/application"
	crmDomain "github.com/AzielCF/az-relay/crm/domain"
	crmRepo "github.com/AzielCF/az-relay/crm/repository"
	"github.com/AzielCF/az-relay/infrastructure/broker"
	"github.com/AzielCF/az-relay/infrastructure/gateway"
	"github.com/AzielCF/az-relay/infrastructure/valkey"
	"github.com/AzielCF/az-relay/pkg/msgworker"
	"github.com/AzielCF/az-relay/pkg/notify"
	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/AzielCF/az-relay/ui/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	startedAt = time.Now()
	serverID  string

	// Infrastructure
	db            *gorm.DB
	vkClient      *valkey.Client
	gatewayClient *gateway.Client
	publisher     *broker.AMQPPublisher
	webhookPool   *msgworker.Pool

	// Usecase
	crmRepository     *crmRepo.CRMGormRepository
	lifecycleUsecase  instance.ILifecycleUsecase
	pairingUsecase    pairing.IPairingUsecase
	dispatcherUsecase event.IDispatcherUsecase
	ingestUsecase     crmDomain.IIngestUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-relay",
	Short: "Instance lifecycle and webhook sync for Evolution-compatible WhatsApp gateways",
	Long: `az-relay provisions and pairs WhatsApp sessions hosted on an Evolution-compatible
gateway, keeps their status and pairing artifacts cached, and turns the gateway's
webhooks into leads, conversations and messages.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

func initFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	flags.BoolP("debug", "d", false, "hide or displaying log with --debug <true/false> | example: --debug=true")
	flags.String("gateway-url", "", `gateway base url --gateway-url <string> | example: --gateway-url="http://evolution:8080"`)
	flags.String("gateway-key", "", `gateway api key --gateway-key <string>`)
	flags.String("webhook-url", "", `public url the gateway pushes events to --webhook-url <string> | example: --webhook-url="https://relay.example.com/webhook"`)

	_ = viper.BindPFlag("app_port", flags.Lookup("port"))
	_ = viper.BindPFlag("app_debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("gateway_base_url", flags.Lookup("gateway-url"))
	_ = viper.BindPFlag("gateway_api_key", flags.Lookup("gateway-key"))
	_ = viper.BindPFlag("gateway_webhook_url", flags.Lookup("webhook-url"))
}

// initEnvConfig builds config.Global from the environment, then lets flags win.
func initEnvConfig() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viper.GetString("gateway_base_url"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := viper.GetString("gateway_api_key"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := viper.GetString("gateway_webhook_url"); v != "" {
		cfg.Gateway.WebhookURL = v
	}
}

func initApp() {
	cfg := coreconfig.Global
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	//preparing folder if not exist
	if err := utils.CreateFolder(cfg.Paths.Storages); err != nil {
		logrus.Errorln(err)
	}
	serverID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	var err error
	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[DB] %v", err)
	}
	crmRepository = crmRepo.NewCRMGormRepository(db)

	// Caches: valkey when enabled, otherwise process memory.
	var statuses instance.StatusStore = channelRepo.NewMemoryStatusStore()
	var pairings pairing.Store = channelRepo.NewMemoryPairingStore()
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[VALKEY] unavailable, falling back to in-memory caches: %v", err)
			vkClient = nil
		} else {
			statuses = channelRepo.NewValkeyStatusStore(vkClient, cfg.Status.TTL)
			pairings = channelRepo.NewValkeyPairingStore(vkClient)
			websocket.SetValkeyClient(vkClient, serverID)
		}
	}

	// Notifications: websocket hub always, broker when enabled.
	notifiers := notify.Multi{websocket.Notifier{}}
	if cfg.Broker.Enabled {
		publisher, err = broker.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, serverID)
		if err != nil {
			logrus.Warnf("[BROKER] disabled: %v", err)
			publisher = nil
		} else {
			notifiers = append(notifiers, broker.NewNotifier(publisher))
		}
	}

	gatewayClient = gateway.NewClient(gateway.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		APIKey:         cfg.Gateway.APIKey,
		Integration:    cfg.Gateway.Integration,
		CreateTimeout:  cfg.Gateway.CreateTimeout,
		ConnectTimeout: cfg.Gateway.ConnectTimeout,
		DefaultTimeout: cfg.Gateway.DefaultTimeout,
		Webhook: &instance.WebhookSettings{
			URL:      cfg.Gateway.WebhookURL,
			Events:   cfg.Gateway.WebhookEvents,
			ByEvents: cfg.Gateway.WebhookByEvents,
			Base64:   cfg.Gateway.WebhookBase64,
		},
	})

	lifecycle := channelUsecase.NewLifecycleService(gatewayClient, statuses, pairings, channelUsecase.LifecycleOptions{
		DefaultSettings: instance.Settings{QRCode: true},
		PairingTTL:      cfg.Pairing.TTL,
		Notifier:        notifiers,
	})
	lifecycleUsecase = lifecycle
	pairingUsecase = channelUsecase.NewPairingService(pairings, channelUsecase.GatewayResolvers(gatewayClient), lifecycle, cfg.Pairing.TTL)

	var replier crmDomain.Replier
	if cfg.AutoReply.Enabled {
		table, err := rules.LoadFile(cfg.AutoReply.RulesFile)
		if err != nil {
			logrus.Fatalf("[REPLY] %v", err)
		}
		generator, err := providers.NewGenerator(cfg.AI, cfg.APIKeys)
		if err != nil {
			logrus.Warnf("[REPLY] AI disabled, rules only: %v", err)
			generator = nil
		}
		replier = botengine.NewReplier(generator, table, botengine.Options{
			SystemPrompt: cfg.AI.SystemPrompt,
			Model:        cfg.AI.Model,
			MaxTokens:    cfg.AI.MaxTokens,
			Timeout:      cfg.AI.Timeout,
		})
		logrus.Infof("[REPLY] auto-reply enabled with %d rules, ai=%q", table.Len(), cfg.AI.Provider)
	}

	ingestUsecase = application.NewIngestService(crmRepository, replier, lifecycle, notifiers)
	dispatcherUsecase = channelUsecase.NewDispatcherService(statuses, pairings, ingestUsecase, notifiers, cfg.Pairing.TTL)

	if cfg.WorkerPool.AsyncWebhook {
		webhookPool = msgworker.NewPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
		webhookPool.Start(context.Background())
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp drains the webhook pool and closes every connection opened by initApp.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if webhookPool != nil {
		webhookPool.Stop()
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logrus.Warnf("[BROKER] close: %v", err)
		}
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
