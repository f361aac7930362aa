// Package bootstrap wires configuration, adapters and services into a
// running application.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"webmail_client/adapter/in/notifier"
	"webmail_client/adapter/out/provider/gmail"
	"webmail_client/adapter/out/realtime"
	"webmail_client/adapter/out/session"
	"webmail_client/config"
	"webmail_client/core/agent"
	"webmail_client/core/agent/tools"
	"webmail_client/core/port/in"
	"webmail_client/core/service/mailbox"
	syncsvc "webmail_client/core/service/sync"
	"webmail_client/core/service/token"
	"webmail_client/infra/database"
	"webmail_client/pkg/crypto"
	"webmail_client/pkg/httputil"
	"webmail_client/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Dependencies holds every wired component.
type Dependencies struct {
	Redis *redis.Client
	ZLog  zerolog.Logger

	CredentialStore *session.Store
	StateStore      *session.StateStore
	TokenManager    *token.Manager
	OAuthConfig     *oauth2.Config

	MailboxStore *mailbox.Store
	Orchestrator *syncsvc.Orchestrator
	Mailbox      in.Mailbox

	Hub      *realtime.SSEHub
	Notifier *notifier.Notifier

	ToolExecutor *tools.Executor
	Agent        *agent.Agent
}

// NewDependencies builds the dependency graph. The returned cleanup closes
// long-lived resources in reverse order.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	log := logger.Default()
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	if cfg.IsProduction() {
		zlog = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	cleanups = append(cleanups, func() { redisClient.Close() })

	encryptor, err := crypto.NewEncryptor([]byte(cfg.EncryptionKey))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("encryption key invalid: %w", err)
	}

	credStore := session.NewStore(redisClient, encryptor, cfg.SessionTTL, log)
	credStore.MigrateLegacy(context.Background())

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			gmailapi.GmailReadonlyScope,
			gmailapi.GmailSendScope,
			gmailapi.GmailModifyScope,
		},
		Endpoint: google.Endpoint,
	}

	httpClient := httputil.NewClient(httputil.DefaultClientConfig())
	tokenManager := token.NewManager(credStore, oauthCfg, httpClient, log)

	gateway := gmail.NewGateway(tokenManager, &gmail.Config{
		HTTPClient:       httpClient,
		PubSubTopic:      cfg.GooglePubSubTopic,
		BatchConcurrency: cfg.BatchFetchMax,
	}, log)

	hub := realtime.NewSSEHub(zlog)
	store := mailbox.NewStore()
	orchestrator := syncsvc.NewOrchestrator(store, gateway, hub, int64(cfg.PageSize), cfg.FetchTimeout, log)

	notif := notifier.New(orchestrator, redisClient, notifier.Config{
		PollInterval: cfg.PollInterval,
		PushChannel:  cfg.PushChannel,
		MinBackoff:   cfg.PushReconnectMin,
		MaxBackoff:   cfg.PushReconnectMax,
		MaxRetries:   cfg.PushReconnectRetries,
	}, zlog)

	registry := tools.NewRegistry()
	if err := tools.RegisterEmailTools(registry, orchestrator); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("tool registration failed: %w", err)
	}
	executor := tools.NewExecutor(registry, log)

	var mailAgent *agent.Agent
	if cfg.OpenAIAPIKey != "" {
		mailAgent = agent.New(cfg.OpenAIAPIKey, cfg.LLMModel, executor, log)
	} else {
		log.Warn("OPENAI_API_KEY not set, agent instructions disabled")
	}

	return &Dependencies{
		Redis:           redisClient,
		ZLog:            zlog,
		CredentialStore: credStore,
		StateStore:      session.NewStateStore(redisClient),
		TokenManager:    tokenManager,
		OAuthConfig:     oauthCfg,
		MailboxStore:    store,
		Orchestrator:    orchestrator,
		Mailbox:         orchestrator,
		Hub:             hub,
		Notifier:        notif,
		ToolExecutor:    executor,
		Agent:           mailAgent,
	}, cleanup, nil
}
