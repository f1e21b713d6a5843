package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/libra-session/internal"
)

// app holds the components one command run works with
type app struct {
	cfg       *internal.Config
	kv        internal.KVStore
	api       *internal.APIClient
	assistant *internal.AssistantClient
	sessions  *internal.SessionStore
	auth      *internal.AuthController
	chats     *internal.ChatManager
}

func openApp(ctx context.Context) (*app, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	kv, err := internal.OpenKVStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	api, err := internal.NewAPIClient(cfg.API)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	assistant := internal.NewAssistantClient(api, cfg.AssistantURLs())

	sessions := internal.NewSessionStore(kv)
	chats, err := internal.NewChatManager(ctx, kv, assistant,
		internal.WithDateLayout(cfg.Chat.DateLayout),
		internal.WithCaseContext(cfg.Chat.Context),
	)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		kv:        kv,
		api:       api,
		assistant: assistant,
		sessions:  sessions,
		auth:      internal.NewAuthController(sessions, api),
		chats:     chats,
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		internal.LogWarn("Failed to close storage: %v", err)
	}
}
