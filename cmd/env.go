package cmd

import (
	"fmt"

	"taxchat/internal"
)

// appEnv wires the shared pieces every command needs: config, the local
// fallback store, the session, the API client and the controller. The
// store is optional: when it cannot be opened the client still works,
// just without local fallback.
type appEnv struct {
	cfg        *internal.Config
	store      *internal.Store
	session    *internal.SessionStore
	client     *internal.Client
	cache      *internal.ConversationCache
	controller *internal.Controller
}

func newAppEnv() *appEnv {
	cfg, err := internal.LoadConfig()
	if err != nil {
		internal.LogWarn("config unreadable, using defaults: %v", err)
		cfg = &internal.Config{ServerURL: internal.DefaultServerURL, DataDir: internal.DefaultDataDir()}
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if language != "" {
		cfg.Language = language
	}

	store, err := internal.OpenStore(cfg.StorePath())
	if err != nil {
		internal.LogWarn("local store unavailable, continuing without fallback: %v", err)
		store = nil
	}

	session := internal.NewSessionStore(store)
	client := internal.NewClient(cfg.ServerURL)
	cache := internal.NewConversationCache()
	controller := internal.NewController(client, session, cache, store)

	lang := cfg.Language
	if lang == "" && store != nil {
		// Fall back to the last persisted preference.
		var stored string
		if ok, err := store.GetJSON(internal.KeyLanguage, &stored); err == nil && ok {
			lang = stored
		}
	}
	if lang != "" {
		controller.SetLanguage(lang)
	}

	return &appEnv{
		cfg:        cfg,
		store:      store,
		session:    session,
		client:     client,
		cache:      cache,
		controller: controller,
	}
}

func (e *appEnv) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			internal.LogWarn("closing local store: %v", err)
		}
	}
}

// requireAuth fails with a friendly message when no usable session exists.
func (e *appEnv) requireAuth() error {
	if !e.session.Authenticated() {
		return fmt.Errorf("not logged in, run `taxchat login` first")
	}
	if e.session.Expired() {
		return fmt.Errorf("your session has expired, run `taxchat login` again")
	}
	return nil
}
