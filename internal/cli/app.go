package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"document-qa/internal/chunking"
	"document-qa/internal/config"
	"document-qa/internal/db"
	"document-qa/internal/embedding"
	"document-qa/internal/rag"
	"document-qa/internal/sessions"
	"document-qa/internal/vectorstore"
)

// newEmbedder is swapped out in tests.
var newEmbedder = func(c *config.LLMConfig) (vectorstore.Embedder, error) {
	svc, err := embedding.New(c)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// app holds the services shared by the subcommands.
type app struct {
	store    *vectorstore.Store
	engine   *chunking.Engine
	ingestor *rag.Ingestor
	answerer *rag.Answerer
	chat     *rag.ChatService
	closers  []func() error
}

func buildApp(ctx context.Context, c *config.Config, withSessions bool) (*app, error) {
	embedder, err := newEmbedder(&c.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	store, err := vectorstore.Open(c.Storage.Dir, embedder,
		vectorstore.WithIndexFile(c.Storage.IndexFile),
		vectorstore.WithMetadataFile(c.Storage.MetadataFile))
	if err != nil {
		return nil, err
	}

	a := &app{
		store:  store,
		engine: chunking.NewEngine(c.RAG.ChunkConfigPath),
		answerer: rag.NewAnswerer(store,
			rag.WithTopK(c.RAG.TopK),
			rag.WithThreshold(c.RAG.SimilarityThreshold)),
	}
	a.ingestor = rag.NewIngestor(a.engine, store)

	if withSessions {
		sessionStore, closer, err := openSessions(ctx, c)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
		a.chat = rag.NewChatService(a.answerer, sessionStore)
	}
	return a, nil
}

// openSessions returns the configured session store and an optional closer.
func openSessions(ctx context.Context, c *config.Config) (sessions.Store, func() error, error) {
	switch c.Sessions.Driver {
	case "", "file":
		store, err := sessions.NewFileStore(c.Sessions.Dir)
		return store, nil, err
	case "postgres":
		sqldb, err := db.ConnectDB(&c.Database)
		if err != nil {
			return nil, nil, err
		}
		bunDB := db.NewDB(sqldb, c.Database.Debug)
		if err := db.InitDB(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, nil, fmt.Errorf("failed to initialize session tables: %w", err)
		}
		log.Info().Str("driver", c.Database.Driver).Msg("Using Postgres session store")
		return db.NewSessionStore(bunDB), bunDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q", c.Sessions.Driver)
	}
}

func (a *app) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			log.Warn().Err(err).Msg("Error closing resource")
		}
	}
}
