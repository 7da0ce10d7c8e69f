// Package session owns the state of one interactive conversation: the
// database connection, the semantic index, the model handle, and the
// append-only history. Expensive resources are built lazily on the first
// question and reused for the session's lifetime.
package session

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/edstats/schema-chat/internal/agent"
	"github.com/edstats/schema-chat/internal/config"
	"github.com/edstats/schema-chat/internal/conversation"
	"github.com/edstats/schema-chat/internal/database"
	"github.com/edstats/schema-chat/internal/embedding"
	"github.com/edstats/schema-chat/internal/errors"
	"github.com/edstats/schema-chat/internal/index"
	"github.com/edstats/schema-chat/internal/llm"
	"github.com/edstats/schema-chat/internal/logging"
	"github.com/edstats/schema-chat/internal/observer"
	"github.com/edstats/schema-chat/internal/retriever"
	"github.com/edstats/schema-chat/internal/schema"
)

// Database is what the session needs from the database layer
type Database interface {
	agent.Database
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Dialect() string
	Close() error
}

// Session holds all state for one conversation. It is not safe for
// concurrent use: one question runs at a time.
type Session struct {
	id     string
	cfg    *config.Config
	logger *logging.Logger

	db           Database
	model        llm.Service
	idx          *index.Index
	retriever    *retriever.Retriever
	controller   *agent.Controller
	usableTables []string

	history            []conversation.Turn
	lastUsage          *conversation.TokenUsage
	lastRelevantTables []string

	initialized bool
}

// New creates a session. No resources are opened until the first question.
func New(cfg *config.Config, logger *logging.Logger) *Session {
	return &Session{
		id:     uuid.New().String(),
		cfg:    cfg,
		logger: logger,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// History returns the conversation so far
func (s *Session) History() []conversation.Turn {
	return s.history
}

// LastUsage returns the token usage of the most recent completed run
func (s *Session) LastUsage() *conversation.TokenUsage {
	return s.lastUsage
}

// LastRelevantTables returns the tables judged relevant to the most recent
// question, best match first
func (s *Session) LastRelevantTables() []string {
	return s.lastRelevantTables
}

// initialize opens the database, builds the semantic index, and creates the
// model handle. Called once, lazily.
func (s *Session) initialize(ctx context.Context) error {
	if s.initialized {
		return nil
	}

	s.logger.WithField("session", s.id).Info("Initializing session")

	db, err := database.Open(
		s.cfg.Database.Driver,
		s.cfg.Database.Path,
		s.cfg.Database.MaxOpenConns,
		s.cfg.QueryTimeoutDuration(),
	)
	if err != nil {
		return err
	}

	s.db = db

	tables, err := db.ListUsableTables(ctx)
	if err != nil {
		_ = db.Close()
		s.db = nil

		return err
	}

	s.usableTables = tables

	embedder, err := embedding.NewProvider(s.cfg.Embedding)
	if err != nil {
		_ = db.Close()
		s.db = nil

		return err
	}

	loader := schema.NewLoader(db, s.logger)
	descriptions := loader.LoadDescriptions(ctx)
	docs := loader.BuildDocuments(ctx, tables, descriptions)

	idx := index.New(embedder)
	if err := idx.Build(ctx, docs); err != nil {
		_ = db.Close()
		s.db = nil

		return err
	}

	s.idx = idx
	s.retriever = retriever.New(idx, s.logger)

	model, err := llm.NewClient(s.cfg.LLM)
	if err != nil {
		_ = db.Close()
		s.db = nil

		return err
	}

	s.model = model
	s.controller = agent.NewController(model, db, s.logger)
	s.initialized = true

	s.logger.WithField("tables", len(tables)).Info("Session ready")

	return nil
}

// Ask runs one question through the agent and records both turns. onUnit,
// when non-nil and the session is in streaming mode, receives each progress
// unit as it is produced. A failed run is recorded as an assistant turn
// containing the error text and the session stays usable.
func (s *Session) Ask(ctx context.Context, question string, onUnit func(agent.Unit)) (string, error) {
	if err := s.initialize(ctx); err != nil {
		return "", err
	}

	relevantTables, err := s.retriever.RelevantTables(ctx, s.history, question)
	if err != nil {
		s.recordError(question, err)
		return "", err
	}

	s.lastRelevantTables = relevantTables

	runCfg := agent.RunConfig{
		Dialect:        s.db.Dialect(),
		RowLimit:       s.cfg.Agent.RowLimit,
		RelevantTables: relevantTables,
		AllTables:      s.usableTables,
		MaxToolSteps:   s.cfg.Agent.MaxToolSteps,
	}

	obs := observer.New()

	var result *agent.Result

	if s.cfg.Agent.Mode == "stream" {
		stream := s.controller.Stream(ctx, runCfg, s.history, question, obs)

		for {
			unit, ok := stream.Next()
			if !ok {
				break
			}

			if onUnit != nil {
				onUnit(unit)
			}
		}

		if err := stream.Err(); err != nil {
			s.recordError(question, err)
			return "", err
		}

		result = stream.Result()
	} else {
		result, err = s.controller.Invoke(ctx, runCfg, s.history, question, obs)
		if err != nil {
			s.recordError(question, err)
			return "", err
		}
	}

	usage := obs.Usage()
	s.lastUsage = &usage

	s.history = append(s.history,
		conversation.Turn{Role: conversation.RoleUser, Content: question},
		conversation.Turn{Role: conversation.RoleAssistant, Content: result.Answer, Usage: &usage},
	)

	return result.Answer, nil
}

// recordError keeps the failed exchange in history so the conversation
// stays coherent for the next question
func (s *Session) recordError(question string, err error) {
	s.logger.Error("Agent run failed", err)

	s.history = append(s.history,
		conversation.Turn{Role: conversation.RoleUser, Content: question},
		conversation.Turn{Role: conversation.RoleAssistant, Content: "Error: " + err.Error()},
	)
}

// TableCount returns how many tables the session exposes, initializing
// lazily if needed
func (s *Session) TableCount(ctx context.Context) (int, error) {
	if err := s.initialize(ctx); err != nil {
		return 0, err
	}

	return len(s.usableTables), nil
}

// Close releases session resources
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to close database")
	}

	s.db = nil
	s.initialized = false

	return nil
}
