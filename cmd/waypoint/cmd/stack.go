package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/solatis/waypoint/internal/core/api"
	"github.com/solatis/waypoint/internal/core/config"
	"github.com/solatis/waypoint/internal/core/db"
	"github.com/solatis/waypoint/internal/expr"
	"github.com/solatis/waypoint/internal/navigation"
	"github.com/solatis/waypoint/internal/pages"
	"github.com/solatis/waypoint/internal/rules"
	"github.com/solatis/waypoint/internal/session"
)

// stack is the wired navigation engine shared by serve and resolve.
type stack struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sqlx.DB
	queries   *db.Queries
	store     *rules.Store
	engine    *rules.Engine
	compiler  *expr.Compiler
	registry  *pages.Registry
	mapper    navigation.PathMapper
	loader    *api.Loader
	navigator *navigation.Navigator
	metrics   *prometheus.Registry
	closers   []func() error
}

// buildStack opens what the configuration needs, loads the rules and builds
// the navigator. serving adds the metrics and audit listeners and opens the
// database for API key checks.
func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger, serving bool) (*stack, error) {
	s := &stack{
		cfg:      cfg,
		logger:   logger,
		store:    rules.NewStore(),
		compiler: expr.NewCompiler(),
		mapper:   pathMapper(cfg.Navigation.Mapping),
	}
	s.engine = rules.NewEngine(s.store)

	needDB := cfg.Navigation.RuleSource == config.RuleSourceDatabase ||
		(serving && (cfg.Navigation.Audit || cfg.Server.RequireAuth))
	if needDB {
		if err := s.openDB(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	registry, err := pages.NewRegistry(cfg.Navigation.StrictPages, cfg.Navigation.PageDeclarations()...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.registry = registry

	var source api.RuleSource = api.StaticSource(cfg.Navigation.NavigationRules())
	if cfg.Navigation.RuleSource == config.RuleSourceDatabase {
		source = api.DatabaseSource{Queries: s.queries}
	}
	s.loader = api.NewLoader(source, s.store, s.compiler, logger)
	if _, err := s.loader.Load(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load navigation rules: %w", err)
	}

	opts := []navigation.Option{
		navigation.WithPathMapper(s.mapper),
		navigation.WithListener(navigation.LogListener{Logger: logger}),
	}
	if cfg.Navigation.DefaultSuffix != "" {
		opts = append(opts, navigation.WithDefaultSuffix(cfg.Navigation.DefaultSuffix))
	}
	if serving {
		s.metrics = prometheus.NewRegistry()
		s.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ml, err := navigation.NewMetricsListener(s.metrics)
		if err != nil {
			s.Close()
			return nil, err
		}
		opts = append(opts, navigation.WithListener(ml))

		if cfg.Navigation.Audit {
			opts = append(opts, navigation.WithListener(navigation.AuditListener{
				Recorder: db.NewEventWriter(s.queries),
				Logger:   logger,
			}))
		}
	}
	s.navigator = navigation.NewNavigator(s.engine, s.registry, opts...)

	return s, nil
}

func (s *stack) openDB(ctx context.Context) error {
	if s.cfg.Database.URL == "" {
		return fmt.Errorf("--db-url or WP_DATABASE_URL required")
	}
	database, err := db.Open(ctx, s.cfg.Database.URL)
	if err != nil {
		return err
	}
	s.db = database
	s.closers = append(s.closers, database.Close)

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, st := range statuses {
		if !st.Applied {
			return fmt.Errorf("migration %s not applied - run 'waypoint migrate up' first", st.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}
	s.queries = queries
	return nil
}

// sessionStore builds the configured session backend.
func (s *stack) sessionStore(ctx context.Context) (session.Store, error) {
	switch s.cfg.Session.Backend {
	case config.SessionRedis:
		client := redis.NewClient(&redis.Options{Addr: s.cfg.Session.RedisAddr})
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach redis at %s: %w", s.cfg.Session.RedisAddr, err)
		}
		return session.NewRedisStore(client,
			session.WithTTL(s.cfg.Session.TTL),
			session.WithPrefix(s.cfg.Session.KeyPrefix),
		), nil
	default:
		return session.NewMemoryStore(session.WithMemoryTTL(s.cfg.Session.TTL)), nil
	}
}

// Close releases everything the stack opened, last opened first.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}
	s.closers = nil
}

func pathMapper(m config.MappingConfig) navigation.PathMapper {
	switch m.Kind {
	case config.MappingPrefix:
		return navigation.PrefixMapper{Prefix: m.Prefix}
	case config.MappingSuffix:
		return navigation.SuffixMapper{Suffix: m.Suffix, PageSuffix: m.PageSuffix}
	default:
		return navigation.ExactMapper{}
	}
}
