package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/narracode/internal/tasks"
	"github.com/HerbHall/narracode/pkg/llm"
)

// Config is the service/model/task triple a session generates with.
type Config struct {
	Service    Service    `json:"service" yaml:"service"`
	BaseModel  string     `json:"base_model" yaml:"base_model"`
	CodingTask tasks.Name `json:"coding_task" yaml:"coding_task"`
}

// Update changes a Config. Nil fields are left unchanged.
type Update struct {
	Service    *Service
	BaseModel  *string
	CodingTask *tasks.Name
}

// WithService returns u with the service set.
func (u Update) WithService(s Service) Update { u.Service = &s; return u }

// WithBaseModel returns u with the base model set.
func (u Update) WithBaseModel(m string) Update { u.BaseModel = &m; return u }

// WithCodingTask returns u with the coding task set.
func (u Update) WithCodingTask(t tasks.Name) Update { u.CodingTask = &t; return u }

// InvalidConfigurationError reports a base model the selected service does
// not advertise.
type InvalidConfigurationError struct {
	Service Service
	Model   string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("model %q is not offered by service %s", e.Model, e.Service)
}

// BackendFactory constructs the backend client of a service.
type BackendFactory func(Service) (llm.Provider, error)

// Option configures a Session.
type Option func(*Session)

// WithUser sets the acting user recorded in generation logs.
func WithUser(user string) Option {
	return func(s *Session) { s.User = user }
}

// WithDefaults sets the configuration a session starts from. Empty fields
// fall back to the catalog's first service, that service's first model,
// and the Segment-Locus-Valence task.
func WithDefaults(cfg Config) Option {
	return func(s *Session) { s.defaults = cfg }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session is the state of one researcher's interaction. Configuration and
// backend access are safe for concurrent use; the chat conversation is not.
type Session struct {
	ID   string
	User string

	catalog  *Catalog
	factory  BackendFactory
	defaults Config
	logger   *zap.Logger

	mu       sync.Mutex
	cfg      *Config // nil until first resolved
	backends map[Service]llm.Provider
	chat     *Conversation
}

// New creates a session. The configuration is initialized lazily on first use.
func New(catalog *Catalog, factory BackendFactory, opts ...Option) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		User:     "unknown",
		catalog:  catalog,
		factory:  factory,
		backends: make(map[Service]llm.Provider),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("session", s.ID))
	return s
}

// Catalog returns the service catalog the session selects from.
func (s *Session) Catalog() *Catalog {
	return s.catalog
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// Resolve returns the current configuration, initializing it to the
// defaults on first call.
func (s *Session) Resolve() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.resolveLocked()
}

func (s *Session) resolveLocked() *Config {
	if s.cfg != nil {
		return s.cfg
	}
	cfg := s.defaults
	if cfg.Service == "" {
		cfg.Service = s.catalog.DefaultService()
	}
	if cfg.BaseModel == "" {
		cfg.BaseModel = s.catalog.FirstModel(cfg.Service)
	}
	if cfg.CodingTask == "" {
		cfg.CodingTask = tasks.SegmentLocusValence
	}
	s.cfg = &cfg
	return s.cfg
}

// Apply overwrites the fields set in u and returns the new configuration.
// Switching service without naming a model selects the new service's first
// model, so a single update never pairs a model with the wrong service.
// The model itself is checked when a backend is resolved.
func (s *Session) Apply(u Update) Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.resolveLocked()
	if u.Service != nil && *u.Service != cfg.Service {
		cfg.Service = *u.Service
		if u.BaseModel == nil {
			cfg.BaseModel = s.catalog.FirstModel(cfg.Service)
		}
	}
	if u.BaseModel != nil {
		cfg.BaseModel = *u.BaseModel
	}
	if u.CodingTask != nil {
		cfg.CodingTask = *u.CodingTask
	}

	s.logger.Debug("session configuration updated",
		zap.String("service", string(cfg.Service)),
		zap.String("model", cfg.BaseModel),
		zap.String("coding_task", string(cfg.CodingTask)),
	)
	return *cfg
}

// Backend returns the backend client for the current service together with
// the configuration it was resolved for. The client is constructed on first
// use and reused for the life of the session.
func (s *Session) Backend() (llm.Provider, Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := *s.resolveLocked()
	if !s.catalog.Offers(cfg.Service, cfg.BaseModel) {
		return nil, cfg, &InvalidConfigurationError{Service: cfg.Service, Model: cfg.BaseModel}
	}

	if p, ok := s.backends[cfg.Service]; ok {
		return p, cfg, nil
	}
	p, err := s.factory(cfg.Service)
	if err != nil {
		return nil, cfg, fmt.Errorf("create %s backend: %w", cfg.Service, err)
	}
	s.backends[cfg.Service] = p
	s.logger.Info("backend client created", zap.String("service", string(cfg.Service)))
	return p, cfg, nil
}

// Chat returns the session's chat conversation, or nil if none was started.
func (s *Session) Chat() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat
}

// SetChat replaces the session's chat conversation.
func (s *Session) SetChat(c *Conversation) {
	s.mu.Lock()
	s.chat = c
	s.mu.Unlock()
}

// ResetChat discards the chat conversation.
func (s *Session) ResetChat() {
	s.SetChat(nil)
}
