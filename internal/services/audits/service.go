package audits

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"millaudit/internal/domain"
	"millaudit/internal/ports"
	"millaudit/internal/scoring"
)

// Service runs audit sessions: it owns the session lifecycle and calls the
// scoring engine, which itself holds no state.
type Service struct {
	templates   ports.TemplateRepository
	sessions    ports.SessionStore
	submissions ports.SubmissionRepository
	queue       ports.VerificationQueue
	engine      scoring.Engine
	log         *zap.Logger

	now               func() time.Time
	newID             func() string
	verifyConcurrency int

	// mu serialises read-modify-write cycles on sessions.
	mu sync.Mutex
}

type Option func(*Service)

func WithEngine(e scoring.Engine) Option { return func(s *Service) { s.engine = e } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// WithVerifyConcurrency bounds VerifyBatch parallelism.
func WithVerifyConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.verifyConcurrency = n
		}
	}
}

func New(templates ports.TemplateRepository, sessions ports.SessionStore, submissions ports.SubmissionRepository, queue ports.VerificationQueue, opts ...Option) *Service {
	s := &Service{
		templates:         templates,
		sessions:          sessions,
		submissions:       submissions,
		queue:             queue,
		engine:            scoring.New(),
		log:               zap.NewNop(),
		now:               func() time.Time { return time.Now().UTC() },
		newID:             uuid.NewString,
		verifyConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// update loads a session, applies fn and stores the result. fn sees a
// private copy; returning an error discards it.
func (s *Service) update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Status != domain.SessionOpen {
		return domain.Session{}, domain.ErrSessionClosed
	}
	if err := fn(&sess); err != nil {
		return domain.Session{}, err
	}
	if err := s.sessions.PutSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}
