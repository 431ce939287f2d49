// Package workspace is one instructor's view of their rubrics, classes,
// criteria sets and activities. Reads come from the synchronizer caches,
// writes go to the document store and come back through the caches.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mind-engage/mindengage-rubrics/internal/docstore"
	"github.com/mind-engage/mindengage-rubrics/internal/integrity"
	"github.com/mind-engage/mindengage-rubrics/internal/logger"
	"github.com/mind-engage/mindengage-rubrics/internal/session"
	"github.com/mind-engage/mindengage-rubrics/internal/storage"
	syncx "github.com/mind-engage/mindengage-rubrics/internal/sync"
	"github.com/mind-engage/mindengage-rubrics/internal/textgen"
)

type Deps struct {
	Store     docstore.Store
	Generator textgen.Generator // nil disables assisted features
	Blobs     storage.BlobStore // optional archive of imports and reports
	Log       *logger.Logger
	Now       func() time.Time
}

type Service struct {
	userID   string
	store    docstore.Store
	sync     *syncx.Synchronizer
	guard    *integrity.Guard
	gen      textgen.Generator
	blobs    storage.BlobStore
	log      *logger.Logger
	now      func() time.Time
	validate *validator.Validate
	tracer   trace.Tracer

	bg sync.WaitGroup

	evalMu sync.Mutex
	eval   *session.Session
}

// Open attaches a new synchronizer for userID and returns the workspace.
func Open(ctx context.Context, d Deps, userID string) (*Service, error) {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Generator == nil {
		d.Generator = textgen.Disabled{}
	}
	log := d.Log.With("component", "Workspace", "user_id", userID)
	sx := syncx.New(d.Store, d.Log)
	if err := sx.Attach(ctx, userID); err != nil {
		return nil, err
	}
	return &Service{
		userID:   userID,
		store:    d.Store,
		sync:     sx,
		guard:    integrity.NewGuard(d.Store, userID, sx, d.Log),
		gen:      d.Generator,
		blobs:    d.Blobs,
		log:      log,
		now:      d.Now,
		validate: validator.New(),
		tracer:   otel.Tracer("github.com/mind-engage/mindengage-rubrics/internal/workspace"),
	}, nil
}

func (s *Service) UserID() string { return s.userID }

// Caches exposes the synchronizer for read access and change listeners.
func (s *Service) Caches() *syncx.Synchronizer { return s.sync }

// Wait blocks until background work (description generation) is done.
func (s *Service) Wait() { s.bg.Wait() }

func (s *Service) Close() {
	s.bg.Wait()
	s.sync.Detach()
}

func (s *Service) query(c docstore.Collection) docstore.Query {
	return docstore.Query{UserID: s.userID, Collection: c}
}

func (s *Service) ref(c docstore.Collection, id string) docstore.Ref {
	return docstore.Ref{UserID: s.userID, Collection: c, ID: id}
}

func (s *Service) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "workspace."+op)
}

// Manager keeps one open workspace per user.
type Manager struct {
	deps Deps

	mu     sync.Mutex
	spaces map[string]*Service
}

func NewManager(d Deps) *Manager {
	return &Manager{deps: d, spaces: make(map[string]*Service)}
}

func (m *Manager) Get(ctx context.Context, userID string) (*Service, error) {
	if userID == "" {
		return nil, docstore.ErrNoUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.spaces[userID]; ok {
		return s, nil
	}
	s, err := Open(ctx, m.deps, userID)
	if err != nil {
		return nil, err
	}
	m.spaces[userID] = s
	return s, nil
}

// Close detaches every workspace.
func (m *Manager) Close() {
	m.mu.Lock()
	spaces := m.spaces
	m.spaces = make(map[string]*Service)
	m.mu.Unlock()
	for _, s := range spaces {
		s.Close()
	}
}
