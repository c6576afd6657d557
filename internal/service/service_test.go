package service

import (
	"sync"
	"testing"
	"time"

	"smartsahuji/internal/auth"
	"smartsahuji/internal/cache"
	"smartsahuji/internal/config"
	"smartsahuji/internal/database/dbtest"
	"smartsahuji/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type publishedEvent struct {
	UserID string
	Event  string
	Data   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(userID, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: event, Data: data})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event
	}
	return out
}

type fixture struct {
	db           *gorm.DB
	events       *recordingPublisher
	cache        *cache.Memory
	invRepo      repository.InventoryRepository
	txRepo       repository.TransactionRepository
	auditRepo    repository.AuditRepository
	userRepo     repository.UserRepository
	inventory    InventoryService
	transactions TransactionService
	imports      ImportService
	insights     InsightsService
	users        UserService
	audit        AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	f := &fixture{
		db:        db,
		events:    &recordingPublisher{},
		cache:     cache.NewMemory(),
		invRepo:   repository.NewInventoryRepository(db),
		txRepo:    repository.NewTransactionRepository(db),
		auditRepo: repository.NewAuditRepository(db),
		userRepo:  repository.NewUserRepository(db),
	}
	txm := repository.NewTransactionManager(db)

	f.inventory = NewInventoryService(f.invRepo, f.auditRepo, txm, f.cache, f.events, nil)
	f.transactions = NewTransactionService(f.txRepo, f.invRepo, f.auditRepo, txm, f.cache, f.events, nil)
	f.imports = NewImportService(f.inventory, f.transactions, f.invRepo, f.auditRepo, f.events, nil)
	f.insights = NewInsightsService(repository.NewInsightsRepository(db), f.invRepo, nil, nil)
	f.audit = NewAuditService(f.auditRepo)
	f.users = NewUserService(f.userRepo, f.invRepo, f.txRepo, f.auditRepo, txm,
		auth.NewTokenManager("test-secret", time.Hour),
		config.AuthConfig{
			JWTSecret:       "test-secret",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
			ResetTokenTTL:   15 * time.Minute,
		},
		"http://localhost:8080", nil)
	return f
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func ptr[T any](v T) *T { return &v }
