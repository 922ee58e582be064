package keys

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
	"github.com/dropDatabas3/jwtkeys/internal/metrics"
	"github.com/dropDatabas3/jwtkeys/internal/observability/logger"
)

// ErrWindowedRotation: con claves dinámicas la rotación la dicta la ventana, no el operador.
var ErrWindowedRotation = errors.New("keys: dynamic keys rotate by window; forced rotation needs static keys")

// TxBeginner abre transacciones (*pgxpool.Pool, *pgx.Conn).
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Policy decide qué clave se usa para firmar.
type Policy struct {
	Algorithm        string
	Dynamic          bool
	RotationInterval time.Duration
	MaxAttempts      int
	CacheTTL         time.Duration
	// MissRefresh limita las relecturas por kid desconocido a una por app y período.
	MissRefresh      time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Algorithm == "" {
		p.Algorithm = AlgRS256
	}
	if p.RotationInterval <= 0 {
		p.RotationInterval = 7 * 24 * time.Hour
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = 30 * time.Second
	}
	if p.MissRefresh <= 0 {
		p.MissRefresh = 5 * time.Second
	}
	return p
}

// Manager implementa "leer claves con lock, decidir, insertar" sobre el store,
// con reintento cuando otro writer gana la carrera (PK duplicada).
type Manager struct {
	db     TxBeginner
	store  repository.JWTSigningRepository
	policy Policy

	// app -> clave de firma / app -> claves de verificación
	signing   *gocache.Cache
	verify    *gocache.Cache
	// app -> marca de relectura reciente por kid desconocido
	refreshed *gocache.Cache

	now      func() time.Time
	generate func(alg string) (string, error)
}

func NewManager(db TxBeginner, store repository.JWTSigningRepository, policy Policy) (*Manager, error) {
	policy = policy.withDefaults()
	if !Supported(policy.Algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, policy.Algorithm)
	}
	return &Manager{
		db:        db,
		store:     store,
		policy:    policy,
		signing:   gocache.New(policy.CacheTTL, time.Minute),
		verify:    gocache.New(policy.CacheTTL, time.Minute),
		refreshed: gocache.New(policy.MissRefresh, time.Minute),
		now:       time.Now,
		generate:  GenerateKeyString,
	}, nil
}

// Policy devuelve la política efectiva.
func (m *Manager) Policy() Policy { return m.policy }

// SigningKey devuelve la clave con la que firmar para appID, creándola si hace falta.
func (m *Manager) SigningKey(ctx context.Context, appID string) (repository.SigningKey, error) {
	appID = repository.NormalizeAppID(appID)
	now := m.now()

	cacheKey := appID
	ttl := m.policy.CacheTTL
	if m.policy.Dynamic {
		cacheKey = appID + "/" + DynamicKeyID(appID, m.policy.Algorithm, now, m.policy.RotationInterval)
		if left := WindowEnd(now, m.policy.RotationInterval).Sub(now); left < ttl {
			ttl = left
		}
	}
	if v, ok := m.signing.Get(cacheKey); ok {
		return v.(repository.SigningKey), nil
	}

	var (
		key     repository.SigningKey
		created bool
	)
	err := m.withRetry(ctx, appID, "SigningKey", func(tx pgx.Tx) error {
		created = false
		keys, err := m.store.GetSigningKeys(ctx, tx, appID)
		if err != nil {
			return err
		}
		if k := m.pick(keys, appID, now); k != nil {
			key = k
			return nil
		}
		key, err = m.insertNew(ctx, tx, appID, m.targetKeyID(appID, now), now)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if created {
		m.onCreated(ctx, appID, key)
	}

	m.signing.Set(cacheKey, key, ttl)
	return key, nil
}

// VerificationKeys devuelve todas las claves del app (la más reciente primero).
func (m *Manager) VerificationKeys(ctx context.Context, appID string) ([]repository.SigningKey, error) {
	appID = repository.NormalizeAppID(appID)
	if v, ok := m.verify.Get(appID); ok {
		return v.([]repository.SigningKey), nil
	}
	keys, err := m.readAll(ctx, appID)
	if err != nil {
		return nil, err
	}
	m.verify.SetDefault(appID, keys)
	return keys, nil
}

// KeyByID busca un kid entre las claves del app. Si no está en cache, relee una vez
// (puede ser una clave recién rotada por otro nodo), como mucho una vez por
// MissRefresh y app.
func (m *Manager) KeyByID(ctx context.Context, appID, kid string) (repository.SigningKey, error) {
	appID = repository.NormalizeAppID(appID)
	keys, err := m.VerificationKeys(ctx, appID)
	if err != nil {
		return nil, err
	}
	if k := findKey(keys, kid); k != nil {
		return k, nil
	}

	notFound := fmt.Errorf("keys: kid %q: %w", kid, repository.ErrNotFound)
	if err := m.refreshed.Add(appID, struct{}{}, gocache.DefaultExpiration); err != nil {
		// ya se releyó hace poco; kids inventados no llegan al lock
		return nil, notFound
	}
	m.verify.Delete(appID)
	keys, err = m.VerificationKeys(ctx, appID)
	if err != nil {
		return nil, err
	}
	if k := findKey(keys, kid); k != nil {
		return k, nil
	}
	return nil, notFound
}

// Rotate fuerza una clave estática nueva para el app.
func (m *Manager) Rotate(ctx context.Context, appID string) (repository.SigningKey, error) {
	if m.policy.Dynamic {
		return nil, ErrWindowedRotation
	}
	appID = repository.NormalizeAppID(appID)
	now := m.now()

	var key repository.SigningKey
	err := m.withRetry(ctx, appID, "Rotate", func(tx pgx.Tx) error {
		// el lock serializa rotaciones concurrentes del mismo app
		if _, err := m.store.GetSigningKeys(ctx, tx, appID); err != nil {
			return err
		}
		var err error
		key, err = m.insertNew(ctx, tx, appID, RandomKeyID(StaticKeyPrefix), now)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.Invalidate(appID)
	m.onCreated(ctx, appID, key)
	return key, nil
}

// Invalidate descarta lo cacheado para el app.
func (m *Manager) Invalidate(appID string) {
	appID = repository.NormalizeAppID(appID)
	m.verify.Delete(appID)
	for k := range m.signing.Items() {
		if k == appID || strings.HasPrefix(k, appID+"/") {
			m.signing.Delete(k)
		}
	}
}

func (m *Manager) onCreated(ctx context.Context, appID string, key repository.SigningKey) {
	info := key.Info()
	metrics.IncKeyCreated(info.Algorithm)
	m.verify.Delete(appID)
	logger.From(ctx).Info("signing key created",
		logger.Component("keys.manager"),
		logger.AppID(appID),
		logger.KeyID(info.KeyID),
		logger.Algorithm(info.Algorithm),
	)
}

// pick aplica la política sobre las claves ya bloqueadas.
func (m *Manager) pick(keys []repository.SigningKey, appID string, now time.Time) repository.SigningKey {
	if m.policy.Dynamic {
		return findKey(keys, DynamicKeyID(appID, m.policy.Algorithm, now, m.policy.RotationInterval))
	}
	for _, k := range keys { // ya vienen por created_at DESC
		info := k.Info()
		if info.Algorithm == m.policy.Algorithm && strings.HasPrefix(info.KeyID, StaticKeyPrefix) {
			return k
		}
	}
	return nil
}

func (m *Manager) targetKeyID(appID string, now time.Time) string {
	if m.policy.Dynamic {
		return DynamicKeyID(appID, m.policy.Algorithm, now, m.policy.RotationInterval)
	}
	return StaticKeyID(appID, m.policy.Algorithm)
}

func (m *Manager) insertNew(ctx context.Context, tx pgx.Tx, appID, kid string, now time.Time) (repository.SigningKey, error) {
	ks, err := m.generate(m.policy.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("keys: generate %s: %w", m.policy.Algorithm, err)
	}
	info := repository.SigningKeyInfo{
		KeyID:     kid,
		KeyString: ks,
		Algorithm: m.policy.Algorithm,
		CreatedAt: now.UnixMilli(),
	}
	if err := m.store.InsertSigningKey(ctx, tx, appID, info); err != nil {
		return nil, err
	}
	return repository.NewSigningKey(info), nil
}

func (m *Manager) readAll(ctx context.Context, appID string) ([]repository.SigningKey, error) {
	var keys []repository.SigningKey
	err := m.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		keys, err = m.store.GetSigningKeys(ctx, tx, appID)
		return err
	})
	return keys, err
}

// withRetry corre fn en una tx nueva por intento. Sólo reintenta ante ErrConflict:
// el perdedor relee y encuentra la fila del ganador.
func (m *Manager) withRetry(ctx context.Context, appID, op string, fn func(tx pgx.Tx) error) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("keys.manager"),
		logger.Op(op),
		logger.AppID(appID),
	)

	var lastErr error
	for attempt := 1; attempt <= m.policy.MaxAttempts; attempt++ {
		err := m.inTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !repository.IsConflict(err) {
			log.Error("signing key operation failed", logger.Attempt(attempt), logger.Err(err))
			return err
		}
		metrics.IncKeyConflict()
		log.Info("concurrent rotation detected, re-reading", logger.Attempt(attempt))
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("keys: %s gave up after %d attempts: %w", op, m.policy.MaxAttempts, lastErr)
}

// inTx abre, ejecuta y cierra una transacción. Rollback ante cualquier error.
func (m *Manager) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("keys: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("keys: commit: %w", err)
	}
	return nil
}

func findKey(keys []repository.SigningKey, kid string) repository.SigningKey {
	for _, k := range keys {
		if k.Info().KeyID == kid {
			return k
		}
	}
	return nil
}
