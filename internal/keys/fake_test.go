package keys

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/jwtkeys/internal/domain/repository"
)

// memRepo es un JWTSigningRepository en memoria. Los inserts quedan pendientes
// en la tx hasta el Commit, igual que en Postgres.
type memRepo struct {
	mu   sync.Mutex
	rows map[string][]repository.SigningKeyInfo

	reads   int
	inserts int

	// beforeInsert corre antes de cada insert; puede simular otro writer.
	beforeInsert func(attempt int)
	readErr      error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string][]repository.SigningKeyInfo{}}
}

func (r *memRepo) seed(appID string, info repository.SigningKeyInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[appID] = append(r.rows[appID], info)
}

func (r *memRepo) GetSigningKeys(ctx context.Context, tx pgx.Tx, appID string) ([]repository.SigningKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.readErr != nil {
		return nil, &repository.QueryError{Op: "get_signing_keys", AppID: appID, Err: r.readErr}
	}
	all := append([]repository.SigningKeyInfo{}, r.rows[appID]...)
	if ft, ok := tx.(*fakeTx); ok {
		for _, p := range ft.pending {
			if p.appID == appID {
				all = append(all, p.info)
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt > all[j].CreatedAt })
	out := make([]repository.SigningKey, 0, len(all))
	for _, info := range all {
		out = append(out, repository.NewSigningKey(info))
	}
	return out, nil
}

func (r *memRepo) InsertSigningKey(ctx context.Context, tx pgx.Tx, appID string, info repository.SigningKeyInfo) error {
	r.mu.Lock()
	r.inserts++
	attempt := r.inserts
	hook := r.beforeInsert
	r.mu.Unlock()
	if hook != nil {
		hook(attempt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows[appID] {
		if existing.KeyID == info.KeyID {
			return &repository.QueryError{
				Op: "insert_signing_key", AppID: appID, Code: repository.CodeUniqueViolation,
				Err: errors.New("duplicate key value violates unique constraint"),
			}
		}
	}
	ft := tx.(*fakeTx)
	ft.pending = append(ft.pending, pendingRow{appID: appID, info: info})
	return nil
}

type pendingRow struct {
	appID string
	info  repository.SigningKeyInfo
}

// fakeTx implementa pgx.Tx; sólo Commit y Rollback tienen comportamiento.
type fakeTx struct {
	pgx.Tx
	db      *fakeDB
	pending []pendingRow
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.db.commits++
	if tx.db.commitErr != nil {
		return tx.db.commitErr
	}
	for _, p := range tx.pending {
		tx.db.repo.seed(p.appID, p.info)
	}
	tx.pending = nil
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.db.rollbacks++
	tx.pending = nil
	return nil
}

// fakeDB implementa TxBeginner contando transacciones.
type fakeDB struct {
	repo      *memRepo
	begins    int
	commits   int
	rollbacks int
	beginErr  error
	commitErr error
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	d.begins++
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return &fakeTx{db: d}, nil
}
