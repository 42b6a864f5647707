package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/porthorian/casclient/pkg/proxy"
)

const (
	saveTicketQuery = `
INSERT INTO casclient.proxy_tickets (
  id, date_added, iou, pgt, expires_at
) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (iou) DO UPDATE
SET
  pgt = EXCLUDED.pgt,
  expires_at = EXCLUDED.expires_at
`

	retrieveTicketQuery = `
SELECT
  pgt, expires_at
FROM casclient.proxy_tickets
WHERE iou = $1
`

	deleteTicketQuery = `DELETE FROM casclient.proxy_tickets WHERE iou = $1`

	purgeExpiredQuery = `DELETE FROM casclient.proxy_tickets WHERE expires_at < $1`
)

// DefaultTTL matches the memory adapter: unclaimed callback mappings are
// abandoned after a minute.
const DefaultTTL = 60 * time.Second

type Adapter struct {
	db  *sql.DB
	ttl time.Duration

	stmts preparedStatements
}

type preparedStatements struct {
	saveTicket     *sql.Stmt
	retrieveTicket *sql.Stmt
	deleteTicket   *sql.Stmt
	purgeExpired   *sql.Stmt
}

var _ proxy.Storage = (*Adapter)(nil)

func NewAdapter(db *sql.DB, ttl time.Duration) (*Adapter, error) {
	if db == nil {
		return nil, errors.New("postgres pgt storage: db is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	adapter := &Adapter{
		db:  db,
		ttl: ttl,
	}

	specs := []struct {
		label  string
		query  string
		assign func(*preparedStatements, *sql.Stmt)
	}{
		{
			label: "save proxy ticket",
			query: saveTicketQuery,
			assign: func(ps *preparedStatements, stmt *sql.Stmt) {
				ps.saveTicket = stmt
			},
		},
		{
			label: "retrieve proxy ticket",
			query: retrieveTicketQuery,
			assign: func(ps *preparedStatements, stmt *sql.Stmt) {
				ps.retrieveTicket = stmt
			},
		},
		{
			label: "delete proxy ticket",
			query: deleteTicketQuery,
			assign: func(ps *preparedStatements, stmt *sql.Stmt) {
				ps.deleteTicket = stmt
			},
		},
		{
			label: "purge expired proxy tickets",
			query: purgeExpiredQuery,
			assign: func(ps *preparedStatements, stmt *sql.Stmt) {
				ps.purgeExpired = stmt
			},
		},
	}

	for _, spec := range specs {
		stmt, err := db.Prepare(spec.query)
		if err != nil {
			_ = adapter.Close()
			return nil, fmt.Errorf("postgres pgt storage: prepare %s statement: %w", spec.label, err)
		}
		spec.assign(&adapter.stmts, stmt)
	}

	return adapter, nil
}

func (a *Adapter) Save(ctx context.Context, iou string, pgt string) error {
	if iou == "" {
		return errors.New("postgres pgt storage: iou is required")
	}

	now := time.Now().UTC()
	_, err := a.stmts.saveTicket.ExecContext(
		ctx,
		uuid.NewString(),
		now,
		iou,
		pgt,
		now.Add(a.ttl),
	)
	return err
}

func (a *Adapter) Retrieve(ctx context.Context, iou string) (string, bool, error) {
	var pgt string
	var expiresAt time.Time

	err := a.stmts.retrieveTicket.QueryRowContext(ctx, iou).Scan(&pgt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if time.Now().UTC().After(expiresAt.UTC()) {
		_, _ = a.stmts.deleteTicket.ExecContext(ctx, iou)
		return "", false, nil
	}

	return pgt, true, nil
}

func (a *Adapter) Delete(ctx context.Context, iou string) error {
	_, err := a.stmts.deleteTicket.ExecContext(ctx, iou)
	return err
}

// PurgeExpired removes every mapping past its expiry. Intended to be run
// periodically by the embedding application.
func (a *Adapter) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := a.stmts.purgeExpired.ExecContext(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (a *Adapter) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{
		a.stmts.saveTicket,
		a.stmts.retrieveTicket,
		a.stmts.deleteTicket,
		a.stmts.purgeExpired,
	} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
