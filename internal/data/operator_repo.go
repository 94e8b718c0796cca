package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/fleetglass/fleetglass/internal/data/pgxutil"
	domainauth "github.com/fleetglass/fleetglass/internal/domain/auth"
	"github.com/fleetglass/fleetglass/internal/domain/model"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
)

// OperatorRepo provides database operations for operator records.
type OperatorRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewOperatorRepo creates a new OperatorRepo with real time provider.
func NewOperatorRepo(db *sql.DB) *OperatorRepo {
	return &OperatorRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewOperatorRepoWithTimeProvider creates a new OperatorRepo with a custom
// time provider (useful for tests).
func NewOperatorRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *OperatorRepo {
	return &OperatorRepo{DB: db, timeProvider: tp}
}

const operatorColumns = `id, user_key, provider, user_id, email, name, first_seen, last_sign_in, sign_in_count`

// RecordSignIn upserts the operator derived from a session. An existing
// record keyed by the same user key has its profile fields refreshed and its
// sign-in counters advanced.
func (r *OperatorRepo) RecordSignIn(ctx context.Context, sess domainauth.Session) (*model.Operator, error) {
	now := r.timeProvider.Now().UTC()

	var out model.Operator
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO operators (
				user_key, provider, user_id, email, name, first_seen, last_sign_in, sign_in_count
			) VALUES (
				$1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $6, 1
			)
			ON CONFLICT (user_key) DO UPDATE SET
				email = COALESCE(NULLIF(EXCLUDED.email, ''), operators.email),
				name = COALESCE(NULLIF(EXCLUDED.name, ''), operators.name),
				last_sign_in = EXCLUDED.last_sign_in,
				sign_in_count = operators.sign_in_count + 1
			RETURNING `+operatorColumns,
			sess.UserKey(),
			string(sess.Provider),
			sess.UserID,
			sess.Email,
			sess.Name,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Operator])
		return err
	}); err != nil {
		return nil, aerrors.MapDBError(err)
	}
	return &out, nil
}

// GetByUserKey retrieves an operator by its provider-qualified user key.
func (r *OperatorRepo) GetByUserKey(ctx context.Context, userKey string) (*model.Operator, error) {
	var out model.Operator
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+operatorColumns+` FROM operators WHERE user_key = $1`, userKey)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Operator])
		return err
	}); err != nil {
		return nil, aerrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves operators ordered by most recent sign-in.
func (r *OperatorRepo) List(ctx context.Context, limit, offset int) ([]*model.Operator, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rowsOut []model.Operator
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+operatorColumns+` FROM operators ORDER BY last_sign_in DESC LIMIT $1 OFFSET $2`,
			limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Operator])
		return err
	}); err != nil {
		return nil, aerrors.MapDBError(err)
	}

	out := make([]*model.Operator, len(rowsOut))
	for i := range rowsOut {
		out[i] = &rowsOut[i]
	}
	return out, nil
}
