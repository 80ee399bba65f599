package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/VladKovDev/qpay-gateway/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var orderColumns = []string{
	"id",
	"order_key",
	"total::text",
	"currency",
	"item_count",
	"billing_email",
	"customer_name",
	"status",
	"transaction_id",
}

type OrderRepository struct {
	db *Pool
	sb squirrel.StatementBuilderType
}

var _ order.Repository = (*OrderRepository)(nil)

func NewOrderRepository(db *Pool) *OrderRepository {
	return &OrderRepository{db: db, sb: db.Builder}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	const op = "repository.order.Create"

	if o.Status == "" {
		o.Status = order.StatusPending
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%s: invalid order: %w", op, err)
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := exec(ctx, tx, insertOrderQuery(r.sb, o)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%s: order %d: %w", op, o.ID, order.ErrDuplicate)
			}
			return fmt.Errorf("%s: insert order: %w", op, err)
		}
		if q, ok := upsertMetaQuery(r.sb, o.ID, o.Meta); ok {
			if err := exec(ctx, tx, q); err != nil {
				return fmt.Errorf("%s: insert meta: %w", op, err)
			}
		}
		for _, note := range o.Notes {
			if err := exec(ctx, tx, insertNoteQuery(r.sb, o.ID, note)); err != nil {
				return fmt.Errorf("%s: insert note: %w", op, err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	const op = "repository.order.GetByID"

	sql, args, err := r.sb.Select(orderColumns...).
		From("orders").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	var (
		o      order.Order
		total  string
		status string
	)
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&o.ID,
		&o.Key,
		&total,
		&o.Currency,
		&o.ItemCount,
		&o.BillingEmail,
		&o.CustomerName,
		&status,
		&o.TransactionID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("%s: query row: %w", op, err)
	}

	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("%s: parse total %q: %w", op, total, err)
	}
	o.Status = order.Status(status)

	if o.Meta, err = r.meta(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if o.Notes, err = r.notes(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &o, nil
}

// Transition claims the order with a conditional UPDATE and writes metadata
// and the note in the same transaction.
func (r *OrderRepository) Transition(ctx context.Context, id int64, from order.Status, t order.Transition) (bool, error) {
	const op = "repository.order.Transition"

	var claimed bool
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := transitionQuery(r.sb, id, from, t).ToSql()
		if err != nil {
			return fmt.Errorf("building query: %w", err)
		}

		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		claimed = true

		if q, ok := upsertMetaQuery(r.sb, id, t.Meta); ok {
			if err := exec(ctx, tx, q); err != nil {
				return fmt.Errorf("upsert meta: %w", err)
			}
		}
		if t.Note != "" {
			if err := exec(ctx, tx, insertNoteQuery(r.sb, id, t.Note)); err != nil {
				return fmt.Errorf("insert note: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if !claimed {
		// distinguish a lost race from a missing order
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
	}
	return claimed, nil
}

func (r *OrderRepository) meta(ctx context.Context, id int64) (map[string]string, error) {
	sql, args, err := r.sb.Select("meta_key", "meta_value").
		From("order_meta").
		Where(squirrel.Eq{"order_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building meta query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("meta rows: %w", rows.Err())
	}
	return meta, nil
}

func (r *OrderRepository) notes(ctx context.Context, id int64) ([]string, error) {
	sql, args, err := r.sb.Select("note").
		From("order_notes").
		Where(squirrel.Eq{"order_id": id}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building notes query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("notes rows: %w", rows.Err())
	}
	return notes, nil
}

func insertOrderQuery(sb squirrel.StatementBuilderType, o *order.Order) squirrel.Sqlizer {
	return sb.Insert("orders").
		Columns("id", "order_key", "total", "currency", "item_count", "billing_email", "customer_name", "status", "transaction_id").
		Values(o.ID, o.Key, o.Total.String(), o.Currency, o.ItemCount, o.BillingEmail, o.CustomerName, string(o.Status), o.TransactionID)
}

func transitionQuery(sb squirrel.StatementBuilderType, id int64, from order.Status, t order.Transition) squirrel.UpdateBuilder {
	q := sb.Update("orders").
		Set("status", string(t.To)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": string(from)})
	if t.TransactionID != "" {
		q = q.Set("transaction_id", t.TransactionID)
	}
	return q
}

// upsertMetaQuery reports false when there is nothing to write.
func upsertMetaQuery(sb squirrel.StatementBuilderType, id int64, meta map[string]string) (squirrel.Sqlizer, bool) {
	if len(meta) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := sb.Insert("order_meta").Columns("order_id", "meta_key", "meta_value")
	for _, k := range keys {
		q = q.Values(id, k, meta[k])
	}
	return q.Suffix("ON CONFLICT (order_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value"), true
}

func insertNoteQuery(sb squirrel.StatementBuilderType, id int64, note string) squirrel.Sqlizer {
	return sb.Insert("order_notes").Columns("order_id", "note").Values(id, note)
}

func exec(ctx context.Context, tx pgx.Tx, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
