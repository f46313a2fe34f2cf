package sqlite

import (
	"context"
)

type ExpenseRow struct {
	Seq         int64
	ID          string
	Date        string
	Category    string
	Amount      string
	Description string
	CreatedAt   string
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (id, date, category, amount, description)
VALUES (?, ?, ?, ?, ?)
RETURNING seq, id, date, category, amount, description, created_at
`

type CreateExpenseParams struct {
	ID          string
	Date        string
	Category    string
	Amount      string
	Description string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (ExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.ID,
		arg.Date,
		arg.Category,
		arg.Amount,
		arg.Description,
	)
	var i ExpenseRow
	err := row.Scan(
		&i.Seq,
		&i.ID,
		&i.Date,
		&i.Category,
		&i.Amount,
		&i.Description,
		&i.CreatedAt,
	)
	return i, err
}

const listExpenses = `-- name: ListExpenses :many
SELECT seq, id, date, category, amount, description, created_at
FROM expenses
ORDER BY seq
`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(
			&i.Seq,
			&i.ID,
			&i.Date,
			&i.Category,
			&i.Amount,
			&i.Description,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countExpenses = `-- name: CountExpenses :one
SELECT COUNT(*) FROM expenses
`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses)
	var count int64
	err := row.Scan(&count)
	return count, err
}
