package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/store/memory"
)

func message(id string) *events.ExpenseCreatedMessage {
	return events.NewExpenseCreatedMessage(core.Expense{
		ID: id, Date: "2024-03-01", Category: "Food", Amount: "12.50", Description: "lunch",
	})
}

func TestMirrorCopiesExpense(t *testing.T) {
	target := memory.New()
	w := NewMirrorWorker(target, nil)

	require.NoError(t, w.HandleExpenseCreated(context.Background(), message("id-1")))

	items, err := target.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "id-1", items[0].ID)
}

func TestMirrorSkipsRedelivery(t *testing.T) {
	target := memory.New(core.Expense{ID: "id-1", Date: "d", Category: "c", Amount: "1", Description: "x"})
	w := NewMirrorWorker(target, nil)

	require.NoError(t, w.HandleExpenseCreated(context.Background(), message("id-1")))
	require.NoError(t, w.HandleExpenseCreated(context.Background(), message("id-2")))
	require.NoError(t, w.HandleExpenseCreated(context.Background(), message("id-2")))

	items, err := target.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestMirrorDropsInvalid(t *testing.T) {
	target := memory.New()
	w := NewMirrorWorker(target, nil)

	msg := message("id-1")
	msg.Amount = ""
	assert.NoError(t, w.HandleExpenseCreated(context.Background(), msg))

	items, err := target.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

type brokenStore struct{ memory.Store }

func (*brokenStore) Create(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, errors.New("quota exceeded")
}

func TestMirrorReturnsStoreErrors(t *testing.T) {
	w := NewMirrorWorker(&brokenStore{}, nil)
	err := w.HandleExpenseCreated(context.Background(), message("id-1"))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestMirrorPrimeFailure(t *testing.T) {
	target := memory.New()
	require.NoError(t, target.Close())
	w := NewMirrorWorker(target, nil)
	assert.Error(t, w.HandleExpenseCreated(context.Background(), message("id-1")))
}
