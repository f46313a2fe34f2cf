package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestNewExpenseCreatedMessage(t *testing.T) {
	e := core.Expense{ID: "id-1", Date: "2024-03-01", Category: "Food", Amount: "12,50", Description: "lunch"}
	msg := NewExpenseCreatedMessage(e)

	assert.Equal(t, e, msg.Expense())
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)
}

func TestExpenseCreatedMessageJSON(t *testing.T) {
	msg := &ExpenseCreatedMessage{
		ID:        "id-1",
		Category:  "Food",
		Amount:    "12.50",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"amount":"12.50"`)

	parsed, err := ExpenseCreatedMessageFromJSON(b)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, parsed.ID)
	assert.True(t, parsed.Timestamp.Equal(msg.Timestamp))
}

func TestExpenseCreatedMessageInvalidJSON(t *testing.T) {
	_, err := ExpenseCreatedMessageFromJSON([]byte(`{"id": 5}`))
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishExpenseCreated(context.Background(), core.Expense{}))
	assert.NoError(t, p.Close())
}
