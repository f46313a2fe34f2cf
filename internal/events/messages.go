package events

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// RoutingKeyExpenseCreated is the topic key of ExpenseCreatedMessage.
const RoutingKeyExpenseCreated = "expense.created"

// ExpenseCreatedMessage carries a stored expense as published on the exchange.
type ExpenseCreatedMessage struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:          e.ID,
		Date:        e.Date,
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
		Timestamp:   time.Now().UTC(),
	}
}

// Expense returns the record the message describes.
func (m *ExpenseCreatedMessage) Expense() core.Expense {
	return core.Expense{
		ID:          m.ID,
		Date:        m.Date,
		Category:    m.Category,
		Amount:      m.Amount,
		Description: m.Description,
	}
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
