package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// rowNamespace scopes the ids derived for expenses the service returns
// without one.
var rowNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("fintrack:expense-row"))

// flexString accepts a JSON string, number or bool. null, objects and
// arrays decode to "" so one odd field does not cost the whole row.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '{', '[':
		*f = ""
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexString(strconv.FormatBool(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = flexString(n.String())
	}
	return nil
}

type wireExpense struct {
	ID          flexString `json:"id"`
	Date        flexString `json:"date"`
	Category    flexString `json:"category"`
	Amount      flexString `json:"amount"`
	Description flexString `json:"description"`
}

// decodeExpenses parses a list response. A body that is valid JSON but not
// an array yields an empty collection; elements that are not objects are
// dropped. Only a body that is not JSON at all is an error.
//
// A missing id is derived from the row's position and content, so the same
// response decodes to the same ids on every fetch.
func decodeExpenses(body []byte) ([]core.Expense, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []core.Expense{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var w wireExpense
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}
		e := core.Expense{
			ID:          strings.TrimSpace(string(w.ID)),
			Date:        string(w.Date),
			Category:    string(w.Category),
			Amount:      string(w.Amount),
			Description: string(w.Description),
		}
		if e.ID == "" {
			e.ID = rowID(i, e)
		}
		out = append(out, e)
	}
	return out, nil
}

func rowID(pos int, e core.Expense) string {
	key := strings.Join([]string{strconv.Itoa(pos), e.Date, e.Category, e.Amount, e.Description}, "\x1f")
	return uuid.NewSHA1(rowNamespace, []byte(key)).String()
}
