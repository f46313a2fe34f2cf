package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HX-Trigger event names understood by web/static/app.js.
const (
	EventExpenseCreated   = "expense:created"
	EventFormReset        = "form:reset"
	EventExpensesRefresh  = "expenses:refresh"
	EventShowNotification = "show-notification"
)

// Level selects how the page renders a show-notification event.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// How long the page keeps a notification on screen.
var notifyDuration = map[Level]int{
	LevelSuccess: 3000,
	LevelWarning: 5000,
	LevelError:   5000,
}

type notification struct {
	Type     Level  `json:"type"`
	Message  string `json:"message"`
	Duration int    `json:"duration"`
}

// Response accumulates status, headers, body and HX-Trigger events and
// writes them in one go. Methods chain.
type Response struct {
	status int
	header http.Header
	events map[string]any
	body   []byte
}

// Respond starts a 200 response with no events.
func Respond() *Response {
	return &Response{status: http.StatusOK, header: http.Header{}, events: map[string]any{}}
}

func (r *Response) Status(code int) *Response {
	r.status = code
	return r
}

func (r *Response) Header(name, value string) *Response {
	r.header.Set(name, value)
	return r
}

func (r *Response) Body(b []byte) *Response {
	r.body = b
	return r
}

// HTML sets an HTML body and its content type.
func (r *Response) HTML(s string) *Response {
	r.header.Set("Content-Type", "text/html; charset=utf-8")
	r.body = []byte(s)
	return r
}

// Event queues an HX-Trigger event. A later event with the same name
// replaces the earlier payload.
func (r *Response) Event(name string, payload any) *Response {
	r.events[name] = payload
	return r
}

// ExpenseCreated announces a stored expense to listeners on the page.
func (r *Response) ExpenseCreated(category, amount string) *Response {
	return r.Event(EventExpenseCreated, map[string]string{"category": category, "amount": amount})
}

// ResetForm clears the form inputs client side.
func (r *Response) ResetForm() *Response {
	return r.Event(EventFormReset, struct{}{})
}

// RefreshExpenses makes the table and breakdown partials reload.
func (r *Response) RefreshExpenses() *Response {
	return r.Event(EventExpensesRefresh, struct{}{})
}

// Notify shows a toast. Only one notification fits per response.
func (r *Response) Notify(level Level, msg string) *Response {
	return r.Event(EventShowNotification, notification{Type: level, Message: msg, Duration: notifyDuration[level]})
}

func (r *Response) Write(w http.ResponseWriter) {
	h := w.Header()
	for k, vs := range r.header {
		h[k] = append([]string(nil), vs...)
	}
	if len(r.events) > 0 {
		if raw, err := json.Marshal(r.events); err == nil {
			h.Set("HX-Trigger", string(raw))
		}
	}
	w.WriteHeader(r.status)
	if len(r.body) > 0 {
		_, _ = w.Write(r.body)
	}
}

// Fail builds an error fragment. The message is escaped.
func Fail(code int, msg string) *Response {
	return Respond().Status(code).HTML(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`)
}

// MethodNotAllowed answers 405 with the Allow header set.
func MethodNotAllowed(allow string) *Response {
	return Respond().Status(http.StatusMethodNotAllowed).Header("Allow", allow)
}
