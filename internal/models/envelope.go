package models

// APIResponse is the envelope returned by every backend operation. Data is
// only meaningful when Success is true; Message is set on failures.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data,omitempty"`
}

// OK wraps data into a successful envelope.
func OK[T any](data T) APIResponse[T] {
	return APIResponse[T]{Success: true, Data: &data}
}

// Fail builds a failed envelope carrying message.
func Fail[T any](message string) APIResponse[T] {
	return APIResponse[T]{Success: false, Message: message}
}

// LoginData is the payload of a successful login.
type LoginData struct {
	Student Student     `json:"student"`
	History []BookEntry `json:"history"`
}

// Script actions understood by the backend.
const (
	ActionLogin        = "login"
	ActionAddEntry     = "addEntry"
	ActionGetDashboard = "getDashboard"
)

// ScriptRequest is the union of POST bodies accepted by the script endpoint.
type ScriptRequest struct {
	Action   string        `json:"action"`
	Number   string        `json:"number,omitempty"`
	Name     string        `json:"name,omitempty"`
	Password string        `json:"password,omitempty"`
	Student  *Student      `json:"student,omitempty"`
	Entry    *NewBookEntry `json:"entry,omitempty"`
}
