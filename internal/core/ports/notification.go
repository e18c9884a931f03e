package ports

import "context"

// Message is a rendered notification addressed to one recipient.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier accepts messages for asynchronous delivery. It never blocks on
// delivery and never reports delivery failures to the caller.
type Notifier interface {
	Notify(msg Message)
}

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// TemplateRenderer renders a named template with the given bindings.
type TemplateRenderer interface {
	Render(name string, vars map[string]any) (subject, body string, err error)
}
