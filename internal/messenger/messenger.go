// Package messenger abstracts the outbound side of the messaging provider.
package messenger

import "context"

// Button is a tappable quick-reply option.
type Button struct {
	ID    string
	Title string
}

// ListItem is one selectable row of an interactive list.
type ListItem struct {
	ID    string
	Title string
}

// Messenger sends messages to a customer. Implementations return the
// provider's message id for the sent message.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendButtons(ctx context.Context, to, body string, buttons []Button) (string, error)
	SendList(ctx context.Context, to, header, buttonLabel string, items []ListItem) (string, error)
}
