package contract

//go:generate go run go.uber.org/mock/mockgen -source=delivery.go -destination=../../../mocks/delivery.go -package=mocks

import "context"

// Delivery is the outbound notification transport.
type Delivery interface {
	// Send delivers content and returns a transport message id, or "" when the
	// transport does not return one.
	Send(ctx context.Context, content string) (string, error)

	// Remove deletes a previously sent message by id.
	Remove(ctx context.Context, messageID string) error

	// CanRemove reports whether Remove is supported.
	CanRemove() bool
}
