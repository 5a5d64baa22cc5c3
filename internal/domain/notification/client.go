// internal/domain/notification/client.go
package notification

import "context"

// Client delivers a notification of the given kind through an external provider.
// Rendering happens on the provider side; the client only passes template variables.
type Client interface {
	Send(ctx context.Context, kind Kind, emailAddress string, payload Payload, ref Reference) error
}
