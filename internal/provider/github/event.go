package github

import "go.uber.org/zap"

// Event is the preprocessed Github Webhook event
type Event struct {
	// DeliveryID is the unique github ID of the event.
	// If the request did not contain a delivery ID, a generated UUID is
	// used.
	DeliveryID string
	// Type is the github webhook event type returned by github.WebHookType()
	Type string
	// JSON is the validated event payload
	JSON []byte
	// Event is the parsed JSON payload as struct type returned by github.ParseWebHook()
	Event     any
	LogFields []zap.Field
}
