package logfields

import "go.uber.org/zap"

func EventProvider(val string) zap.Field {
	return zap.String("event_provider", val)
}

// Event names the occurrence that is logged, values are snake_case
// identifiers that can be used for filtering log records.
func Event(val string) zap.Field {
	return zap.String("event", val)
}

func DeliveryID(val string) zap.Field {
	return zap.String("github.delivery_id", val)
}

func WebhookType(val string) zap.Field {
	return zap.String("github.webhook_type", val)
}

func Action(val string) zap.Field {
	return zap.String("autorebase.action", val)
}
