package runtime

import (
	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
)

// LoggingHooks returns pre-built hooks that log delivery lifecycle events.
// Starts and completions are logged at debug level, failures at error level.
func LoggingHooks(logger loggingpkg.ServiceLogger) channelspkg.DeliveryHooks {
	if logger == nil {
		return channelspkg.DeliveryHooks{}
	}
	return channelspkg.DeliveryHooks{
		OnDeliver: func(d channelspkg.Delivery) {
			logger.Debug("Delivery started", loggingpkg.LogFields{
				loggingpkg.FieldConsumer:    d.Consumer,
				loggingpkg.FieldMessageType: d.MessageType,
			})
		},
		OnDone: func(d channelspkg.Delivery) {
			logger.Debug("Delivery completed", loggingpkg.LogFields{
				loggingpkg.FieldConsumer:    d.Consumer,
				loggingpkg.FieldMessageType: d.MessageType,
				"duration_ms":               d.Duration.Milliseconds(),
			})
		},
		OnError: func(d channelspkg.Delivery, err error) {
			logger.Error("Delivery failed", err, loggingpkg.LogFields{
				loggingpkg.FieldConsumer:    d.Consumer,
				loggingpkg.FieldMessageType: d.MessageType,
				"duration_ms":               d.Duration.Milliseconds(),
			})
		},
	}
}

// MetricsHooks returns hooks that report delivery events to plain counters.
// Any callback may be nil.
func MetricsHooks(onDeliver, onDone, onError func(consumer, messageType string)) channelspkg.DeliveryHooks {
	var hooks channelspkg.DeliveryHooks
	if onDeliver != nil {
		hooks.OnDeliver = func(d channelspkg.Delivery) { onDeliver(d.Consumer, d.MessageType) }
	}
	if onDone != nil {
		hooks.OnDone = func(d channelspkg.Delivery) { onDone(d.Consumer, d.MessageType) }
	}
	if onError != nil {
		hooks.OnError = func(d channelspkg.Delivery, _ error) { onError(d.Consumer, d.MessageType) }
	}
	return hooks
}

// AlertingHooks returns hooks that call alert on every failed delivery.
func AlertingHooks(alert func(d channelspkg.Delivery, err error)) channelspkg.DeliveryHooks {
	return channelspkg.DeliveryHooks{OnError: alert}
}
