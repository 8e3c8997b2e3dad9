package mailbox

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
	idspkg "github.com/drblury/chanflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/chanflow/internal/runtime/metadata"
)

// TracerName is the OpenTelemetry instrumentation name used for mailbox spans.
const TracerName = "github.com/drblury/chanflow/mailbox"

// MiddlewareBuilder constructs a handler middleware for the provided mailbox.
type MiddlewareBuilder func(*Mailbox) (message.HandlerMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a
// mailbox router. A Builder returning a nil middleware registers nothing.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// RetryMiddlewareConfig customises the retry middleware behaviour.
type RetryMiddlewareConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RetryIf         func(error) bool
}

func (cfg RetryMiddlewareConfig) withDefaults() RetryMiddlewareConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(err error) bool { return !errspkg.IsUndeliverable(err) }
	}
	return cfg
}

// DefaultMiddlewares returns the standard chain, outermost first. Failed
// messages leave the chain through the poison queue or are dropped, so the
// in-process pub/sub never redelivers them forever.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		DropFailedMiddleware(),
		PoisonQueueMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
		RetryMiddleware(RetryMiddlewareConfig{}),
		RecovererMiddleware(),
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (mb *Mailbox) RegisterMiddleware(cfg MiddlewareRegistration) error {
	if mb.router == nil {
		return errors.New("router is not initialised")
	}

	var mw message.HandlerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(mb)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	mb.router.AddMiddleware(mw)
	return nil
}

// CorrelationIDMiddleware ensures each processed message carries a correlation identifier.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Middleware: func(h message.HandlerFunc) message.HandlerFunc {
			return func(msg *message.Message) ([]*message.Message, error) {
				if _, ok := msg.Metadata["correlation_id"]; !ok {
					msg.Metadata["correlation_id"] = idspkg.CreateULID()
				}
				return h(msg)
			}
		},
	}
}

// LogMessagesMiddleware logs every message handed to a mailbox handler at debug level.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(mb *Mailbox) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = mb.Logger
			}
			if l == nil {
				return nil, errors.New("log messages middleware requires a logger")
			}
			return func(h message.HandlerFunc) message.HandlerFunc {
				return func(msg *message.Message) ([]*message.Message, error) {
					l.Debug("Processing mailbox message", loggingpkg.LogFields{
						"message_uuid":              msg.UUID,
						loggingpkg.FieldMessageType: msg.Metadata.Get(metadatapkg.KeyMessageType),
						loggingpkg.FieldTopic:       message.SubscribeTopicFromCtx(msg.Context()),
						"metadata":                  msg.Metadata,
					})
					return h(msg)
				}
			}, nil
		},
	}
}

// DropFailedMiddleware logs and acknowledges messages whose delivery finally
// failed.
func DropFailedMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "drop_failed",
		Builder: func(mb *Mailbox) (message.HandlerMiddleware, error) {
			return func(h message.HandlerFunc) message.HandlerFunc {
				return func(msg *message.Message) ([]*message.Message, error) {
					produced, err := h(msg)
					if err != nil {
						mb.Logger.Error("Dropping mailbox message", err, loggingpkg.LogFields{
							"message_uuid":              msg.UUID,
							loggingpkg.FieldMessageType: msg.Metadata.Get(metadatapkg.KeyMessageType),
							loggingpkg.FieldTopic:       message.SubscribeTopicFromCtx(msg.Context()),
						})
						return nil, nil
					}
					return produced, nil
				}
			}, nil
		},
	}
}

// PoisonQueueMiddleware publishes failed messages matching filter to the
// configured poison queue. Without a poison queue it registers nothing. A nil
// filter accepts every error.
func PoisonQueueMiddleware(filter func(error) bool) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "poison_queue",
		Builder: func(mb *Mailbox) (message.HandlerMiddleware, error) {
			if mb.Conf == nil || mb.Conf.PoisonQueue == "" {
				return nil, nil
			}
			if mb.publisher == nil {
				return nil, errors.New("publisher is required for poison queue middleware")
			}
			f := filter
			if f == nil {
				f = func(error) bool { return true }
			}
			return middleware.PoisonQueueWithFilter(mb.publisher, mb.Conf.PoisonQueue, f)
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Middleware: func(h message.HandlerFunc) message.HandlerFunc {
			return func(msg *message.Message) ([]*message.Message, error) {
				ctx, span := otel.Tracer(TracerName).Start(
					msg.Context(),
					"chanflow.mailbox.deliver",
					trace.WithSpanKind(trace.SpanKindConsumer),
				)
				defer span.End()
				msg.SetContext(ctx)

				span.SetAttributes(
					attribute.String("message.uuid", msg.UUID),
					attribute.String("message.type", msg.Metadata.Get(metadatapkg.KeyMessageType)),
					attribute.String("messaging.destination", message.SubscribeTopicFromCtx(ctx)),
				)
				produced, err := h(msg)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				return produced, err
			}
		},
	}
}

// MetricsMiddleware adds the Watermill Prometheus router metrics when metrics
// are enabled. The metrics builder installs its own router middleware and
// subscriber decorators, so the registration itself adds nothing.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(mb *Mailbox) (message.HandlerMiddleware, error) {
			if mb.Conf == nil || !mb.Conf.MetricsEnabled {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				mb.registerer,
				"chanflow",
				"mailbox",
			)
			metricsBuilder.AddPrometheusRouterMetrics(mb.router)
			return nil, nil
		},
	}
}

// RetryMiddleware retries handler execution using the provided configuration.
// Zero values fall back to the mailbox config and then to library defaults.
// Undeliverable messages are not retried unless RetryIf says otherwise.
func RetryMiddleware(cfg RetryMiddlewareConfig) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "retry",
		Builder: func(mb *Mailbox) (message.HandlerMiddleware, error) {
			resolved := cfg
			if mb.Conf != nil {
				if resolved.MaxRetries == 0 {
					resolved.MaxRetries = mb.Conf.RetryMaxRetries
				}
				if resolved.InitialInterval == 0 {
					resolved.InitialInterval = mb.Conf.RetryInitialInterval
				}
				if resolved.MaxInterval == 0 {
					resolved.MaxInterval = mb.Conf.RetryMaxInterval
				}
			}
			return retryMiddleware(resolved.withDefaults()), nil
		},
	}
}

func retryMiddleware(cfg RetryMiddlewareConfig) message.HandlerMiddleware {
	return middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		ShouldRetry: func(params middleware.RetryParams) bool {
			return cfg.RetryIf(params.Err)
		},
	}.Middleware
}

// RecovererMiddleware converts consumer panics into handler errors.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}
