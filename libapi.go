package chanflow

import (
	"context"

	"google.golang.org/protobuf/proto"

	runtimepkg "github.com/drblury/chanflow/internal/runtime"
	channelspkg "github.com/drblury/chanflow/internal/runtime/channels"
	configpkg "github.com/drblury/chanflow/internal/runtime/config"
	configurationpkg "github.com/drblury/chanflow/internal/runtime/configuration"
	errspkg "github.com/drblury/chanflow/internal/runtime/errors"
	idspkg "github.com/drblury/chanflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/chanflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/chanflow/internal/runtime/logging"
	mailboxpkg "github.com/drblury/chanflow/internal/runtime/mailbox"
	metadatapkg "github.com/drblury/chanflow/internal/runtime/metadata"
	transportpkg "github.com/drblury/chanflow/internal/runtime/transport"
	newtransport "github.com/drblury/chanflow/transport"
)

type (
	Config              = configpkg.Config
	Network             = runtimepkg.Network
	NetworkDependencies = runtimepkg.NetworkDependencies
	NetworkMetrics      = runtimepkg.NetworkMetrics
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory

	// Channels
	Channel[T any]        = channelspkg.Channel[T]
	UntypedChannel        = channelspkg.UntypedChannel
	Consumer[T any]       = channelspkg.Consumer[T]
	ChannelAdapter[T any] = channelspkg.ChannelAdapter[T]
	UntypedChannelAdapter = channelspkg.UntypedChannelAdapter
	SwapStats             = channelspkg.SwapStats
	Node                  = channelspkg.Node
	NodeInfo              = channelspkg.NodeInfo

	// Configurators
	ConnectionConfigurator[T any] = configurationpkg.ConnectionConfigurator[T]
	UntypedConnectionConfigurator = configurationpkg.UntypedConnectionConfigurator
	UntypedChannelConfigurator    = configurationpkg.UntypedChannelConfigurator
	ChannelConfigurator[T any]    = configurationpkg.ChannelConfigurator[T]
	ConsumerConfigurator[T any]   = configurationpkg.ConsumerConfigurator[T]
	Connection                    = configurationpkg.Connection

	// Mailbox
	Mailbox                     = mailboxpkg.Mailbox
	MailboxDependencies         = mailboxpkg.Dependencies
	MailboxChannel[T any]       = mailboxpkg.Channel[T]
	Codec[T any]                = mailboxpkg.Codec[T]
	JSONCodec[T any]            = mailboxpkg.JSONCodec[T]
	ProtoCodec[T proto.Message] = mailboxpkg.ProtoCodec[T]
	MiddlewareBuilder           = mailboxpkg.MiddlewareBuilder
	MiddlewareRegistration      = mailboxpkg.MiddlewareRegistration
	RetryMiddlewareConfig       = mailboxpkg.RetryMiddlewareConfig

	Metadata = metadatapkg.Metadata

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	ConfigurationError        = errspkg.ConfigurationError
	ConfigValidationError     = errspkg.ConfigValidationError
	UndeliverableMessageError = errspkg.UndeliverableMessageError

	// Delivery lifecycle hooks
	Delivery         = channelspkg.Delivery
	DeliveryHooks    = channelspkg.DeliveryHooks
	DeliveryObserver = channelspkg.DeliveryObserver

	// Observability
	ConsumerStats     = runtimepkg.ConsumerStats
	LatencyMetrics    = runtimepkg.LatencyMetrics
	ThroughputMetrics = runtimepkg.ThroughputMetrics
	ErrorBreakdown    = runtimepkg.ErrorBreakdown
	ResourceUsage     = runtimepkg.ResourceUsage
	Topology          = runtimepkg.Topology
	ChannelTopology   = runtimepkg.ChannelTopology
	MailboxTopology   = runtimepkg.MailboxTopology

	// Error classification
	ErrorClassifier = runtimepkg.ErrorClassifier
	ErrorCategory   = runtimepkg.ErrorCategory

	// Mailbox backends
	Capabilities      = newtransport.Capabilities
	TransportBuilder  = newtransport.Builder
	TransportConfig   = newtransport.Config
	TransportRegistry = newtransport.Registry
)

var (
	NewNetwork     = runtimepkg.NewNetwork
	TryNewNetwork  = runtimepkg.TryNewNetwork
	ValidateConfig = configpkg.ValidateConfig

	NewUntypedChannelAdapter         = channelspkg.NewUntypedChannelAdapter
	NewUntypedConnectionConfigurator = configurationpkg.NewUntypedConnectionConfigurator
	ObserverHooks                    = channelspkg.ObserverHooks
	Describe                         = channelspkg.Describe
	IsShunt                          = channelspkg.IsShunt

	NewMailbox    = mailboxpkg.New
	TryNewMailbox = mailboxpkg.TryNew

	DefaultMiddlewares      = mailboxpkg.DefaultMiddlewares
	CorrelationIDMiddleware = mailboxpkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = mailboxpkg.LogMessagesMiddleware
	DropFailedMiddleware    = mailboxpkg.DropFailedMiddleware
	PoisonQueueMiddleware   = mailboxpkg.PoisonQueueMiddleware
	TracerMiddleware        = mailboxpkg.TracerMiddleware
	MetricsMiddleware       = mailboxpkg.MetricsMiddleware
	RetryMiddleware         = mailboxpkg.RetryMiddleware
	RecovererMiddleware     = mailboxpkg.RecovererMiddleware

	// Delivery lifecycle hooks
	LoggingHooks  = runtimepkg.LoggingHooks
	MetricsHooks  = runtimepkg.MetricsHooks
	AlertingHooks = runtimepkg.AlertingHooks

	NewNetworkMetrics = runtimepkg.NewNetworkMetrics

	// Mailbox backends
	GetCapabilities          = newtransport.GetCapabilities
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	RegistryFactory          = transportpkg.RegistryFactory

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrConsumerRequired    = errspkg.ErrConsumerRequired
	ErrNoConsumers         = errspkg.ErrNoConsumers
	ErrNoChannels          = errspkg.ErrNoChannels
	ErrConfiguratorNil     = errspkg.ErrConfiguratorNil
	ErrAdapterRequired     = errspkg.ErrAdapterRequired
	ErrCodecRequired       = errspkg.ErrCodecRequired
	ErrFilterRequired      = errspkg.ErrFilterRequired
	ErrSpanNameRequired    = errspkg.ErrSpanNameRequired
	ErrMailboxRequired     = errspkg.ErrMailboxRequired
	ErrTopicRequired       = errspkg.ErrTopicRequired
	ErrAlreadyApplied      = errspkg.ErrAlreadyApplied
	ErrNetworkRequired     = errspkg.ErrNetworkRequired
	ErrChannelNameRequired = errspkg.ErrChannelNameRequired
	ErrChannelExists       = errspkg.ErrChannelExists
	ErrChannelNotFound     = errspkg.ErrChannelNotFound
	ErrChannelTypeMismatch = errspkg.ErrChannelTypeMismatch
	ErrConfigRequired      = errspkg.ErrConfigRequired
	ErrLoggerRequired      = errspkg.ErrLoggerRequired
	ErrMailboxNotRunning   = errspkg.ErrMailboxNotRunning
	ErrMailboxClosed       = errspkg.ErrMailboxClosed
	ErrTopicInUse          = errspkg.ErrTopicInUse
	ErrChannelStopped      = errspkg.ErrChannelStopped
	ErrNetworkClosed       = errspkg.ErrNetworkClosed
	IsUndeliverable        = errspkg.IsUndeliverable

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewNopServiceLogger       = loggingpkg.NewNopServiceLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone          = runtimepkg.ErrorCategoryNone
	ErrorCategoryUndeliverable = runtimepkg.ErrorCategoryUndeliverable
	ErrorCategoryCanceled      = runtimepkg.ErrorCategoryCanceled
	ErrorCategoryStopped       = runtimepkg.ErrorCategoryStopped
	ErrorCategoryOther         = runtimepkg.ErrorCategoryOther
)

// Node kinds reported by Describe.
const (
	KindAdapter        = channelspkg.KindAdapter
	KindUntypedAdapter = channelspkg.KindUntypedAdapter
	KindShunt          = channelspkg.KindShunt
	KindConsumer       = channelspkg.KindConsumer
	KindBroadcast      = channelspkg.KindBroadcast
	KindFilter         = channelspkg.KindFilter
	KindTyped          = channelspkg.KindTyped
	KindForward        = channelspkg.KindForward
	KindHooked         = channelspkg.KindHooked
	KindMailbox        = channelspkg.KindMailbox
	KindTraced         = channelspkg.KindTraced
	KindOpaque         = channelspkg.KindOpaque
)

func RegisterChannel[T any](n *Network, name string) (*ChannelAdapter[T], error) {
	return runtimepkg.RegisterChannel[T](n, name)
}

func LookupChannel[T any](n *Network, name string) (*ChannelAdapter[T], error) {
	return runtimepkg.LookupChannel[T](n, name)
}

func Connect[T any](n *Network, name string, cfg *ConnectionConfigurator[T]) (*Connection, error) {
	return runtimepkg.Connect(n, name, cfg)
}

// Send delivers message through an untyped channel.
func Send[T any](ch UntypedChannel, message T) error {
	return channelspkg.Send(ch, message)
}

func NewChannelAdapter[T any]() *ChannelAdapter[T] {
	return channelspkg.NewChannelAdapter[T]()
}

func NewConsumerChannel[T any](consumer Consumer[T]) Channel[T] {
	return channelspkg.NewConsumerChannel(consumer)
}

func NewConnectionConfigurator[T any]() *ConnectionConfigurator[T] {
	return configurationpkg.NewConnectionConfigurator[T]()
}

func NewChannelConfigurator[T any]() *ChannelConfigurator[T] {
	return configurationpkg.NewChannelConfigurator[T]()
}

func NewConsumerConfigurator[T any](consumer Consumer[T]) *ConsumerConfigurator[T] {
	return configurationpkg.NewConsumerConfigurator(consumer)
}

// AddConsumer adds a single-consumer channel to conn and returns the consumer
// configurator for further options.
func AddConsumer[T any](conn *ConnectionConfigurator[T], consumer Consumer[T]) *ConsumerConfigurator[T] {
	return configurationpkg.AddConsumer(conn, consumer)
}

// UsingConsumer adds consumer to an existing channel configurator.
func UsingConsumer[T any](channel *ChannelConfigurator[T], consumer Consumer[T]) *ConsumerConfigurator[T] {
	return configurationpkg.UsingConsumer(channel, consumer)
}

// AddConsumerOf routes messages of type T on an untyped connection to
// consumer.
func AddConsumerOf[T any](cfg *UntypedConnectionConfigurator, consumer Consumer[T]) *ConsumerConfigurator[T] {
	return configurationpkg.AddConsumerOf(cfg, consumer)
}

// AttachMailbox subscribes output to a mailbox topic and returns the channel
// that publishes to it.
func AttachMailbox[T any](mb *Mailbox, topic string, codec Codec[T], output Channel[T]) (*MailboxChannel[T], error) {
	return mailboxpkg.Attach(mb, topic, codec, output)
}

func MessageTypeName[T any]() string {
	return channelspkg.MessageTypeName[T]()
}

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}

// Run starts n and blocks until ctx is done, then closes it.
func Run(ctx context.Context, n *Network) error {
	defer func() { _ = n.Close() }()
	return n.Start(ctx)
}
