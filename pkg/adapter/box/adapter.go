// Package box serves the BOX remote file-storage protocol.
//
// A client connects, sends its identity as the first frame, and then issues
// LIST, GET, PUT, DELETE, INFO and QUIT requests against its own sandbox
// directory. GET and PUT payloads travel as length-prefixed transfers on the
// same connection, directly after the request or response frame.
package box

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/adapter"
	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/marmos91/dittobox/pkg/registry"
	"github.com/marmos91/dittobox/pkg/sandbox"
)

// Protocol is the name used in logs and metrics.
const Protocol = "BOX"

// Adapter implements adapter.Adapter for the BOX protocol.
//
// Adapter embeds BaseAdapter for the shared TCP lifecycle (listener,
// session tracking, connection limit, graceful shutdown). Each accepted
// connection is served by a Connection created through NewConnection.
type Adapter struct {
	*adapter.BaseAdapter

	config   Config
	root     *sandbox.Root
	registry registry.Store
	metrics  metrics.ServerMetrics
}

var (
	_ adapter.Adapter        = (*Adapter)(nil)
	_ adapter.SessionManager = (*Adapter)(nil)
)

// New creates a stopped Adapter. reg and m may be nil.
//
// Panics if config is invalid (programmer error).
func New(config Config, root *sandbox.Root, reg registry.Store, m metrics.ServerMetrics) *Adapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid BOX config: %v", err))
	}
	if root == nil {
		panic("BOX adapter requires a storage root")
	}

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        config.BindAddress,
		Port:               config.Port,
		MaxConnections:     config.MaxConnections,
		ShutdownTimeout:    config.ShutdownTimeout,
		MetricsLogInterval: config.MetricsLogInterval,
	}, Protocol)

	if m != nil {
		base.Metrics = m
	} else {
		m = nopMetrics{}
	}

	logger.Debug("BOX adapter configured",
		logger.KeyPath, root.Path(),
		"idle_timeout", config.IdleTimeout,
		"max_frame_size", config.MaxFrameSize,
		"max_file_size", config.MaxFileSize)

	return &Adapter{
		BaseAdapter: base,
		config:      config,
		root:        root,
		registry:    reg,
		metrics:     m,
	}
}

// Serve starts the BOX server and blocks until ctx is cancelled or Stop
// is called. It returns nil on graceful shutdown.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn, session *adapter.Session) adapter.ConnectionHandler {
	return NewConnection(a, conn, session)
}

// Addr blocks until the listener is bound and returns its address.
func (a *Adapter) Addr() string {
	return a.GetListenerAddr()
}

// nopMetrics stands in when collection is disabled.
type nopMetrics struct{}

func (nopMetrics) RecordConnectionAccepted()                   {}
func (nopMetrics) RecordConnectionClosed()                     {}
func (nopMetrics) RecordConnectionForceClosed()                {}
func (nopMetrics) SetActiveConnections(int32)                  {}
func (nopMetrics) RecordHandshake(string)                      {}
func (nopMetrics) RecordCommand(string, string, time.Duration) {}
func (nopMetrics) RecordBytesTransferred(string, int64)        {}
func (nopMetrics) RecordTruncatedTransfer(string)              {}
