package mcp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	globalconfig "slackmcp/config"
	"slackmcp/logging"
)

// DefaultInitTimeout bounds how long one server may take to come up.
const DefaultInitTimeout = 30 * time.Second

// Manager owns the set of server connections for the life of the process
// and feeds their tools into a Registry.
type Manager struct {
	mu          sync.RWMutex
	registry    *Registry
	logger      *slog.Logger
	initTimeout time.Duration
	connOpts    []ConnectionOption

	connections []*Connection
	failed      map[string]error
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInitTimeout sets the per-server initialization bound.
func WithInitTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.initTimeout = d
		}
	}
}

// WithConnectionOptions is applied to every connection the manager creates.
func WithConnectionOptions(opts ...ConnectionOption) ManagerOption {
	return func(m *Manager) {
		m.connOpts = append(m.connOpts, opts...)
	}
}

// NewManager creates a manager registering tools into registry.
func NewManager(registry *Registry, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	m := &Manager{
		registry:    registry,
		logger:      logger,
		initTimeout: DefaultInitTimeout,
		failed:      make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the registry the manager feeds.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// StartAll initializes servers in the given order. A server that fails is
// logged and skipped; the bot runs with the tools of the others. Only a
// cancelled ctx is returned as an error.
func (m *Manager) StartAll(ctx context.Context, servers []globalconfig.ServerConfig) error {
	m.logger.Info("starting mcp servers", "count", len(servers))

	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return err
		}

		opts := append([]ConnectionOption{WithLogger(m.logger)}, m.connOpts...)
		conn := NewConnection(server, opts...)

		initCtx, cancel := context.WithTimeout(ctx, m.initTimeout)
		err := conn.Initialize(initCtx)
		cancel()

		if err != nil {
			m.logger.Error("mcp server failed to start, continuing without it",
				"server", server.Name, "error", err)
			m.mu.Lock()
			m.failed[server.Name] = err
			m.mu.Unlock()
			continue
		}

		added, err := m.registry.Register(conn)
		if err != nil {
			m.logger.Error("mcp server tools could not be registered",
				"server", server.Name, "error", err)
			conn.Cleanup()
			m.mu.Lock()
			m.failed[server.Name] = err
			m.mu.Unlock()
			continue
		}

		m.mu.Lock()
		m.connections = append(m.connections, conn)
		m.mu.Unlock()

		m.logger.Info("registered mcp tools", "server", server.Name, "tools", added)
	}

	m.logger.Info("mcp servers ready",
		"connected", len(m.Connected()),
		"failed", len(m.Failed()),
		"tools", m.registry.Len())

	return nil
}

// Connected returns the names of servers that initialized successfully.
func (m *Manager) Connected() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.connections))
	for _, conn := range m.connections {
		names = append(names, conn.Name())
	}
	return names
}

// Failed returns the servers that did not start and why.
func (m *Manager) Failed() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failed := make(map[string]error, len(m.failed))
	for name, err := range m.failed {
		failed[name] = err
	}
	return failed
}

// Shutdown cleans up every connection in parallel. It returns the names of
// servers still shutting down when ctx expired.
func (m *Manager) Shutdown(ctx context.Context) []string {
	m.mu.Lock()
	conns := m.connections
	m.connections = nil
	m.mu.Unlock()

	m.logger.Debug("shutting down mcp servers", "count", len(conns))

	var (
		wg      sync.WaitGroup
		pending sync.Map
	)
	for _, conn := range conns {
		pending.Store(conn.Name(), struct{}{})
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			c.Cleanup()
			pending.Delete(c.Name())
		}(conn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Debug("all mcp servers stopped")
		return nil
	case <-ctx.Done():
		var unresponsive []string
		pending.Range(func(key, _ any) bool {
			unresponsive = append(unresponsive, key.(string))
			return true
		})
		m.logger.Warn("mcp shutdown timed out", "unresponsive", unresponsive)
		return unresponsive
	}
}
