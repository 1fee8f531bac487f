package mikrotik

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"
)

// PoolConfig holds configuration for the connection pool
type PoolConfig struct {
	MaxConnections  int           // Max connections per router
	IdleTimeout     time.Duration // Close idle connections after this
	ConnectTimeout  time.Duration // Timeout for new connections
	MaxAge          time.Duration // Max age of a connection before recycling
	CleanupInterval time.Duration // How often to cleanup dead connections
}

// DefaultPoolConfig returns default pool configuration
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxConnections:  5,
		IdleTimeout:     5 * time.Minute,
		ConnectTimeout:  5 * time.Second,
		MaxAge:          30 * time.Minute,
		CleanupInterval: 1 * time.Minute,
	}
}

// PooledConnection wraps an authenticated client held by the pool
type PooledConnection struct {
	client     *Client
	address    string
	createdAt  time.Time
	lastUsedAt time.Time
	inUse      bool
	mu         sync.Mutex
}

// Execute runs a command on the pooled connection
func (pc *PooledConnection) Execute(command string, args ...string) ([]map[string]string, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.client.Run(command, args...)
}

// ConnectionPool manages connections to routers, keyed by address
type ConnectionPool struct {
	config   *PoolConfig
	pools    map[string]*routerPool
	mu       sync.RWMutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// routerPool is the pool for a single router
type routerPool struct {
	address     string
	username    string
	password    string
	connections []*PooledConnection
	mu          sync.Mutex
}

var (
	globalPool     *ConnectionPool
	globalPoolOnce sync.Once
)

// GetPool returns the global connection pool (singleton)
func GetPool() *ConnectionPool {
	globalPoolOnce.Do(func() {
		globalPool = NewConnectionPool(DefaultPoolConfig())
		globalPool.Start()
	})
	return globalPool
}

// NewConnectionPool creates a new connection pool
func NewConnectionPool(config *PoolConfig) *ConnectionPool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	return &ConnectionPool{
		config:   config,
		pools:    make(map[string]*routerPool),
		stopChan: make(chan struct{}),
	}
}

// Start begins the cleanup goroutine
func (p *ConnectionPool) Start() {
	p.wg.Add(1)
	go p.cleanupLoop()
	log.Println("MikroTik connection pool started")
}

// Stop shuts down the pool and closes all connections
func (p *ConnectionPool) Stop() {
	close(p.stopChan)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rp := range p.pools {
		rp.mu.Lock()
		for _, pc := range rp.connections {
			pc.client.Close()
		}
		rp.mu.Unlock()
	}

	log.Println("MikroTik connection pool stopped")
}

// cleanupLoop periodically removes stale connections
func (p *ConnectionPool) cleanupLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.cleanup()
		}
	}
}

// cleanup removes idle and old connections
func (p *ConnectionPool) cleanup() {
	p.mu.RLock()
	pools := make([]*routerPool, 0, len(p.pools))
	for _, rp := range p.pools {
		pools = append(pools, rp)
	}
	p.mu.RUnlock()

	now := time.Now()

	for _, rp := range pools {
		rp.mu.Lock()

		alive := make([]*PooledConnection, 0, len(rp.connections))
		for _, pc := range rp.connections {
			pc.mu.Lock()

			shouldRemove := false
			if !pc.inUse {
				if now.Sub(pc.lastUsedAt) > p.config.IdleTimeout {
					shouldRemove = true
				}
				if now.Sub(pc.createdAt) > p.config.MaxAge {
					shouldRemove = true
				}
			}

			if shouldRemove {
				pc.client.Close()
				pc.mu.Unlock()
				continue
			}

			pc.mu.Unlock()
			alive = append(alive, pc)
		}

		rp.connections = alive
		rp.mu.Unlock()
	}
}

// Get retrieves a connection from the pool, creating one if necessary
func (p *ConnectionPool) Get(address, username, password string) (*PooledConnection, error) {
	rp := p.getRouterPool(address, username, password)

	rp.mu.Lock()
	for _, pc := range rp.connections {
		pc.mu.Lock()
		if !pc.inUse && pc.client.conn != nil {
			if isConnectionAlive(pc.client.conn) {
				pc.inUse = true
				pc.lastUsedAt = time.Now()
				pc.mu.Unlock()
				rp.mu.Unlock()
				return pc, nil
			}
			pc.client.Close()
			pc.client.conn = nil
		}
		pc.mu.Unlock()
	}

	if len(rp.connections) < p.config.MaxConnections {
		rp.mu.Unlock()
		return p.createConnection(rp)
	}

	rp.mu.Unlock()

	return p.waitForConnection(rp)
}

// getRouterPool gets or creates the pool for a specific router
func (p *ConnectionPool) getRouterPool(address, username, password string) *routerPool {
	p.mu.RLock()
	rp, ok := p.pools[address]
	p.mu.RUnlock()

	if ok {
		return rp
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	rp, ok = p.pools[address]
	if ok {
		return rp
	}

	rp = &routerPool{
		address:     address,
		username:    username,
		password:    password,
		connections: make([]*PooledConnection, 0, p.config.MaxConnections),
	}
	p.pools[address] = rp
	return rp
}

// createConnection creates a new authenticated connection
func (p *ConnectionPool) createConnection(rp *routerPool) (*PooledConnection, error) {
	client := NewClient(rp.address, rp.username, rp.password)
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connection failed: %v", err)
	}

	pc := &PooledConnection{
		client:     client,
		address:    rp.address,
		createdAt:  time.Now(),
		lastUsedAt: time.Now(),
		inUse:      true,
	}

	rp.mu.Lock()
	rp.connections = append(rp.connections, pc)
	rp.mu.Unlock()

	return pc, nil
}

// waitForConnection waits for an available connection
func (p *ConnectionPool) waitForConnection(rp *routerPool) (*PooledConnection, error) {
	deadline := time.Now().Add(p.config.ConnectTimeout * 2)

	for time.Now().Before(deadline) {
		rp.mu.Lock()
		for _, pc := range rp.connections {
			pc.mu.Lock()
			if !pc.inUse && pc.client.conn != nil {
				pc.inUse = true
				pc.lastUsedAt = time.Now()
				pc.mu.Unlock()
				rp.mu.Unlock()
				return pc, nil
			}
			pc.mu.Unlock()
		}
		rp.mu.Unlock()

		time.Sleep(100 * time.Millisecond)
	}

	return nil, fmt.Errorf("timeout waiting for connection to %s", rp.address)
}

// Put returns a connection to the pool
func (p *ConnectionPool) Put(pc *PooledConnection) {
	if pc == nil {
		return
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.inUse = false
	pc.lastUsedAt = time.Now()
}

// Remove removes and closes a connection (use when connection is broken)
func (p *ConnectionPool) Remove(pc *PooledConnection) {
	if pc == nil {
		return
	}

	pc.mu.Lock()
	pc.client.Close()
	pc.client.conn = nil
	pc.mu.Unlock()

	p.mu.RLock()
	rp, ok := p.pools[pc.address]
	p.mu.RUnlock()

	if !ok {
		return
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	for i, conn := range rp.connections {
		if conn == pc {
			rp.connections = append(rp.connections[:i], rp.connections[i+1:]...)
			break
		}
	}
}

// isConnectionAlive checks if a connection is still usable
func isConnectionAlive(conn net.Conn) bool {
	one := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(1 * time.Millisecond))
	_, err := conn.Read(one)
	conn.SetDeadline(time.Time{})

	// Timeout is expected (no data pending), other errors mean dead
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return true
		}
		if err == io.EOF {
			return false
		}
	}

	return true
}

// Stats returns pool statistics
func (p *ConnectionPool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["total_pools"] = len(p.pools)

	totalConns := 0
	activeConns := 0

	for addr, rp := range p.pools {
		rp.mu.Lock()
		poolStats := map[string]int{
			"total":  len(rp.connections),
			"active": 0,
		}
		for _, pc := range rp.connections {
			pc.mu.Lock()
			if pc.inUse {
				poolStats["active"]++
				activeConns++
			}
			pc.mu.Unlock()
		}
		totalConns += len(rp.connections)
		rp.mu.Unlock()

		stats["pool_"+addr] = poolStats
	}

	stats["total_connections"] = totalConns
	stats["active_connections"] = activeConns

	return stats
}
