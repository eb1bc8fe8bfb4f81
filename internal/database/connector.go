package database

import "sync"

type connectKey struct {
	uri  string
	echo bool
}

// Connector lazily builds the engine for a DB and rebuilds it when the (uri, echo)
// pair it was built for no longer matches the DB's configuration.
type Connector struct {
	db *DB

	mu           sync.Mutex
	engine       *Engine
	connectedFor *connectKey
}

// Engine returns the current engine, connecting first if needed.
func (c *Connector) Engine() (*Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uri, u, o := c.db.target()
	key := connectKey{uri: uri, echo: o.echo}
	if c.engine != nil && c.connectedFor != nil && *c.connectedFor == key {
		return c.engine, nil
	}
	if u == nil {
		return nil, ErrNotConfigured
	}

	eng, err := openEngine(u, o)
	if err != nil {
		return nil, err
	}
	if c.engine != nil {
		if err := c.engine.Close(); err != nil {
			o.logger.Warn("closing replaced engine failed",
				"component", "database",
				"event", "engine_close_failed",
				"error", err.Error(),
			)
		}
	}
	c.engine, c.connectedFor = eng, &key
	return eng, nil
}

// seed installs an already opened engine for key.
func (c *Connector) seed(eng *Engine, key connectKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine, c.connectedFor = eng, &key
}

func (c *Connector) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine, c.connectedFor = nil, nil
	return err
}
