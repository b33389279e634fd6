// Package mongo provides shared MongoDB connection management.
package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultDB          = "rangecache"
	defaultTimeout     = 10 * time.Second
	defaultPingTimeout = 3 * time.Second
)

// Client lazily connects to Mongo on first use, and hands out the same
// database handle to every caller after that.
type Client struct {
	url string
	db  *mongo.Database
	mu  sync.Mutex

	dbName      string
	timeout     time.Duration
	pingTimeout time.Duration
	direct      bool
}

func NewClient(url string) *Client {
	return &Client{
		url:         url,
		dbName:      defaultDB,
		timeout:     defaultTimeout,
		pingTimeout: defaultPingTimeout,
	}
}

// WithDatabase sets the name of the database returned by GetDB.
func (c *Client) WithDatabase(name string) *Client {
	c.dbName = name
	return c
}

func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

func (c *Client) WithPingTimeout(pingTimeout time.Duration) *Client {
	c.pingTimeout = pingTimeout
	return c
}

// WithDirect enables a direct connection. Needed for single-node replsets,
// which is what the tests run.
func (c *Client) WithDirect(direct bool) *Client {
	c.direct = direct
	return c
}

// GetDB returns the database, connecting and pinging the server if this is the
// first call.
func (c *Client) GetDB(ctx context.Context) (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	opt := options.Client().ApplyURI(c.url).SetTimeout(c.timeout)
	if c.direct {
		opt = opt.SetDirect(true)
	}

	client, err := mongo.Connect(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("Ping: %w", err)
	}

	c.db = client.Database(c.dbName)
	return c.db, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	err := c.db.Client().Disconnect(ctx)
	c.db = nil
	return err
}
