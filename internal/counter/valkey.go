package counter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

const keyPrefix = "scaf:downloads:"

// ValkeyCounter keeps download counts in Valkey so they survive
// restarts and are shared across server replicas.
type ValkeyCounter struct {
	client valkey.Client
}

// NewValkeyCounter connects to Valkey and verifies the connection.
func NewValkeyCounter(addr string) (*ValkeyCounter, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("Initialized Valkey download counter", "address", addr)
	return &ValkeyCounter{client: client}, nil
}

// Incr increments the counter and returns the new total.
func (c *ValkeyCounter) Incr(ctx context.Context, templateID string) (int64, error) {
	cmd := c.client.B().Incr().Key(keyPrefix + templateID).Build()
	n, err := c.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return n, nil
}

// Get returns the current total. A missing key reads as 0.
func (c *ValkeyCounter) Get(ctx context.Context, templateID string) (int64, error) {
	cmd := c.client.B().Get().Key(keyPrefix + templateID).Build()
	n, err := c.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return n, nil
}

// Close shuts down the Valkey client.
func (c *ValkeyCounter) Close() error {
	c.client.Close()
	return nil
}
