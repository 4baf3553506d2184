package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config describes how to reach a StatsD-compatible agent.
type Config struct {
	Address string
	Prefix  string
	// Tags are appended to every line in DogStatsD "|#k:v" form.
	Tags   map[string]string
	Logger *slog.Logger
}

// Client emits counters and timings over UDP. It is safe for concurrent use.
// A nil Client drops every write.
type Client struct {
	prefix string
	tags   []string
	logger *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

// Dial connects to cfg.Address.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		return nil, fmt.Errorf("statsd: address is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(dctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}

	return &Client{
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "."),
		tags:   tagList(cfg.Tags),
		logger: logger,
		conn:   conn,
	}, nil
}

// Count adds value to a counter. Tags are "key:value" pairs.
func (c *Client) Count(name string, value int64, tags ...string) {
	c.send(name, strconv.FormatInt(value, 10)+"|c", tags)
}

// Timing records d in milliseconds.
func (c *Client) Timing(name string, d time.Duration, tags ...string) {
	ms := float64(d) / float64(time.Millisecond)
	c.send(name, strconv.FormatFloat(ms, 'f', -1, 64)+"|ms", tags)
}

// Close releases the connection. Later writes are dropped.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) send(name, payload string, tags []string) {
	if c == nil || name == "" {
		return
	}
	line := c.line(name, payload, tags)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.logger.Debug("statsd write failed", "metric", name, "error", err)
	}
}

func (c *Client) line(name, payload string, tags []string) string {
	var b strings.Builder
	if c.prefix != "" {
		b.WriteString(c.prefix)
		b.WriteByte('.')
	}
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(payload)

	all := make([]string, 0, len(c.tags)+len(tags))
	all = append(all, c.tags...)
	all = append(all, tags...)
	if len(all) > 0 {
		b.WriteString("|#")
		b.WriteString(strings.Join(all, ","))
	}
	return b.String()
}

func tagList(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	for k, v := range tags {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k+":"+strings.TrimSpace(v))
		}
	}
	sort.Strings(out)
	return out
}
