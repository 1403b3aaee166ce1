// Package directory resolves user and unit display names through the
// external user-directory service.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cppla/lifetrack/gamification"
)

const (
	defaultTimeout     = 3 * time.Second
	defaultCacheTTL    = 10 * time.Minute
	defaultConcurrency = 8
	cachePrefix        = "cache:directory:"
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	CacheTTL    time.Duration
	Concurrency int
}

// Client is a gamification.Directory. Lookups that fail for any reason
// resolve to the placeholder names.
type Client struct {
	baseURL     string
	http        *http.Client
	rdb         *redis.Client
	ttl         time.Duration
	concurrency int
	logger      *zap.Logger
}

var _ gamification.Directory = (*Client)(nil)

// New returns a Client. rdb may be nil to disable the name cache.
func New(opts Options, rdb *redis.Client, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		http:        &http.Client{Timeout: opts.Timeout},
		rdb:         rdb,
		ttl:         opts.CacheTTL,
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

type nameResp struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Data        *struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

func (r nameResp) name() string {
	for _, s := range []string{r.Name, r.DisplayName} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	if r.Data != nil {
		for _, s := range []string{r.Data.Name, r.Data.DisplayName} {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// ResolveUserNames looks up every distinct id concurrently.
func (c *Client) ResolveUserNames(ctx context.Context, userIDs []string, authToken string) map[string]string {
	names := make(map[string]string, len(userIDs))
	distinct := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := names[id]; !ok {
			names[id] = gamification.UnknownUserName
			distinct = append(distinct, id)
		}
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, id := range distinct {
		id := id
		g.Go(func() error {
			name := c.resolve(ctx, "users", id, authToken, gamification.UnknownUserName)
			mu.Lock()
			names[id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return names
}

func (c *Client) ResolveUnitName(ctx context.Context, unitID, authToken string) string {
	return c.resolve(ctx, "units", unitID, authToken, gamification.UnknownUnitName)
}

func (c *Client) resolve(ctx context.Context, kind, id, authToken, placeholder string) string {
	if strings.TrimSpace(id) == "" || c.baseURL == "" {
		return placeholder
	}
	key := cachePrefix + kind + ":" + id
	if name, ok := c.cached(ctx, key); ok {
		return name
	}

	name, err := c.fetch(ctx, kind, id, authToken)
	if err != nil {
		c.logger.Warn("directory lookup failed",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Error(err),
		)
		return placeholder
	}
	c.store(ctx, key, name)
	return name
}

func (c *Client) fetch(ctx context.Context, kind, id, authToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, kind, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directory returned %d", resp.StatusCode)
	}

	var body nameResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode directory response: %w", err)
	}
	name := body.name()
	if name == "" {
		return "", errors.New("directory response has no name")
	}
	return name, nil
}

func (c *Client) cached(ctx context.Context, key string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	name, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("directory cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return name, true
}

func (c *Client) store(ctx context.Context, key, name string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, name, c.ttl).Err(); err != nil {
		c.logger.Debug("directory cache set failed", zap.String("key", key), zap.Error(err))
	}
}
