package hrs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"huette/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RetryCount        int
	RequestsPerSecond float64
}

// Client talks to the HRS hut API.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for the HRS API at opts.BaseURL.
func NewClient(opts Options, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		httpClient.SetHeader("X-Api-Key", opts.APIKey)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// DailySummaries fetches the capacity snapshots for [from, to].
func (c *Client) DailySummaries(ctx context.Context, hutID int, from, to time.Time) ([]models.DailySummary, error) {
	var resp summariesResponse
	if err := c.fetch(ctx, "summaries", hutID, from, to, &resp); err != nil {
		return nil, err
	}

	out := make([]models.DailySummary, 0, len(resp.Summaries))
	for _, dto := range resp.Summaries {
		s, err := dto.toModel()
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed HRS summary")
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Quotas fetches the quota windows overlapping [from, to].
func (c *Client) Quotas(ctx context.Context, hutID int, from, to time.Time) ([]models.Quota, error) {
	var resp quotasResponse
	if err := c.fetch(ctx, "quotas", hutID, from, to, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Quota, 0, len(resp.Quotas))
	for _, dto := range resp.Quotas {
		q, err := dto.toModel()
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed HRS quota")
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// Reservations fetches the reservations with stays overlapping [from, to].
func (c *Client) Reservations(ctx context.Context, hutID int, from, to time.Time) ([]models.Reservation, error) {
	var resp reservationsResponse
	if err := c.fetch(ctx, "reservations", hutID, from, to, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Reservation, 0, len(resp.Reservations))
	for _, dto := range resp.Reservations {
		r, err := dto.toModel()
		if err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed HRS reservation")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, resource string, hutID int, from, to time.Time, out any) error {
	fromStr, toStr := models.FormatDate(from), models.FormatDate(to)
	cacheKey := fmt.Sprintf("hrs:%s:%d:%s:%s", resource, hutID, fromStr, toStr)
	if c.readCache(ctx, cacheKey, out) {
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("hutID", strconv.Itoa(hutID)).
		SetQueryParams(map[string]string{"from": fromStr, "to": toStr}).
		SetResult(out).
		Get("/api/v1/huts/{hutID}/" + resource)
	if err != nil {
		return fmt.Errorf("hrs %s: %w", resource, err)
	}
	if resp.IsError() {
		c.logger.Error().
			Str("resource", resource).
			Int("status_code", resp.StatusCode()).
			Msg("HRS API returned error")
		return fmt.Errorf("hrs %s: http %d", resource, resp.StatusCode())
	}

	c.writeCache(ctx, cacheKey, out)
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
