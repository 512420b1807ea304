package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"energycalc/internal/app/config"

	"github.com/go-redis/redis/v8"
)

const servicePrefix = "energycalc."

// Client обертка над go-redis для сессий и blacklist токенов
type Client struct {
	cfg    config.RedisConfig
	client *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	client := &Client{cfg: cfg}

	client.client = redis.NewClient(&redis.Options{
		Password:    cfg.Password,
		Username:    cfg.User,
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DB:          0,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})

	if _, err := client.client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("cant ping redis: %w", err)
	}

	return client, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ============ Сессии ============

const sessionPrefix = servicePrefix + "session."

// WriteSession сохраняет сессию (токен -> ID пользователя) с TTL
func (c *Client) WriteSession(ctx context.Context, sessionID string, userID uint, ttl time.Duration) error {
	return c.client.Set(ctx, sessionPrefix+sessionID, strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

// ReadSession возвращает ID пользователя по токену сессии.
// Отсутствующая или истекшая сессия — ErrSessionNotFound.
func (c *Client) ReadSession(ctx context.Context, sessionID string) (uint, error) {
	value, err := c.client.Get(ctx, sessionPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("corrupted session value: %w", err)
	}

	return uint(userID), nil
}

// DeleteSession удаляет сессию (logout)
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, sessionPrefix+sessionID).Err()
}

var ErrSessionNotFound = errors.New("session not found")

// ============ Blacklist JWT ============

const jwtPrefix = servicePrefix + "jwt."

func getJWTKey(token string) string {
	return jwtPrefix + token
}

// WriteJWTToBlacklist добавляет токен в blacklist до истечения его срока
func (c *Client) WriteJWTToBlacklist(ctx context.Context, jwtStr string, jwtTTL time.Duration) error {
	return c.client.Set(ctx, getJWTKey(jwtStr), true, jwtTTL).Err()
}

// CheckJWTInBlacklist возвращает nil, если токен находится в blacklist
func (c *Client) CheckJWTInBlacklist(ctx context.Context, jwtStr string) error {
	_, err := c.client.Get(ctx, getJWTKey(jwtStr)).Result()
	return err
}
