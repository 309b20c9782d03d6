package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/redis/go-redis/v9"
)

var (
	_ inventory.AvailabilityCache = (*RedisAvailabilityCache)(nil)
	_ inventory.AvailabilityCache = NopAvailabilityCache{}
)

const defaultTTL = time.Minute

// redisClient es lo que la caché necesita de *redis.Client.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisAvailabilityCache guarda la disponibilidad de cada menú bajo un contador de generación.
// Invalidate incrementa la generación: las entradas anteriores dejan de leerse y expiran por TTL.
type RedisAvailabilityCache struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

// Connect abre el cliente Redis desde una URL redis:// y verifica la conexión.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opt.MaxRetries = 3
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar a Redis: %w", err)
	}
	return client, nil
}

// NewRedisAvailabilityCache usa un cliente existente; el llamador lo cierra.
func NewRedisAvailabilityCache(client *redis.Client, prefix string, ttl time.Duration) *RedisAvailabilityCache {
	return newRedisAvailabilityCache(client, prefix, ttl)
}

func newRedisAvailabilityCache(client redisClient, prefix string, ttl time.Duration) *RedisAvailabilityCache {
	if prefix == "" {
		prefix = "inventario"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisAvailabilityCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisAvailabilityCache) generationKey() string {
	return c.prefix + ":availability:gen"
}

func (c *RedisAvailabilityCache) entryKey(gen int64, menuID string) string {
	return fmt.Sprintf("%s:availability:%d:%s", c.prefix, gen, menuID)
}

func (c *RedisAvailabilityCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leer generación: %w", err)
	}
	return gen, nil
}

// Get devuelve la disponibilidad de la generación vigente.
func (c *RedisAvailabilityCache) Get(ctx context.Context, menuID string) (*inventory.MenuAvailability, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false, err
	}
	data, err := c.client.Get(ctx, c.entryKey(gen, menuID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leer disponibilidad de %s: %w", menuID, err)
	}
	var a inventory.MenuAvailability
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, false, fmt.Errorf("decodificar disponibilidad de %s: %w", menuID, err)
	}
	return &a, true, nil
}

// Set guarda la disponibilidad en la generación vigente.
func (c *RedisAvailabilityCache) Set(ctx context.Context, a *inventory.MenuAvailability) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("codificar disponibilidad: %w", err)
	}
	if err := c.client.Set(ctx, c.entryKey(gen, a.MenuID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("guardar disponibilidad de %s: %w", a.MenuID, err)
	}
	return nil
}

// Invalidate descarta todo lo cacheado hasta ahora.
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("invalidar disponibilidad: %w", err)
	}
	return nil
}

// NopAvailabilityCache nunca guarda nada (sin REDIS_URL).
type NopAvailabilityCache struct{}

func (NopAvailabilityCache) Get(context.Context, string) (*inventory.MenuAvailability, bool, error) {
	return nil, false, nil
}
func (NopAvailabilityCache) Set(context.Context, *inventory.MenuAvailability) error { return nil }
func (NopAvailabilityCache) Invalidate(context.Context) error                       { return nil }
