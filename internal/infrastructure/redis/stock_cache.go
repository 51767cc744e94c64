package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix = "stock:"
	stockKeyTTL    = 5 * time.Minute
)

var _ ledger.StockCache = (*StockCache)(nil)

// StockCache caché de lectura de existencias sobre Redis. Solo sirve la vista
// de exhibición; el motor del libro invalida la clave tras cada commit y
// siempre decide sobre la fila bloqueada, nunca sobre el caché.
type StockCache struct {
	client *redis.Client
}

// NewStockCache construye el adaptador con un cliente ya configurado.
func NewStockCache(client *redis.Client) *StockCache {
	return &StockCache{client: client}
}

func key(itemID int64) string {
	return stockKeyPrefix + strconv.FormatInt(itemID, 10)
}

// Get devuelve la cantidad cacheada y si hubo hit.
func (c *StockCache) Get(ctx context.Context, itemID int64) (int64, bool, error) {
	val, err := c.client.Get(ctx, key(itemID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return val, true, nil
}

// Set guarda la cantidad con TTL corto (las claves igual se invalidan en cada
// movimiento; el TTL cubre invalidaciones perdidas).
func (c *StockCache) Set(ctx context.Context, itemID, quantity int64) error {
	return c.client.Set(ctx, key(itemID), quantity, stockKeyTTL).Err()
}

// Invalidate descarta las claves de los artículos indicados.
func (c *StockCache) Invalidate(ctx context.Context, itemIDs ...int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, key(id))
	}
	return c.client.Del(ctx, keys...).Err()
}
