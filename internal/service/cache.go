// cache.go — LRU-кэш записей контента с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш контента.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша контента.",
	})
)

// CacheService — LRU-кэш записей контента по ID.
// Хранит копии: изменения, сделанные вызывающим, не попадают в кэш.
type CacheService struct {
	cache *expirable.LRU[string, *model.ContentItem]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	return &CacheService{cache: expirable.NewLRU[string, *model.ContentItem](maxSize, nil, ttl)}
}

// Get возвращает копию записи из кэша.
// Возвращает (запись, true) при hit или (nil, false) при miss.
func (c *CacheService) Get(id string) (*model.ContentItem, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return val.Clone(), true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(item *model.ContentItem) {
	c.cache.Add(item.ID, item.Clone())
}

// Delete удаляет запись из кэша.
func (c *CacheService) Delete(id string) {
	c.cache.Remove(id)
}

// Len возвращает количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
