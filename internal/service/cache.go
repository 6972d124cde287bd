package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matatunos/moco/internal/domain/model"
)

// Метрики кэша метаданных файлов.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moco_file_cache_hits_total",
		Help: "Количество попаданий в кэш метаданных файлов",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moco_file_cache_misses_total",
		Help: "Количество промахов кэша метаданных файлов",
	})
)

// FileCache — LRU-кэш метаданных файлов с TTL.
// Снижает нагрузку на PostgreSQL при повторных скачиваниях.
// Инвалидируется при удалении файла.
type FileCache struct {
	lru *expirable.LRU[int64, *model.File]
}

// NewFileCache создаёт кэш на size записей со временем жизни ttl.
func NewFileCache(size int, ttl time.Duration) *FileCache {
	return &FileCache{
		lru: expirable.NewLRU[int64, *model.File](size, nil, ttl),
	}
}

// Get возвращает файл из кэша.
func (c *FileCache) Get(id int64) (*model.File, bool) {
	f, ok := c.lru.Get(id)
	if ok {
		cacheHits.Inc()
	} else {
		cacheMisses.Inc()
	}
	return f, ok
}

// Put помещает файл в кэш.
func (c *FileCache) Put(f *model.File) {
	c.lru.Add(f.ID, f)
}

// Invalidate удаляет файл из кэша.
func (c *FileCache) Invalidate(id int64) {
	c.lru.Remove(id)
}
