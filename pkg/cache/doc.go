// Package cache provides a Redis-backed cache for archive code lists.
//
// Code lists change rarely but are read by every sample that creates
// objects, so the archive client keeps a copy keyed by object type and
// field. Entries carry their own expiry; writes through the client
// (put or delete of a code value) invalidate the affected keys.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	key := cache.Key{Type: "Dokument", Field: "dokumenttype"}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the archive, then manager.Set(ctx, key, cache.NewEntry(data, manager.TTL()))
//	}
//
// # Metrics
//
//   - noark_codelist_cache_hits_total - Cache hits
//   - noark_codelist_cache_misses_total - Cache misses
//   - noark_codelist_cache_size_bytes - Bytes written to the cache
//   - noark_codelist_cache_errors_total{operation} - Cache operation errors
package cache
