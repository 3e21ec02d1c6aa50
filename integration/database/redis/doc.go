// Package redis creates go-redis clients for the Redis-backed session and
// counter stores.
//
//	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: "redis://localhost:6379/0"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	sessions := session.NewRedisStore(client, "session:")
//	counters := ratelimiter.NewRedisStore(client)
//
// Connect validates the URL scheme (redis:// or rediss://), then pings with a
// doubling retry interval bounded by ConnectTimeout. Healthcheck returns a
// PING probe for readiness endpoints.
package redis
