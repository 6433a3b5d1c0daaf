package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheMaxTemperature is the highest temperature whose answers are worth memoizing.
const cacheMaxTemperature = 0.2

// Cache memoizes near-deterministic completions in an in-process LRU.
// size <= 0 disables the cache.
func Cache(size int) Middleware {
	return func(next Client) Client {
		if size <= 0 {
			return next
		}
		c, err := lru.New[string, string](size)
		if err != nil {
			return next
		}
		return &cached{next: next, lru: c}
	}
}

type cached struct {
	next Client
	lru  *lru.Cache[string, string]
}

func (c *cached) Name() string { return c.next.Name() }
func (c *cached) Close() error {
	c.lru.Purge()
	return c.next.Close()
}

func (c *cached) Complete(ctx context.Context, req Request) (string, error) {
	if req.Temperature > cacheMaxTemperature {
		return c.next.Complete(ctx, req)
	}
	key := cacheKey(req)
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	out, err := c.next.Complete(ctx, req)
	if err != nil {
		return out, err
	}
	c.lru.Add(key, out)
	return out, nil
}

func cacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(req.Temperature, 'f', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(req.MaxTokens)))
	return hex.EncodeToString(h.Sum(nil))
}
