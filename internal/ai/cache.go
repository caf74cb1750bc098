package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("ai_replies")

type cachedReply struct {
	Reply    Reply     `json:"reply"`
	Model    string    `json:"model"`
	CachedAt time.Time `json:"cached_at"`
}

// WithCache wraps a provider with a bbolt-backed reply cache keyed by the
// model and the full conversation. Identical prompts (common when re-running
// batch analysis) skip the network. An empty path returns the provider
// unwrapped.
func WithCache(p Provider, path string) Provider {
	if path == "" {
		return p
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.Replace(path, "~", home, 1)
		}
	}
	return &cachedProvider{inner: p, path: path}
}

type cachedProvider struct {
	inner Provider
	path  string
}

func (c *cachedProvider) Name() string  { return c.inner.Name() }
func (c *cachedProvider) Model() string { return c.inner.Model() }

func (c *cachedProvider) Complete(ctx context.Context, turns []Turn) (Reply, error) {
	key := c.key(turns)
	if reply, ok := c.get(key); ok {
		return reply, nil
	}

	reply, err := c.inner.Complete(ctx, turns)
	if err != nil {
		return Reply{}, err
	}
	c.put(key, reply)
	return reply, nil
}

func (c *cachedProvider) key(turns []Turn) []byte {
	h := sha256.New()
	h.Write([]byte(c.inner.Model()))
	for _, t := range turns {
		h.Write([]byte("\n" + t.Role + "\n"))
		h.Write([]byte(t.Content))
	}
	sum := h.Sum(nil)
	return []byte(hex.EncodeToString(sum))
}

// Cache failures are silent: a broken cache file must never fail an analysis.
func (c *cachedProvider) get(key []byte) (Reply, bool) {
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return Reply{}, false
	}
	defer db.Close()

	var cr cachedReply
	found := false
	_ = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(cacheBucket)
		if bucket == nil {
			return nil
		}
		v := bucket.Get(key)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &cr); err == nil {
			found = true
		}
		return nil
	})
	return cr.Reply, found
}

func (c *cachedProvider) put(key []byte, reply Reply) {
	db, err := bolt.Open(c.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return
	}
	defer db.Close()

	v, err := json.Marshal(cachedReply{Reply: reply, Model: c.inner.Model(), CachedAt: time.Now()})
	if err != nil {
		return
	}
	_ = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(cacheBucket)
		if err != nil {
			return err
		}
		return bucket.Put(key, v)
	})
}
