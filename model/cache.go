// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheSize bounds the number of distinct requests retained.
	DefaultCacheSize = 128

	// DefaultCacheTTL bounds how long a cached response stays valid.
	DefaultCacheTTL = 5 * time.Minute
)

// CachingInvoker deduplicates identical requests against a bounded
// capacity+TTL cache. The key is a deterministic hash of the normalized
// request fields, so two requests that differ only in field ordering of tool
// inputs still collide.
//
// Repeat-determinism runs must bypass this wrapper: it exists for ancillary
// calls (grading, tooling) where re-asking the endpoint is pure waste.
type CachingInvoker struct {
	inner Invoker
	cache *expirable.LRU[string, *Response]
}

// NewCachingInvoker wraps inner with a dedup cache. Non-positive size or ttl
// fall back to the defaults.
func NewCachingInvoker(inner Invoker, size int, ttl time.Duration) *CachingInvoker {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingInvoker{
		inner: inner,
		cache: expirable.NewLRU[string, *Response](size, nil, ttl),
	}
}

// Invoke serves a cached response when an identical request was answered
// within the TTL, otherwise delegates to the wrapped invoker. Errors are
// never cached.
func (c *CachingInvoker) Invoke(ctx context.Context, req *Request) (*Response, error) {
	key, err := RequestKey(req)
	if err != nil {
		return c.inner.Invoke(ctx, req)
	}

	if cached, ok := c.cache.Get(key); ok {
		resp := cached.Clone()
		if resp.Usage == nil {
			resp.Usage = &Usage{}
		}
		resp.Usage.FromCache = true
		return resp, nil
	}

	resp, err := c.inner.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, resp.Clone())
	return resp, nil
}

// Len returns the number of live cache entries.
func (c *CachingInvoker) Len() int {
	return c.cache.Len()
}

// RequestKey computes the deterministic cache key for a request.
func RequestKey(req *Request) (string, error) {
	type keyFields struct {
		ModelID      string    `json:"model_id"`
		SystemPrompt string    `json:"system_prompt"`
		UserPrompt   string    `json:"user_prompt"`
		Content      string    `json:"content"`
		Tools        []string  `json:"tools"`
		MaxTokens    int32     `json:"max_tokens"`
		Temperature  *float32  `json:"temperature"`
		History      []Message `json:"history"`
	}

	kf := keyFields{
		ModelID:      req.ModelID,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Content:      req.Content,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		History:      req.History,
	}
	for _, t := range req.Tools {
		kf.Tools = append(kf.Tools, t.Name)
	}
	sort.Strings(kf.Tools)

	data, err := json.Marshal(kf)
	if err != nil {
		return "", fmt.Errorf("hashing request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
