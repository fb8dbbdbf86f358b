package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

//go:embed lua/*.lua
var luaFS embed.FS

// scripts caches the SHA of every embedded Lua script
type scripts struct {
	rdb    redis.UniversalClient
	log    *slog.Logger
	mu     sync.RWMutex
	hashes map[string]string // filename -> Redis SHA
	flight singleflight.Group
}

func newScripts(rdb redis.UniversalClient, log *slog.Logger) *scripts {
	return &scripts{rdb: rdb, log: log, hashes: make(map[string]string)}
}

// load uploads all scripts; concurrent callers share one upload
func (s *scripts) load(ctx context.Context) error {
	_, err, _ := s.flight.Do("load", func() (any, error) {
		entries, err := luaFS.ReadDir("lua")
		if err != nil {
			return nil, fmt.Errorf("failed to read lua directory: %w", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || path.Ext(name) != ".lua" {
				continue
			}
			content, err := luaFS.ReadFile(path.Join("lua", name))
			if err != nil {
				return nil, fmt.Errorf("failed to read script %s: %w", name, err)
			}
			sha, err := s.rdb.ScriptLoad(ctx, string(content)).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to load script %s to Redis: %w", name, err)
			}
			s.hashes[name] = sha
			s.log.Debug("loaded script", slog.String("script", name), slog.String("sha", sha))
		}
		return nil, nil
	})
	return err
}

func (s *scripts) sha(ctx context.Context, name string, force bool) (string, error) {
	if !force {
		s.mu.RLock()
		sha := s.hashes[name]
		s.mu.RUnlock()
		if sha != "" {
			return sha, nil
		}
	}
	if err := s.load(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sha := s.hashes[name]
	if sha == "" {
		return "", fmt.Errorf("script %s not found", name)
	}
	return sha, nil
}

// eval runs a script by SHA and reloads once on NOSCRIPT (Redis restarted)
func (s *scripts) eval(ctx context.Context, name string, keys []string, args ...any) *redis.Cmd {
	sha, err := s.sha(ctx, name, false)
	if err != nil {
		return redis.NewCmd(ctx, err)
	}
	cmd := s.rdb.EvalSha(ctx, sha, keys, args...)
	if cmd.Err() != nil && strings.Contains(cmd.Err().Error(), "NOSCRIPT") {
		sha, err = s.sha(ctx, name, true)
		if err != nil {
			return redis.NewCmd(ctx, err)
		}
		cmd = s.rdb.EvalSha(ctx, sha, keys, args...)
	}
	return cmd
}
