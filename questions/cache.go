package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kbukum/quizgen/errors"
	"github.com/kbukum/quizgen/logger"
)

// CacheName is the provider name of the cache tier.
const CacheName = "cache"

// CacheSource reads question sets from a filesystem laid out as
// <root>/<topic folder>/<difficulty>.json, for example questions/cs/easy.json.
type CacheSource struct {
	fs   afero.Fs
	root string
	log  *logger.Logger
}

// NewCacheSource creates a cache tier rooted at root on fs. A nil fs selects
// the OS filesystem.
func NewCacheSource(fs afero.Fs, root string) *CacheSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &CacheSource{fs: fs, root: root, log: logger.Get("questions").WithComponent(CacheName)}
}

// Name returns "cache".
func (c *CacheSource) Name() string { return CacheName }

// IsAvailable reports whether the cache root exists.
func (c *CacheSource) IsAvailable(context.Context) bool {
	ok, err := afero.DirExists(c.fs, c.root)
	return err == nil && ok
}

// Path returns the file a query's question set lives in.
func (c *CacheSource) Path(topic, difficulty string) string {
	return filepath.Join(c.root, TopicFolder(topic), strings.ToLower(difficulty)+".json")
}

// Execute loads the set for q and returns up to q.Count valid questions.
// A missing file is a PROVIDER_ERROR, an unreadable one is PARSE, and a set
// with no valid questions is PARSE.
func (c *CacheSource) Execute(ctx context.Context, q Query) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Classify(CacheName, err)
	}
	path := c.Path(q.Topic, q.Difficulty)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ProviderError(CacheName, "no cached question set at "+path)
		}
		return nil, errors.ProviderError(CacheName, "failed to read "+path).WithCause(err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.Parse(CacheName, "malformed question set at "+path).WithCause(err)
	}

	out := make([]Question, 0, len(set.Questions))
	for i, qu := range set.Questions {
		if !qu.Valid() {
			c.log.Debug("skipping invalid cached question", logger.Fields("path", path, "index", i))
			continue
		}
		qu.Topic = q.Topic
		qu.Difficulty = q.Difficulty
		if qu.ID == "" {
			qu.ID = fmt.Sprintf("CACHE_%s_%03d", strings.ToUpper(q.Difficulty), len(out)+1)
		}
		out = append(out, qu)
	}
	if len(out) == 0 {
		return nil, errors.Parse(CacheName, "no valid questions in "+path)
	}
	return pick(out, q.Count), nil
}

// Store writes qs as the set for topic and difficulty, replacing any
// previous set. The file is written to a temporary name and renamed into
// place so readers never see a partial set.
func (c *CacheSource) Store(topic, difficulty string, qs []Question) error {
	path := c.Path(topic, difficulty)
	if err := c.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.ProviderError(CacheName, "failed to create cache directory").WithCause(err)
	}
	data, err := json.MarshalIndent(Set{Topic: topic, Difficulty: difficulty, Questions: qs}, "", "  ")
	if err != nil {
		return errors.ProviderError(CacheName, "failed to encode question set").WithCause(err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return errors.ProviderError(CacheName, "failed to write "+tmp).WithCause(err)
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
		return errors.ProviderError(CacheName, "failed to move "+tmp+" into place").WithCause(err)
	}
	c.log.Debug("stored question set", logger.Fields("path", path, "questions", len(qs)))
	return nil
}

// Seed writes the static bank for every built-in topic and difficulty whose
// file is missing. Existing sets are left alone. It returns how many files
// it wrote.
func (c *CacheSource) Seed() (int, error) {
	written := 0
	for _, topic := range BankTopics() {
		for _, diff := range []string{Easy, Medium, Hard} {
			exists, err := afero.Exists(c.fs, c.Path(topic, diff))
			if err != nil {
				return written, errors.ProviderError(CacheName, "failed to stat cache").WithCause(err)
			}
			if exists {
				continue
			}
			if err := c.Store(topic, diff, Bank(topic, diff)); err != nil {
				return written, err
			}
			written++
		}
	}
	if written > 0 {
		c.log.Info("seeded question cache", logger.Fields("root", c.root, "files", written))
	}
	return written, nil
}
