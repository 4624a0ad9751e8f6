// Package archive selects and wires event-archive storage backends and
// provides the append-only event journal written through them.
package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	env "github.com/caarlos0/env/v11"

	"stablecore/internal/infra/archive/core"
	"stablecore/internal/infra/archive/fs"
	"stablecore/internal/infra/archive/memory"
	"stablecore/internal/infra/archive/s3"
	"stablecore/pkg/domain"
)

// Re-exported aliases so callers depend on this package only.
type (
	Store      = core.Store
	Driver     = core.Driver
	Info       = core.Info
	PutOptions = core.PutOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Config captures archive backend selection. Values come from the
// environment via LoadConfig.
type Config struct {
	Driver string `env:"STABLECORE_ARCHIVE_DRIVER" envDefault:"fs"`
	FSRoot string `env:"STABLECORE_ARCHIVE_FS_ROOT" envDefault:"./archivedata"`

	S3Region          string `env:"STABLECORE_ARCHIVE_S3_REGION"`
	S3Bucket          string `env:"STABLECORE_ARCHIVE_S3_BUCKET"`
	S3Endpoint        string `env:"STABLECORE_ARCHIVE_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"STABLECORE_ARCHIVE_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"STABLECORE_ARCHIVE_S3_SECRET_ACCESS_KEY"`
	S3SessionToken    string `env:"STABLECORE_ARCHIVE_S3_SESSION_TOKEN"`
	S3PathStyle       bool   `env:"STABLECORE_ARCHIVE_S3_PATH_STYLE"`
}

// LoadConfig parses archive configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse archive config: %w", err)
	}
	return cfg, nil
}

// Open constructs the archive store selected by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			SessionToken:    cfg.S3SessionToken,
			PathStyle:       cfg.S3PathStyle,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", cfg.Driver)
	}
}

// OpenFromEnv combines LoadConfig and Open.
func OpenFromEnv(ctx context.Context) (Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

const (
	journalPrefix      = "events/"
	journalContentType = "application/x-ndjson"
)

// Journal persists event batches as newline-delimited JSON objects, one
// archive object per batch. It satisfies domain.EventSink.
type Journal struct {
	mu    sync.Mutex
	store Store
	seq   uint64
	now   func() time.Time
}

// NewJournal creates a Journal writing into store under events/.
func NewJournal(store Store) *Journal {
	return &Journal{store: store, now: time.Now}
}

// Append writes one archive object containing the batch. Keys order by
// wall-clock time then by an in-process sequence number so replay preserves
// append order.
func (j *Journal) Append(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, evt := range events {
		if err := enc.Encode(evt); err != nil {
			return fmt.Errorf("encode journal event: %w", err)
		}
	}
	j.seq++
	key := fmt.Sprintf("%s%020d-%06d.jsonl", journalPrefix, j.now().UTC().UnixNano(), j.seq)
	if _, err := j.store.Put(ctx, key, &buf, PutOptions{ContentType: journalContentType}); err != nil {
		return fmt.Errorf("persist journal batch: %w", err)
	}
	return nil
}

// Replay reads every journal object in key order and returns the decoded
// events in append order.
func (j *Journal) Replay(ctx context.Context) ([]domain.Event, error) {
	infos, err := j.store.List(ctx, journalPrefix)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	var events []domain.Event
	for _, info := range infos {
		_, rc, err := j.store.Get(ctx, info.Key)
		if err != nil {
			return nil, fmt.Errorf("read journal %s: %w", info.Key, err)
		}
		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var evt domain.Event
			if err := json.Unmarshal(line, &evt); err != nil {
				rc.Close()
				return nil, fmt.Errorf("decode journal %s: %w", info.Key, err)
			}
			events = append(events, evt)
		}
		if err := scanner.Err(); err != nil {
			rc.Close()
			return nil, fmt.Errorf("scan journal %s: %w", info.Key, err)
		}
		rc.Close()
	}
	return events, nil
}
