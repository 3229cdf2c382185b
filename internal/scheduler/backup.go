
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Armin-kho/fsub-video-bot/internal/metrics"
	"github.com/Armin-kho/fsub-video-bot/internal/utils"
)

const backupPrefix = "bot_config-"

// Snapshotter writes a consistent copy of the bot state to a path.
type Snapshotter interface {
	Snapshot(ctx context.Context, dstPath string) error
}

// Backups writes snapshots into a directory and keeps only the newest ones.
type Backups struct {
	store   Snapshotter
	dir     string
	ext     string
	keep    int
	clock   utils.Clock
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewBackups keeps at most keep snapshots in dir; keep <= 0 keeps all of them.
// ext is the file extension without the dot ("json" or "db").
func NewBackups(store Snapshotter, dir, ext string, keep int, clock utils.Clock, m *metrics.Metrics, log *zap.SugaredLogger) *Backups {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Backups{
		store:   store,
		dir:     dir,
		ext:     strings.TrimPrefix(ext, "."),
		keep:    keep,
		clock:   clock,
		metrics: m,
		log:     log.Named("backup"),
		now:     time.Now,
	}
}

func (b *Backups) Dir() string { return b.dir }

// Create writes a new snapshot and returns its path.
func (b *Backups) Create(ctx context.Context) (string, error) {
	if err := os.MkdirAll(b.dir, 0o750); err != nil {
		b.metrics.Backup(false)
		return "", err
	}
	name := fmt.Sprintf("%s%s-%s.%s", backupPrefix, b.clock.FileStamp(b.now()), uuid.NewString()[:8], b.ext)
	dst := filepath.Join(b.dir, name)
	if err := b.store.Snapshot(ctx, dst); err != nil {
		b.metrics.Backup(false)
		return "", fmt.Errorf("snapshot %s: %w", name, err)
	}
	b.metrics.Backup(true)
	b.log.Infow("backup written", "path", dst)

	if err := b.prune(); err != nil {
		b.log.Warnw("prune backups failed", "err", err)
	}
	return dst, nil
}

// Run is the cron entry point.
func (b *Backups) Run(ctx context.Context) error {
	_, err := b.Create(ctx)
	return err
}

// List returns existing snapshot paths, oldest first.
func (b *Backups) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		out = append(out, filepath.Join(b.dir, e.Name()))
	}
	// Names embed a sortable timestamp.
	sort.Strings(out)
	return out, nil
}

func (b *Backups) prune() error {
	if b.keep <= 0 {
		return nil
	}
	all, err := b.List()
	if err != nil {
		return err
	}
	if len(all) <= b.keep {
		return nil
	}
	for _, p := range all[:len(all)-b.keep] {
		if err := os.Remove(p); err != nil {
			return err
		}
		b.log.Debugw("backup pruned", "path", p)
	}
	return nil
}
