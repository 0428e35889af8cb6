// Package backup provides periodic snapshots of the agent database.
package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lightenlabs/feather/internal/logger"
)

// Manager handles database backup snapshots.
type Manager struct {
	dbPath    string
	backupDir string
	retention int
	interval  time.Duration
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Config holds backup configuration.
type Config struct {
	DBPath    string
	BackupDir string
	Retention int           // Number of snapshots to keep
	Interval  time.Duration // How often to snapshot (0 = disabled)
}

// Snapshot represents one backup snapshot.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
}

// New creates a backup Manager.
func New(cfg Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	return &Manager{
		dbPath:    cfg.DBPath,
		backupDir: cfg.BackupDir,
		retention: cfg.Retention,
		interval:  cfg.Interval,
	}, nil
}

// Start begins periodic snapshots if an interval is configured.
func (m *Manager) Start() {
	if m.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Backup(); err != nil {
					logger.Error("database backup failed", "error", err)
				}
			}
		}
	}()

	logger.Info("backup automation started", "interval", m.interval, "retention", m.retention)
}

// Stop halts periodic snapshots.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.wg.Wait()
	}
}

// Backup writes one gzipped snapshot of the database and prunes old ones.
func (m *Manager) Backup() (*Snapshot, error) {
	src, err := os.Open(m.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = src.Close() }()

	timestamp := time.Now()
	filename := fmt.Sprintf("feather_%s.db.gz", timestamp.Format("20060102_150405"))
	backupPath := filepath.Join(m.backupDir, filename)

	file, err := os.Create(backupPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	gw := gzip.NewWriter(file)
	if _, err := io.Copy(gw, src); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("finish backup: %w", err)
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	if err := m.prune(); err != nil {
		logger.Error("backup pruning failed", "error", err)
	}

	logger.Info("database backed up", "file", filename, "size_bytes", info.Size())
	return &Snapshot{Timestamp: timestamp, Filename: filename, SizeBytes: info.Size()}, nil
}

// List returns existing snapshots, newest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var snapshots []Snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "feather_") || !strings.HasSuffix(e.Name(), ".db.gz") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Timestamp: info.ModTime(),
			Filename:  e.Name(),
			SizeBytes: info.Size(),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Timestamp.After(snapshots[j].Timestamp) })
	return snapshots, nil
}

// prune removes snapshots beyond the retention count, oldest first.
func (m *Manager) prune() error {
	if m.retention <= 0 {
		return nil
	}
	snapshots, err := m.List()
	if err != nil {
		return err
	}
	for _, s := range snapshots[min(len(snapshots), m.retention):] {
		if err := os.Remove(filepath.Join(m.backupDir, s.Filename)); err != nil {
			return fmt.Errorf("remove old backup %s: %w", s.Filename, err)
		}
	}
	return nil
}
