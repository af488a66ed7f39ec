package worker

// backup_cron.go
// Periodic read-only JSON export of the business tables, with retention
// pruning. The export never mutates application state; restoring is a
// manual operation on purpose.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var backupTables = []string{
	"users", "products", "shifts", "cash_movements",
	"sales", "sale_items", "sale_payments",
	"commissions", "financial_movements",
	"fiscal_configs", "fiscal_documents", "pix_charges",
	"stock_movements", "inventory_alerts",
}

// BackupConfig tunes the export goroutine.
type BackupConfig struct {
	Path      string
	Interval  time.Duration
	Retention int // how many export files to keep
}

// StartBackupCron launches a goroutine that snapshots the database to a
// timestamped JSON file on every tick and prunes old exports.
func StartBackupCron(ctx context.Context, db *gorm.DB, cfg BackupConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7
	}

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Str("path", cfg.Path).Dur("interval", cfg.Interval).Msg("backup_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("backup_cron: shutting down")
				return
			case <-ticker.C:
				if path, err := runBackup(db, cfg.Path); err != nil {
					log.Error().Err(err).Msg("backup_cron: export failed")
				} else {
					log.Info().Str("file", path).Msg("backup_cron: export written")
					pruneBackups(cfg.Path, cfg.Retention)
				}
			}
		}
	}()
}

func runBackup(db *gorm.DB, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("backup: create dir: %w", err)
	}

	export := make(map[string][]map[string]interface{}, len(backupTables))
	for _, table := range backupTables {
		var rows []map[string]interface{}
		if err := db.Table(table).Find(&rows).Error; err != nil {
			return "", fmt.Errorf("backup: export %s: %w", table, err)
		}
		export[table] = rows
	}

	data, err := json.Marshal(export)
	if err != nil {
		return "", fmt.Errorf("backup: marshal: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("backup: write: %w", err)
	}
	return path, nil
}

// pruneBackups keeps only the newest `retention` export files.
func pruneBackups(dir string, retention int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "backup_") && strings.HasSuffix(e.Name(), ".json") {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= retention {
		return
	}
	// Timestamped names sort chronologically.
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-retention] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("backup_cron: prune failed")
		}
	}
}
