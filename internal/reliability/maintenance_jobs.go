package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/papaya09/Personal-Finance-Tracker/internal/database"
)

// WALCheckpointJob truncates the WAL files of all databases so they
// don't grow unbounded between backups.
type WALCheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

func NewWALCheckpointJob(databases []*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checkpoints every database. A failure on one database doesn't
// stop the others; the first error is returned.
func (j *WALCheckpointJob) Run() error {
	var firstErr error
	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("WAL checkpoint completed")
	}
	return firstErr
}

// BackupJob runs the full backup-and-upload cycle on a schedule.
type BackupJob struct {
	service *BackupService
	log     zerolog.Logger
}

func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// Run creates and uploads a backup with a generous timeout.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}
	return nil
}
