package services

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tikguard/backend/internal/database"
	"github.com/tikguard/backend/internal/models"
	"github.com/tikguard/backend/internal/settings"
)

// cleanupRetention is how long terminated sessions are kept
const cleanupRetention = 30 * 24 * time.Hour

// CronService runs wall-clock jobs: nightly session cleanup and
// scheduled database backups
type CronService struct {
	cron    *cron.Cron
	backups *BackupService
}

// NewCronService creates the cron runner
func NewCronService(backups *BackupService) *CronService {
	return &CronService{
		cron:    cron.New(),
		backups: backups,
	}
}

// Start registers and launches the jobs
func (s *CronService) Start() {
	if _, err := s.cron.AddFunc("0 3 * * *", s.cleanupOldSessions); err != nil {
		log.Printf("Cron: failed to register session cleanup: %v", err)
	}

	if settings.GetBool(settings.KeyBackupScheduleEnabled) {
		spec := settings.Get(settings.KeyBackupScheduleCron)
		if _, err := s.cron.AddFunc(spec, s.runScheduledBackup); err != nil {
			log.Printf("Cron: invalid backup schedule %q: %v", spec, err)
		} else {
			log.Printf("Cron: backups scheduled (%s)", spec)
		}
	}

	s.cron.Start()
	log.Println("Cron service started")
}

// Stop halts the cron runner, waiting for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Cron service stopped")
}

// cleanupOldSessions deletes terminated sessions past the retention
func (s *CronService) cleanupOldSessions() {
	if database.DB == nil {
		return
	}

	cutoff := time.Now().Add(-cleanupRetention)
	result := database.DB.
		Where("status IN ? AND updated_at < ?",
			[]models.SessionStatus{models.SessionDisconnected, models.SessionExpired}, cutoff).
		Delete(&models.VPNSession{})

	if result.Error != nil {
		log.Printf("Cron: session cleanup failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Cron: removed %d terminated sessions older than %s", result.RowsAffected, cutoff.Format("2006-01-02"))
	}
}

func (s *CronService) runScheduledBackup() {
	if _, err := s.backups.Create(); err != nil {
		log.Printf("Cron: scheduled backup failed: %v", err)
	}
}
