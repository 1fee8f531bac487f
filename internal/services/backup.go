package services

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/tikguard/backend/internal/config"
	"github.com/tikguard/backend/internal/settings"
)

const backupSuffix = ".dump"

// BackupInfo describes one backup file on disk
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupService produces, restores and ships database dumps
type BackupService struct {
	cfg       *config.Config
	backupDir string
}

// NewBackupService creates the backup service and its directory
func NewBackupService(cfg *config.Config) *BackupService {
	if err := os.MkdirAll(cfg.BackupDir, 0o750); err != nil {
		log.Printf("Backup: cannot create backup dir %s: %v", cfg.BackupDir, err)
	}
	return &BackupService{cfg: cfg, backupDir: cfg.BackupDir}
}

// Dir returns the backup directory path
func (s *BackupService) Dir() string {
	return s.backupDir
}

// Create dumps the database with pg_dump in custom format, prunes old
// backups and uploads the new dump over FTP when configured
func (s *BackupService) Create() (*BackupInfo, error) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("tikguard_%s%s", timestamp, backupSuffix)
	path := filepath.Join(s.backupDir, filename)

	cmd := exec.Command("pg_dump",
		"-h", s.cfg.DBHost,
		"-p", strconv.Itoa(s.cfg.DBPort),
		"-U", s.cfg.DBUser,
		"-d", s.cfg.DBName,
		"-Fc",
		"-f", path,
		"--no-owner",
		"--no-acl",
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", s.cfg.DBPassword))

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("pg_dump failed: %s: %s", err, string(output))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	s.pruneRetention()

	if host := settings.Get(settings.KeyBackupFTPHost); host != "" {
		if err := s.uploadToFTP(path, filename); err != nil {
			log.Printf("Backup: FTP upload of %s failed: %v", filename, err)
		}
	}

	log.Printf("Backup: created %s (%d bytes)", filename, info.Size())
	return &BackupInfo{
		Filename:  filename,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// List returns available backups, newest first
func (s *BackupService) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), backupSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// resolve validates a backup filename and returns its full path
func (s *BackupService) resolve(filename string) (string, error) {
	if filename != filepath.Base(filename) || !strings.HasSuffix(filename, backupSuffix) {
		return "", fmt.Errorf("invalid backup filename")
	}
	path := filepath.Join(s.backupDir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("backup not found: %s", filename)
	}
	return path, nil
}

// Restore restores a backup with pg_restore
func (s *BackupService) Restore(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}

	cmd := exec.Command("pg_restore",
		"-h", s.cfg.DBHost,
		"-p", strconv.Itoa(s.cfg.DBPort),
		"-U", s.cfg.DBUser,
		"-d", s.cfg.DBName,
		"--clean",
		"--if-exists",
		"--no-owner",
		"--no-acl",
		path,
	)
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", s.cfg.DBPassword))

	output, err := cmd.CombinedOutput()
	if err != nil {
		// pg_restore reports warnings as non-zero exits; only fail on
		// actual errors in the output
		if strings.Contains(string(output), "error:") {
			return fmt.Errorf("pg_restore failed: %s", string(output))
		}
		log.Printf("Backup: pg_restore finished with warnings: %s", string(output))
	}

	log.Printf("Backup: restored %s", filename)
	return nil
}

// Delete removes a backup file
func (s *BackupService) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Path returns the on-disk path of a backup for download
func (s *BackupService) Path(filename string) (string, error) {
	return s.resolve(filename)
}

// pruneRetention deletes the oldest backups beyond the retention count
func (s *BackupService) pruneRetention() {
	keep := settings.GetInt(settings.KeyBackupRetention, 14)
	if keep <= 0 {
		return
	}

	backups, err := s.List()
	if err != nil || len(backups) <= keep {
		return
	}

	for _, backup := range backups[keep:] {
		if err := os.Remove(filepath.Join(s.backupDir, backup.Filename)); err == nil {
			log.Printf("Backup: pruned old backup %s", backup.Filename)
		}
	}
}

// uploadToFTP ships a finished dump to the configured FTP server
func (s *BackupService) uploadToFTP(localPath, filename string) error {
	host := settings.Get(settings.KeyBackupFTPHost)
	if !strings.Contains(host, ":") {
		host += ":21"
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("FTP connection failed: %v", err)
	}
	defer conn.Quit()

	user := settings.Get(settings.KeyBackupFTPUser)
	password := settings.Get(settings.KeyBackupFTPPassword)
	if err := conn.Login(user, password); err != nil {
		return fmt.Errorf("FTP login failed: %v", err)
	}

	path := settings.Get(settings.KeyBackupFTPPath)
	if path != "" && path != "/" {
		if err := conn.ChangeDir(path); err != nil {
			conn.MakeDir(path)
			if err := conn.ChangeDir(path); err != nil {
				return fmt.Errorf("FTP directory change failed: %v", err)
			}
		}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %v", err)
	}
	defer file.Close()

	if err := conn.Stor(filename, file); err != nil {
		return fmt.Errorf("FTP upload failed: %v", err)
	}

	log.Printf("Backup: uploaded %s to %s", filename, host)
	return nil
}

// TestFTPConnection tests FTP connectivity with given credentials
func TestFTPConnection(host string, port int, username, password, path string) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("connection failed: %v", err)
	}
	defer conn.Quit()

	if err := conn.Login(username, password); err != nil {
		return fmt.Errorf("login failed: %v", err)
	}

	if path != "" && path != "/" {
		if err := conn.ChangeDir(path); err != nil {
			if err := conn.MakeDir(path); err != nil {
				return fmt.Errorf("cannot access or create directory %s: %v", path, err)
			}
		}
	}

	return nil
}
