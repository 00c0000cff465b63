package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LoggerService owns the application log file: size-based rotation plus
// removal of logs older than the retention window. All services write through
// the stdlib logger, whose output is pointed at the current file.
type LoggerService struct {
	Config        map[string]interface{}
	file          *os.File
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	maxFileBytes  int64
	retentionDays int
	folderPath    string
}

func NewLoggerService(config map[string]interface{}) *LoggerService {
	toInt := func(v interface{}) int {
		switch t := v.(type) {
		case int:
			return t
		case float64:
			return int(t)
		}
		return 0
	}
	maxMB := toInt(config["max_file_mb"])
	retention := toInt(config["retention_days"])
	folder, _ := config["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	return &LoggerService{
		Config:        config,
		stopCh:        make(chan struct{}),
		maxFileBytes:  int64(maxMB) * 1024 * 1024,
		retentionDays: retention,
		folderPath:    folder,
	}
}

func (l *LoggerService) Name() string {
	return "logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	file, err := l.openLogFile()
	if err != nil {
		return err
	}
	l.file = file
	log.SetOutput(file)
	log.Println("[LoggerService] Started, writing to", file.Name())

	l.wg.Add(1)
	go l.backgroundWorker()
	return nil
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		log.Println("[LoggerService] Stopping")
		return l.file.Close()
	}
	return nil
}

func (l *LoggerService) openLogFile() (*os.File, error) {
	name := filepath.Join(l.folderPath,
		fmt.Sprintf("recon_%s.log", time.Now().Format("20060102_150405")))
	return os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

func (l *LoggerService) rotateIfNeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return
	}
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.maxFileBytes {
		return
	}
	l.file.Close()
	file, err := l.openLogFile()
	if err != nil {
		return
	}
	l.file = file
	log.SetOutput(file)
	log.Println("[LoggerService] Rotated log file to", file.Name())
}

func (l *LoggerService) cleanOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(l.folderPath, f.Name())
		if fullPath == l.currentName() {
			continue
		}
		info, err := os.Stat(fullPath)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		os.Remove(fullPath)
	}
}

func (l *LoggerService) currentName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

func (l *LoggerService) backgroundWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.rotateIfNeeded()
		case <-retentionTicker.C:
			l.cleanOldLogs()
		}
	}
}

// LogAudit records operator-relevant events (uploads, reconciliation runs,
// syncs) in the shared log.
func (l *LoggerService) LogAudit(msg string) {
	log.Printf("[AUDIT] %s", msg)
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}
