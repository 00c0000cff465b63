package jobs

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"MeliTbcRecon/api/meli"
	"MeliTbcRecon/internal/config"
	"MeliTbcRecon/internal/logger"
	"MeliTbcRecon/internal/serviceiface"
)

// CronService periodically pulls new Mercado Libre orders into the store so
// the assignment and reconciliation views stay current without manual syncs.
type CronService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
	cron   *cron.Cron
}

func NewCronService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &CronService{config: cfg, pool: pool}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	schedule := config.DefaultSyncSchedule
	batchSize := config.SyncBatchSize
	if s.config != nil {
		if v, ok := s.config["sync_schedule"].(string); ok && v != "" {
			schedule = v
		}
		if v, ok := s.config["sync_batch_size"].(int); ok && v > 0 {
			batchSize = v
		}
	}

	client := meli.NewClient(s.pool)
	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		result, err := meli.SyncOrders(ctx, s.pool, client, batchSize)
		if err != nil {
			log.Printf("[Cron] ML sync failed: %v", err)
			return
		}
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(
				"[Cron] ML sync ok: " + result.String())
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()

	log.Printf("Cron service started, ML sync scheduled (%s)", schedule)
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	return nil
}
