package recon

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/internal/serviceiface"
)

type ReconService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewReconService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &ReconService{config: cfg, pool: pool}
}

func (s *ReconService) Name() string {
	return "recon"
}

func (s *ReconService) Start() error {
	go StartReconService(s.pool)
	return nil
}

func (s *ReconService) Stop() error {
	return nil
}

// StartReconService mounts the reconciliation routes on their own port. The
// gateway proxies /recon/ here.
func StartReconService(pool *pgxpool.Pool) {
	router := mux.NewRouter()
	router.Handle("/recon/upload", UploadResuxdocHandler(pool)).Methods("POST")
	router.Handle("/recon/reconcile", ReconcileHandler(pool)).Methods("POST")
	router.Handle("/recon/reporte", ReporteHandler(pool)).Methods("POST")
	router.Handle("/recon/discrepancias/list", ListDiscrepanciasHandler(pool)).Methods("POST")
	router.Handle("/recon/discrepancias/resolver", ResolverDiscrepanciaHandler(pool)).Methods("POST")

	log.Println("Recon Service started on :6143")
	if err := http.ListenAndServe(":6143", router); err != nil {
		log.Fatalf("Recon Service failed: %v", err)
	}
}
