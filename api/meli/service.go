package meli

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/internal/config"
	"MeliTbcRecon/internal/serviceiface"
)

type MeliService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewMeliService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &MeliService{config: cfg, pool: pool}
}

func (s *MeliService) Name() string {
	return "meli"
}

func (s *MeliService) Start() error {
	go StartMeliService(s.pool)
	return nil
}

func (s *MeliService) Stop() error {
	return nil
}

// StartMeliService mounts the Mercado Libre routes on their own port. The
// gateway proxies /meli/ here.
func StartMeliService(pool *pgxpool.Pool) {
	client := NewClient(pool)

	router := mux.NewRouter()
	router.Handle("/meli/sync", SyncHandler(pool, client)).Methods("POST")
	router.Handle("/meli/token/refresh", RefreshTokenHandler(client)).Methods("POST")

	log.Println("Meli Service started on :7143")
	if err := http.ListenAndServe(":7143", router); err != nil {
		log.Fatalf("Meli Service failed: %v", err)
	}
}

// SyncHandler runs an on-demand order sync.
func SyncHandler(pool *pgxpool.Pool, client *Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Limit int `json:"limit,omitempty"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		if req.Limit <= 0 {
			req.Limit = config.MaxOrdersToFetch
		}

		result, err := SyncOrders(r.Context(), pool, client, req.Limit)
		if err != nil {
			http.Error(w, "Sync failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"result":  result,
		})
	})
}

// RefreshTokenHandler forces a token refresh, mainly for operators checking
// that the stored refresh token still works.
func RefreshTokenHandler(client *Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := client.RefreshToken(r.Context())
		if err != nil {
			http.Error(w, "Refresh failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":    true,
			"user_id":    token.UserID,
			"expires_in": token.ExpiresIn,
		})
	})
}
