package orders

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/internal/serviceiface"
)

type OrdersService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewOrdersService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &OrdersService{config: cfg, pool: pool}
}

func (s *OrdersService) Name() string {
	return "orders"
}

func (s *OrdersService) Start() error {
	go StartOrdersService(s.pool)
	return nil
}

func (s *OrdersService) Stop() error {
	return nil
}

// StartOrdersService mounts the order-store routes on their own port. The
// gateway proxies /orders/ here.
func StartOrdersService(pool *pgxpool.Pool) {
	router := mux.NewRouter()
	router.Handle("/orders/list", ListOrdersHandler(pool)).Methods("POST")
	router.Handle("/orders/get", GetOrderHandler(pool)).Methods("POST")
	router.Handle("/orders/assign-remision", AssignRemisionHandler(pool)).Methods("POST")
	router.Handle("/orders/stats", StatsHandler(pool)).Methods("GET", "POST")

	log.Println("Orders Service started on :5143")
	if err := http.ListenAndServe(":5143", router); err != nil {
		log.Fatalf("Orders Service failed: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// ListOrdersHandler returns orders filtered by date range and remision state.
func ListOrdersHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var filter ListFilter
		if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		ordenes, err := List(r.Context(), pool, filter)
		if err != nil {
			http.Error(w, "Database query failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]interface{}{
			"success": true,
			"count":   len(ordenes),
			"orders":  ordenes,
		})
	})
}

// GetOrderHandler returns a single order by its ML order id.
func GetOrderHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrderID string `json:"order_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
			http.Error(w, "order_id is required", http.StatusBadRequest)
			return
		}
		orden, err := GetByOrderID(r.Context(), pool, req.OrderID)
		if err != nil {
			http.Error(w, "Order not found: "+req.OrderID, http.StatusNotFound)
			return
		}
		respondJSON(w, map[string]interface{}{"success": true, "order": orden})
	})
}

var remisionValida = regexp.MustCompile(`^\d{4,5}$`)

// AssignRemisionHandler links an order to a TBC remision. The remision must
// be a 4-5 digit number, same rule the parser enforces.
func AssignRemisionHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OrderID       string `json:"order_id"`
			Remision      string `json:"remision"`
			FechaRemision string `json:"fecha_remision"`
			Usuario       string `json:"usuario"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.OrderID == "" || req.FechaRemision == "" {
			http.Error(w, "order_id and fecha_remision are required", http.StatusBadRequest)
			return
		}
		if !remisionValida.MatchString(req.Remision) {
			http.Error(w, "remision must be a 4-5 digit number", http.StatusBadRequest)
			return
		}
		if err := AssignRemision(r.Context(), pool, req.OrderID, req.Remision, req.FechaRemision, req.Usuario); err != nil {
			http.Error(w, "Failed to assign remision: "+err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]interface{}{
			"success":  true,
			"order_id": req.OrderID,
			"remision": req.Remision,
		})
	})
}

// StatsHandler returns store-wide counters.
func StatsHandler(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := GetStats(r.Context(), pool)
		if err != nil {
			http.Error(w, "Database query failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, stats)
	})
}
