package meli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"MeliTbcRecon/internal/config"
)

// Order is the subset of the ML order payload the reconciler cares about.
type Order struct {
	ID          int64       `json:"id"`
	PackID      *int64      `json:"pack_id"`
	DateCreated time.Time   `json:"date_created"`
	TotalAmount float64     `json:"total_amount"`
	OrderItems  []OrderItem `json:"order_items"`
	Buyer       Buyer       `json:"buyer"`
	Shipping    Shipping    `json:"shipping"`
}

type OrderItem struct {
	Item struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		SKU   string `json:"seller_sku"`
	} `json:"item"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Buyer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
}

type Shipping struct {
	ID int64 `json:"id"`
}

// Client talks to the Mercado Libre REST API using the token stored in
// Postgres, refreshing it once on a 401.
type Client struct {
	baseURL      string
	appID        string
	clientSecret string
	http         *http.Client
	pool         *pgxpool.Pool
}

func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{
		baseURL:      config.MeliAPIBase,
		appID:        os.Getenv("ML_APP_ID"),
		clientSecret: os.Getenv("ML_CLIENT_SECRET"),
		http:         &http.Client{Timeout: 30 * time.Second},
		pool:         pool,
	}
}

func (c *Client) get(ctx context.Context, accessToken, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("ML API %s: %s", path, resp.Status)
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}

// GetOrders fetches one page of the seller's orders, newest first. An
// expired token is refreshed and the call retried once.
func (c *Client) GetOrders(ctx context.Context, accessToken string, sellerID int64, limit, offset int) ([]Order, error) {
	return c.getOrders(ctx, accessToken, sellerID, limit, offset, true)
}

func (c *Client) getOrders(ctx context.Context, accessToken string, sellerID int64, limit, offset int, retryOn401 bool) ([]Order, error) {
	path := "/orders/search?seller=" + strconv.FormatInt(sellerID, 10) +
		"&sort=date_desc&limit=" + strconv.Itoa(limit) +
		"&offset=" + strconv.Itoa(offset)

	var payload struct {
		Results []Order `json:"results"`
	}
	status, err := c.get(ctx, accessToken, path, &payload)
	if status == http.StatusUnauthorized && retryOn401 {
		refreshed, refreshErr := c.RefreshToken(ctx)
		if refreshErr != nil {
			return nil, fmt.Errorf("token expired and refresh failed: %w", refreshErr)
		}
		return c.getOrders(ctx, refreshed.AccessToken, sellerID, limit, offset, false)
	}
	if err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// GetOrderDetail fetches the full payload of one order.
func (c *Client) GetOrderDetail(ctx context.Context, accessToken, orderID string) (*Order, error) {
	var orden Order
	if _, err := c.get(ctx, accessToken, "/orders/"+orderID, &orden); err != nil {
		return nil, err
	}
	return &orden, nil
}
