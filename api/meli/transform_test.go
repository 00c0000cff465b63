package meli

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTransformOrder(t *testing.T) {
	packID := int64(7001)
	orden := Order{
		ID:          2000001,
		PackID:      &packID,
		DateCreated: time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC),
		TotalAmount: 50000,
		Buyer:       Buyer{FirstName: "Ana", LastName: "Gomez", Nickname: "ANAG"},
		Shipping:    Shipping{ID: 9001},
	}
	orden.OrderItems = []OrderItem{{Quantity: 2, UnitPrice: 25000}}
	orden.OrderItems[0].Item.ID = "MCO123"
	orden.OrderItems[0].Item.Title = "Juego de bloques"
	orden.OrderItems[0].Item.SKU = "BLK-01"

	rec := TransformOrder(orden)

	if rec.OrderID != "2000001" {
		t.Errorf("expected order id 2000001, got %s", rec.OrderID)
	}
	if rec.PackID != "7001" || rec.ShippingID != "9001" {
		t.Errorf("pack/shipping ids wrong: %+v", rec)
	}
	if rec.Total == nil || *rec.Total != 50000 {
		t.Errorf("expected total 50000, got %v", rec.Total)
	}
	if rec.BuyerName != "Ana Gomez" || rec.BuyerNickname != "ANAG" {
		t.Errorf("buyer fields wrong: %+v", rec)
	}
	if rec.Remision != "" || rec.FechaRemision != "" {
		t.Errorf("remision must start unassigned: %+v", rec)
	}

	var productos []productoDB
	if err := json.Unmarshal([]byte(rec.Productos), &productos); err != nil {
		t.Fatalf("productos is not valid JSON: %v", err)
	}
	if len(productos) != 1 || productos[0].SKU != "BLK-01" || productos[0].Quantity != 2 {
		t.Errorf("unexpected productos payload: %+v", productos)
	}
}

func TestTransformOrder_NoPackNoBuyer(t *testing.T) {
	orden := Order{
		ID:          2000002,
		DateCreated: time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC),
	}
	rec := TransformOrder(orden)
	if rec.PackID != "" || rec.ShippingID != "" {
		t.Errorf("absent ids must stay empty: %+v", rec)
	}
	if rec.BuyerName != "" {
		t.Errorf("empty buyer must not produce a stray space, got %q", rec.BuyerName)
	}
	if rec.Productos != "[]" {
		t.Errorf("no items must serialize as [], got %q", rec.Productos)
	}
}
