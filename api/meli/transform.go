package meli

import (
	"encoding/json"
	"strconv"
	"strings"

	"MeliTbcRecon/api/recon/engine"
)

type productoDB struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	SKU       string  `json:"sku"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// TransformOrder flattens an ML order into the shape of the order store:
// items serialized to a JSON list, buyer name concatenated, remision fields
// left empty until someone assigns one.
func TransformOrder(o Order) engine.OrderRecord {
	productos := make([]productoDB, 0, len(o.OrderItems))
	for _, item := range o.OrderItems {
		productos = append(productos, productoDB{
			ID:        item.Item.ID,
			Title:     item.Item.Title,
			SKU:       item.Item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	productosJSON, _ := json.Marshal(productos)

	rec := engine.OrderRecord{
		OrderID:       strconv.FormatInt(o.ID, 10),
		FechaOrden:    o.DateCreated.UTC(),
		Productos:     string(productosJSON),
		BuyerName:     strings.TrimSpace(o.Buyer.FirstName + " " + o.Buyer.LastName),
		BuyerNickname: o.Buyer.Nickname,
	}
	total := o.TotalAmount
	rec.Total = &total
	if o.PackID != nil {
		rec.PackID = strconv.FormatInt(*o.PackID, 10)
	}
	if o.Shipping.ID != 0 {
		rec.ShippingID = strconv.FormatInt(o.Shipping.ID, 10)
	}
	return rec
}
