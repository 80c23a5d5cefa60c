package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// OrderSummary is the list-view projection of an order.
type OrderSummary struct {
	ID               uuid.UUID           `json:"id"`
	Reference        string              `json:"reference"`
	SubtotalCents    int64               `json:"subtotal_cents"`
	PlatformFeeCents int64               `json:"platform_fee_cents"`
	TotalCents       int64               `json:"total_cents"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	Status           enums.OrderStatus   `json:"status"`
	SuborderCount    int                 `json:"suborder_count"`
	CreatedAt        time.Time           `json:"created_at"`
}

// SuborderDetail is the detail-view projection of one vendor slice.
type SuborderDetail struct {
	ID               uuid.UUID                   `json:"id"`
	VendorID         uuid.UUID                   `json:"vendor_id"`
	ShopID           uuid.UUID                   `json:"shop_id"`
	Status           enums.SuborderStatus        `json:"status"`
	GrossCents       int64                       `json:"gross_cents"`
	CommissionCents  int64                       `json:"commission_cents"`
	NetCents         int64                       `json:"net_cents"`
	RiderID          *uuid.UUID                  `json:"rider_id,omitempty"`
	DeliveryFeeCents int64                       `json:"delivery_fee_cents"`
	Route            *types.DeliveryRoute        `json:"route,omitempty"`
	Confirmation     *types.DeliveryConfirmation `json:"confirmation,omitempty"`
	Items            []SuborderItemDetail        `json:"items"`
	DeliveredAt      *time.Time                  `json:"delivered_at,omitempty"`
}

// SuborderItemDetail is one line within a suborder.
type SuborderItemDetail struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int64     `json:"total_cents"`
}

// OrderDetail is the full projection of an order with its suborders.
type OrderDetail struct {
	OrderSummary
	ShippingAddress types.Address    `json:"shipping_address"`
	Suborders       []SuborderDetail `json:"suborders"`
}

// ToSummary projects an order row for list responses.
func ToSummary(order models.Order) OrderSummary {
	return OrderSummary{
		ID:               order.ID,
		Reference:        order.Reference,
		SubtotalCents:    order.SubtotalCents,
		PlatformFeeCents: order.PlatformFeeCents,
		TotalCents:       order.TotalCents,
		PaymentStatus:    order.PaymentStatus,
		Status:           order.Status,
		SuborderCount:    len(order.Suborders),
		CreatedAt:        order.CreatedAt,
	}
}

// ToDetail projects an order row with nested suborders and items.
func ToDetail(order models.Order) OrderDetail {
	detail := OrderDetail{
		OrderSummary:    ToSummary(order),
		ShippingAddress: order.ShippingAddress,
		Suborders:       make([]SuborderDetail, 0, len(order.Suborders)),
	}
	for _, sub := range order.Suborders {
		items := make([]SuborderItemDetail, 0, len(sub.Items))
		for _, item := range sub.Items {
			items = append(items, SuborderItemDetail{
				ProductID:      item.ProductID,
				Name:           item.Name,
				UnitPriceCents: item.UnitPriceCents,
				Qty:            item.Qty,
				TotalCents:     item.TotalCents,
			})
		}
		detail.Suborders = append(detail.Suborders, SuborderDetail{
			ID:               sub.ID,
			VendorID:         sub.VendorID,
			ShopID:           sub.ShopID,
			Status:           sub.Status,
			GrossCents:       sub.GrossCents,
			CommissionCents:  sub.CommissionCents,
			NetCents:         sub.NetCents,
			RiderID:          sub.RiderID,
			DeliveryFeeCents: sub.DeliveryFeeCents,
			Route:            sub.Route,
			Confirmation:     sub.Confirmation,
			Items:            items,
			DeliveredAt:      sub.DeliveredAt,
		})
	}
	return detail
}
