package fulfillment

import (
	"time"

	"github.com/songgift/checkout/internal/orders"
)

// OrderWebhook is the sink's contract: event name, order identifiers,
// customer contact, resolved song details, and the raw intake verbatim.
// The same shape is sent at initiation and on payment; only the event
// name, status, and payment fields differ.
type OrderWebhook struct {
	Event       string      `json:"event"`
	Status      string      `json:"status"`
	Order       OrderInfo   `json:"order"`
	Customer    Customer    `json:"customer"`
	SongDetails SongDetails `json:"song_details"`
	Intake      any         `json:"intake"`
}

type OrderInfo struct {
	TrackingID       string     `json:"tracking_id"`
	CreatedAt        time.Time  `json:"created_at"`
	PaidAt           *time.Time `json:"paid_at"`
	OrderStatus      string     `json:"order_status"`
	DeliveryType     string     `json:"delivery_type"`
	DeliveryETA      time.Time  `json:"delivery_eta"`
	AmountPaidCents  int64      `json:"amount_paid"`
	Currency         string     `json:"currency"`
	SessionToken     string     `json:"session_id"`
	PaymentSessionID string     `json:"payment_session_id"`
	PaymentIntentID  string     `json:"payment_intent_id"`
	CouponCode       string     `json:"coupon_code,omitempty"`
	CouponDiscount   int64      `json:"coupon_discount,omitempty"`
}

type Customer struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	GenderCustom string `json:"gender_custom,omitempty"`
}

type SongDetails struct {
	RecipientName         string   `json:"recipient_name"`
	RecipientRelationship string   `json:"recipient_relationship"`
	SongPerspective       string   `json:"song_perspective"`
	PrimaryLanguage       string   `json:"primary_language"`
	MusicStyle            []string `json:"music_style"`
	EmotionalVibe         []string `json:"emotional_vibe"`
	VoicePreference       string   `json:"voice_preference"`
	FaithExpressionLevel  string   `json:"faith_expression_level,omitempty"`
	CoreMessage           string   `json:"core_message"`
	Gender                string   `json:"gender,omitempty"`
}

func buildOrder(o *orders.Order, event, status string) *OrderWebhook {
	return &OrderWebhook{
		Event:  event,
		Status: status,
		Order: OrderInfo{
			TrackingID:       o.TrackingID,
			CreatedAt:        o.CreatedAt,
			PaidAt:           o.PaidAt,
			OrderStatus:      string(o.Status),
			DeliveryType:     string(o.DeliverySpeed),
			DeliveryETA:      o.ExpectedDeliveryAt,
			AmountPaidCents:  o.AmountPaidCents,
			Currency:         o.Currency,
			SessionToken:     o.SessionToken,
			PaymentSessionID: o.PaymentSessionID,
			PaymentIntentID:  o.PaymentIntentID,
			CouponCode:       o.CouponCode,
			CouponDiscount:   o.CouponDiscountCents,
		},
		Customer: Customer{
			Name:         o.CustomerName,
			Email:        o.CustomerEmail,
			Phone:        o.CustomerPhone,
			GenderCustom: o.Intake.GenderCustom,
		},
		SongDetails: SongDetails{
			RecipientName:         o.RecipientName,
			RecipientRelationship: o.RecipientRelationship,
			SongPerspective:       o.SongPerspective,
			PrimaryLanguage:       o.PrimaryLanguage,
			MusicStyle:            o.MusicStyle,
			EmotionalVibe:         o.EmotionalVibe,
			VoicePreference:       o.VoicePreference,
			FaithExpressionLevel:  o.Intake.FaithExpressionLevel,
			CoreMessage:           o.CoreMessage,
			Gender:                o.Gender,
		},
		Intake: o.Intake,
	}
}

func BuildOrderPaid(o *orders.Order) *OrderWebhook {
	return buildOrder(o, "order.paid", "paid")
}

// BuildOrderInitiated is sent before payment, so the amount is the
// provisional checkout total and payment fields may still be empty.
func BuildOrderInitiated(o *orders.Order) *OrderWebhook {
	return buildOrder(o, "order_initiated", "pending")
}
