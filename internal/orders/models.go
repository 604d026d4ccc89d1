package orders

import "time"

type Order struct {
	ID           string
	TrackingID   string
	SessionToken string
	Status       Status

	AmountPaidCents     int64 // provisional at creation, provider total once paid
	Currency            string
	DeliverySpeed       DeliverySpeed
	ExpectedDeliveryAt  time.Time
	CouponCode          string
	CouponDiscountCents int64

	PaymentSessionID string
	PaymentIntentID  string

	Intake IntakePayload

	// Extracted once at creation (or at paid-time enrichment) from Intake,
	// duplicated for query convenience.
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	RecipientName         string
	RecipientRelationship string
	SongPerspective       string
	PrimaryLanguage       string
	MusicStyle            []string
	EmotionalVibe         []string
	VoicePreference       string
	CoreMessage           string
	Gender                string

	CreatedAt time.Time
	PaidAt    *time.Time
}

type Coupon struct {
	Code          string
	Active        bool
	DiscountType  DiscountType
	DiscountValue int64
	ExpiryDate    *time.Time
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)
