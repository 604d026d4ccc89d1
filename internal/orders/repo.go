package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, tracking_id, session_token, status,
	amount_paid_cents, currency, delivery_speed, expected_delivery_at,
	coupon_code, coupon_discount_cents, payment_session_id, payment_intent_id,
	intake_payload, customer_name, customer_email, customer_phone,
	recipient_name, recipient_relationship, song_perspective, primary_language,
	music_style, emotional_vibe, voice_preference, core_message, gender,
	created_at, paid_at`

// Insert persists a new pending order. The order id and creation time are
// assigned here; the caller must have set every other derived field.
func (r *Repo) Insert(ctx context.Context, o *Order) error {
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	o.Status = StatusPending

	intakeJSON, err := json.Marshal(o.Intake)
	if err != nil {
		return fmt.Errorf("encode intake: %w", err)
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders(
			id, tracking_id, session_token, status,
			amount_paid_cents, currency, delivery_speed, expected_delivery_at,
			coupon_code, coupon_discount_cents, payment_session_id, payment_intent_id,
			intake_payload, customer_name, customer_email, customer_phone,
			recipient_name, recipient_relationship, song_perspective, primary_language,
			music_style, emotional_vibe, voice_preference, core_message, gender,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::jsonb,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)`,
		o.ID, o.TrackingID, o.SessionToken, string(o.Status),
		o.AmountPaidCents, o.Currency, string(o.DeliverySpeed), o.ExpectedDeliveryAt,
		o.CouponCode, o.CouponDiscountCents, o.PaymentSessionID, o.PaymentIntentID,
		string(intakeJSON), o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.RecipientName, o.RecipientRelationship, o.SongPerspective, o.PrimaryLanguage,
		o.MusicStyle, o.EmotionalVibe, o.VoicePreference, o.CoreMessage, o.Gender,
		o.CreatedAt,
	)
	return err
}

// SetPaymentSession links the provider's checkout session to the order
// after the session has been created.
func (r *Repo) SetPaymentSession(ctx context.Context, orderID, sessionID string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE orders SET payment_session_id=$2 WHERE id=$1`, orderID, sessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *Repo) GetByTrackingID(ctx context.Context, trackingID string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE tracking_id=$1`, trackingID)
}

func (r *Repo) GetByPaymentSessionID(ctx context.Context, sessionID string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_session_id=$1`, sessionID)
}

// GetPendingBySessionToken is the last-resort correlation lookup: the
// newest pending order for a browser session.
func (r *Repo) GetPendingBySessionToken(ctx context.Context, token string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE session_token=$1 AND status=$2
		ORDER BY created_at DESC LIMIT 1`, token, string(StatusPending))
}

// GetBySessionOrPaymentSession serves success-page polling, where the
// client only holds the provider session id or its own session token.
func (r *Repo) GetBySessionOrPaymentSession(ctx context.Context, id string) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE payment_session_id=$1 OR session_token=$1
		ORDER BY created_at DESC LIMIT 1`, id)
}

type PaidUpdate struct {
	AmountCents      int64
	Currency         string
	PaymentSessionID string
	PaymentIntentID  string
	PaidAt           time.Time

	// Provider-confirmed coupon values; nil leaves whatever creation wrote.
	CouponCode          *string
	CouponDiscountCents *int64

	// Late-recovered intake, when the order was created without one.
	Intake *IntakePayload
}

// MarkPaid is the single conditional write that performs pending -> paid.
// It applies only while the row is still pending, so two concurrent
// deliveries of the same completion event cannot both win.
func (r *Repo) MarkPaid(ctx context.Context, orderID string, u PaidUpdate) (bool, error) {
	if u.Intake != nil {
		return r.markPaidWithIntake(ctx, orderID, u)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET
			status=$2, paid_at=$3, amount_paid_cents=$4, currency=$5,
			payment_session_id=$6, payment_intent_id=$7,
			coupon_code=COALESCE($8, coupon_code),
			coupon_discount_cents=COALESCE($9, coupon_discount_cents)
		WHERE id=$1 AND status=$10`,
		orderID, string(StatusPaid), u.PaidAt, u.AmountCents, u.Currency,
		u.PaymentSessionID, u.PaymentIntentID,
		u.CouponCode, u.CouponDiscountCents, string(StatusPending),
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) markPaidWithIntake(ctx context.Context, orderID string, u PaidUpdate) (bool, error) {
	p := *u.Intake
	intakeJSON, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("encode intake: %w", err)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET
			status=$2, paid_at=$3, amount_paid_cents=$4, currency=$5,
			payment_session_id=$6, payment_intent_id=$7,
			coupon_code=COALESCE($8, coupon_code),
			coupon_discount_cents=COALESCE($9, coupon_discount_cents),
			intake_payload=$10::jsonb,
			customer_name=$11,
			customer_email=COALESCE(NULLIF($12,''), customer_email),
			customer_phone=$13,
			recipient_name=$14, recipient_relationship=$15, song_perspective=$16,
			primary_language=$17, music_style=$18, emotional_vibe=$19,
			voice_preference=$20, core_message=$21, gender=$22
		WHERE id=$1 AND status=$23`,
		orderID, string(StatusPaid), u.PaidAt, u.AmountCents, u.Currency,
		u.PaymentSessionID, u.PaymentIntentID,
		u.CouponCode, u.CouponDiscountCents,
		string(intakeJSON),
		p.FullName, p.Email, p.CustomerPhone(),
		p.RecipientName, p.RecipientRelationship, p.SongPerspective,
		p.PrimaryLanguage, p.ResolvedMusicStyle(), p.ResolvedEmotionalVibe(),
		p.VoicePreference, p.CoreMessage, p.ResolvedGender(),
		string(StatusPending),
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) getOne(ctx context.Context, sql string, args ...any) (*Order, error) {
	row := r.DB.QueryRow(ctx, sql, args...)

	var o Order
	var status, speed string
	var intakeJSON []byte
	err := row.Scan(
		&o.ID, &o.TrackingID, &o.SessionToken, &status,
		&o.AmountPaidCents, &o.Currency, &speed, &o.ExpectedDeliveryAt,
		&o.CouponCode, &o.CouponDiscountCents, &o.PaymentSessionID, &o.PaymentIntentID,
		&intakeJSON, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.RecipientName, &o.RecipientRelationship, &o.SongPerspective, &o.PrimaryLanguage,
		&o.MusicStyle, &o.EmotionalVibe, &o.VoicePreference, &o.CoreMessage, &o.Gender,
		&o.CreatedAt, &o.PaidAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.DeliverySpeed = DeliverySpeed(speed)
	if len(intakeJSON) > 0 {
		if err := json.Unmarshal(intakeJSON, &o.Intake); err != nil {
			return nil, fmt.Errorf("decode intake: %w", err)
		}
	}
	return &o, nil
}
