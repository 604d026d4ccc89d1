package orders

import (
	"encoding/json"
	"strings"
)

// IntakePayload is the browser-held form submission. The fields below are
// the ones this service reads; everything else the form sent rides along in
// Extra and is persisted and forwarded to fulfillment verbatim.
type IntakePayload struct {
	FullName             string `json:"fullName,omitempty"`
	Email                string `json:"email,omitempty"`
	PhoneNumber          string `json:"phoneNumber,omitempty"`
	CustomerPhoneE164    string `json:"customer_phone_e164,omitempty"`
	CustomerPhoneDisplay string `json:"customer_phone_display,omitempty"`

	RecipientName         string   `json:"recipientName,omitempty"`
	RecipientRelationship string   `json:"recipientRelationship,omitempty"`
	SongPerspective       string   `json:"songPerspective,omitempty"`
	PrimaryLanguage       string   `json:"primaryLanguage,omitempty"`
	MusicStyle            []string `json:"musicStyle,omitempty"`
	MusicStyleCustom      string   `json:"musicStyleCustom,omitempty"`
	EmotionalVibe         []string `json:"emotionalVibe,omitempty"`
	EmotionalVibeCustom   string   `json:"emotionalVibeCustom,omitempty"`
	VoicePreference       string   `json:"voicePreference,omitempty"`
	FaithExpressionLevel  string   `json:"faithExpressionLevel,omitempty"`
	CoreMessage           string   `json:"coreMessage,omitempty"`
	Gender                string   `json:"gender,omitempty"`
	GenderCustom          string   `json:"genderCustom,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// intakeKnown mirrors IntakePayload's tagged fields without the methods,
// so the custom (un)marshallers can delegate to encoding/json.
type intakeKnown IntakePayload

var intakeKnownKeys = []string{
	"fullName", "email", "phoneNumber",
	"customer_phone_e164", "customer_phone_display",
	"recipientName", "recipientRelationship", "songPerspective",
	"primaryLanguage", "musicStyle", "musicStyleCustom",
	"emotionalVibe", "emotionalVibeCustom", "voicePreference",
	"faithExpressionLevel", "coreMessage", "gender", "genderCustom",
}

func (p *IntakePayload) UnmarshalJSON(b []byte) error {
	var known intakeKnown
	if err := json.Unmarshal(b, &known); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range intakeKnownKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}
	*p = IntakePayload(known)
	p.Extra = raw
	return nil
}

func (p IntakePayload) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(intakeKnown(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return b, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// IsEmpty reports whether the payload carries nothing usable, which is how
// an order created without a handoff entry looks.
func (p IntakePayload) IsEmpty() bool {
	return p.FullName == "" && p.Email == "" && p.RecipientName == "" &&
		p.CoreMessage == "" && len(p.MusicStyle) == 0 && len(p.Extra) == 0
}

// CustomerPhone prefers the E.164 form, then the display form, then the
// raw form field.
func (p IntakePayload) CustomerPhone() string {
	if p.CustomerPhoneE164 != "" {
		return p.CustomerPhoneE164
	}
	if p.CustomerPhoneDisplay != "" {
		return p.CustomerPhoneDisplay
	}
	return p.PhoneNumber
}

func (p IntakePayload) ResolvedMusicStyle() []string {
	return ResolveOther(p.MusicStyle, p.MusicStyleCustom)
}

func (p IntakePayload) ResolvedEmotionalVibe() []string {
	return ResolveOther(p.EmotionalVibe, p.EmotionalVibeCustom)
}

func (p IntakePayload) ResolvedGender() string {
	return ResolveOtherValue(p.Gender, p.GenderCustom)
}

// ResolveOther replaces the literal "other" selection with the free-text
// value when one was entered, and drops it otherwise.
func ResolveOther(values []string, custom string) []string {
	custom = strings.TrimSpace(custom)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "other" {
			if custom != "" {
				out = append(out, custom)
			}
			continue
		}
		out = append(out, v)
	}
	return out
}

func ResolveOtherValue(value, custom string) string {
	if value == "other" {
		if c := strings.TrimSpace(custom); c != "" {
			return c
		}
	}
	return value
}

// ApplyIntake copies the queryable subset of the payload onto the order.
func (o *Order) ApplyIntake(p IntakePayload) {
	o.Intake = p
	o.CustomerName = p.FullName
	if p.Email != "" {
		o.CustomerEmail = p.Email
	}
	o.CustomerPhone = p.CustomerPhone()
	o.RecipientName = p.RecipientName
	o.RecipientRelationship = p.RecipientRelationship
	o.SongPerspective = p.SongPerspective
	o.PrimaryLanguage = p.PrimaryLanguage
	o.MusicStyle = p.ResolvedMusicStyle()
	o.EmotionalVibe = p.ResolvedEmotionalVibe()
	o.VoicePreference = p.VoicePreference
	o.CoreMessage = p.CoreMessage
	o.Gender = p.ResolvedGender()
}
