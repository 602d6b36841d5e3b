package model

import "time"

type PhoneNumber struct {
	ID     string `json:"id,omitempty" bson:"id,omitempty" validate:"omitempty,max=64"`
	Label  string `json:"label" bson:"label" validate:"max=64"`
	Number string `json:"number" bson:"number" validate:"required,max=32,phone_chars"`
}

type Contact struct {
	ID                string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name              string        `json:"name" bson:"name" validate:"required,min=1,max=200"`
	PhoneNumbers      []PhoneNumber `json:"phone_numbers" bson:"phone_numbers" validate:"max=50,dive"`
	NormalizedNumbers []string      `json:"-" bson:"normalized_numbers"`
	NeedsFix          bool          `json:"needs_fix" bson:"-"`
	CreatedAt         time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt         time.Time     `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type FixResult struct {
	ContactID string        `json:"contact_id"`
	Changed   bool          `json:"changed"`
	Added     []PhoneNumber `json:"added"`
	Contact   *Contact      `json:"contact,omitempty"`
}

type BatchFixRequest struct {
	IDs []string `json:"ids" validate:"omitempty,max=500,dive,mongodb"`
}

type BatchResult struct {
	Fixed     []string          `json:"fixed"`
	Unchanged []string          `json:"unchanged"`
	Failed    map[string]string `json:"failed"`
}

func NewBatchResult() *BatchResult {
	return &BatchResult{
		Fixed:     []string{},
		Unchanged: []string{},
		Failed:    map[string]string{},
	}
}
