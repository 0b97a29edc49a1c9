package domain

import "time"

type AlertStatus string

const (
	AlertActive     AlertStatus = "active"
	AlertResolved   AlertStatus = "resolved"
	AlertFalseAlarm AlertStatus = "false_alarm"
)

type EmergencyType string

const (
	EmergencyHarassment EmergencyType = "harassment"
	EmergencyAssault    EmergencyType = "assault"
	EmergencyMedical    EmergencyType = "medical"
	EmergencyAccident   EmergencyType = "accident"
	EmergencyOther      EmergencyType = "other"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Location struct {
	Latitude  float64 `json:"latitude" dynamodbav:"latitude"`
	Longitude float64 `json:"longitude" dynamodbav:"longitude"`
	Address   string  `json:"address,omitempty" dynamodbav:"address,omitempty"`
}

// Alert is a single SOS record.
//
// UserName, UserPhone and UserIDNumber are snapshot fields copied from the
// creator at creation time and never rewritten, so the alert stays readable
// after the creator's profile changes or is removed.
type Alert struct {
	AlertID          string               `json:"id" dynamodbav:"alert_id"`
	UserID           string               `json:"user_id" dynamodbav:"user_id"`
	UserName         string               `json:"user_name" dynamodbav:"user_name"`
	UserPhone        string               `json:"user_phone" dynamodbav:"user_phone"`
	UserIDNumber     string               `json:"user_id_number" dynamodbav:"user_id_number"`
	Location         Location             `json:"location" dynamodbav:"location"`
	Description      string               `json:"description,omitempty" dynamodbav:"description,omitempty"`
	EmergencyType    EmergencyType        `json:"emergency_type" dynamodbav:"emergency_type"`
	Priority         Priority             `json:"priority" dynamodbav:"priority"`
	Status           AlertStatus          `json:"status" dynamodbav:"status"`
	NotifiedContacts []NotificationResult `json:"notified_contacts" dynamodbav:"notified_contacts"`
	ResolutionNotes  string               `json:"resolution_notes,omitempty" dynamodbav:"resolution_notes,omitempty"`
	ResolvedAt       *time.Time           `json:"resolved_at,omitempty" dynamodbav:"resolved_at,omitempty"`
	ResolvedBy       string               `json:"resolved_by,omitempty" dynamodbav:"resolved_by,omitempty"`
	CreatedAt        time.Time            `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time            `json:"updated" dynamodbav:"updated_at"`
}

// AlertSummary is the list-view projection of an Alert. It never carries the ledger.
type AlertSummary struct {
	AlertID       string        `json:"id"`
	Status        AlertStatus   `json:"status"`
	Priority      Priority      `json:"priority"`
	EmergencyType EmergencyType `json:"emergency_type"`
	Location      Location      `json:"location"`
	CreatedAt     time.Time     `json:"created"`
	UserName      string        `json:"user_name"`
	UserPhone     string        `json:"user_phone"`
}

func (a *Alert) Summary() AlertSummary {
	return AlertSummary{
		AlertID:       a.AlertID,
		Status:        a.Status,
		Priority:      a.Priority,
		EmergencyType: a.EmergencyType,
		Location:      a.Location,
		CreatedAt:     a.CreatedAt,
		UserName:      a.UserName,
		UserPhone:     a.UserPhone,
	}
}

// CreateAlertRequest uses pointers for coordinates so that 0 is accepted
// while a missing value is not.
type CreateAlertRequest struct {
	Latitude      *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude     *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Address       string   `json:"address" validate:"omitempty,max=300"`
	Description   string   `json:"description" validate:"omitempty,max=500"`
	EmergencyType string   `json:"emergency_type" validate:"omitempty,oneof=harassment assault medical accident other"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=resolved false_alarm"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

type ContactResponseRequest struct {
	Phone    string `json:"contact_phone" validate:"required"`
	Response string `json:"response" validate:"required,oneof=pending acknowledged responding unreachable"`
}
