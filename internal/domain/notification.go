package domain

import "time"

type ContactResponse string

const (
	ResponsePending      ContactResponse = "pending"
	ResponseAcknowledged ContactResponse = "acknowledged"
	ResponseResponding   ContactResponse = "responding"
	ResponseUnreachable  ContactResponse = "unreachable"
)

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryLogged DeliveryStatus = "logged"
	DeliveryFailed DeliveryStatus = "failed"
)

// NotificationResult is one ledger entry on an Alert. Phone is the natural
// key when a contact's response is recorded. Status is empty for entries
// created by a response rather than by a send attempt.
type NotificationResult struct {
	Name         string          `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Phone        string          `json:"phone" dynamodbav:"phone"`
	Relationship string          `json:"relationship,omitempty" dynamodbav:"relationship,omitempty"`
	Response     ContactResponse `json:"response" dynamodbav:"response"`
	NotifiedAt   time.Time       `json:"notified_at" dynamodbav:"notified_at"`
	Status       DeliveryStatus  `json:"status,omitempty" dynamodbav:"status,omitempty"`
	Error        string          `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

// Recipient is a transient fan-out target resolved from users or contacts.
type Recipient struct {
	Name         string
	Phone        string
	Relationship string
}

type DeliveryKind int

const (
	DeliverySentKind DeliveryKind = iota
	DeliveryFailedKind
	DeliveryUnconfiguredKind
)

// DeliveryOutcome is what a Notifier reports for one send.
type DeliveryOutcome struct {
	Kind   DeliveryKind
	Detail string // transport error text, only for DeliveryFailedKind
}

func OutcomeSent() DeliveryOutcome { return DeliveryOutcome{Kind: DeliverySentKind} }

func OutcomeFailed(detail string) DeliveryOutcome {
	return DeliveryOutcome{Kind: DeliveryFailedKind, Detail: detail}
}

func OutcomeUnconfigured() DeliveryOutcome { return DeliveryOutcome{Kind: DeliveryUnconfiguredKind} }
