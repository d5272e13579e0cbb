package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lookup statuses recorded on every check so degraded results can be audited.
const (
	LookupFound          = "found"
	LookupNotFound       = "not_found"
	LookupUnavailable    = "unavailable"
	LookupClientReported = "client_reported"
)

// Record sources.
const (
	SourceGateway = "gateway"
	SourceClient  = "client"
)

// BreachDetail is an embedded copy of one provider breach entry. It is never
// updated after the record is created.
type BreachDetail struct {
	Name           string     `bson:"name" json:"name"`
	Domain         string     `bson:"domain" json:"domain"`
	BreachDate     *time.Time `bson:"breachDate,omitempty" json:"breachDate,omitempty"`
	DataClasses    []string   `bson:"dataClasses" json:"dataClasses"`
	ExposedRecords int64      `bson:"exposedRecords" json:"exposedRecords" validate:"gte=0"`
}

// BreachResult is the normalized outcome of a breach lookup.
type BreachResult struct {
	Breached bool           `json:"breached"`
	Count    int            `json:"count"`
	Details  []BreachDetail `json:"details"`
}

// EmptyBreachResult is the zero-breach normalization.
func EmptyBreachResult() BreachResult {
	return BreachResult{Breached: false, Count: 0, Details: []BreachDetail{}}
}

// EmailCheck is one persisted email check owned by a single user.
type EmailCheck struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId" validate:"required"`
	Email         string             `bson:"email" json:"email" validate:"required,email"`
	Breached      bool               `bson:"breached" json:"breached"`
	Breaches      int                `bson:"breaches" json:"breaches" validate:"gte=0"`
	BreachDetails []BreachDetail     `bson:"breachDetails" json:"breachDetails" validate:"dive"`
	CheckedAt     time.Time          `bson:"checkedAt" json:"checkedAt" validate:"required"`
	IPAddress     string             `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent     string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	LookupStatus  string             `bson:"lookupStatus" json:"lookupStatus" validate:"oneof=found not_found unavailable client_reported"`
	Source        string             `bson:"source" json:"source" validate:"oneof=gateway client"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Result returns the normalized result stored on the record.
func (c *EmailCheck) Result() BreachResult {
	details := c.BreachDetails
	if details == nil {
		details = []BreachDetail{}
	}
	return BreachResult{Breached: c.Breached, Count: c.Breaches, Details: details}
}
