/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the vacation domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Balance:
    EntitlementDTO, BalanceDTO, BucketDTO

  Consumption:
    ConsumeRequest, ConsumptionDTO, AllocationDTO

  Admin:
    CreateBucketRequest, AdjustBucketRequest, YearOpeningDTO

UNITS:
  Day quantities are JSON numbers and pass through float64 at this boundary.
  Half days (0.5) are exact; other fractions are only as exact as float64.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	HireDate  string `json:"hire_date"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HireDate string `json:"hire_date"`
}

// EntitlementDTO is the annual entitlement for one year.
type EntitlementDTO struct {
	UserID   string `json:"user_id"`
	Year     int    `json:"year"`
	HireDate string `json:"hire_date"`
	Days     int    `json:"days"`
}

// BucketDTO represents one yearly balance bucket.
type BucketDTO struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Year      int     `json:"year"`
	TotalDays float64 `json:"total_days"`
	UsedDays  float64 `json:"used_days"`
	Available float64 `json:"available"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// BalanceDTO is the available total and the buckets behind it.
type BalanceDTO struct {
	UserID    string      `json:"user_id"`
	Year      int         `json:"year"`
	Available float64     `json:"available"`
	Buckets   []BucketDTO `json:"buckets"`
}

// ConsumeRequest draws days from the balance. Year defaults to the current year.
type ConsumeRequest struct {
	Year int     `json:"year,omitempty"`
	Days float64 `json:"days"`
}

// ConsumptionDTO is the response after a successful consumption.
type ConsumptionDTO struct {
	UserID      string          `json:"user_id"`
	Year        int             `json:"year"`
	Requested   float64         `json:"requested"`
	Allocations []AllocationDTO `json:"allocations"`
	Available   float64         `json:"available"`
}

// AllocationDTO represents the days taken from a single bucket.
type AllocationDTO struct {
	BucketID string  `json:"bucket_id"`
	Year     int     `json:"year"`
	Days     float64 `json:"days"`
	UsedDays float64 `json:"used_days"`
}

// CreateBucketRequest creates a bucket. TotalDays nil means "use the entitlement".
type CreateBucketRequest struct {
	UserID    string   `json:"user_id"`
	Year      int      `json:"year"`
	TotalDays *float64 `json:"total_days,omitempty"`
}

// AdjustBucketRequest replaces a bucket's total. TotalDays is required.
type AdjustBucketRequest struct {
	TotalDays *float64 `json:"total_days"`
}

// YearOpeningDTO summarizes a year-opening run.
type YearOpeningDTO struct {
	Year       int      `json:"year"`
	Created    int      `json:"created"`
	Existing   int      `json:"existing"`
	Ineligible int      `json:"ineligible"`
	Closed     int      `json:"closed"`
	Failed     []string `json:"failed,omitempty"`
}

// ShortfallDTO details an insufficient balance rejection.
type ShortfallDTO struct {
	Available float64 `json:"available"`
	Requested float64 `json:"requested"`
	Shortfall float64 `json:"shortfall"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e vacation.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(e.ID),
		Name:     e.Name,
		Email:    e.Email,
		HireDate: e.HireDate.Format(time.DateOnly),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toBucketDTO(b vacation.Bucket) BucketDTO {
	return BucketDTO{
		ID:        string(b.ID),
		UserID:    string(b.UserID),
		Year:      b.Year,
		TotalDays: b.TotalDays.Float64(),
		UsedDays:  b.UsedDays.Float64(),
		Available: b.Available().Float64(),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}

func toBalanceDTO(b *vacation.Balance) BalanceDTO {
	dto := BalanceDTO{
		UserID:    string(b.UserID),
		Year:      b.Year,
		Available: b.Available.Float64(),
		Buckets:   make([]BucketDTO, len(b.Buckets)),
	}
	for i, bucket := range b.Buckets {
		dto.Buckets[i] = toBucketDTO(bucket)
	}
	return dto
}

func toConsumptionDTO(c *vacation.Consumption) ConsumptionDTO {
	dto := ConsumptionDTO{
		UserID:      string(c.UserID),
		Year:        c.Year,
		Requested:   c.Requested.Float64(),
		Allocations: make([]AllocationDTO, len(c.Allocations)),
		Available:   c.Remaining.Float64(),
	}
	for i, a := range c.Allocations {
		dto.Allocations[i] = AllocationDTO{
			BucketID: string(a.BucketID),
			Year:     a.Year,
			Days:     a.Days.Float64(),
			UsedDays: a.UsedAfter.Float64(),
		}
	}
	return dto
}

func toYearOpeningDTO(o *vacation.YearOpening) YearOpeningDTO {
	dto := YearOpeningDTO{
		Year:       o.Year,
		Created:    o.Created,
		Existing:   o.Existing,
		Ineligible: o.Ineligible,
		Closed:     o.Closed,
	}
	for _, id := range o.Failed {
		dto.Failed = append(dto.Failed, string(id))
	}
	return dto
}
