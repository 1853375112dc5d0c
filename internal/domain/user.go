/**
 * @description
 * This file defines the user domain model as seen by the billing service.
 * Only the fields this service reads or mutates are represented here;
 * the rest of the user record belongs to the main application.
 */
package domain

// UserMode is the access tier derived from a user's subscription state.
type UserMode string

const (
	ModeFull       UserMode = "full"
	ModeRestricted UserMode = "restricted"
)

// User represents the billing-relevant slice of a user record.
type User struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Mode             UserMode `json:"mode"`
	StripeCustomerID *string  `json:"stripe_customer_id,omitempty"`
	ReferredBy       *string  `json:"referred_by,omitempty"`
}
