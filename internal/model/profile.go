// Package model defines domain entities for the application.
package model

import "time"

// SubscriptionStatus mirrors the billing provider subscription status.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Profile is a user's public profile and billing state (table profiles).
// Its ID equals the hosted auth user id.
type Profile struct {
	ID                    string     `json:"id"`
	Username              string     `json:"username"`
	FullName              *string    `json:"full_name"`
	AvatarURL             *string    `json:"avatar_url"`
	Bio                   *string    `json:"bio"`
	StripeCustomerID      *string    `json:"stripe_customer_id"`
	SubscriptionStatus    *string    `json:"subscription_status"`
	SubscriptionPlan      *string    `json:"subscription_plan"`
	SubscriptionInterval  *string    `json:"subscription_interval"`
	StripeSubscriptionID  *string    `json:"stripe_subscription_id"`
	SubscriptionPeriodEnd *time.Time `json:"subscription_period_end"`
}

// DisplayName returns the full name, falling back to the username.
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Username
}

// BillingCustomerID returns the stored billing customer id or "".
func (p *Profile) BillingCustomerID() string {
	if p.StripeCustomerID == nil {
		return ""
	}
	return *p.StripeCustomerID
}

// SubscriptionUpdate is a partial write of a profile's subscription fields.
// Nil fields are left unchanged. Clear sets plan, interval and subscription id
// to NULL and takes precedence over them.
type SubscriptionUpdate struct {
	Status         SubscriptionStatus
	Plan           *string
	Interval       *string
	SubscriptionID *string
	PeriodEnd      *time.Time
	Clear          bool
}

// Columns returns the update as column values. Cleared columns map to nil.
func (u SubscriptionUpdate) Columns() map[string]any {
	cols := map[string]any{}
	if u.Status != "" {
		cols["subscription_status"] = string(u.Status)
	}
	if u.Clear {
		cols["subscription_plan"] = nil
		cols["subscription_interval"] = nil
		cols["stripe_subscription_id"] = nil
	} else {
		if u.Plan != nil {
			cols["subscription_plan"] = *u.Plan
		}
		if u.Interval != nil {
			cols["subscription_interval"] = *u.Interval
		}
		if u.SubscriptionID != nil {
			cols["stripe_subscription_id"] = *u.SubscriptionID
		}
	}
	if u.PeriodEnd != nil {
		cols["subscription_period_end"] = u.PeriodEnd.UTC()
	}
	return cols
}
