package domain

import (
	"fmt"
	"strings"
	"time"
)

// SyncStatus tracks whether a durable record has local changes the remote
// system has not confirmed yet.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
)

// Plan is a subscription tier. Each tier carries a fixed monthly quota of
// itinerary generations.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPremium    Plan = "PREMIUM"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// Unlimited is the quota reported for plans without a generation cap.
const Unlimited = -1

var planQuotas = map[Plan]int{
	PlanFree:       5,
	PlanPremium:    50,
	PlanPro:        200,
	PlanEnterprise: Unlimited,
}

// ParsePlan converts a label into a Plan. Empty input means PlanFree.
func ParsePlan(s string) (Plan, error) {
	if strings.TrimSpace(s) == "" {
		return PlanFree, nil
	}
	p := Plan(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := planQuotas[p]; !ok {
		return "", fmt.Errorf("%w: unknown plan %q", ErrValidation, s)
	}
	return p, nil
}

// MonthlyQuota returns the number of generations allowed per period, or
// Unlimited.
func (p Plan) MonthlyQuota() int {
	q, ok := planQuotas[p]
	if !ok {
		return planQuotas[PlanFree]
	}
	return q
}

// Usage counts generations in the current billing period.
type Usage struct {
	GenerationsUsed int       `json:"generations_used"`
	PeriodStart     time.Time `json:"period_start"`
}

// PeriodStartFor returns the first instant of the calendar month containing t.
func PeriodStartFor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Current returns the usage as it applies at now, rolling over to an empty
// period when now falls in a later month than PeriodStart.
func (u Usage) Current(now time.Time) Usage {
	start := PeriodStartFor(now)
	if u.PeriodStart.Before(start) {
		return Usage{PeriodStart: start}
	}
	return u
}

// User is a registered club member.
type User struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone,omitempty"`
	Plan        Plan           `json:"plan"`
	Usage       Usage          `json:"usage"`
	Preferences map[string]any `json:"preferences,omitempty"`
	Settings    *Settings      `json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	SyncStatus  SyncStatus     `json:"sync_status"`
}

// Validate enforces the fields required to store a user.
func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if _, err := ParsePlan(string(u.Plan)); err != nil {
		return err
	}
	return nil
}

// RemainingGenerations reports how many generations the user may still run in
// the period containing now, or Unlimited.
func (u User) RemainingGenerations(now time.Time) int {
	quota := u.Plan.MonthlyQuota()
	if quota == Unlimited {
		return Unlimited
	}
	left := quota - u.Usage.Current(now).GenerationsUsed
	if left < 0 {
		return 0
	}
	return left
}

// CanGenerate reports whether the plan quota allows one more generation.
func (u User) CanGenerate(now time.Time) bool {
	r := u.RemainingGenerations(now)
	return r == Unlimited || r > 0
}
