package server

import (
	"encoding/json"

	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// nullableFloat distinguishes an absent field from an explicit null.
type nullableFloat struct {
	Set   bool
	Value *float64
}

func (n *nullableFloat) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// alertRequest is the body of alert create and update calls.
type alertRequest struct {
	Label        *string          `json:"label"`
	Categories   *[]string        `json:"categories"`
	Locations    *[]string        `json:"locations"`
	Keywords     *[]string        `json:"keywords"`
	MinBudget    *float64         `json:"minBudget"`
	MaxBudget    nullableFloat    `json:"maxBudget"`
	EmailEnabled *bool            `json:"emailEnabled"`
	PushEnabled  *bool            `json:"pushEnabled"`
	Frequency    *model.Frequency `json:"frequency"`
	Active       *bool            `json:"active"`
}

func (r alertRequest) createInput(owner string) alerting.CreateInput {
	in := alerting.CreateInput{
		OwnerID:      owner,
		EmailEnabled: r.EmailEnabled,
		PushEnabled:  r.PushEnabled,
	}
	if r.Label != nil {
		in.Label = *r.Label
	}
	if r.Categories != nil {
		in.Filters.Categories = *r.Categories
	}
	if r.Locations != nil {
		in.Filters.Locations = *r.Locations
	}
	if r.Keywords != nil {
		in.Filters.Keywords = *r.Keywords
	}
	if r.MinBudget != nil {
		in.Filters.Budget.Min = *r.MinBudget
	}
	in.Filters.Budget.Max = r.MaxBudget.Value
	if r.Frequency != nil {
		in.Frequency = *r.Frequency
	}
	return in
}

func (r alertRequest) patch() alerting.Patch {
	p := alerting.Patch{
		Label:        r.Label,
		Categories:   r.Categories,
		Locations:    r.Locations,
		Keywords:     r.Keywords,
		MinBudget:    r.MinBudget,
		EmailEnabled: r.EmailEnabled,
		PushEnabled:  r.PushEnabled,
		Frequency:    r.Frequency,
		Active:       r.Active,
	}
	if r.MaxBudget.Set {
		if r.MaxBudget.Value == nil {
			p.ClearMaxBudget = true
		} else {
			p.MaxBudget = r.MaxBudget.Value
		}
	}
	return p
}
