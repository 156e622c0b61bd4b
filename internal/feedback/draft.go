// Package feedback holds the visitor feedback draft and its wire payloads.
package feedback

import (
	"strconv"
	"strings"
)

// VisitorAttribute classifies who left the feedback.
type VisitorAttribute string

const (
	AttributeIndustryProfessional VisitorAttribute = "industry_professional"
	AttributeStudent              VisitorAttribute = "student"
	AttributeGeneralVisitor       VisitorAttribute = "general_visitor"
)

// Attributes lists the selectable attributes in display order.
var Attributes = []VisitorAttribute{
	AttributeIndustryProfessional,
	AttributeStudent,
	AttributeGeneralVisitor,
}

// ParseVisitorAttribute accepts the wire value of a known attribute.
func ParseVisitorAttribute(s string) (VisitorAttribute, bool) {
	v := VisitorAttribute(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range Attributes {
		if a == v {
			return v, true
		}
	}
	return "", false
}

// Label is the human readable name of the attribute.
func (a VisitorAttribute) Label() string {
	switch a {
	case AttributeIndustryProfessional:
		return "Industry professional"
	case AttributeStudent:
		return "Student"
	case AttributeGeneralVisitor:
		return "General visitor"
	default:
		return string(a)
	}
}

const (
	DefaultPraiseRatio = 50
	RatioStep          = 5
)

// Draft is an in-progress, unsubmitted feedback record.
// PraiseRatio + AdviceRatio is always 100.
type Draft struct {
	BoothID          string
	VisitorAttribute VisitorAttribute
	RawText          string
	PraiseRatio      int
	AdviceRatio      int
}

// NewDraft returns an empty draft with the form defaults.
func NewDraft() Draft {
	d := Draft{VisitorAttribute: AttributeIndustryProfessional}
	d.SetPraiseRatio(DefaultPraiseRatio)
	return d
}

// SetPraiseRatio clamps p to [0,100] and keeps AdviceRatio linked to it.
func (d *Draft) SetPraiseRatio(p int) {
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	d.PraiseRatio = p
	d.AdviceRatio = 100 - p
}

// Validate checks the fields that must be present before any network call.
func (d Draft) Validate() error {
	var missing []string
	if strings.TrimSpace(d.BoothID) == "" {
		missing = append(missing, "booth_id")
	}
	if strings.TrimSpace(string(d.VisitorAttribute)) == "" {
		missing = append(missing, "visitor_attribute")
	}
	if strings.TrimSpace(d.RawText) == "" {
		missing = append(missing, "raw_text")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Request serializes the draft for the submit-feedback endpoint.
func (d Draft) Request() SubmitRequest {
	return SubmitRequest{
		BoothID:          strings.TrimSpace(d.BoothID),
		PraiseRatio:      strconv.Itoa(d.PraiseRatio),
		AdviceRatio:      strconv.Itoa(d.AdviceRatio),
		RawText:          d.RawText,
		VisitorAttribute: string(d.VisitorAttribute),
	}
}
