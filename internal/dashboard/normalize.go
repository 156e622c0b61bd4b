package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/pkg/fetch"
)

// payload is one of the known aggregation response shapes.
type payload interface {
	result(viewer string) AggregationResult
}

// common fields shared by both shapes.
type header struct {
	TeamName     string      `json:"team_name"`
	BoothID      string      `json:"booth_id"`
	Message      string      `json:"message"`
	AverageScore numberOrNil `json:"average_score"`
	Score        numberOrNil `json:"score"`
}

func (h header) average() *float64 {
	if h.AverageScore.Value != nil {
		return h.AverageScore.Value
	}
	return h.Score.Value
}

// legacyPayload is the flat shape: a score and a list of comments that are
// either plain strings or {score, comment, evaluator_id} objects.
type legacyPayload struct {
	header
	Evaluations []legacyComment `json:"evaluations"`
	Comments    []legacyComment `json:"comments"`
	evaluations bool
}

type legacyComment struct {
	Score       numberOrNil
	Comment     string
	EvaluatorID string
}

func (c *legacyComment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Comment)
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var obj struct {
		Score       numberOrNil `json:"score"`
		Comment     string      `json:"comment"`
		EvaluatorID string      `json:"evaluator_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.Score = obj.Score
	c.Comment = obj.Comment
	c.EvaluatorID = obj.EvaluatorID
	return nil
}

func (p legacyPayload) result(string) AggregationResult {
	list := p.Comments
	if p.evaluations {
		list = p.Evaluations
	}
	items := make([]Item, 0, len(list))
	for i, c := range list {
		label := c.EvaluatorID
		if label == "" {
			label = fmt.Sprintf("Visitor %d", i+1)
		}
		items = append(items, Item{
			AttributeLabel: label,
			Score:          c.Score.Value,
			RawText:        c.Comment,
		})
	}
	return AggregationResult{
		TeamName:     p.TeamName,
		BoothID:      p.BoothID,
		AverageScore: p.average(),
		TotalCount:   len(items),
		TeamMembers:  []Member{},
		Items:        items,
		Message:      p.Message,
	}
}

// currentPayload is the structured shape with per-record feedbacks.
type currentPayload struct {
	header
	Feedbacks       []currentFeedback `json:"feedbacks"`
	TotalCount      *int              `json:"total_count"`
	TotalTeamsCount int               `json:"total_teams_count"`
	TeamMembers     []currentMember   `json:"team_members"`
}

type currentFeedback struct {
	VisitorAttribute string      `json:"visitor_attribute"`
	RawText          string      `json:"raw_text"`
	SummaryText      string      `json:"summary_text"`
	IsProcessed      flexBool    `json:"is_processed"`
	Score            numberOrNil `json:"score"`
}

type currentMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p currentPayload) result(viewer string) AggregationResult {
	items := make([]Item, 0, len(p.Feedbacks))
	for _, f := range p.Feedbacks {
		label := f.VisitorAttribute
		if attr, ok := feedback.ParseVisitorAttribute(f.VisitorAttribute); ok {
			label = attr.Label()
		}
		items = append(items, Item{
			AttributeLabel: label,
			Score:          f.Score.Value,
			RawText:        f.RawText,
			SummaryText:    f.SummaryText,
			IsProcessed:    bool(f.IsProcessed),
		})
	}

	members := make([]Member, 0, len(p.TeamMembers))
	for _, m := range p.TeamMembers {
		members = append(members, Member{
			Name:          m.Name,
			Email:         m.Email,
			IsCurrentUser: isCurrentUser(m.Email, viewer),
		})
	}

	total := len(items)
	if p.TotalCount != nil {
		total = *p.TotalCount
	}

	return AggregationResult{
		TeamName:        p.TeamName,
		BoothID:         p.BoothID,
		AverageScore:    p.average(),
		TotalCount:      total,
		TotalTeamsCount: p.TotalTeamsCount,
		TeamMembers:     members,
		Items:           items,
		Message:         p.Message,
	}
}

func isCurrentUser(email, viewer string) bool {
	email = strings.TrimSpace(email)
	return email != "" && strings.EqualFold(email, strings.TrimSpace(viewer))
}

// decode picks the payload shape from the keys present in raw.
func decode(raw []byte) (payload, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil || keys == nil {
		if err == nil {
			err = errors.New("aggregation payload is not a JSON object")
		}
		return nil, &fetch.MalformedResponseError{Err: err}
	}

	_, hasFeedbacks := keys["feedbacks"]
	_, hasTotal := keys["total_count"]
	_, hasMembers := keys["team_members"]
	if hasFeedbacks || hasTotal || hasMembers {
		var p currentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &fetch.MalformedResponseError{Err: fmt.Errorf("decode structured aggregation: %w", err)}
		}
		return p, nil
	}

	var p legacyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &fetch.MalformedResponseError{Err: fmt.Errorf("decode flat aggregation: %w", err)}
	}
	if v, ok := keys["evaluations"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		p.evaluations = true
	}
	return p, nil
}

// Normalize converts either aggregation shape into an AggregationResult.
// viewer is the opaque identity used to flag the current team member.
// Payloads that are not JSON objects yield a *fetch.MalformedResponseError.
func Normalize(raw []byte, viewer string) (AggregationResult, error) {
	p, err := decode(raw)
	if err != nil {
		return AggregationResult{}, err
	}
	return p.result(viewer), nil
}

// numberOrNil accepts a JSON number, a numeric string or null.
type numberOrNil struct {
	Value *float64
}

func (n *numberOrNil) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			n.Value = nil
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("score %q is not a number", s)
		}
		n.Value = &f
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	n.Value = &f
	return nil
}

// flexBool accepts true/false as well as 0/1.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}
