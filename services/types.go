package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"formdesk.link/models"
)

// NodeID is the identity token of a submitted question or option. Clients send the
// persisted id as a JSON number or string, or any other string for nodes they just added.
type NodeID string

func (n *NodeID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NodeID(s)
	default:
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return fmt.Errorf("node id must be a number or a string: %w", err)
		}
		*n = NodeID(num.String())
	}
	return nil
}

func (n NodeID) MarshalJSON() ([]byte, error) {
	if id := ClassifyIdentity(n); id.Kind == IdentityDurable {
		return json.Marshal(id.ID)
	}
	return json.Marshal(string(n))
}

// DurableNodeID turns a persisted id into a NodeID.
func DurableNodeID(id uint) NodeID {
	return NodeID(fmt.Sprintf("%d", id))
}

// SubmittedForm is the complete definition sent by the owner on create and on edit.
// IsActive and Password are left unchanged on edit when omitted; an empty Password clears it.
type SubmittedForm struct {
	Title       string              `json:"title" validate:"notblank,max=100"`
	Description string              `json:"description" validate:"max=500"`
	IsActive    *bool               `json:"is_active,omitempty"`
	Password    *string             `json:"password,omitempty" validate:"omitempty,max=72"`
	Questions   []SubmittedQuestion `json:"questions" validate:"max=200,dive"`
}

type SubmittedQuestion struct {
	ID         NodeID              `json:"id"`
	Kind       models.QuestionType `json:"question_type" validate:"oneof=TEXT CHOICE FILE"`
	Text       string              `json:"text" validate:"notblank,max=500"`
	IsRequired bool                `json:"is_required"`
	Options    []SubmittedOption   `json:"options,omitempty" validate:"max=100,dive"`
}

type SubmittedOption struct {
	ID   NodeID `json:"id"`
	Text string `json:"text" validate:"notblank,max=500"`
}

// normalize trims text, upper-cases kinds and drops options of non-choice questions.
func (f *SubmittedForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	for i := range f.Questions {
		q := &f.Questions[i]
		if kind, ok := models.ParseQuestionType(string(q.Kind)); ok {
			q.Kind = kind
		}
		q.Text = strings.TrimSpace(q.Text)
		if q.Kind != models.QuestionTypeChoice {
			q.Options = nil
			continue
		}
		for j := range q.Options {
			q.Options[j].Text = strings.TrimSpace(q.Options[j].Text)
		}
	}
}

// CandidateAnswer is one answer of a submission. Exactly one value field is expected,
// matching the kind of the question it answers.
type CandidateAnswer struct {
	QuestionID uint    `json:"question_id" validate:"required"`
	OptionID   *uint   `json:"option_id,omitempty"`
	TextValue  *string `json:"text_value,omitempty"`
	FilePath   *string `json:"file_path,omitempty"`
}

type SubmittedResponse struct {
	Password string            `json:"password,omitempty"`
	Answers  []CandidateAnswer `json:"answers" validate:"max=500,dive"`
}
