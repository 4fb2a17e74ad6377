package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"formdesk.link/database/testdb"
	"formdesk.link/models"
	"formdesk.link/pkg/metrics"
	"formdesk.link/pkg/queryparams"
	"formdesk.link/pkg/validation"
	"formdesk.link/repositories"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const ownerID = uint(1)

type fixture struct {
	db        *gorm.DB
	forms     IFormService
	responses IResponseService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(testdb.Open(t))
}

func newFixtureOn(db *gorm.DB) *fixture {
	return &fixture{db: db, forms: NewFormService(db, DefaultMaxTxRetries), responses: NewResponseService(db, DefaultMaxTxRetries)}
}

// sampleForm creates [Name(TEXT, required), Color(CHOICE: Red, Blue)].
func (f *fixture) sampleForm(t *testing.T) *models.Form {
	t.Helper()
	form, err := f.forms.CreateForm(context.Background(), ownerID, SubmittedForm{
		Title: "Survey",
		Questions: []SubmittedQuestion{
			{ID: "tmp-name", Kind: models.QuestionTypeText, Text: "Name", IsRequired: true},
			{ID: "tmp-color", Kind: models.QuestionTypeChoice, Text: "Color", Options: []SubmittedOption{
				{ID: "tmp-red", Text: "Red"},
				{ID: "tmp-blue", Text: "Blue"},
			}},
		},
	})
	require.NoError(t, err)
	return form
}

// resubmit turns a persisted tree back into the submission that would reproduce it.
func resubmit(form *models.Form) SubmittedForm {
	tree := SubmittedForm{Title: form.Title, Description: form.Description}
	for _, q := range LiveTree(form).Questions {
		sq := SubmittedQuestion{ID: DurableNodeID(q.ID), Kind: q.Kind, Text: q.Text, IsRequired: q.IsRequired}
		for _, o := range q.Options {
			sq.Options = append(sq.Options, SubmittedOption{ID: DurableNodeID(o.ID), Text: o.Text})
		}
		tree.Questions = append(tree.Questions, sq)
	}
	return tree
}

type nodeShape struct {
	ID       uint
	Text     string
	OrderKey int
}

type questionShape struct {
	nodeShape
	Kind     models.QuestionType
	Required bool
	Options  []nodeShape
}

type formShape struct {
	Title     string
	Active    bool
	Questions []questionShape
}

func (f *fixture) shape(t *testing.T, formID uint) formShape {
	t.Helper()
	form, err := repositories.NewFormRepository(f.db).FindTreeByID(context.Background(), formID)
	require.NoError(t, err)
	s := formShape{Title: form.Title, Active: form.IsActive}
	for _, q := range form.Questions {
		qs := questionShape{nodeShape: nodeShape{q.ID, q.Text, q.OrderKey}, Kind: q.Kind, Required: q.IsRequired}
		for _, o := range q.Options {
			qs.Options = append(qs.Options, nodeShape{o.ID, o.Text, o.OrderKey})
		}
		s.Questions = append(s.Questions, qs)
	}
	return s
}

func requireContiguous(t *testing.T, form *models.Form) {
	t.Helper()
	require.NoError(t, verifyTreeOrdering(form))
	for _, q := range form.Questions {
		if !q.IsLive() {
			assert.LessOrEqual(t, q.OrderKey, 0)
		}
	}
}

func TestCreateForm(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)

	assert.True(t, form.IsActive)
	assert.Len(t, form.ShareKey, models.ShareKeyLength)
	require.Len(t, form.Questions, 2)
	assert.Equal(t, 1, form.Questions[0].OrderKey)
	assert.Equal(t, 2, form.Questions[1].OrderKey)
	require.Len(t, form.Questions[1].Options, 2)
	assert.Equal(t, "Blue", form.Questions[1].Options[1].Text)
	assert.Equal(t, 2, form.Questions[1].Options[1].OrderKey)
	requireContiguous(t, form)
}

func TestCreateFormRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.forms.CreateForm(ctx, ownerID, SubmittedForm{Title: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "title", verrs[0].Field)

	_, err = f.forms.CreateForm(ctx, ownerID, SubmittedForm{Title: "x", Questions: []SubmittedQuestion{{ID: "a", Kind: "DROPDOWN", Text: "q"}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.forms.CreateForm(ctx, 0, SubmittedForm{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.forms.CreateForm(ctx, ownerID, SubmittedForm{Title: "x", Questions: []SubmittedQuestion{{ID: "4", Kind: models.QuestionTypeText, Text: "q"}}})
	assert.ErrorIs(t, err, ErrIntegrityViolation)
}

func TestCreateFormNormalisesKindAndDropsStrayOptions(t *testing.T) {
	f := newFixture(t)
	inactive := false
	form, err := f.forms.CreateForm(context.Background(), ownerID, SubmittedForm{
		Title:    "Lower",
		IsActive: &inactive,
		Questions: []SubmittedQuestion{
			{ID: "a", Kind: "text", Text: " Why? ", Options: []SubmittedOption{{ID: "x", Text: ""}}},
		},
	})
	require.NoError(t, err)
	assert.False(t, form.IsActive)
	assert.Equal(t, models.QuestionTypeText, form.Questions[0].Kind)
	assert.Equal(t, "Why?", form.Questions[0].Text)
	assert.Empty(t, form.Questions[0].Options)
}

func TestReconcileRequiresOwner(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)

	_, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID+1, resubmit(form))
	assert.ErrorIs(t, err, ErrFormNotFound)
	_, err = f.forms.ReconcileForm(context.Background(), form.ID+100, ownerID, resubmit(form))
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestReconcileUpdatesScalars(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)

	tree := resubmit(form)
	tree.Title = "Renamed"
	tree.Description = "about"
	inactive := false
	tree.IsActive = &inactive

	updated, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "about", updated.Description)
	assert.False(t, updated.IsActive)
	assert.Equal(t, form.ShareKey, updated.ShareKey)

	// omitted is_active leaves it as is
	tree.IsActive = nil
	updated, err = f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

// P1
func TestReconcileKeepsOrderingContiguous(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)
	nameID, colorID := form.Questions[0].ID, form.Questions[1].ID

	steps := [][]SubmittedQuestion{
		{
			{ID: DurableNodeID(colorID), Kind: models.QuestionTypeChoice, Text: "Color", Options: []SubmittedOption{{ID: "n1", Text: "Cyan"}}},
			{ID: "n2", Kind: models.QuestionTypeFile, Text: "CV"},
			{ID: DurableNodeID(nameID), Kind: models.QuestionTypeText, Text: "Name"},
		},
		{
			{ID: "n3", Kind: models.QuestionTypeText, Text: "Age"},
		},
		{
			{ID: DurableNodeID(nameID), Kind: models.QuestionTypeText, Text: "Name again"},
			{ID: "n4", Kind: models.QuestionTypeChoice, Text: "Size", Options: []SubmittedOption{{ID: "s", Text: "S"}, {ID: "m", Text: "M"}}},
		},
	}
	for i, questions := range steps {
		t.Run(fmt.Sprintf("step %d", i), func(t *testing.T) {
			updated, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID, SubmittedForm{Title: "Survey", Questions: questions})
			require.NoError(t, err)
			requireContiguous(t, updated)
			assert.Len(t, LiveTree(updated).Questions, len(questions))
		})
	}
}

// P2
func TestReconcileKeepsIdentityOnTextChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := f.sampleForm(t)
	nameID := form.Questions[0].ID

	resp, err := f.responses.SubmitResponse(ctx, form.ID, 9, SubmittedResponse{Answers: []CandidateAnswer{{QuestionID: nameID, TextValue: str("Ada")}}})
	require.NoError(t, err)

	tree := resubmit(form)
	tree.Questions[0].Text = "Full name"
	updated, err := f.forms.ReconcileForm(ctx, form.ID, ownerID, tree)
	require.NoError(t, err)
	assert.Equal(t, nameID, updated.Questions[0].ID)
	assert.Equal(t, "Full name", updated.Questions[0].Text)

	var questions int64
	require.NoError(t, f.db.Model(&models.Question{}).Where("form_id = ?", form.ID).Count(&questions).Error)
	assert.Equal(t, int64(2), questions)

	answers, err := f.responses.GetResponseAnswers(ctx, form.ID, resp.ID, ownerID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, nameID, answers[0].Question.ID)
	assert.Equal(t, "Full name", answers[0].Question.Text)
}

// P3
func TestReconcileIsAtomic(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)
	before := f.shape(t, form.ID)

	tree := resubmit(form)
	tree.Title = "Should not stick"
	tree.Questions[0].Text = "Changed"
	tree.Questions = append(tree.Questions,
		SubmittedQuestion{ID: "tmp-new", Kind: models.QuestionTypeText, Text: "New"},
		SubmittedQuestion{ID: "424242", Kind: models.QuestionTypeText, Text: "Foreign"},
	)

	_, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	assert.ErrorIs(t, err, ErrIntegrityViolation)
	assert.Equal(t, before, f.shape(t, form.ID))
}

// P4
func TestReconcileRejectsDoubleConsumption(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)
	before := f.shape(t, form.ID)

	tree := resubmit(form)
	tree.Questions = append(tree.Questions, tree.Questions[0])

	_, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, form.Questions[0].ID, ie.ID)
	assert.Equal(t, ReasonReferencedTwice, ie.Reason)
	assert.Equal(t, before, f.shape(t, form.ID))
}

// P5
func TestRemovedChoiceQuestionKeepsAnswerLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := f.sampleForm(t)
	name, color := form.Questions[0], form.Questions[1]
	red := color.Options[0]

	resp, err := f.responses.SubmitResponse(ctx, form.ID, 9, SubmittedResponse{Answers: []CandidateAnswer{
		{QuestionID: name.ID, TextValue: str("Ada")},
		{QuestionID: color.ID, OptionID: optID(red.ID)},
	}})
	require.NoError(t, err)

	tree := resubmit(form)
	tree.Questions = tree.Questions[:1]
	updated, err := f.forms.ReconcileForm(ctx, form.ID, ownerID, tree)
	require.NoError(t, err)
	assert.Len(t, LiveTree(updated).Questions, 1)

	answers, err := f.responses.GetResponseAnswers(ctx, form.ID, resp.ID, ownerID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, name.ID, answers[0].QuestionID)
	removed := answers[1]
	assert.Equal(t, color.ID, removed.QuestionID)
	assert.False(t, removed.Question.IsLive())
	require.NotNil(t, removed.Option)
	assert.Equal(t, "Red", removed.Option.Text)

	live, err := f.forms.GetLiveForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Len(t, live.Questions, 1)
}

func TestScenarioAReplaceOption(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)
	color := form.Questions[1]
	red, blue := color.Options[0], color.Options[1]

	tree := resubmit(form)
	tree.Questions[1].Options = []SubmittedOption{
		{ID: "tmp-green", Text: "Green"},
		{ID: DurableNodeID(blue.ID), Text: "Blue"},
	}
	updated, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	require.NoError(t, err)
	requireContiguous(t, updated)

	q := updated.Questions[1]
	assert.Equal(t, color.ID, q.ID)
	assert.Equal(t, 2, q.OrderKey)
	byText := map[string]models.QuestionOption{}
	for _, o := range q.Options {
		byText[o.Text] = o
	}
	assert.Equal(t, red.ID, byText["Red"].ID)
	assert.LessOrEqual(t, byText["Red"].OrderKey, 0)
	assert.Equal(t, 1, byText["Green"].OrderKey)
	assert.NotEqual(t, red.ID, byText["Green"].ID)
	assert.Equal(t, blue.ID, byText["Blue"].ID)
	assert.Equal(t, 2, byText["Blue"].OrderKey)
}

func TestScenarioAGreenAlone(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)

	tree := resubmit(form)
	tree.Questions[1].Options = []SubmittedOption{{ID: "tmp-green", Text: "Green"}}
	updated, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	require.NoError(t, err)

	live := LiveTree(updated).Questions[1].Options
	require.Len(t, live, 1)
	assert.Equal(t, "Green", live[0].Text)
	assert.Equal(t, 1, live[0].OrderKey)
	assert.Len(t, updated.Questions[1].Options, 3)
}

func TestScenarioBNewRequiredQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := f.sampleForm(t)

	tree := resubmit(form)
	tree.Questions = append(tree.Questions, SubmittedQuestion{ID: "tmp-1", Kind: models.QuestionTypeText, Text: "Email", IsRequired: true})
	updated, err := f.forms.ReconcileForm(ctx, form.ID, ownerID, tree)
	require.NoError(t, err)

	added := updated.Questions[2]
	assert.Equal(t, "Email", added.Text)
	assert.Equal(t, 3, added.OrderKey)
	assert.NotContains(t, []uint{form.Questions[0].ID, form.Questions[1].ID}, added.ID)

	_, err = f.responses.SubmitResponse(ctx, form.ID, 9, SubmittedResponse{Answers: []CandidateAnswer{
		{QuestionID: form.Questions[0].ID, TextValue: str("Ada")},
	}})
	var se *SubmissionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, MissingRequired, se.Kind)
	assert.Equal(t, added.ID, se.QuestionID)

	var stored int64
	require.NoError(t, f.db.Model(&models.FormResponse{}).Count(&stored).Error)
	assert.Zero(t, stored)
}

func TestScenarioCQuestionOfAnotherForm(t *testing.T) {
	f := newFixture(t)
	target := f.sampleForm(t)
	other := f.sampleForm(t)
	beforeTarget, beforeOther := f.shape(t, target.ID), f.shape(t, other.ID)

	rejected := testutil.ToFloat64(metrics.Reconciliations.WithLabelValues(metrics.ResultRejected))

	tree := resubmit(target)
	tree.Questions = append(tree.Questions, SubmittedQuestion{ID: DurableNodeID(other.Questions[0].ID), Kind: models.QuestionTypeText, Text: "Stolen"})

	_, err := f.forms.ReconcileForm(context.Background(), target.ID, ownerID, tree)
	assert.Equal(t, rejected+1, testutil.ToFloat64(metrics.Reconciliations.WithLabelValues(metrics.ResultRejected)))
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "question", ie.Entity)
	assert.Equal(t, other.Questions[0].ID, ie.ID)
	assert.Equal(t, ReasonForeignQuestion, ie.Reason)

	assert.Equal(t, beforeTarget, f.shape(t, target.ID))
	assert.Equal(t, beforeOther, f.shape(t, other.ID))
}

func TestScenarioDConcurrentEdits(t *testing.T) {
	requireSerializedConcurrentEdits(t, newFixture(t))
}

// requireSerializedConcurrentEdits races a removal of Name against a rename of it and checks the
// result matches one of the two serial orders.
func requireSerializedConcurrentEdits(t *testing.T, f *fixture) {
	t.Helper()
	form := f.sampleForm(t)
	nameID := form.Questions[0].ID

	removeName := resubmit(form)
	removeName.Questions = removeName.Questions[1:]
	renameName := resubmit(form)
	renameName.Questions[0].Text = "Full name"

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tree := range []SubmittedForm{removeName, renameName} {
		wg.Add(1)
		go func(i int, tree SubmittedForm) {
			defer wg.Done()
			_, errs[i] = f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
		}(i, tree)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	final, err := f.forms.GetFormForOwner(context.Background(), form.ID, ownerID)
	require.NoError(t, err)
	requireContiguous(t, final)
	require.Len(t, final.Questions, 2, "no rows created or lost")

	var name models.Question
	for _, q := range final.Questions {
		if q.ID == nameID {
			name = q
		}
	}
	require.Equal(t, nameID, name.ID)
	if name.IsLive() {
		// remove ran first, the rename restored the question
		assert.Equal(t, "Full name", name.Text)
		assert.Equal(t, 1, name.OrderKey)
	} else {
		// rename ran first, then the question was removed
		assert.Equal(t, "Full name", name.Text)
		assert.Len(t, LiveTree(final).Questions, 1)
	}
}

func TestReconcileTextToChoiceAndBack(t *testing.T) {
	f := newFixture(t)
	form := f.sampleForm(t)

	tree := resubmit(form)
	tree.Questions[1].Kind = models.QuestionTypeText
	updated, err := f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	require.NoError(t, err)
	for _, o := range updated.Questions[1].Options {
		assert.False(t, o.IsLive())
	}

	// Options can be brought back by id once the question is a choice again.
	tree.Questions[1].Kind = models.QuestionTypeChoice
	tree.Questions[1].Options = []SubmittedOption{{ID: DurableNodeID(form.Questions[1].Options[1].ID), Text: "Blue"}}
	updated, err = f.forms.ReconcileForm(context.Background(), form.ID, ownerID, tree)
	require.NoError(t, err)
	live := LiveTree(updated).Questions[1].Options
	require.Len(t, live, 1)
	assert.Equal(t, form.Questions[1].Options[1].ID, live[0].ID)
	assert.Equal(t, 1, live[0].OrderKey)
}

func TestGetLiveForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := f.sampleForm(t)

	live, err := f.forms.GetLiveFormByShareKey(ctx, form.ShareKey)
	require.NoError(t, err)
	assert.Equal(t, form.ID, live.ID)

	_, err = f.forms.GetLiveFormByShareKey(ctx, "nope")
	assert.ErrorIs(t, err, ErrFormNotFound)

	tree := resubmit(form)
	inactive := false
	tree.IsActive = &inactive
	_, err = f.forms.ReconcileForm(ctx, form.ID, ownerID, tree)
	require.NoError(t, err)
	_, err = f.forms.GetLiveForm(ctx, form.ID)
	assert.ErrorIs(t, err, ErrFormInactive)

	// the owner still sees it
	_, err = f.forms.GetFormForOwner(ctx, form.ID, ownerID)
	assert.NoError(t, err)
	_, err = f.forms.GetFormForOwner(ctx, form.ID, ownerID+1)
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestListFormsForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.sampleForm(t)
	second := f.sampleForm(t)

	_, err := f.responses.SubmitResponse(ctx, first.ID, 9, SubmittedResponse{Answers: []CandidateAnswer{{QuestionID: first.Questions[0].ID, TextValue: str("a")}}})
	require.NoError(t, err)
	tree := resubmit(second)
	tree.Questions = tree.Questions[:1]
	_, err = f.forms.ReconcileForm(ctx, second.ID, ownerID, tree)
	require.NoError(t, err)

	result, err := f.forms.ListFormsForOwner(ctx, ownerID, queryparams.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Meta.TotalItems)
	items := result.Data.([]FormListItem)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, int64(1), items[0].LiveQuestionCount)
	assert.Equal(t, int64(0), items[0].ResponseCount)
	assert.Equal(t, int64(2), items[1].LiveQuestionCount)
	assert.Equal(t, int64(1), items[1].ResponseCount)

	raw, err := json.Marshal(items[0])
	require.NoError(t, err)
	var row map[string]any
	require.NoError(t, json.Unmarshal(raw, &row))
	assert.NotContains(t, row, "questions")
	assert.Equal(t, second.Title, row["title"])
	assert.EqualValues(t, 1, row["live_question_count"])

	result, err = f.forms.ListFormsForOwner(ctx, ownerID+1, queryparams.ListParams{})
	require.NoError(t, err)
	assert.Zero(t, result.Meta.TotalItems)
}

func TestDeleteForm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := f.sampleForm(t)
	_, err := f.responses.SubmitResponse(ctx, form.ID, 9, SubmittedResponse{Answers: []CandidateAnswer{{QuestionID: form.Questions[0].ID, TextValue: str("a")}}})
	require.NoError(t, err)

	assert.ErrorIs(t, f.forms.DeleteForm(ctx, form.ID, ownerID+1), ErrFormNotFound)
	require.NoError(t, f.forms.DeleteForm(ctx, form.ID, ownerID))
	_, err = f.forms.GetFormForOwner(ctx, form.ID, ownerID)
	assert.ErrorIs(t, err, ErrFormNotFound)

	var answers int64
	require.NoError(t, f.db.Model(&models.ResponseAnswer{}).Count(&answers).Error)
	assert.Zero(t, answers)
}
