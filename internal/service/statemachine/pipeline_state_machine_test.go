package statemachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineTransitions(t *testing.T) {
	sm := NewPipelineStateMachine()

	assert.True(t, sm.CanTransition(StageSourcing, StageGenerating))
	assert.True(t, sm.CanTransition(StageScoring, StageGated))
	assert.True(t, sm.CanTransition(StageScoring, StagePersisting))
	assert.True(t, sm.CanTransition(StageGenerating, StageFailed))

	assert.False(t, sm.CanTransition(StageSourcing, StageScoring), "scoring cannot be reached without generation")
	assert.False(t, sm.CanTransition(StageGenerating, StagePersisting), "scoring is never skipped")
	assert.False(t, sm.CanTransition(StageDone, StageFailed))
	assert.False(t, sm.CanTransition(StageFailed, StageSourcing), "no automatic retry")
	assert.False(t, sm.CanTransition(StageScoring, StageScoring))
}

func TestRunLifecycle(t *testing.T) {
	run, err := NewRun("one-click-publish", StageSourcing)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	require.NoError(t, run.Advance(StageGenerating))
	require.NoError(t, run.Advance(StageScoring))
	require.NoError(t, run.Advance(StageGated))
	require.NoError(t, run.Advance(StageDone))

	assert.Equal(t, []Stage{StageSourcing, StageGenerating, StageScoring, StageGated, StageDone}, run.History())
	assert.True(t, IsTerminal(run.Stage()))
}

func TestRunFail(t *testing.T) {
	run, err := NewRun("auto-publish", StageGenerating)
	require.NoError(t, err)

	assert.Equal(t, StageGenerating, run.Fail(errors.New("boom")))
	assert.Equal(t, StageFailed, run.Stage())

	// 终止态不再变化
	assert.Equal(t, StageFailed, run.Fail(errors.New("again")))

	var transErr *InvalidStateTransitionError
	assert.ErrorAs(t, run.Advance(StageScoring), &transErr)
}

func TestNewRunRejectsInvalidEntry(t *testing.T) {
	_, err := NewRun("auto-publish", StageScoring)
	assert.Error(t, err)
}

func TestArticleStateMachine(t *testing.T) {
	sm := NewArticleStateMachine()

	assert.NoError(t, sm.Transition(ArticleStatusDraft, ArticleStatusPublished, "a1"))
	assert.NoError(t, sm.Transition(ArticleStatusPublished, ArticleStatusDraft, "a1"))
	assert.NoError(t, sm.Transition(ArticleStatusPublished, ArticleStatusPublished, "a1"))
	assert.Error(t, sm.Transition(ArticleStatusDraft, ArticleStatus("archived"), "a1"))
}
