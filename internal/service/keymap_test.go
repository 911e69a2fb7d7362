package service

import (
	"context"
	"errors"
	"exam_prep_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputNavigationKeys(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	out, err := ctrl.HandleInput(context.Background(), KeyNext)
	require.NoError(t, err)
	require.Equal(t, "navigate", out.Command)
	require.Equal(t, 1, ctrl.CurrentIndex())

	out, err = ctrl.HandleInput(context.Background(), KeyPrev)
	require.NoError(t, err)
	require.Equal(t, "navigate", out.Command)
	require.Equal(t, 0, ctrl.CurrentIndex())

	// 边界上仍然是合法输入，位置收敛
	_, err = ctrl.HandleInput(context.Background(), KeyPrev)
	require.NoError(t, err)
	require.Equal(t, 0, ctrl.CurrentIndex())
}

func TestInputDigitSelectsChoice(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	out, err := ctrl.HandleInput(context.Background(), InputKey("2"))
	require.NoError(t, err)
	require.Equal(t, "select", out.Command)
	require.Equal(t, uint(102), *ctrl.View().PendingChoiceID)
}

func TestInputDigitOutOfRangeIgnored(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	// 第一题只有两个选项
	out, err := ctrl.HandleInput(context.Background(), InputKey("3"))
	require.NoError(t, err)
	require.Empty(t, out.Command)
	require.Nil(t, ctrl.View().PendingChoiceID)
}

func TestInputDigitOnAnsweredQuestionIgnored(t *testing.T) {
	snap := threeQuestionSnapshot(model.FeedbackEnd)
	snap.Questions[0].SelectedChoiceID = ptrUint(101)
	repo := &fakeQuizRepo{snapshot: snap}
	ctrl := loadedController(t, repo)
	ctrl.NavigateTo(0)

	out, err := ctrl.HandleInput(context.Background(), InputKey("2"))
	require.NoError(t, err)
	require.Empty(t, out.Command)
	require.Equal(t, uint(101), *snap.Questions[0].SelectedChoiceID)
}

func TestInputConfirmRequiresPendingSelection(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	// 无待选项：静默忽略，不打仓储
	out, err := ctrl.HandleInput(context.Background(), KeyConfirm)
	require.NoError(t, err)
	require.Empty(t, out.Command)
	require.Empty(t, repo.submits)

	_, err = ctrl.HandleInput(context.Background(), InputKey("1"))
	require.NoError(t, err)
	out, err = ctrl.HandleInput(context.Background(), KeyConfirm)
	require.NoError(t, err)
	require.Equal(t, "confirm", out.Command)
	require.Len(t, repo.submits, 1)
}

func TestInputMarkTogglesAndPropagatesErrors(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	out, err := ctrl.HandleInput(context.Background(), KeyMark)
	require.NoError(t, err)
	require.Equal(t, "mark", out.Command)
	require.True(t, ctrl.View().Question.Marked)

	repo.markErr = errors.New("write failed")
	_, err = ctrl.HandleInput(context.Background(), KeyMark)
	require.Error(t, err)
	require.True(t, ctrl.View().Question.Marked) // 回滚后保持原状
}

func TestInputMarkAfterFinishIgnored(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		finishRes: &model.QuizResultSummary{CorrectCount: 0, TotalCount: 3},
	}
	ctrl := loadedController(t, repo)

	_, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)

	// 交卷后标记键静默忽略，不打仓储
	out, err := ctrl.HandleInput(context.Background(), KeyMark)
	require.NoError(t, err)
	require.Empty(t, out.Command)
	require.Empty(t, repo.marks)
}

func TestInputHelpIsPresentationOnly(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)
	require.NoError(t, ctrl.SelectChoice(101))

	out, err := ctrl.HandleInput(context.Background(), KeyHelp)
	require.NoError(t, err)
	require.True(t, out.ToggleHelp)

	// 会话状态不受影响
	v := ctrl.View()
	require.Equal(t, uint(101), *v.PendingChoiceID)
	require.Equal(t, 0, v.CurrentIndex)
	require.Empty(t, repo.submits)
}

func TestInputUnknownKeyIgnored(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	out, err := ctrl.HandleInput(context.Background(), InputKey("x"))
	require.NoError(t, err)
	require.Empty(t, out.Command)
	require.False(t, out.ToggleHelp)
}
