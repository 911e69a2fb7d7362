package service

import (
	"context"
	"errors"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var _ QuizRepository = (*repository.QuizAttemptRepository)(nil)

type submitCall struct {
	quizID     string
	questionID uint
	choiceID   uint
}

type markCall struct {
	questionID uint
	marked     bool
}

// fakeQuizRepo 内存仓储，支持按题配置反馈、注入错误和阻塞在途请求
type fakeQuizRepo struct {
	mu sync.Mutex

	snapshot *model.QuizSnapshot
	loadErr  error

	feedback    map[uint]*model.AnswerFeedback
	submitErr   error
	submitGate  chan struct{} // 非 nil 时 SubmitAnswer 在此阻塞
	submitEnter chan struct{} // 请求进入时发信号
	submits     []submitCall

	markErr error
	marks   []markCall

	finishRes   *model.QuizResultSummary
	finishErr   error
	finishCalls int
}

func (f *fakeQuizRepo) LoadQuiz(ctx context.Context, quizID string) (*model.QuizSnapshot, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.snapshot, nil
}

func (f *fakeQuizRepo) SubmitAnswer(ctx context.Context, quizID string, questionID, choiceID uint) (*model.AnswerFeedback, error) {
	if f.submitEnter != nil {
		f.submitEnter <- struct{}{}
	}
	if f.submitGate != nil {
		<-f.submitGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, submitCall{quizID, questionID, choiceID})
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.feedback[questionID], nil
}

func (f *fakeQuizRepo) SetMark(ctx context.Context, quizID string, questionID uint, marked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, markCall{questionID, marked})
	return f.markErr
}

func (f *fakeQuizRepo) FinishQuiz(ctx context.Context, quizID string) (*model.QuizResultSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishCalls++
	if f.finishErr != nil {
		return nil, f.finishErr
	}
	return f.finishRes, nil
}

func ptrUint(v uint) *uint { return &v }

func threeQuestionSnapshot(mode model.FeedbackMode) *model.QuizSnapshot {
	return &model.QuizSnapshot{
		QuizID:       "quiz-1",
		UserID:       1,
		FeedbackMode: mode,
		Questions: []*model.SessionQuestion{
			{
				ID:        10,
				Statement: "q1",
				Choices: []model.SessionChoice{
					{ID: 101, Label: "A"}, {ID: 102, Label: "B"},
				},
			},
			{
				ID:        20,
				Statement: "q2",
				Choices: []model.SessionChoice{
					{ID: 201, Label: "A"}, {ID: 202, Label: "B"}, {ID: 203, Label: "C"},
				},
			},
			{
				ID:        30,
				Statement: "q3",
				Choices: []model.SessionChoice{
					{ID: 301, Label: "A"}, {ID: 302, Label: "B"},
				},
			},
		},
	}
}

func loadedController(t *testing.T, repo *fakeQuizRepo) *QuizSessionController {
	t.Helper()
	ctrl := NewQuizSessionController(repo)
	require.NoError(t, ctrl.Load(context.Background(), "quiz-1"))
	return ctrl
}

func TestLoadCursorAtFirstUnanswered(t *testing.T) {
	snap := threeQuestionSnapshot(model.FeedbackEnd)
	snap.Questions[0].SelectedChoiceID = ptrUint(101)
	repo := &fakeQuizRepo{snapshot: snap}

	ctrl := loadedController(t, repo)
	require.Equal(t, 1, ctrl.CurrentIndex())
}

func TestLoadAllAnsweredCursorAtZero(t *testing.T) {
	snap := threeQuestionSnapshot(model.FeedbackEnd)
	snap.Questions[0].SelectedChoiceID = ptrUint(101)
	snap.Questions[1].SelectedChoiceID = ptrUint(201)
	snap.Questions[2].SelectedChoiceID = ptrUint(301)
	repo := &fakeQuizRepo{snapshot: snap}

	ctrl := loadedController(t, repo)
	require.Equal(t, 0, ctrl.CurrentIndex())
	require.True(t, ctrl.IsComplete())
	require.True(t, ctrl.CanFinish())
}

func TestLoadFailureLeavesSessionUnusable(t *testing.T) {
	repo := &fakeQuizRepo{loadErr: util.ErrQuizNotFound}
	ctrl := NewQuizSessionController(repo)

	err := ctrl.Load(context.Background(), "quiz-1")
	require.ErrorIs(t, err, util.ErrQuizNotFound)

	require.ErrorIs(t, ctrl.SelectChoice(101), util.ErrSessionNotLoaded)
	require.ErrorIs(t, ctrl.ConfirmAnswer(context.Background()), util.ErrSessionNotLoaded)
	_, err = ctrl.FinishQuiz(context.Background())
	require.ErrorIs(t, err, util.ErrSessionNotLoaded)
}

func TestSelectChoiceValidation(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	require.ErrorIs(t, ctrl.SelectChoice(999), util.ErrChoiceNotInQuestion)

	require.NoError(t, ctrl.SelectChoice(101))
	require.NoError(t, ctrl.SelectChoice(102)) // 覆盖待选项
	require.Equal(t, uint(102), *ctrl.View().PendingChoiceID)
}

func TestSelectChoiceOnAnsweredQuestionRejected(t *testing.T) {
	snap := threeQuestionSnapshot(model.FeedbackEnd)
	snap.Questions[0].SelectedChoiceID = ptrUint(101)
	repo := &fakeQuizRepo{snapshot: snap}
	ctrl := loadedController(t, repo)

	ctrl.NavigateTo(0)
	require.ErrorIs(t, ctrl.SelectChoice(102), util.ErrAlreadyAnswered)
	// 已写入的答案不受影响
	require.Equal(t, uint(101), *snap.Questions[0].SelectedChoiceID)
}

func TestNavigateClampsToBounds(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	require.Equal(t, 0, ctrl.Navigate(-5))
	require.Equal(t, 2, ctrl.Navigate(10))
	require.Equal(t, 1, ctrl.NavigateTo(1))
	require.Equal(t, 2, ctrl.NavigateTo(99))
	require.Equal(t, 0, ctrl.NavigateTo(-1))
}

func TestNavigationClearsPendingSelection(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	require.NoError(t, ctrl.SelectChoice(101))
	ctrl.Navigate(1)
	require.Nil(t, ctrl.View().PendingChoiceID)

	// 原地导航（越界收敛回同一题）不清待选项
	ctrl.NavigateTo(1)
	require.NoError(t, ctrl.SelectChoice(201))
	ctrl.NavigateTo(1)
	require.NotNil(t, ctrl.View().PendingChoiceID)
}

func TestConfirmWithoutPendingSelection(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	require.ErrorIs(t, ctrl.ConfirmAnswer(context.Background()), util.ErrNoPendingSelection)
	require.Empty(t, repo.submits)
}

func TestConfirmImmediateModeStoresFeedbackAndStays(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot: threeQuestionSnapshot(model.FeedbackImmediate),
		feedback: map[uint]*model.AnswerFeedback{
			10: {IsCorrect: false, CorrectChoiceID: 102, Explanation: "看讲解"},
		},
	}
	ctrl := loadedController(t, repo)

	require.NoError(t, ctrl.SelectChoice(101))
	require.NoError(t, ctrl.ConfirmAnswer(context.Background()))

	v := ctrl.View()
	require.Equal(t, 0, v.CurrentIndex) // 即时模式不自动跳题
	require.NotNil(t, v.Question.Feedback)
	require.False(t, v.Question.Feedback.IsCorrect)
	require.Equal(t, uint(102), v.Question.Feedback.CorrectChoiceID)
	require.Equal(t, uint(101), *v.Question.SelectedChoiceID)
	require.Nil(t, v.PendingChoiceID)
	require.Equal(t, 1, v.AnsweredCount)
}

func TestConfirmEndModeAdvancesWithoutFeedback(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	require.NoError(t, ctrl.SelectChoice(101))
	require.NoError(t, ctrl.ConfirmAnswer(context.Background()))

	v := ctrl.View()
	require.Equal(t, 1, v.CurrentIndex) // 统一模式自动前进
	require.Nil(t, repo.snapshot.Questions[0].Feedback)
	require.Equal(t, uint(101), *repo.snapshot.Questions[0].SelectedChoiceID)
}

func TestConfirmEndModeAtLastQuestionStays(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	ctrl.NavigateTo(2)
	require.NoError(t, ctrl.SelectChoice(301))
	require.NoError(t, ctrl.ConfirmAnswer(context.Background()))
	require.Equal(t, 2, ctrl.CurrentIndex())
}

func TestConfirmFailureKeepsPendingForRetry(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		submitErr: errors.New("network down"),
	}
	ctrl := loadedController(t, repo)

	require.NoError(t, ctrl.SelectChoice(101))
	require.Error(t, ctrl.ConfirmAnswer(context.Background()))

	v := ctrl.View()
	require.Nil(t, v.Question.SelectedChoiceID) // 无部分提交
	require.Equal(t, uint(101), *v.PendingChoiceID)
	require.Equal(t, 0, v.CurrentIndex)

	// 原样重试成功
	repo.submitErr = nil
	require.NoError(t, ctrl.ConfirmAnswer(context.Background()))
	require.Equal(t, uint(101), *repo.snapshot.Questions[0].SelectedChoiceID)
}

func TestConfirmSuppressedWhileInFlight(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:    threeQuestionSnapshot(model.FeedbackEnd),
		submitGate:  make(chan struct{}),
		submitEnter: make(chan struct{}, 1),
	}
	ctrl := loadedController(t, repo)
	require.NoError(t, ctrl.SelectChoice(101))

	done := make(chan error, 1)
	go func() { done <- ctrl.ConfirmAnswer(context.Background()) }()
	<-repo.submitEnter

	// 在途期间：重复确认被抑制，交卷同样被抑制
	require.ErrorIs(t, ctrl.ConfirmAnswer(context.Background()), util.ErrRequestInFlight)
	_, err := ctrl.FinishQuiz(context.Background())
	require.ErrorIs(t, err, util.ErrRequestInFlight)

	// 导航和标记不受影响
	require.Equal(t, 1, ctrl.Navigate(1))
	require.NoError(t, ctrl.ToggleMark(context.Background()))

	close(repo.submitGate)
	require.NoError(t, <-done)
}

func TestLateResultAppliesToOriginalQuestionWithoutYankingCursor(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:    threeQuestionSnapshot(model.FeedbackEnd),
		submitGate:  make(chan struct{}),
		submitEnter: make(chan struct{}, 1),
	}
	ctrl := loadedController(t, repo)
	require.NoError(t, ctrl.SelectChoice(101))

	done := make(chan error, 1)
	go func() { done <- ctrl.ConfirmAnswer(context.Background()) }()
	<-repo.submitEnter

	// 请求在途时用户翻到了第三题
	ctrl.NavigateTo(2)

	close(repo.submitGate)
	require.NoError(t, <-done)

	// 迟到的结果落在第一题上，游标留在用户所在的位置
	require.Equal(t, uint(101), *repo.snapshot.Questions[0].SelectedChoiceID)
	require.Equal(t, 2, ctrl.CurrentIndex())
	require.Equal(t, 1, ctrl.AnsweredCount())
}

func TestToggleMarkOptimisticAndRollback(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	require.NoError(t, ctrl.ToggleMark(context.Background()))
	require.True(t, ctrl.View().Question.Marked)
	require.Equal(t, []markCall{{questionID: 10, marked: true}}, repo.marks)

	// 持久化失败：本地翻转被回滚，错误上报
	repo.markErr = errors.New("write failed")
	require.Error(t, ctrl.ToggleMark(context.Background()))
	require.True(t, ctrl.View().Question.Marked)

	// 再翻一次回到原状
	repo.markErr = nil
	require.NoError(t, ctrl.ToggleMark(context.Background()))
	require.False(t, ctrl.View().Question.Marked)
}

func TestMarkIndependentOfAnswerState(t *testing.T) {
	snap := threeQuestionSnapshot(model.FeedbackEnd)
	snap.Questions[0].SelectedChoiceID = ptrUint(101)
	repo := &fakeQuizRepo{snapshot: snap}
	ctrl := loadedController(t, repo)

	ctrl.NavigateTo(0)
	require.NoError(t, ctrl.ToggleMark(context.Background())) // 已答题也可标记

	v := ctrl.View()
	require.True(t, v.Question.Marked)
	require.Equal(t, []int{0}, v.MarkedPositions)
}

func TestFinishReturnsResultAndEntersTerminalState(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		finishRes: &model.QuizResultSummary{CorrectCount: 2, TotalCount: 3},
	}
	ctrl := loadedController(t, repo)

	res, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.CorrectCount)
	require.True(t, ctrl.Completed())

	// 终态下所有变更命令被拒绝
	require.ErrorIs(t, ctrl.SelectChoice(101), util.ErrQuizFinished)
	require.ErrorIs(t, ctrl.ConfirmAnswer(context.Background()), util.ErrQuizFinished)
	require.ErrorIs(t, ctrl.ToggleMark(context.Background()), util.ErrQuizFinished)
}

func TestToggleMarkRejectedAfterFinish(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		finishRes: &model.QuizResultSummary{CorrectCount: 0, TotalCount: 3},
	}
	ctrl := loadedController(t, repo)

	_, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)

	require.ErrorIs(t, ctrl.ToggleMark(context.Background()), util.ErrQuizFinished)
	require.Empty(t, repo.marks) // 仓储未被调用
	require.False(t, ctrl.View().Question.Marked)
}

func TestFinishIdempotentAfterCompletion(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		finishRes: &model.QuizResultSummary{CorrectCount: 1, TotalCount: 3},
	}
	ctrl := loadedController(t, repo)

	first, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)

	second, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.finishCalls) // 第二次不再打仓储
}

func TestFinishNormalizesAlreadyFinished(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		finishErr: util.ErrQuizFinished,
	}
	ctrl := loadedController(t, repo)

	_, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err) // 已交卷视为成功
	require.True(t, ctrl.Completed())
}

func TestFinishAlreadyFinishedImmediateModeRebuildsSummary(t *testing.T) {
	snap := threeQuestionSnapshot(model.FeedbackImmediate)
	snap.Questions[0].SelectedChoiceID = ptrUint(101)
	snap.Questions[0].Feedback = &model.AnswerFeedback{IsCorrect: true, CorrectChoiceID: 101}
	snap.Questions[1].SelectedChoiceID = ptrUint(202)
	snap.Questions[1].Feedback = &model.AnswerFeedback{IsCorrect: false, CorrectChoiceID: 201}
	repo := &fakeQuizRepo{snapshot: snap, finishErr: util.ErrQuizFinished}
	ctrl := loadedController(t, repo)

	res, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.CorrectCount)
	require.Equal(t, 3, res.TotalCount)
}

func TestFinishOtherErrorsAreRetryable(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		finishErr: errors.New("timeout"),
	}
	ctrl := loadedController(t, repo)

	_, err := ctrl.FinishQuiz(context.Background())
	require.Error(t, err)
	require.False(t, ctrl.Completed())

	repo.finishErr = nil
	repo.finishRes = &model.QuizResultSummary{CorrectCount: 0, TotalCount: 3}
	_, err = ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)
	require.True(t, ctrl.Completed())
}

func TestDerivedQueriesTrackAnswers(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	ctrl := loadedController(t, repo)

	require.Equal(t, 0, ctrl.AnsweredCount())
	require.InDelta(t, 0.0, ctrl.ProgressRatio(), 1e-9)
	require.False(t, ctrl.IsComplete())

	require.NoError(t, ctrl.SelectChoice(101))
	require.NoError(t, ctrl.ConfirmAnswer(context.Background()))
	require.Equal(t, 1, ctrl.AnsweredCount())
	require.InDelta(t, 1.0/3.0, ctrl.ProgressRatio(), 1e-9)

	require.NoError(t, ctrl.SelectChoice(201))
	require.NoError(t, ctrl.ConfirmAnswer(context.Background()))
	require.NoError(t, ctrl.SelectChoice(301))
	require.NoError(t, ctrl.ConfirmAnswer(context.Background()))

	require.Equal(t, 3, ctrl.AnsweredCount())
	require.InDelta(t, 1.0, ctrl.ProgressRatio(), 1e-9)
	require.True(t, ctrl.IsComplete())
	require.True(t, ctrl.CanFinish())
}

func TestElapsedStopsAfterCompletion(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:  threeQuestionSnapshot(model.FeedbackEnd),
		finishRes: &model.QuizResultSummary{TotalCount: 3},
	}
	repo.snapshot.ElapsedSeconds = 40
	ctrl := loadedController(t, repo)

	require.Equal(t, int64(40), ctrl.ElapsedSeconds())
	ctrl.AddElapsed(5)
	require.Equal(t, int64(45), ctrl.ElapsedSeconds())

	_, err := ctrl.FinishQuiz(context.Background())
	require.NoError(t, err)

	ctrl.AddElapsed(5)
	require.Equal(t, int64(45), ctrl.ElapsedSeconds())
}

func TestElapsedTicksWhileRequestInFlight(t *testing.T) {
	repo := &fakeQuizRepo{
		snapshot:    threeQuestionSnapshot(model.FeedbackEnd),
		submitGate:  make(chan struct{}),
		submitEnter: make(chan struct{}, 1),
	}
	ctrl := loadedController(t, repo)
	require.NoError(t, ctrl.SelectChoice(101))

	done := make(chan error, 1)
	go func() { done <- ctrl.ConfirmAnswer(context.Background()) }()
	<-repo.submitEnter

	ctrl.AddElapsed(3)
	require.Equal(t, int64(3), ctrl.ElapsedSeconds())

	close(repo.submitGate)
	require.NoError(t, <-done)
}

func TestViewReflectsSessionState(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackImmediate)}
	ctrl := loadedController(t, repo)

	require.NoError(t, ctrl.ToggleMark(context.Background()))
	ctrl.NavigateTo(1)
	require.NoError(t, ctrl.SelectChoice(202))

	v := ctrl.View()
	require.Equal(t, "quiz-1", v.QuizID)
	require.Equal(t, model.FeedbackImmediate, v.FeedbackMode)
	require.Equal(t, 3, v.TotalCount)
	require.Equal(t, 1, v.CurrentIndex)
	require.Equal(t, uint(20), v.Question.ID)
	require.Equal(t, uint(202), *v.PendingChoiceID)
	require.Equal(t, []int{0}, v.MarkedPositions)
	require.False(t, v.CanFinish)
}

func TestManagerRejectsForeignSession(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	mgr := newTestManager(repo)

	_, err := mgr.Open(context.Background(), 1, "quiz-1")
	require.NoError(t, err)

	_, err = mgr.Open(context.Background(), 2, "quiz-1")
	require.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestManagerRejectsForeignOpenBeforeSessionExists(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)} // 属主是用户 1
	mgr := newTestManager(repo)

	// 非属主抢先打开：即使内存里还没有会话也必须被拒绝
	_, err := mgr.Open(context.Background(), 2, "quiz-1")
	require.ErrorIs(t, err, util.ErrPermissionDenied)

	// 被拒绝的打开不得占据会话，属主随后照常打开
	ctrl, err := mgr.Open(context.Background(), 1, "quiz-1")
	require.NoError(t, err)
	require.NoError(t, ctrl.SelectChoice(101))

	// 属主的会话建立后非属主依旧被拒绝
	_, err = mgr.Open(context.Background(), 2, "quiz-1")
	require.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestManagerCloseRequiresOwnership(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	mgr := newTestManager(repo)

	first, err := mgr.Open(context.Background(), 1, "quiz-1")
	require.NoError(t, err)

	// 非属主关闭被拒绝，会话不受影响
	require.ErrorIs(t, mgr.Close(2, "quiz-1"), util.ErrPermissionDenied)
	again, err := mgr.Open(context.Background(), 1, "quiz-1")
	require.NoError(t, err)
	require.Same(t, first, again)

	// 属主关闭成功，再关闭不存在的会话视为幂等
	require.NoError(t, mgr.Close(1, "quiz-1"))
	require.NoError(t, mgr.Close(1, "quiz-1"))
}

func TestManagerReusesOpenSession(t *testing.T) {
	repo := &fakeQuizRepo{snapshot: threeQuestionSnapshot(model.FeedbackEnd)}
	mgr := newTestManager(repo)

	first, err := mgr.Open(context.Background(), 1, "quiz-1")
	require.NoError(t, err)
	second, err := mgr.Open(context.Background(), 1, "quiz-1")
	require.NoError(t, err)
	require.Same(t, first, second)
}

func newTestManager(repo QuizRepository) *QuizSessionManager {
	return &QuizSessionManager{
		repo:        repo,
		idleTimeout: time.Hour,
		sessions:    make(map[string]*sessionEntry),
		stop:        make(chan struct{}),
	}
}
