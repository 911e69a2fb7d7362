package service

import (
	"context"
	"errors"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/monitoring"
	"sync"
	"sync/atomic"
	"time"
)

// QuizSessionController 独占持有一次测验尝试的会话状态：当前题游标、
// 每题的作答/标记状态、计时和反馈模式行为。所有用户意图都经由它转换为
// 本地状态变更或一次仓储调用。
//
// 仓储调用在锁外执行：请求在途只挂起发起它的那条命令（通过 inFlight
// 标志抑制重复的变更命令），导航、标记和计时不受影响。
type QuizSessionController struct {
	repo   QuizRepository
	policy feedbackPolicy

	mu              sync.Mutex
	quizID          string
	ownerID         uint
	mode            model.FeedbackMode
	questions       []*model.SessionQuestion
	currentIndex    int
	pendingChoiceID *uint
	inFlight        bool
	markBusy        map[uint]bool
	completed       bool
	result          *model.QuizResultSummary

	elapsedSeconds atomic.Int64
	lastActive     atomic.Int64 // unix 秒
}

func NewQuizSessionController(repo QuizRepository) *QuizSessionController {
	c := &QuizSessionController{
		repo:     repo,
		markBusy: make(map[uint]bool),
	}
	c.touch()
	return c
}

// Load 拉取测验数据并初始化会话。失败时会话不初始化，调用方不得继续渲染题目。
// 游标落在第一道未答题上，全部已答则为 0。
func (c *QuizSessionController) Load(ctx context.Context, quizID string) error {
	snap, err := c.repo.LoadQuiz(ctx, quizID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.quizID = snap.QuizID
	c.ownerID = snap.UserID
	c.mode = snap.FeedbackMode
	c.policy = policyFor(snap.FeedbackMode)
	c.questions = snap.Questions
	c.elapsedSeconds.Store(snap.ElapsedSeconds)

	c.currentIndex = 0
	for i, q := range snap.Questions {
		if !q.Answered() {
			c.currentIndex = i
			break
		}
	}

	c.pendingChoiceID = nil
	c.completed = false
	c.result = nil
	c.touch()
	return nil
}

// SelectChoice 记录一个待确认的选择，不产生任何副作用。
// 重复调用覆盖之前的待选项；当前题已作答时拒绝。
func (c *QuizSessionController) SelectChoice(choiceID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if len(c.questions) == 0 {
		return util.ErrSessionNotLoaded
	}
	if c.completed {
		return util.ErrQuizFinished
	}

	q := c.questions[c.currentIndex]
	if q.Answered() {
		return util.ErrAlreadyAnswered
	}
	if !q.HasChoice(choiceID) {
		return util.ErrChoiceNotInQuestion
	}

	c.pendingChoiceID = &choiceID
	return nil
}

// ConfirmAnswer 把待选项提交为最终答案。成功后写入 SelectedChoiceID，
// 并按反馈模式处理（即时模式存反馈不跳题，交卷模式自动前进）。
// 失败时状态不变，待选项保留以便重试。
//
// 提交结果按题目 ID 回写：请求在途期间用户导航走了，迟到的结果仍落到
// 原题上，但不会拉回游标。
func (c *QuizSessionController) ConfirmAnswer(ctx context.Context) error {
	c.mu.Lock()
	if len(c.questions) == 0 {
		c.mu.Unlock()
		return util.ErrSessionNotLoaded
	}
	if c.completed {
		c.mu.Unlock()
		return util.ErrQuizFinished
	}
	if c.inFlight {
		c.mu.Unlock()
		return util.ErrRequestInFlight
	}
	q := c.questions[c.currentIndex]
	if q.Answered() {
		c.mu.Unlock()
		return util.ErrAlreadyAnswered
	}
	if c.pendingChoiceID == nil {
		c.mu.Unlock()
		return util.ErrNoPendingSelection
	}

	questionID := q.ID
	choiceID := *c.pendingChoiceID
	c.inFlight = true
	c.mu.Unlock()

	fb, err := c.repo.SubmitAnswer(ctx, c.quizID, questionID, choiceID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.touch()

	if err != nil {
		// 无部分提交，待选项保留，用户可原样重试
		return err
	}

	target := c.questionByID(questionID)
	if target == nil || target.Answered() {
		return nil
	}

	committed := choiceID
	target.SelectedChoiceID = &committed

	wasCurrent := c.questions[c.currentIndex].ID == questionID
	if wasCurrent {
		c.pendingChoiceID = nil
	}
	c.policy.onAnswerConfirmed(c, target, fb, wasCurrent)

	result := "unknown"
	if fb != nil {
		result = "incorrect"
		if fb.IsCorrect {
			result = "correct"
		}
	}
	monitoring.AnswersSubmitted.WithLabelValues(string(c.mode), result).Inc()
	return nil
}

// ToggleMark 乐观翻转当前题的标记：先本地生效再持久化，失败回滚并上报错误。
// 同一题的标记请求串行化，避免翻转和它自身的回滚竞争；不同题互不影响，
// 在途的答案提交也不阻塞标记。交卷后与其他变更命令一样被拒绝。
func (c *QuizSessionController) ToggleMark(ctx context.Context) error {
	c.mu.Lock()
	if len(c.questions) == 0 {
		c.mu.Unlock()
		return util.ErrSessionNotLoaded
	}
	if c.completed {
		c.mu.Unlock()
		return util.ErrQuizFinished
	}
	q := c.questions[c.currentIndex]
	if c.markBusy[q.ID] {
		c.mu.Unlock()
		return util.ErrRequestInFlight
	}
	c.markBusy[q.ID] = true
	prev := q.Marked
	questionID := q.ID
	c.mu.Unlock()

	cmd := OptimisticCommand{
		Apply: func() {
			c.mu.Lock()
			q.Marked = !prev
			c.mu.Unlock()
		},
		Persist: func() error {
			return c.repo.SetMark(ctx, c.quizID, questionID, !prev)
		},
		Revert: func() {
			c.mu.Lock()
			q.Marked = prev
			c.mu.Unlock()
		},
	}
	err := cmd.Run()

	c.mu.Lock()
	delete(c.markBusy, questionID)
	c.touch()
	c.mu.Unlock()
	return err
}

// Navigate 相对移动游标，越界收敛到 [0, lastIndex]，返回新位置。
// 导航永远合法，不依赖作答状态，也不等待在途请求。
func (c *QuizSessionController) Navigate(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moveTo(c.currentIndex + delta)
}

// NavigateTo 绝对跳转，同样收敛边界
func (c *QuizSessionController) NavigateTo(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moveTo(index)
}

// moveTo 调用方必须持锁。离开一道题时清掉待选项：待选项只对当前展示的
// 题目有意义，不跨导航保留。
func (c *QuizSessionController) moveTo(target int) int {
	c.touch()
	if len(c.questions) == 0 {
		return 0
	}
	target = clampIndex(target, len(c.questions))
	if target != c.currentIndex {
		c.currentIndex = target
		c.pendingChoiceID = nil
	}
	return c.currentIndex
}

// FinishQuiz 交卷。任何时刻都合法，是否允许交卷由仓储裁决。
// 重复交卷（ErrQuizFinished）被归一化为成功：说明交卷早已发生，
// 会话照常进入终态。其他失败可重试。
func (c *QuizSessionController) FinishQuiz(ctx context.Context) (*model.QuizResultSummary, error) {
	c.mu.Lock()
	if len(c.questions) == 0 {
		c.mu.Unlock()
		return nil, util.ErrSessionNotLoaded
	}
	if c.completed {
		res := c.result
		c.mu.Unlock()
		return res, nil
	}
	if c.inFlight {
		c.mu.Unlock()
		return nil, util.ErrRequestInFlight
	}
	c.inFlight = true
	c.mu.Unlock()

	res, err := c.repo.FinishQuiz(ctx, c.quizID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.touch()

	if err != nil && !errors.Is(err, util.ErrQuizFinished) {
		return nil, err
	}

	c.completed = true
	c.policy.onQuizFinished(c, res)
	monitoring.QuizzesFinished.Inc()
	return c.result, nil
}

func (c *QuizSessionController) questionByID(id uint) *model.SessionQuestion {
	for _, q := range c.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// ---- 派生查询（无副作用） ----

func (c *QuizSessionController) AnsweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answeredCountLocked()
}

func (c *QuizSessionController) answeredCountLocked() int {
	n := 0
	for _, q := range c.questions {
		if q.Answered() {
			n++
		}
	}
	return n
}

func (c *QuizSessionController) ProgressRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.questions) == 0 {
		return 0
	}
	return float64(c.answeredCountLocked()) / float64(len(c.questions))
}

func (c *QuizSessionController) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answeredCountLocked() == len(c.questions) && len(c.questions) > 0
}

// CanFinish 只是"交卷"按钮是否可用；FinishQuiz 本身不做此限制
func (c *QuizSessionController) CanFinish() bool {
	return c.IsComplete()
}

func (c *QuizSessionController) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

func (c *QuizSessionController) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIndex
}

func (c *QuizSessionController) QuizID() string {
	return c.quizID
}

// OwnerID 尝试属主的用户 ID，来自加载时的快照
func (c *QuizSessionController) OwnerID() uint {
	return c.ownerID
}

func (c *QuizSessionController) Result() *model.QuizResultSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// ElapsedSeconds 计时独立于其他操作，在途请求不阻塞走秒
func (c *QuizSessionController) ElapsedSeconds() int64 {
	return c.elapsedSeconds.Load()
}

// AddElapsed 由会话管理器的秒级心跳调用，交卷后不再累计
func (c *QuizSessionController) AddElapsed(seconds int64) {
	c.mu.Lock()
	done := c.completed
	c.mu.Unlock()
	if !done {
		c.elapsedSeconds.Add(seconds)
	}
}

func (c *QuizSessionController) touch() {
	c.lastActive.Store(time.Now().Unix())
}

func (c *QuizSessionController) idleSince() time.Time {
	return time.Unix(c.lastActive.Load(), 0)
}

// ---- 视图模型 ----

// QuestionView 呈现层可见的单题状态
type QuestionView struct {
	ID               uint                  `json:"id"`
	Statement        string                `json:"statement"`
	Choices          []model.SessionChoice `json:"choices"`
	SelectedChoiceID *uint                 `json:"selectedChoiceId,omitempty"`
	Marked           bool                  `json:"marked"`
	Feedback         *model.AnswerFeedback `json:"feedback,omitempty"`
}

// SessionView 会话的完整视图：当前题、导航位置、进度指标和交卷按钮状态
type SessionView struct {
	QuizID          string                   `json:"quizId"`
	FeedbackMode    model.FeedbackMode       `json:"feedbackMode"`
	CurrentIndex    int                      `json:"currentIndex"`
	TotalCount      int                      `json:"totalCount"`
	AnsweredCount   int                      `json:"answeredCount"`
	ProgressRatio   float64                  `json:"progressRatio"`
	CanFinish       bool                     `json:"canFinish"`
	Completed       bool                     `json:"completed"`
	ElapsedSeconds  int64                    `json:"elapsedSeconds"`
	PendingChoiceID *uint                    `json:"pendingChoiceId,omitempty"`
	MarkedPositions []int                    `json:"markedPositions"`
	Question        *QuestionView            `json:"question,omitempty"`
	Result          *model.QuizResultSummary `json:"result,omitempty"`
}

// View 生成当前会话视图。到达已答题时（即时模式）反馈直接来自已存状态，
// 不触发网络调用。
func (c *QuizSessionController) View() *SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := len(c.questions)
	answered := c.answeredCountLocked()
	v := &SessionView{
		QuizID:          c.quizID,
		FeedbackMode:    c.mode,
		CurrentIndex:    c.currentIndex,
		TotalCount:      total,
		AnsweredCount:   answered,
		CanFinish:       total > 0 && answered == total,
		Completed:       c.completed,
		ElapsedSeconds:  c.elapsedSeconds.Load(),
		PendingChoiceID: c.pendingChoiceID,
		Result:          c.result,
	}
	if total > 0 {
		v.ProgressRatio = float64(answered) / float64(total)
		q := c.questions[c.currentIndex]
		v.Question = &QuestionView{
			ID:               q.ID,
			Statement:        q.Statement,
			Choices:          q.Choices,
			SelectedChoiceID: q.SelectedChoiceID,
			Marked:           q.Marked,
			Feedback:         q.Feedback,
		}
	}
	for i, q := range c.questions {
		if q.Marked {
			v.MarkedPositions = append(v.MarkedPositions, i)
		}
	}
	return v
}
