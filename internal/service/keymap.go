package service

import (
	"context"
	"strconv"
)

// InputKey 离散输入事件，由前端按固定键位映射上报：
// 方向键=导航，数字键=选中第 n 个选项，回车=确认，m=标记，h=帮助浮层
type InputKey string

const (
	KeyPrev    InputKey = "prev"
	KeyNext    InputKey = "next"
	KeyConfirm InputKey = "confirm"
	KeyMark    InputKey = "mark"
	KeyHelp    InputKey = "help"
)

// InputOutcome 输入事件的处理结果。Command 为空表示事件按规则被忽略。
type InputOutcome struct {
	Command    string `json:"command,omitempty"`
	ToggleHelp bool   `json:"toggleHelp,omitempty"`
}

// HandleInput 把输入事件映射为会话命令：
//   - prev/next 总是可用，越界收敛
//   - 数字 n（1 起）仅当当前题未作答且存在第 n 个选项时选中它
//   - confirm 仅当存在待选项、当前题未作答且无在途请求时提交
//   - mark 交卷前总是可用，交卷后静默忽略
//   - help 纯展示层开关，不触碰会话状态
//
// 不满足条件的事件静默忽略，不报错——键盘操作下弹错误是噪音。
func (c *QuizSessionController) HandleInput(ctx context.Context, key InputKey) (*InputOutcome, error) {
	switch key {
	case KeyPrev:
		c.Navigate(-1)
		return &InputOutcome{Command: "navigate"}, nil

	case KeyNext:
		c.Navigate(+1)
		return &InputOutcome{Command: "navigate"}, nil

	case KeyHelp:
		return &InputOutcome{ToggleHelp: true}, nil

	case KeyMark:
		if c.Completed() {
			return &InputOutcome{}, nil
		}
		if err := c.ToggleMark(ctx); err != nil {
			return nil, err
		}
		return &InputOutcome{Command: "mark"}, nil

	case KeyConfirm:
		if !c.canConfirm() {
			return &InputOutcome{}, nil
		}
		if err := c.ConfirmAnswer(ctx); err != nil {
			return nil, err
		}
		return &InputOutcome{Command: "confirm"}, nil
	}

	// 数字键：1 起始的选项序号
	if n, err := strconv.Atoi(string(key)); err == nil && n >= 1 {
		if choiceID, ok := c.choiceAt(n - 1); ok {
			if err := c.SelectChoice(choiceID); err != nil {
				return &InputOutcome{}, nil
			}
			return &InputOutcome{Command: "select"}, nil
		}
	}

	return &InputOutcome{}, nil
}

// canConfirm 确认键的可用性预判：有待选项、未作答、无在途请求
func (c *QuizSessionController) canConfirm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.questions) == 0 || c.completed || c.inFlight {
		return false
	}
	return c.pendingChoiceID != nil && !c.questions[c.currentIndex].Answered()
}

// choiceAt 返回当前题第 i 个选项的 ID（0 起），题已答或越界时 ok=false
func (c *QuizSessionController) choiceAt(i int) (uint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.questions) == 0 {
		return 0, false
	}
	q := c.questions[c.currentIndex]
	if q.Answered() || i < 0 || i >= len(q.Choices) {
		return 0, false
	}
	return q.Choices[i].ID, true
}
