// Package apiclient 是测验仓储的远程实现：答题引擎在客户端进程内运行时，
// 通过同步接口读写服务端的测验状态。与 repository.QuizAttemptRepository
// 实现同一套边界，可互换。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrCredentialInvalid 凭证已失效（服务端返回 401 后本地同步失效）
var ErrCredentialInvalid = errors.New("api credential invalid")

// Credential 显式凭证对象。令牌通过构造注入、随请求附加、失效时整体作废，
// 不存在任何包级的环境令牌状态。
type Credential struct {
	mu    sync.RWMutex
	token string
	valid bool
}

func NewCredential(token string) *Credential {
	return &Credential{token: token, valid: token != ""}
}

func (c *Credential) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.valid
}

// Rotate 换发新令牌并恢复有效状态
func (c *Credential) Rotate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.valid = token != ""
}

func (c *Credential) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

type Client struct {
	baseURL string
	cred    *Credential
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, cred *Credential, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		cred:    cred,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope 服务端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, valid := c.cred.Token()
	if !valid {
		return ErrCredentialInvalid
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if err := c.statusError(resp.StatusCode); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// statusError 把同步接口的状态码翻译回仓储边界的哨兵错误
func (c *Client) statusError(status int) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized:
		c.cred.Invalidate()
		return ErrCredentialInvalid
	case status == http.StatusForbidden:
		return util.ErrPermissionDenied
	case status == http.StatusNotFound:
		return util.ErrQuizNotFound
	case status == http.StatusConflict:
		return util.ErrQuizFinished
	case status == http.StatusUnprocessableEntity:
		return util.ErrAlreadyAnswered
	case status == http.StatusBadRequest:
		return util.ErrChoiceNotInQuestion
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

func (c *Client) LoadQuiz(ctx context.Context, quizID string) (*model.QuizSnapshot, error) {
	var snap model.QuizSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/quizzes/"+quizID+"/snapshot", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

type submitAnswerRequest struct {
	QuestionID uint `json:"questionId"`
	ChoiceID   uint `json:"choiceId"`
}

func (c *Client) SubmitAnswer(ctx context.Context, quizID string, questionID, choiceID uint) (*model.AnswerFeedback, error) {
	// 统一反馈模式下服务端不回传对错，data 为空，fb 保持 nil
	var fb *model.AnswerFeedback
	err := c.do(ctx, http.MethodPost, "/api/quizzes/"+quizID+"/answers",
		submitAnswerRequest{QuestionID: questionID, ChoiceID: choiceID}, &fb)
	if err != nil {
		return nil, err
	}
	return fb, nil
}

type setMarkRequest struct {
	Marked bool `json:"marked"`
}

func (c *Client) SetMark(ctx context.Context, quizID string, questionID uint, marked bool) error {
	path := fmt.Sprintf("/api/quizzes/%s/questions/%d/mark", quizID, questionID)
	return c.do(ctx, http.MethodPut, path, setMarkRequest{Marked: marked}, nil)
}

func (c *Client) FinishQuiz(ctx context.Context, quizID string) (*model.QuizResultSummary, error) {
	var summary model.QuizResultSummary
	if err := c.do(ctx, http.MethodPost, "/api/quizzes/"+quizID+"/finish", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
