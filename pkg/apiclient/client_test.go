package apiclient

import (
	"context"
	"encoding/json"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

var _ service.QuizRepository = (*Client)(nil)

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    status,
		"message": http.StatusText(status),
		"data":    data,
	})
}

func TestLoadQuizAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/api/quizzes/quiz-1/snapshot", r.URL.Path)
		respond(w, http.StatusOK, model.QuizSnapshot{
			QuizID:       "quiz-1",
			FeedbackMode: model.FeedbackImmediate,
			Questions: []*model.SessionQuestion{
				{ID: 10, Statement: "q1", Choices: []model.SessionChoice{{ID: 101, Label: "A"}}},
			},
			ElapsedSeconds: 30,
		})
	}))
	defer srv.Close()

	client := New(srv.URL, NewCredential("token-abc"))
	snap, err := client.LoadQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Equal(t, "Bearer token-abc", gotAuth)
	require.Equal(t, "quiz-1", snap.QuizID)
	require.Equal(t, model.FeedbackImmediate, snap.FeedbackMode)
	require.Len(t, snap.Questions, 1)
	require.Equal(t, int64(30), snap.ElapsedSeconds)
}

func TestSubmitAnswerDecodesFeedback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/quizzes/quiz-1/answers", r.URL.Path)

		var body struct {
			QuestionID uint `json:"questionId"`
			ChoiceID   uint `json:"choiceId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, uint(10), body.QuestionID)
		require.Equal(t, uint(101), body.ChoiceID)

		respond(w, http.StatusOK, model.AnswerFeedback{
			IsCorrect:       true,
			CorrectChoiceID: 101,
			Explanation:     "正确",
		})
	}))
	defer srv.Close()

	client := New(srv.URL, NewCredential("t"))
	fb, err := client.SubmitAnswer(context.Background(), "quiz-1", 10, 101)
	require.NoError(t, err)
	require.NotNil(t, fb)
	require.True(t, fb.IsCorrect)
	require.Equal(t, uint(101), fb.CorrectChoiceID)
}

func TestSubmitAnswerEndModeReturnsNilFeedback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, nil)
	}))
	defer srv.Close()

	client := New(srv.URL, NewCredential("t"))
	fb, err := client.SubmitAnswer(context.Background(), "quiz-1", 10, 101)
	require.NoError(t, err)
	require.Nil(t, fb)
}

func TestStatusCodesMapToSentinelErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, util.ErrQuizNotFound},
		{http.StatusForbidden, util.ErrPermissionDenied},
		{http.StatusConflict, util.ErrQuizFinished},
		{http.StatusUnprocessableEntity, util.ErrAlreadyAnswered},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(w, tt.status, nil)
		}))

		client := New(srv.URL, NewCredential("t"))
		_, err := client.SubmitAnswer(context.Background(), "quiz-1", 10, 101)
		require.ErrorIs(t, err, tt.want, "status %d", tt.status)
		srv.Close()
	}
}

func TestUnauthorizedInvalidatesCredential(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		respond(w, http.StatusUnauthorized, nil)
	}))
	defer srv.Close()

	cred := NewCredential("expired")
	client := New(srv.URL, cred)

	_, err := client.LoadQuiz(context.Background(), "quiz-1")
	require.ErrorIs(t, err, ErrCredentialInvalid)

	// 失效后不再发请求
	_, err = client.LoadQuiz(context.Background(), "quiz-1")
	require.ErrorIs(t, err, ErrCredentialInvalid)
	require.Equal(t, 1, calls)

	// 换发新令牌后恢复
	cred.Rotate("fresh")
	_, err = client.LoadQuiz(context.Background(), "quiz-1")
	require.ErrorIs(t, err, ErrCredentialInvalid) // 服务器仍回 401
	require.Equal(t, 2, calls)
}

func TestSetMarkSendsMarkedFlag(t *testing.T) {
	var gotPath string
	var gotMarked bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPut, r.Method)
		var body struct {
			Marked bool `json:"marked"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotMarked = body.Marked
		respond(w, http.StatusOK, map[string]bool{"marked": body.Marked})
	}))
	defer srv.Close()

	client := New(srv.URL, NewCredential("t"))
	require.NoError(t, client.SetMark(context.Background(), "quiz-1", 20, true))
	require.Equal(t, "/api/quizzes/quiz-1/questions/20/mark", gotPath)
	require.True(t, gotMarked)
}

func TestFinishQuizDecodesSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/quizzes/quiz-1/finish", r.URL.Path)
		respond(w, http.StatusOK, model.QuizResultSummary{CorrectCount: 7, TotalCount: 10})
	}))
	defer srv.Close()

	client := New(srv.URL, NewCredential("t"))
	summary, err := client.FinishQuiz(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Equal(t, 7, summary.CorrectCount)
	require.Equal(t, 10, summary.TotalCount)
}

func TestFinishQuizAlreadyFinishedSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusConflict, nil)
	}))
	defer srv.Close()

	client := New(srv.URL, NewCredential("t"))
	_, err := client.FinishQuiz(context.Background(), "quiz-1")
	require.ErrorIs(t, err, util.ErrQuizFinished)
}
