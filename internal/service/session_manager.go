package service

import (
	"context"
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"
	"exam_prep_backend/pkg/monitoring"
	"sync"
	"time"

	"go.uber.org/zap"
)

// elapsedSaver 可选能力：支持回写答题用时的仓储（本地 gorm 仓储实现它，
// 远程 API 客户端不需要）
type elapsedSaver interface {
	SaveElapsed(ctx context.Context, quizID string, seconds int64) error
}

type sessionEntry struct {
	ctrl   *QuizSessionController
	userID uint
}

// QuizSessionManager 管理所有在线的测验会话。每次尝试独占一个控制器实例，
// 不跨尝试共享。秒级心跳推进各会话计时，空闲会话定期回收。
type QuizSessionManager struct {
	repo        QuizRepository
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	stop chan struct{}
	once sync.Once
}

func NewQuizSessionManager(repo QuizRepository, cfg *config.Config) *QuizSessionManager {
	return &QuizSessionManager{
		repo:        repo,
		idleTimeout: time.Duration(cfg.Quiz.SessionIdleMinutes) * time.Minute,
		sessions:    make(map[string]*sessionEntry),
		stop:        make(chan struct{}),
	}
}

// Open 返回某次尝试的会话控制器，不存在则加载并建立。
// 归属校验两道：已建立的会话比对缓存的属主，新加载的会话比对快照里
// 存储的属主——内存里没有会话不代表调用方拥有这次尝试。
func (m *QuizSessionManager) Open(ctx context.Context, userID uint, quizID string) (*QuizSessionController, error) {
	m.mu.RLock()
	entry, ok := m.sessions[quizID]
	m.mu.RUnlock()
	if ok {
		if entry.userID != userID {
			return nil, util.ErrPermissionDenied
		}
		return entry.ctrl, nil
	}

	ctrl := NewQuizSessionController(m.repo)
	if err := ctrl.Load(ctx, quizID); err != nil {
		return nil, err
	}
	if ctrl.OwnerID() != userID {
		return nil, util.ErrPermissionDenied
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// 并发 Open 同一尝试时沿用先建立的会话
	if entry, ok := m.sessions[quizID]; ok {
		if entry.userID != userID {
			return nil, util.ErrPermissionDenied
		}
		return entry.ctrl, nil
	}
	m.sessions[quizID] = &sessionEntry{ctrl: ctrl, userID: userID}
	monitoring.ActiveQuizSessions.Set(float64(len(m.sessions)))
	return ctrl, nil
}

// Close 丢弃会话并尽力回写用时。只有属主能关闭自己的会话；
// 会话不存在时视为已关闭。
func (m *QuizSessionManager) Close(userID uint, quizID string) error {
	m.mu.Lock()
	entry, ok := m.sessions[quizID]
	if ok && entry.userID != userID {
		m.mu.Unlock()
		return util.ErrPermissionDenied
	}
	if ok {
		delete(m.sessions, quizID)
	}
	monitoring.ActiveQuizSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if ok {
		m.persistElapsed(entry.ctrl)
	}
	return nil
}

// Run 启动心跳循环：每秒推进计时，每 30 秒回写用时，每分钟回收空闲会话
func (m *QuizSessionManager) Run() {
	tick := time.NewTicker(time.Second)
	flush := time.NewTicker(30 * time.Second)
	sweep := time.NewTicker(time.Minute)
	defer tick.Stop()
	defer flush.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-tick.C:
			m.mu.RLock()
			for _, entry := range m.sessions {
				entry.ctrl.AddElapsed(1)
			}
			m.mu.RUnlock()
		case <-flush.C:
			m.mu.RLock()
			ctrls := make([]*QuizSessionController, 0, len(m.sessions))
			for _, entry := range m.sessions {
				ctrls = append(ctrls, entry.ctrl)
			}
			m.mu.RUnlock()
			for _, ctrl := range ctrls {
				m.persistElapsed(ctrl)
			}
		case <-sweep.C:
			m.evictIdle()
		case <-m.stop:
			return
		}
	}
}

func (m *QuizSessionManager) Stop() {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	ctrls := make([]*QuizSessionController, 0, len(m.sessions))
	for _, entry := range m.sessions {
		ctrls = append(ctrls, entry.ctrl)
	}
	m.sessions = make(map[string]*sessionEntry)
	monitoring.ActiveQuizSessions.Set(0)
	m.mu.Unlock()

	for _, ctrl := range ctrls {
		m.persistElapsed(ctrl)
	}
}

func (m *QuizSessionManager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	var evicted []*QuizSessionController
	for id, entry := range m.sessions {
		if entry.ctrl.Completed() || entry.ctrl.idleSince().Before(cutoff) {
			evicted = append(evicted, entry.ctrl)
			delete(m.sessions, id)
		}
	}
	monitoring.ActiveQuizSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, ctrl := range evicted {
		m.persistElapsed(ctrl)
	}
	if len(evicted) > 0 {
		logger.Log.Info("evicted quiz sessions", zap.Int("count", len(evicted)))
	}
}

func (m *QuizSessionManager) persistElapsed(ctrl *QuizSessionController) {
	saver, ok := m.repo.(elapsedSaver)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := saver.SaveElapsed(ctx, ctrl.QuizID(), ctrl.ElapsedSeconds()); err != nil {
		logger.Log.Warn("failed to persist elapsed time",
			zap.String("quizId", ctrl.QuizID()), zap.Error(err))
	}
}
