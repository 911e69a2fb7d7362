package service

import (
	"context"
	"encoding/json"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const dashboardCacheTTL = 5 * time.Minute

type DashboardService struct {
	StatsRepo *repository.StatsRepository
	Redis     *redis.Client
}

func NewDashboardService(statsRepo *repository.StatsRepository, rdb *redis.Client) *DashboardService {
	return &DashboardService{
		StatsRepo: statsRepo,
		Redis:     rdb,
	}
}

type DashboardStats struct {
	FinishedAttempts   int64                        `json:"finishedAttempts"`
	InProgressAttempts int64                        `json:"inProgressAttempts"`
	OverallAccuracy    float64                      `json:"overallAccuracy"`
	AnsweredTotal      int64                        `json:"answeredTotal"`
	MarkedQuestions    int64                        `json:"markedQuestions"`
	BySubject          []repository.SubjectAccuracy `json:"bySubject"`
	RecentAttempts     []model.QuizAttempt          `json:"recentAttempts"`
}

func dashboardCacheKey(userID uint) string {
	return fmt.Sprintf("dashboard:stats:%d", userID)
}

// GetStats 聚合个人答题统计，redis 缓存 5 分钟
func (s *DashboardService) GetStats(ctx context.Context, userID uint) (*DashboardStats, error) {
	key := dashboardCacheKey(userID)
	if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
		var stats DashboardStats
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	}

	stats := &DashboardStats{}

	finished, inProgress, err := s.StatsRepo.CountAttempts(userID)
	if err != nil {
		return nil, err
	}
	stats.FinishedAttempts = finished
	stats.InProgressAttempts = inProgress

	correct, total, err := s.StatsRepo.OverallAccuracy(userID)
	if err != nil {
		return nil, err
	}
	stats.AnsweredTotal = total
	if total > 0 {
		stats.OverallAccuracy = float64(correct) / float64(total)
	}

	if stats.BySubject, err = s.StatsRepo.AccuracyBySubject(userID); err != nil {
		return nil, err
	}
	if stats.MarkedQuestions, err = s.StatsRepo.MarkedQuestionCount(userID); err != nil {
		return nil, err
	}
	if stats.RecentAttempts, err = s.StatsRepo.RecentAttempts(userID, 5); err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stats); err == nil {
		s.Redis.Set(ctx, key, payload, dashboardCacheTTL)
	}
	return stats, nil
}

// InvalidateStats 交卷后让缓存失效，下次读取重新聚合
func (s *DashboardService) InvalidateStats(ctx context.Context, userID uint) {
	s.Redis.Del(ctx, dashboardCacheKey(userID))
}
