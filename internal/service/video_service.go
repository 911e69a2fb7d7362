package service

import (
	"context"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"exam_prep_backend/pkg/logger"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type VideoService struct {
	Repo    *repository.VideoRepository
	Storage *StorageService
	Redis   *redis.Client
}

func NewVideoService(repo *repository.VideoRepository, storage *StorageService, rdb *redis.Client) *VideoService {
	return &VideoService{
		Repo:    repo,
		Storage: storage,
		Redis:   rdb,
	}
}

type VideoUploadRequest struct {
	SubjectID   uint
	TopicID     uint
	Title       string
	Description string
}

// Upload 保存视频文件并探测元数据。ffmpeg 不可用时跳过时长和封面，不阻塞上传。
func (s *VideoService) Upload(ctx context.Context, req VideoUploadRequest, file *multipart.FileHeader) (*model.VideoLesson, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	objectName := fmt.Sprintf("videos/%d/%s%s", req.SubjectID, model.GenerateUUID(), ext)

	// 先落临时文件，探测元数据后再交给存储层
	tmp, err := os.CreateTemp("", "video-upload-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.ReadFrom(src); err != nil {
		return nil, err
	}

	lesson := &model.VideoLesson{
		SubjectID:   req.SubjectID,
		TopicID:     req.TopicID,
		Title:       req.Title,
		Description: req.Description,
	}

	if probe, err := util.ProbeVideo(tmp.Name()); err == nil {
		lesson.DurationSeconds = probe.Duration
	} else {
		logger.Log.Warn("video probe failed", zap.String("file", file.Filename), zap.Error(err))
	}

	url, err := s.Storage.UploadFile(ctx, objectName, tmp.Name(), file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	lesson.URL = url

	thumbName := strings.TrimSuffix(objectName, ext) + ".jpg"
	thumbPath := filepath.Join(os.TempDir(), filepath.Base(thumbName))
	if err := util.GenerateThumbnail(tmp.Name(), thumbPath, "00:00:01"); err == nil {
		defer os.Remove(thumbPath)
		if thumbURL, err := s.Storage.UploadFile(ctx, thumbName, thumbPath, "image/jpeg"); err == nil {
			lesson.ThumbnailURL = thumbURL
		}
	}

	if err := s.Repo.Create(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *VideoService) List(subjectID, topicID uint, publishedOnly bool, page, limit int) ([]model.VideoLesson, int64, error) {
	return s.Repo.List(subjectID, topicID, publishedOnly, page, limit)
}

// Get 返回视频详情并记一次播放。浏览计数先进 redis，避免每次播放都写库。
func (s *VideoService) Get(ctx context.Context, id uint) (*model.VideoLesson, error) {
	lesson, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	pending, err := s.Redis.Incr(ctx, fmt.Sprintf("video:views:%d", id)).Result()
	if err == nil {
		lesson.Views += pending
	}
	return lesson, nil
}

func (s *VideoService) SetPublished(id uint, published bool) error {
	lesson, err := s.Repo.FindByID(id)
	if err != nil {
		return err
	}
	lesson.Published = published
	return s.Repo.Update(lesson)
}

func (s *VideoService) Delete(id uint) error {
	return s.Repo.Delete(id)
}

// FlushViewCounts 把 redis 里积累的播放数回写数据库，由后台任务周期调用
func (s *VideoService) FlushViewCounts(ctx context.Context) error {
	iter := s.Redis.Scan(ctx, 0, "video:views:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var id uint
		if _, err := fmt.Sscanf(key, "video:views:%d", &id); err != nil {
			continue
		}

		pending, err := s.Redis.GetDel(ctx, key).Int64()
		if err != nil || pending == 0 {
			continue
		}
		if err := s.Repo.AddViews(id, pending); err != nil {
			logger.Log.Error("failed to flush video views", zap.Uint("videoId", id), zap.Error(err))
		}
	}
	return iter.Err()
}
