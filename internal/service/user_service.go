package service

import (
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	Repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{Repo: repo}
}

func (s *UserService) GetUser(id uint) (*model.User, error) {
	return s.Repo.FindByID(id)
}

func (s *UserService) ListUsers(page, limit int, role, keyword string) ([]model.User, int64, error) {
	return s.Repo.List(page, limit, role, keyword)
}

type UpdateProfileRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func (s *UserService) UpdateProfile(userID uint, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.Repo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if err := s.Repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetDisabled 封禁/解封账号，管理端操作
func (s *UserService) SetDisabled(userID uint, disabled bool) error {
	return s.Repo.SetDisabled(userID, disabled)
}

// ResetPassword 管理端重置密码
func (s *UserService) ResetPassword(userID uint, newPassword string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePassword(userID, string(hashed))
}

func (s *UserService) SetRole(userID uint, role model.UserRole) error {
	user, err := s.Repo.FindByID(userID)
	if err != nil {
		return err
	}
	user.Role = role
	return s.Repo.Update(user)
}
