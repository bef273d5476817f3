package service

import (
	"context"

	repository "weather-notifier/internal/database/postgres"
	"weather-notifier/internal/entity"
)

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context) ([]*entity.User, error) {
	return s.userRepo.ListWithRequests(ctx)
}
