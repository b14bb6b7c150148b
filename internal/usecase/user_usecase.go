package usecase

import (
	"context"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
	"farmlink/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{userRepo: userRepo}
}

type RegisterProfileInput struct {
	Name  string
	Role  string
	Email string
}

// RegisterProfile creates the marketplace profile for an authenticated
// account. The profile ID is the auth UID, so registering twice conflicts.
func (uc *UserUseCase) RegisterProfile(ctx context.Context, uid string, input RegisterProfileInput) (*entity.User, error) {
	switch input.Role {
	case entity.RoleFarmer, entity.RoleRetailer, entity.RoleConsumer:
	default:
		return nil, errors.BadRequest("Role must be farmer, retailer or consumer", nil)
	}

	if _, err := uc.userRepo.GetByID(ctx, uid); err == nil {
		return nil, errors.Conflict("Profile already exists", nil)
	}

	user := &entity.User{
		ID:    uid,
		Name:  input.Name,
		Role:  input.Role,
		Email: input.Email,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}
