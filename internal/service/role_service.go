package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RoleService struct {
	roleRepo *repository.RoleRepository
}

func NewRoleService(roleRepo *repository.RoleRepository) *RoleService {
	return &RoleService{roleRepo: roleRepo}
}

// NormalizeRoleName upper-cases the name and adds the ROLE_ prefix.
func NormalizeRoleName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "ROLE_") {
		name = "ROLE_" + name
	}
	return name
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.roleRepo.ListRoles(ctx)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list roles")
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.roleRepo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load role")
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func (s *RoleService) Create(ctx context.Context, name, description string) (*models.Role, error) {
	name = NormalizeRoleName(name)

	existing, err := s.roleRepo.GetRoleByName(ctx, name)
	if err != nil {
		return nil, apperror.Internal(err, "failed to check role")
	}
	if existing != nil {
		return nil, ErrRoleAlreadyExists
	}

	role := &models.Role{Name: name, Description: description}
	if err := s.roleRepo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRoleAlreadyExists
		}
		return nil, apperror.Internal(err, "failed to create role")
	}

	logger.Log.Info("Role created", zap.String("role", name))
	return role, nil
}

// Update renames or re-describes a role. Built-in roles keep their name.
func (s *RoleService) Update(ctx context.Context, id uint, name, description string) (*models.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		name = NormalizeRoleName(name)
		if name != role.Name {
			if models.IsBuiltinRole(role.Name) {
				return nil, ErrBuiltinRole
			}
			other, err := s.roleRepo.GetRoleByName(ctx, name)
			if err != nil {
				return nil, apperror.Internal(err, "failed to check role")
			}
			if other != nil {
				return nil, ErrRoleAlreadyExists
			}
			role.Name = name
		}
	}
	role.Description = description

	if err := s.roleRepo.UpdateRole(ctx, role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRoleAlreadyExists
		}
		return nil, apperror.Internal(err, "failed to update role")
	}
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, id uint) error {
	role, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if models.IsBuiltinRole(role.Name) {
		return ErrBuiltinRole
	}
	if err := s.roleRepo.DeleteRole(ctx, id); err != nil {
		return apperror.Internal(err, "failed to delete role")
	}
	logger.Log.Info("Role deleted", zap.String("role", role.Name))
	return nil
}
