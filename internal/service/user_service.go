package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casinha-go/internal/model"
	"casinha-go/internal/repository"
	"casinha-go/pkg/hash"
	"casinha-go/pkg/log"
	"casinha-go/pkg/token"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// RegisterRequest 是注册接口的输入。
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Area     string `json:"area"`
}

// LoginResponse 携带一对 token 与用户概要。
type LoginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

// ProfileUpdate 是个人资料更新的输入，空字段不变更。
type ProfileUpdate struct {
	Name string `json:"name"`
	Area string `json:"area"`
}

// UserService 接口定义了用户认证与资料相关的业务操作。
type UserService interface {
	// Register 创建 PENDING 状态的用户并登记注册申请，等待董事审核。
	Register(req RegisterRequest) (*model.User, error)
	// Login 校验凭据并签发 token；仅 ACTIVE 用户可登录。
	Login(email, password string) (*LoginResponse, error)
	// Logout 将 token 加入 Redis 黑名单直到其自然过期。
	Logout(ctx context.Context, tokenString string) error
	// RefreshToken 用有效的 refresh token 换取新的 access token。
	RefreshToken(refreshToken string) (string, error)
	GetProfile(userID uint) (*model.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error)
}

type userService struct {
	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	jwtManager  *token.JWTManager
	rdb         *redis.Client
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	jwtManager *token.JWTManager,
	rdb *redis.Client,
) UserService {
	return &userService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		jwtManager:  jwtManager,
		rdb:         rdb,
	}
}

// Register 创建新用户并登记注册申请。
// 用户落库即为 PENDING，审核通过前 Login 会拒绝。
func (s *userService) Register(req RegisterRequest) (*model.User, error) {
	if _, err := s.userRepo.FindByEmail(req.Email); err == nil {
		return nil, fmt.Errorf("%w: 邮箱已被注册", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Email:    req.Email,
		Password: hashed,
		Name:     req.Name,
		Area:     req.Area,
		Role:     model.RoleMember,
		Status:   model.UserStatusPending,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	regReq := &model.RegistrationRequest{
		UserID: user.ID,
		Status: model.RequestStatusPending,
	}
	if err := s.requestRepo.CreateRegistration(regReq); err != nil {
		return nil, err
	}

	log.Infof("[UserService] 新用户 %s 注册成功，等待审核", user.Email)
	return user, nil
}

// Login 校验邮箱密码，仅放行 ACTIVE 用户。
// 未审核与已退出返回 Forbidden，凭据错误统一返回 Validation 避免枚举邮箱。
func (s *userService) Login(email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 邮箱或密码错误", ErrValidation)
		}
		return nil, err
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, fmt.Errorf("%w: 邮箱或密码错误", ErrValidation)
	}
	switch user.Status {
	case model.UserStatusPending:
		return nil, fmt.Errorf("%w: 账号待审核", ErrForbidden)
	case model.UserStatusExMember:
		return nil, fmt.Errorf("%w: 账号已停用", ErrForbidden)
	}

	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("生成 token 失败: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("生成 refresh token 失败: %w", err)
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Logout 将 token 写入黑名单，TTL 与 token 剩余有效期一致。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		// 已过期或非法的 token 无需拉黑
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, "blacklist:"+tokenString, "1", ttl).Err()
}

// RefreshToken 校验 refresh token 并签发新的 access token。
func (s *userService) RefreshToken(refreshToken string) (string, error) {
	claims, err := s.jwtManager.VerifyToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: refresh token 无效", ErrForbidden)
	}
	// 重新核对用户状态，退出的成员不能续签
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("%w: 用户不存在", ErrNotFound)
	}
	if user.Status != model.UserStatusActive {
		return "", fmt.Errorf("%w: 账号不可用", ErrForbidden)
	}
	return s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
}

// GetProfile 返回用户资料。
func (s *userService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 用户不存在", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile 更新用户可自助修改的字段。
func (s *userService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if update.Name != "" {
		user.Name = update.Name
	}
	if update.Area != "" {
		user.Area = update.Area
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}
