package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"farm_market/internal/fault"
	"farm_market/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrBadCredentials 登录失败（密码错误），与“用户不存在”区分返回。
var ErrBadCredentials = errors.New("wrong password")

// ErrEmailTaken 邮箱已注册。
var ErrEmailTaken = errors.New("email already registered")

const bcryptCost = 12

// Service 用户目录：注册 / 登录 / 按 id 查询。
// 订单核心只在建单时用 FindByID 固化买卖双方的展示字段。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type RegisterInput struct {
	Role     string
	Name     string
	Email    string
	Password string
	Contact  string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	role, err := model.ToRole(in.Role)
	if err != nil {
		return model.User{}, err
	}
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return model.User{}, errors.New("name and email are required")
	}
	if len(in.Password) < 6 {
		return model.User{}, errors.New("password must be at least 6 characters")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return model.User{}, fault.AsTransient(fmt.Errorf("db.Count: %w", err))
	}
	if count > 0 {
		return model.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	u := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Contact:      strings.TrimSpace(in.Contact),
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return model.User{}, fault.AsTransient(fmt.Errorf("db.Create: %w", err))
	}
	return u, nil
}

// Authenticate 按邮箱+密码认证，成功返回用户记录。
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fmt.Errorf("user %s: %w", email, fault.ErrNotFound)
		}
		return model.User{}, fault.AsTransient(fmt.Errorf("db.First: %w", err))
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return model.User{}, ErrBadCredentials
	}
	return u, nil
}

// FindByID 按参与方 id 查询（先做规范化，历史形态也能命中）。
func (s *Service) FindByID(ctx context.Context, id model.PartyID) (model.User, error) {
	canonical := model.CanonicalPartyID(id.String())

	var u model.User
	err := s.db.WithContext(ctx).Where("id = ?", canonical.String()).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fmt.Errorf("user %s: %w", canonical, fault.ErrNotFound)
		}
		return model.User{}, fault.AsTransient(fmt.Errorf("db.First: %w", err))
	}
	return u, nil
}
