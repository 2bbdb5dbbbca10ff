// Package account はアカウント登録・ログイン・セッション管理を提供する。
package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/contactman/internal/metrics"
	"github.com/hitoshi/contactman/internal/model"
	"github.com/hitoshi/contactman/internal/repository"
	"github.com/hitoshi/contactman/internal/validation"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// RegisterInput はサインアップフォームの入力値。
type RegisterInput struct {
	Handle          string `form:"username" validate:"max=50"`
	Password        string `form:"password" validate:"maxbytes=72"`
	ConfirmPassword string `form:"password2"`
	Email           string `form:"email" validate:"max=100"`
}

// ServiceConfig はアカウントサービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はアカウントに関するビジネスロジックを提供する。
type Service struct {
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	hasher   PasswordHasher
	config   ServiceConfig
	recorder metrics.Recorder
	now      func() time.Time
}

// NewService はServiceを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	hasher PasswordHasher,
	config ServiceConfig,
	recorder metrics.Recorder,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		config:   config,
		recorder: recorder,
		now:      time.Now,
	}
}

// Register はアカウントを登録し、新しいセッションを開始する。
// 検査順はユーザー名の重複、メールアドレスの重複、確認用パスワードの一致で、
// 最初に失敗した検査のエラーを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.Account, *model.Session, error) {
	account, session, err := s.register(ctx, input)
	s.recorder.RecordRegistration(metrics.Result(err))
	return account, session, err
}

func (s *Service) register(ctx context.Context, input RegisterInput) (*model.Account, *model.Session, error) {
	existing, err := s.accounts.FindByHandle(ctx, input.Handle)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find account by handle: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewHandleTakenError()
	}

	existing, err = s.accounts.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewEmailTakenError()
	}

	if input.Password != input.ConfirmPassword {
		return nil, nil, model.NewPasswordMismatchError()
	}

	if err := validation.Struct(input); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		Handle:       input.Handle,
		PasswordHash: hash,
		Email:        input.Email,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// 同時登録による制約違反はAppErrorのまま返る
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}

	session, err := s.createSession(ctx, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("account registered",
		slog.Int64("account_id", account.ID),
		slog.String("handle", account.Handle),
	)
	return account, session, nil
}

// Authenticate はユーザー名・パスワード・メールアドレスを検証し、新しいセッションを開始する。
// 検査順は未登録ユーザー名、パスワード不一致、メールアドレス不一致で、最初の失敗で打ち切る。
func (s *Service) Authenticate(ctx context.Context, handle, password, email string) (*model.Account, *model.Session, error) {
	account, session, err := s.authenticate(ctx, handle, password, email)
	s.recorder.RecordAuthAttempt(metrics.Result(err))
	return account, session, err
}

func (s *Service) authenticate(ctx context.Context, handle, password, email string) (*model.Account, *model.Session, error) {
	account, err := s.accounts.FindByHandle(ctx, handle)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find account by handle: %w", err)
	}
	if account == nil {
		return nil, nil, model.NewUnknownHandleError()
	}

	if !s.hasher.Compare(account.PasswordHash, password) {
		return nil, nil, model.NewBadPasswordError()
	}

	if account.Email != email {
		return nil, nil, model.NewBadEmailError()
	}

	session, err := s.createSession(ctx, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("account logged in", slog.Int64("account_id", account.ID))
	return account, session, nil
}

// EndSession はセッションを破棄する。空のIDは何もしない。
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ResolveSession はセッションに紐づくアカウントを返す。
// セッションが存在しない・期限切れ・アカウント削除済みの場合はUNAUTHORIZEDを返す。
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*model.Account, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, model.NewUnauthorizedError()
	}

	account, err := s.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewUnauthorizedError()
	}

	return account, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, accountID int64) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		AccountID: accountID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
