// Package contact はアカウントごとの連絡先管理を提供する。
package contact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/contactman/internal/metrics"
	"github.com/hitoshi/contactman/internal/model"
	"github.com/hitoshi/contactman/internal/repository"
	"github.com/hitoshi/contactman/internal/validation"
)

// 操作ラベル
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// Input は連絡先フォームの入力値。形式は検証せず、長さのみ制限する。
type Input struct {
	FullName string `form:"fullname" validate:"max=100"`
	Phone    string `form:"phone" validate:"max=100"`
	Email    string `form:"email" validate:"max=100"`
}

// ServiceConfig は連絡先サービスの設定。
type ServiceConfig struct {
	// EnforceOwnership がfalseの場合、他アカウントの連絡先も更新・削除でき、
	// 更新した連絡先の所有者は操作したアカウントに付け替えられる。
	EnforceOwnership bool
}

// Service は連絡先に関するビジネスロジックを提供する。
type Service struct {
	repo     repository.ContactRepository
	config   ServiceConfig
	recorder metrics.Recorder
}

// NewService はServiceを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewService(repo repository.ContactRepository, config ServiceConfig, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{repo: repo, config: config, recorder: recorder}
}

// Create はaccountIDが所有する連絡先を作成する。
func (s *Service) Create(ctx context.Context, accountID int64, input Input) (*model.Contact, error) {
	c, err := s.create(ctx, accountID, input)
	s.recorder.RecordContactOperation(opCreate, metrics.Result(err))
	return c, err
}

func (s *Service) create(ctx context.Context, accountID int64, input Input) (*model.Contact, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	c := &model.Contact{
		FullName:  input.FullName,
		Phone:     input.Phone,
		Email:     input.Email,
		AccountID: accountID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	slog.Info("contact created",
		slog.Int64("contact_id", c.ID),
		slog.Int64("account_id", accountID),
	)
	return c, nil
}

// Update は連絡先の全項目を上書きし、所有者をaccountIDに設定する。
func (s *Service) Update(ctx context.Context, accountID, id int64, input Input) (*model.Contact, error) {
	c, err := s.update(ctx, accountID, id, input)
	s.recorder.RecordContactOperation(opUpdate, metrics.Result(err))
	return c, err
}

func (s *Service) update(ctx context.Context, accountID, id int64, input Input) (*model.Contact, error) {
	c, err := s.load(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	previousOwner := c.AccountID
	c.FullName = input.FullName
	c.Phone = input.Phone
	c.Email = input.Email
	c.AccountID = accountID

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	if previousOwner != accountID {
		slog.Warn("contact ownership reassigned",
			slog.Int64("contact_id", c.ID),
			slog.Int64("previous_account_id", previousOwner),
			slog.Int64("account_id", accountID),
		)
	}
	return c, nil
}

// Delete は連絡先を削除する。
func (s *Service) Delete(ctx context.Context, accountID, id int64) error {
	err := s.delete(ctx, accountID, id)
	s.recorder.RecordContactOperation(opDelete, metrics.Result(err))
	return err
}

func (s *Service) delete(ctx context.Context, accountID, id int64) error {
	if _, err := s.load(ctx, accountID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	slog.Info("contact deleted",
		slog.Int64("contact_id", id),
		slog.Int64("account_id", accountID),
	)
	return nil
}

// ListForAccount はアカウントが所有する連絡先をID昇順で返す。
func (s *Service) ListForAccount(ctx context.Context, accountID int64) ([]*model.Contact, error) {
	contacts, err := s.repo.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

// Get は編集画面に表示する連絡先を返す。
func (s *Service) Get(ctx context.Context, accountID, id int64) (*model.Contact, error) {
	return s.load(ctx, accountID, id)
}

// AssertOwner は連絡先がaccountIDの所有であればnilを返す。
// 所有者が異なる（または削除済み）場合はNOT_CONTACT_OWNERを返す。
func AssertOwner(accountID int64, c *model.Contact) error {
	if c.AccountID != accountID {
		return model.NewNotContactOwnerError(c.ID)
	}
	return nil
}

// load は連絡先を取得し、所有者ポリシーが有効な場合は所有者を検査する。
func (s *Service) load(ctx context.Context, accountID, id int64) (*model.Contact, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	if c == nil {
		return nil, model.NewContactNotFoundError(id)
	}

	if s.config.EnforceOwnership {
		if err := AssertOwner(accountID, c); err != nil {
			slog.Warn("contact access denied",
				slog.Int64("contact_id", id),
				slog.Int64("account_id", accountID),
			)
			return nil, err
		}
	}
	return c, nil
}
