package model

import (
	"errors"
	"fmt"
)

// AppError はユーザーに提示できるドメインエラーを表す。
// Messageはフラッシュメッセージとしてそのまま画面に表示される。
type AppError struct {
	Code     string // エラーコード
	Message  string // 画面表示用メッセージ
	Category string // カテゴリ: auth, validation, contact, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeHandleTaken      = "HANDLE_TAKEN"
	ErrCodeEmailTaken       = "EMAIL_TAKEN"
	ErrCodePasswordMismatch = "PASSWORD_MISMATCH"
	ErrCodeUnknownHandle    = "UNKNOWN_HANDLE"
	ErrCodeBadPassword      = "BAD_PASSWORD"
	ErrCodeBadEmail         = "BAD_EMAIL"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeContactNotFound  = "CONTACT_NOT_FOUND"
	ErrCodeNotContactOwner  = "NOT_CONTACT_OWNER"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorCode はerrに含まれるAppErrorのコードを返す。
// AppErrorを含まない場合は空文字列を返す。
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// NewHandleTakenError はユーザー名重複エラーを生成する。
func NewHandleTakenError() *AppError {
	return &AppError{
		Code:     ErrCodeHandleTaken,
		Message:  "Username already exist",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *AppError {
	return &AppError{
		Code:     ErrCodeEmailTaken,
		Message:  "Email already used",
		Category: "validation",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewPasswordMismatchError は確認用パスワード不一致エラーを生成する。
func NewPasswordMismatchError() *AppError {
	return &AppError{
		Code:     ErrCodePasswordMismatch,
		Message:  "Passwords do not match",
		Category: "validation",
		Action:   "同じパスワードを2回入力してください。",
	}
}

// NewUnknownHandleError は未登録ユーザー名エラーを生成する。
func NewUnknownHandleError() *AppError {
	return &AppError{
		Code:     ErrCodeUnknownHandle,
		Message:  "Wrong username",
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewBadPasswordError はパスワード不一致エラーを生成する。
func NewBadPasswordError() *AppError {
	return &AppError{
		Code:     ErrCodeBadPassword,
		Message:  "Wrong password",
		Category: "auth",
		Action:   "パスワードを確認してください。",
	}
}

// NewBadEmailError はメールアドレス不一致エラーを生成する。
func NewBadEmailError() *AppError {
	return &AppError{
		Code:     ErrCodeBadEmail,
		Message:  "Wrong email",
		Category: "auth",
		Action:   "登録したメールアドレスを入力してください。",
	}
}

// NewInvalidInputError は入力値の検証エラーを生成する。
func NewInvalidInputError(field string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("Input is too long: %s", field),
		Category: "validation",
		Action:   "入力値を短くしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *AppError {
	return &AppError{
		Code:     ErrCodeUnauthorized,
		Message:  "Please log in to access this page.",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewContactNotFoundError は連絡先未検出エラーを生成する。
func NewContactNotFoundError(contactID int64) *AppError {
	return &AppError{
		Code:     ErrCodeContactNotFound,
		Message:  fmt.Sprintf("Contact not found: %d", contactID),
		Category: "contact",
		Action:   "連絡先IDを確認してください。",
	}
}

// NewNotContactOwnerError は他アカウントの連絡先を操作しようとした場合のエラーを生成する。
func NewNotContactOwnerError(contactID int64) *AppError {
	return &AppError{
		Code:     ErrCodeNotContactOwner,
		Message:  fmt.Sprintf("You do not own contact %d", contactID),
		Category: "contact",
		Action:   "自分の連絡先のみ操作できます。",
	}
}

// NewInternalError は内部エラーの利用者向け表現を生成する。
// 詳細はログのみに記録し、画面には一般的なメッセージを表示する。
func NewInternalError() *AppError {
	return &AppError{
		Code:     ErrCodeInternal,
		Message:  "Something went wrong. Please try again.",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
