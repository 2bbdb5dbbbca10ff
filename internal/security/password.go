// Package security はパスワードハッシュとセッションCookieの署名を提供する。
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// PasswordHasher はbcryptによるソルト付き一方向ハッシュを提供する。
// 平文のパスワードは保持・比較しない。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher はPasswordHasherを生成する。
// costがbcryptの許容範囲外の場合はbcrypt.DefaultCostを使用する。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash はパスワードのbcryptハッシュを返す。
func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Compare はハッシュとパスワードが一致するかを返す。
// ハッシュの形式不正も不一致として扱う。
func (h *PasswordHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
