package users

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt は 72 バイトを超える入力を受け付けないため、
// SHA-256 で固定長 (base64 で 44 バイト) にしてから渡す。
func prehash(plain string) []byte {
	sum := sha256.Sum256([]byte(plain))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// HashPassword は平文パスワードを bcrypt でハッシュ化します。
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prehash(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword はハッシュと平文パスワードが一致するかを返します。
func CheckPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), prehash(plain)) == nil
}
