package auth

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// サインアップ時のエラーメッセージ
const (
	msgInvalidUserName  = "Invalid user name."
	msgInvalidFirstName = "Invalid first name."
	msgInvalidLastName  = "Invalid last name."
	msgInvalidPassword  = "Password must be 8 to 18 characters including numbers, lowercase and uppercase letters."
	msgPasswordMismatch = "Password must match"
	msgInvalidEmail     = "Invalid email address"
)

// 空白以外の文字。\S は ASCII の空白しか除かないため、Unicode の空白 (U+00A0 など) も明示的に除く。
const emailChar = `[^\s\v\p{Z}\x{FEFF}]`

var emailPattern = regexp.MustCompile(`^` + emailChar + `+@` + emailChar + `+\.` + emailChar + `+$`)

// SignupForm はサインアップフォームの入力値です。
type SignupForm struct {
	UserName  string `form:"userName"`
	FirstName string `form:"firstName"`
	LastName  string `form:"lastName"`
	Password  string `form:"password"`
	Verify    string `form:"verify"`
	Email     string `form:"email"`
}

// FieldError は最初に失敗した検証ルールの結果です。Field はテンプレートのキー名です。
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

type signupRule struct {
	field   string
	message string
	check   func(v *validator.Validate, f SignupForm) error
}

// SignupValidator はサインアップ入力の形式を検証します。
// ルールは定義順に評価し、最初に失敗したものだけを返します。
type SignupValidator struct {
	v     *validator.Validate
	rules []signupRule
}

// NewSignupValidator は SignupValidator を作成します。
// strongPasswords が true の場合のみ、8文字以上かつ数字・小文字・大文字を含むことを要求します。
func NewSignupValidator(strongPasswords bool) *SignupValidator {
	v := validator.New()
	// 改行を含まない1行の文字列
	v.RegisterAlias("singleline", "excludesall=\r\n\u2028\u2029")
	v.RegisterAlias("strongpwd", "min=8,excludesall=\r\n\u2028\u2029,containsany=0123456789,containsany=abcdefghijklmnopqrstuvwxyz,containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	_ = v.RegisterValidation("signupemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})

	passwordTag := "min=1,max=20,singleline"
	if strongPasswords {
		passwordTag = "strongpwd"
	}

	return &SignupValidator{
		v: v,
		rules: []signupRule{
			{field: "userNameError", message: msgInvalidUserName, check: varRule(func(f SignupForm) string { return f.UserName }, "min=1,max=20,singleline")},
			{field: "firstNameError", message: msgInvalidFirstName, check: varRule(func(f SignupForm) string { return f.FirstName }, "min=1,max=100,singleline")},
			{field: "lastNameError", message: msgInvalidLastName, check: varRule(func(f SignupForm) string { return f.LastName }, "min=1,max=100,singleline")},
			{field: "passwordError", message: msgInvalidPassword, check: varRule(func(f SignupForm) string { return f.Password }, passwordTag)},
			{field: "verifyError", message: msgPasswordMismatch, check: func(v *validator.Validate, f SignupForm) error {
				return v.VarWithValue(f.Verify, f.Password, "eqfield")
			}},
			{field: "emailError", message: msgInvalidEmail, check: varRule(func(f SignupForm) string { return f.Email }, "omitempty,signupemail")},
		},
	}
}

func varRule(value func(SignupForm) string, tag string) func(*validator.Validate, SignupForm) error {
	return func(v *validator.Validate, f SignupForm) error {
		return v.Var(value(f), tag)
	}
}

// Validate は入力を検証し、最初に失敗したルールの FieldError を返します。問題が無ければ nil です。
func (s *SignupValidator) Validate(f SignupForm) *FieldError {
	for _, r := range s.rules {
		if err := r.check(s.v, f); err != nil {
			return &FieldError{Field: r.field, Message: r.message}
		}
	}
	return nil
}
