package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func TestUserLogin(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	if _, err := UserCreate("Alex", "alex@example.com", "hunter22", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := UserLogin("alex@example.com", "hunter22", ""); err != nil {
		t.Errorf("login with correct password: %v", err)
	}
	if _, err := UserLogin("alex@example.com", "wrong", ""); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("wrong password error = %v, want ErrLoginFailed", err)
	}
	if _, err := UserLogin("nobody@example.com", "hunter22", ""); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("unknown e-mail error = %v, want ErrLoginFailed", err)
	}
}

func TestUserLoginTotp(t *testing.T) {
	setupTestDB(t)
	freezeTime(t, testEpoch)
	user, err := UserCreate("Alex", "alex@example.com", "hunter22", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	url, err := user.EnableTotp()
	if err != nil {
		t.Fatalf("enable totp: %v", err)
	}
	if !strings.Contains(url, "otpauth://") {
		t.Errorf("enrollment url = %q", url)
	}

	if _, err := UserLogin("alex@example.com", "hunter22", ""); !errors.Is(err, ErrTotpRequired) {
		t.Errorf("missing code error = %v, want ErrTotpRequired", err)
	}
	if _, err := UserLogin("alex@example.com", "hunter22", "000000"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("bad code error = %v, want ErrLoginFailed", err)
	}
	code, err := totp.GenerateCodeCustom(user.TotpSecret, TimeNow(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if _, err := UserLogin("alex@example.com", "hunter22", code); err != nil {
		t.Errorf("login with valid code: %v", err)
	}
}

func TestUserPermissions(t *testing.T) {
	user := User{
		Grants: []Grant{
			{Permission: PermissionAdmin},
			{Permission: PermissionManageNetwork},
		},
	}
	if !user.HasPermission(PermissionAdmin) {
		t.Error("admin grant not recognised")
	}
	if user.HasPermission(PermissionProviderAccount) {
		t.Error("provider grant reported without being held")
	}
	if !user.HasPermissions([]Permission{PermissionAdmin, PermissionManageNetwork}) {
		t.Error("combined grants not recognised")
	}
	if user.HasPermissions([]Permission{PermissionAdmin, PermissionProviderAccount}) {
		t.Error("missing grant passed the combined check")
	}
}
