package models

import (
	"strings"
	"testing"
	"time"

	"carelink/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the global gorm handle at a fresh in-memory SQLite
// database named after the test, so the real transactions and CAS updates
// run for real.
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_foreign_keys=on"
	instance, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	old := db.Instance
	db.Instance = instance
	t.Cleanup(func() { db.Instance = old })
	Init()
}

// freezeTime pins the models clock; the returned setter moves it.
func freezeTime(t *testing.T, at time.Time) func(time.Time) {
	t.Helper()
	current := at
	old := TimeNow
	TimeNow = func() time.Time { return current }
	t.Cleanup(func() { TimeNow = old })
	return func(next time.Time) { current = next }
}

func createTestOrg(t *testing.T, name string) (Organization, User) {
	t.Helper()
	org := Organization{Name: name, Kind: "clinic"}
	if err := db.Instance.Create(&org).Error; err != nil {
		t.Fatalf("create org: %v", err)
	}
	staff := User{Name: name + " admin", Email: name + "-admin@example.com", OrganizationID: &org.ID}
	if err := db.Instance.Create(&staff).Error; err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return org, staff
}

func createTestProvider(t *testing.T, name, npi string) (Provider, User) {
	t.Helper()
	user := User{Name: name, Email: npi + "-" + name + "@example.com"}
	if err := db.Instance.Create(&user).Error; err != nil {
		t.Fatalf("create provider user: %v", err)
	}
	provider := Provider{UserID: user.ID, FullName: name, NPI: npi, Specialty: "cardiology"}
	if err := db.Instance.Create(&provider).Error; err != nil {
		t.Fatalf("create provider: %v", err)
	}
	return provider, user
}

func mustCreateInvitation(t *testing.T, org Organization, staff User, provider Provider) Invitation {
	t.Helper()
	inv, err := CreateInvitation(org.ID, &provider.ID, "", "join us", staff.ID)
	if err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	return inv
}

func mustAccept(t *testing.T, token string) (Invitation, *Connection) {
	t.Helper()
	inv, conn, err := RespondToInvitation(token, InviteActionAccept, "", 0)
	if err != nil {
		t.Fatalf("accept invitation: %v", err)
	}
	if conn == nil {
		t.Fatal("accept did not return a connection")
	}
	return inv, conn
}
