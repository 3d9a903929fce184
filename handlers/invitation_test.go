package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carelink/config"
	"carelink/db"
	"carelink/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	models.Init()
}

func setNotifyServer(t *testing.T, url string) {
	t.Helper()
	old := config.NOTIFY_SERVER
	config.NOTIFY_SERVER = url
	t.Cleanup(func() { config.NOTIFY_SERVER = old })
}

func seedInvitation(t *testing.T, pushToken, email string) models.Invitation {
	t.Helper()
	org := models.Organization{Name: "northside", Kind: "clinic"}
	if err := db.Instance.Create(&org).Error; err != nil {
		t.Fatalf("create org: %v", err)
	}
	staff := models.User{Name: "admin", Email: "admin@example.com", OrganizationID: &org.ID}
	if err := db.Instance.Create(&staff).Error; err != nil {
		t.Fatalf("create staff: %v", err)
	}
	var providerID *uint64
	if email == "" {
		user := models.User{Name: "Dr Chen", Email: "chen@example.com", PushToken: pushToken}
		if err := db.Instance.Create(&user).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
		provider := models.Provider{UserID: user.ID, FullName: "Dr Chen", NPI: "1234567890"}
		if err := db.Instance.Create(&provider).Error; err != nil {
			t.Fatalf("create provider: %v", err)
		}
		providerID = &provider.ID
	}
	inv, err := models.CreateInvitation(org.ID, providerID, email, "join us", staff.ID)
	if err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	return inv
}

func storedStatus(t *testing.T, id uint64) models.InvitationStatus {
	t.Helper()
	var inv models.Invitation
	if err := db.Instance.First(&inv, id).Error; err != nil {
		t.Fatalf("reload invitation: %v", err)
	}
	return inv.Status
}

// An invited e-mail with no registered account has no push recipient, but the
// token link still delivers; the invitation must stay pending so it can be
// accepted from the public page once the account exists.
func TestNotifyInvitedNoRecipient(t *testing.T) {
	setupTestDB(t)
	delivered := 0
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
	}))
	t.Cleanup(relay.Close)
	setNotifyServer(t, relay.URL)

	inv := seedInvitation(t, "", "nobody@example.com")
	notifyInvited(&inv)
	if inv.Status != models.InvitationPending {
		t.Errorf("status = %s, want %s", inv.Status, models.InvitationPending)
	}
	if got := storedStatus(t, inv.ID); got != models.InvitationPending {
		t.Errorf("stored status = %s, want %s", got, models.InvitationPending)
	}
	if delivered != 0 {
		t.Errorf("relay received %d notifications, want 0", delivered)
	}
}

func TestNotifyInvitedTransportFailure(t *testing.T) {
	setupTestDB(t)
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(relay.Close)
	setNotifyServer(t, relay.URL)

	inv := seedInvitation(t, "device-token", "")
	notifyInvited(&inv)
	if inv.Status != models.InvitationDeliveryFailed {
		t.Errorf("status = %s, want %s", inv.Status, models.InvitationDeliveryFailed)
	}
	if got := storedStatus(t, inv.ID); got != models.InvitationDeliveryFailed {
		t.Errorf("stored status = %s, want %s", got, models.InvitationDeliveryFailed)
	}
}

func TestNotifyInvitedDelivered(t *testing.T) {
	setupTestDB(t)
	delivered := 0
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
	}))
	t.Cleanup(relay.Close)
	setNotifyServer(t, relay.URL)

	inv := seedInvitation(t, "device-token", "")
	notifyInvited(&inv)
	if inv.Status != models.InvitationPending {
		t.Errorf("status = %s, want %s", inv.Status, models.InvitationPending)
	}
	if delivered != 1 {
		t.Errorf("relay received %d notifications, want 1", delivered)
	}
}
