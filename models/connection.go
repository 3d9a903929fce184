package models

import (
	"errors"
	"time"

	"carelink/db"

	"gorm.io/gorm"
)

type ConnectionStatus string

const (
	ConnectionPending   ConnectionStatus = "pending"
	ConnectionAccepted  ConnectionStatus = "accepted"
	ConnectionSuspended ConnectionStatus = "suspended"
	ConnectionRejected  ConnectionStatus = "rejected"
)

// Connection is the established organization-provider relationship. It is
// created only by a provider accepting an invitation and outlives that
// invitation: the invitation link is severed, never cascaded, when the
// invitation row goes away.
type Connection struct {
	ID             uint64 `gorm:"primaryKey"`
	CreatedAt      int64
	UpdatedAt      int64
	OrganizationID uint64       `gorm:"index:uniq_org_provider,priority:1,unique"`
	Organization   Organization `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ProviderID     uint64       `gorm:"index:uniq_org_provider,priority:2,unique"`
	Provider       Provider     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Status         ConnectionStatus `gorm:"type:varchar(20);not null;index"`
	AcceptedAt     int64            // set once on first acceptance, immutable afterwards
	InvitationID   *uint64
	Invitation     *Invitation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

// establishConnection creates the connection for a freshly accepted
// invitation, or reactivates the existing row when the pair was connected
// before (suspended or severed-then-reinvited). AcceptedAt and the
// originating invitation link are written once and never touched again.
func establishConnection(tx *gorm.DB, inv *Invitation, providerID uint64, now time.Time) (*Connection, error) {
	var conn Connection
	result := tx.Where("organization_id = ? AND provider_id = ?", inv.OrganizationID, providerID).
		First(&conn)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		conn = Connection{
			OrganizationID: inv.OrganizationID,
			ProviderID:     providerID,
			Status:         ConnectionAccepted,
			AcceptedAt:     now.Unix(),
			InvitationID:   &inv.ID,
		}
		if err := tx.Create(&conn).Error; err != nil {
			return nil, err
		}
		return &conn, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if conn.Status == ConnectionAccepted {
		return &conn, nil
	}
	if err := tx.Model(&conn).Update("status", ConnectionAccepted).Error; err != nil {
		return nil, err
	}
	conn.Status = ConnectionAccepted
	return &conn, nil
}

// connectionTransitions lists the legal (target, required-current) pairs.
var connectionTransitions = map[ConnectionStatus]ConnectionStatus{
	ConnectionSuspended: ConnectionAccepted,  // suspend
	ConnectionAccepted:  ConnectionSuspended, // reactivate
}

// UpdateConnectionStatus applies suspend/reactivate. The status change is a
// compare-and-set on the required current status; an illegal state pair
// fails with the pair named, never a silent no-op.
func UpdateConnectionStatus(id uint64, newStatus ConnectionStatus) (conn Connection, err error) {
	err = db.Instance.Transaction(func(tx *gorm.DB) error {
		result := tx.First(&conn, id)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrConnectionNotFound
		}
		if result.Error != nil {
			return result.Error
		}
		required, ok := connectionTransitions[newStatus]
		if !ok {
			return &InvalidTransitionError{Entity: "connection", From: string(conn.Status), Action: "set " + string(newStatus) + " on"}
		}
		action := "suspend"
		if newStatus == ConnectionAccepted {
			action = "reactivate"
		}
		res := tx.Model(&Connection{}).
			Where("id = ? AND status = ?", id, required).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "connection", From: string(conn.Status), Action: action}
		}
		conn.Status = newStatus
		return nil
	})
	return
}

// DeleteConnection hard-removes the relationship. There is no undo: the pair
// reconnects only through a brand-new invitation.
func DeleteConnection(id uint64) error {
	res := db.Instance.Delete(&Connection{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func ConnectionByID(id uint64) (conn Connection, err error) {
	result := db.Instance.First(&conn, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return conn, ErrConnectionNotFound
	}
	return conn, result.Error
}

func ListOrganizationConnections(orgID uint64, status *ConnectionStatus) ([]Connection, error) {
	return listConnections(db.Instance.Where("organization_id = ?", orgID), status)
}

func ListProviderConnections(providerID uint64, status *ConnectionStatus) ([]Connection, error) {
	return listConnections(db.Instance.Where("provider_id = ?", providerID), status)
}

func listConnections(query *gorm.DB, status *ConnectionStatus) ([]Connection, error) {
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	connections := []Connection{}
	err := query.Order("created_at DESC").Find(&connections).Error
	return connections, err
}
