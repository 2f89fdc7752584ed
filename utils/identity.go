package utils

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/pdcarlson/taunufiji-dot-app-sub001/models"
)

// DBIdentity answers the engine's authorization queries from the database.
// Actor ids are either a member's external chat id or "admin:<id>" for
// console admins; the engine never sees credentials.
type DBIdentity struct {
	db *gorm.DB
}

func NewDBIdentity(db *gorm.DB) *DBIdentity {
	return &DBIdentity{db: db}
}

func (p *DBIdentity) VerifyMembership(ctx context.Context, externalID string) (bool, error) {
	if strings.HasPrefix(externalID, "admin:") {
		return false, nil
	}
	var count int64
	err := p.db.WithContext(ctx).Model(&models.Member{}).
		Where("external_id = ? AND status = ?", externalID, models.MemberStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *DBIdentity) VerifyRole(ctx context.Context, actorID string, allowedRoles []string) (bool, error) {
	role := "member"
	if id, ok := strings.CutPrefix(actorID, "admin:"); ok {
		adminID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return false, nil
		}
		var count int64
		err = p.db.WithContext(ctx).Model(&models.Admin{}).
			Where("id = ? AND is_active = ?", adminID, true).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		if count == 0 {
			return false, nil
		}
		role = "admin"
	}
	for _, allowed := range allowedRoles {
		if allowed == role {
			return true, nil
		}
	}
	return false, nil
}
