package manager

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// SeedOptions configures the optional bootstrap administrator.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

var defaultBaggageTypes = []map[string]interface{}{
	{"type_name": "HAND", "max_weight_kg": "10.00", "base_price": "0.00", "description": "Cabin hand luggage"},
	{"type_name": "STANDARD", "max_weight_kg": "23.00", "base_price": "0.00", "description": "Checked bag included in the fare"},
	{"type_name": "EXTRA", "max_weight_kg": "23.00", "base_price": "2500.00", "description": "Additional checked bag"},
	{"type_name": "SPORT", "max_weight_kg": "32.00", "base_price": "3500.00", "description": "Sports equipment"},
	{"type_name": "OVERSIZE", "max_weight_kg": "32.00", "base_price": "5000.00", "description": "Oversized items"},
}

// Seed inserts the airline lookup rows and, when a password is configured,
// an ADMIN account. Existing rows are left untouched.
func (m *Manager) Seed(ctx context.Context, reg *schema.Registry, opts SeedOptions) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roles := reg.MustLookup(schema.KindRole)
		for _, name := range []string{v1alpha1.RoleAdmin, v1alpha1.RoleManager, v1alpha1.RoleUser} {
			if err := insertIgnore(tx, roles.Table, map[string]interface{}{"role_name": name}); err != nil {
				return err
			}
		}

		classes := reg.MustLookup(schema.KindClass)
		for _, name := range schema.ClassNames {
			if err := insertIgnore(tx, classes.Table, map[string]interface{}{"class_name": name}); err != nil {
				return err
			}
		}

		baggageTypes := reg.MustLookup(schema.KindBaggageType)
		for _, row := range defaultBaggageTypes {
			if err := insertIgnore(tx, baggageTypes.Table, row); err != nil {
				return err
			}
		}

		if opts.AdminPassword == "" {
			m.logger.Info("no admin password configured, skipping admin account")
			return nil
		}
		return m.seedAdmin(tx, reg, opts)
	})
}

func (m *Manager) seedAdmin(tx *gorm.DB, reg *schema.Registry, opts SeedOptions) error {
	roles := reg.MustLookup(schema.KindRole)
	accounts := reg.MustLookup(schema.KindAccount)

	var roleID int64
	err := tx.Table(roles.Table).
		Select(roles.PrimaryKey).
		Where("role_name = ?", v1alpha1.RoleAdmin).
		Row().Scan(&roleID)
	if err != nil {
		return fmt.Errorf("resolve admin role: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := insertIgnore(tx, accounts.Table, map[string]interface{}{
		"email":      opts.AdminEmail,
		"password":   string(hash),
		"role_id":    roleID,
		"created_at": time.Now().UTC(),
	}); err != nil {
		return err
	}
	m.logger.Info("admin account ensured", zap.String("email", opts.AdminEmail))
	return nil
}

// insertIgnore inserts a copy of row, since gorm writes the generated key
// back into the map it is given.
func insertIgnore(tx *gorm.DB, table string, row map[string]interface{}) error {
	values := make(map[string]interface{}, len(row))
	for k, v := range row {
		values[k] = v
	}
	if err := tx.Table(table).Clauses(clause.OnConflict{DoNothing: true}).Create(values).Error; err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	return nil
}
