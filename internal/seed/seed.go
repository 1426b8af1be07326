package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultCostCenterCode = "GENERAL"
	defaultCostCenterName = "General"
	defaultRuleName       = "Fallback to General"
)

// EnsureDefaults seeds the baseline cost center and a wildcard fallback
// rule so freshly created lines always have somewhere to land. Safe to run
// on every startup.
func EnsureDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		costCenter, err := ensureGeneralCostCenter(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureFallbackRule(ctx, tx, node, costCenter.ID)
	})
}

func ensureGeneralCostCenter(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*costcenterdomain.CostCenter, error) {
	var costCenter costcenterdomain.CostCenter
	err := tx.WithContext(ctx).
		Where("code = ?", defaultCostCenterCode).
		Limit(1).
		Find(&costCenter).Error
	if err != nil {
		return nil, err
	}
	if costCenter.ID != 0 {
		return &costCenter, nil
	}

	now := time.Now().UTC()
	costCenter = costcenterdomain.CostCenter{
		ID:        node.Generate(),
		Code:      defaultCostCenterCode,
		Name:      defaultCostCenterName,
		Active:    true,
		Metadata:  datatypes.JSONMap{"seeded": true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&costCenter).Error; err != nil {
		return nil, err
	}
	return &costCenter, nil
}

func ensureFallbackRule(ctx context.Context, tx *gorm.DB, node *snowflake.Node, costCenterID snowflake.ID) error {
	var rule ruledomain.AssignmentRule
	err := tx.WithContext(ctx).
		Where("name = ?", defaultRuleName).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return err
	}
	if rule.ID != 0 {
		return nil
	}

	now := time.Now().UTC()
	// No matchers set: qualifies for every line, at the lowest priority.
	rule = ruledomain.AssignmentRule{
		ID:           node.Generate(),
		Name:         defaultRuleName,
		CostCenterID: costCenterID,
		Priority:     0,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.WithContext(ctx).Create(&rule).Error
}
