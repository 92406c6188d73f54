package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopfloor-status-backend/internal/model"
)

// ListParts returns the catalog with each part's qualified machines.
func (s *gormStore) ListParts(ctx context.Context) ([]PartRow, error) {
	var parts []model.Part
	if err := s.db.WithContext(ctx).Order("part_number").Find(&parts).Error; err != nil {
		return nil, err
	}

	type mappingRow struct {
		PartNumber  string
		MachineID   int
		MachineName string
	}
	var mappings []mappingRow
	err := s.db.WithContext(ctx).Model(&model.MachinePart{}).
		Select("machine_parts.part_number, machine_parts.machine_id, machines.machine_name").
		Joins("LEFT JOIN machines ON machines.machine_id = machine_parts.machine_id").
		Scan(&mappings).Error
	if err != nil {
		return nil, err
	}

	names := make(map[string][]string)
	ids := make(map[string][]int)
	for _, m := range mappings {
		if m.MachineName != "" {
			names[m.PartNumber] = append(names[m.PartNumber], m.MachineName)
		}
		ids[m.PartNumber] = append(ids[m.PartNumber], m.MachineID)
	}

	rows := make([]PartRow, 0, len(parts))
	for _, p := range parts {
		ns := names[p.PartNumber]
		sort.Strings(ns)
		ms := ids[p.PartNumber]
		sort.Ints(ms)
		if ns == nil {
			ns = []string{}
		}
		if ms == nil {
			ms = []int{}
		}
		rows = append(rows, PartRow{Part: p, CompatibleMachines: ns, MachineIDs: ms})
	}
	return rows, nil
}

// GetPart fetches a part with its capability rows.
func (s *gormStore) GetPart(ctx context.Context, partNumber string) (*PartDetail, error) {
	var p model.Part
	if err := s.db.WithContext(ctx).First(&p, "part_number = ?", partNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("part %s: %w", partNumber, ErrNotFound)
		}
		return nil, err
	}
	var capabilities []model.MachinePart
	if err := s.db.WithContext(ctx).Find(&capabilities, "part_number = ?", partNumber).Error; err != nil {
		return nil, err
	}
	return &PartDetail{Part: p, Machines: capabilities}, nil
}

// CreatePart inserts a part and bulk-inserts its capability rows in one
// transaction.
func (s *gormStore) CreatePart(ctx context.Context, p *model.Part, machineIDs []int) error {
	if p.PartNumber == "" || p.PartName == "" {
		return fmt.Errorf("%w: partNumber and partName are required", ErrValidation)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error; err != nil {
			return fmt.Errorf("create part %s: %w", p.PartNumber, err)
		}
		if len(machineIDs) == 0 {
			return nil
		}
		rows := make([]model.MachinePart, 0, len(machineIDs))
		for _, id := range machineIDs {
			rows = append(rows, model.MachinePart{
				MachineID:  id,
				PartNumber: p.PartNumber,
				CavityPlan: 1,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("create capabilities for part %s: %w", p.PartNumber, err)
		}
		return nil
	})
}

// UpdatePart patches a part and, when machineIDs is non-nil, replaces its
// capability set.
func (s *gormStore) UpdatePart(ctx context.Context, partNumber string, updates map[string]any, machineIDs []int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Part
		if err := tx.First(&p, "part_number = ?", partNumber).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("part %s: %w", partNumber, ErrNotFound)
			}
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.Part{}).Where("part_number = ?", partNumber).Updates(updates).Error; err != nil {
				return err
			}
		}
		if machineIDs != nil {
			if err := tx.Where("part_number = ?", partNumber).Delete(&model.MachinePart{}).Error; err != nil {
				return err
			}
			if len(machineIDs) > 0 {
				rows := make([]model.MachinePart, 0, len(machineIDs))
				for _, id := range machineIDs {
					rows = append(rows, model.MachinePart{
						MachineID:  id,
						PartNumber: partNumber,
						CavityPlan: 1,
					})
				}
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// DeletePart removes a part and its capability rows.
func (s *gormStore) DeletePart(ctx context.Context, partNumber string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("part_number = ?", partNumber).Delete(&model.MachinePart{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Part{}, "part_number = ?", partNumber)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("part %s: %w", partNumber, ErrNotFound)
		}
		return nil
	})
}
