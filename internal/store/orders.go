package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shopfloor-status-backend/internal/model"
)

// CreateOrder inserts a new production order, rejecting duplicate numbers.
func (s *gormStore) CreateOrder(ctx context.Context, o *model.ProductionOrder) error {
	if o.OrderNumber == "" || o.PartNumber == "" {
		return fmt.Errorf("%w: orderNumber and partNumber are required", ErrValidation)
	}
	if o.QuantityRequired <= 0 {
		return fmt.Errorf("%w: quantityRequired must be positive", ErrValidation)
	}
	if o.Status == "" {
		o.Status = model.OrderPending
		if o.MachineID != nil {
			o.Status = model.OrderAssigned
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ProductionOrder
		err := tx.First(&existing, "order_number = ?", o.OrderNumber).Error
		if err == nil {
			return fmt.Errorf("order %s: %w", o.OrderNumber, ErrConflict)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(o).Error
	})
}

// ImportOrders bulk-inserts orders, skipping numbers that already exist in
// the ledger or repeat within the import itself.
func (s *gormStore) ImportOrders(ctx context.Context, orders []OrderImport) (*ImportResult, error) {
	var valid []OrderImport
	for _, o := range orders {
		if o.OrderNumber != "" && o.PartNumber != "" && o.Quantity > 0 {
			valid = append(valid, o)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid orders to import", ErrValidation)
	}

	result := &ImportResult{
		SkippedDuplicates:  []string{},
		DuplicatesInImport: []string{},
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		numbers := make([]string, len(valid))
		for i, o := range valid {
			numbers[i] = o.OrderNumber
		}
		var existing []model.ProductionOrder
		if err := tx.Select("order_number").Find(&existing, "order_number IN ?", numbers).Error; err != nil {
			return err
		}
		existingSet := make(map[string]bool, len(existing))
		for _, o := range existing {
			existingSet[o.OrderNumber] = true
		}

		seen := make(map[string]bool)
		var rows []model.ProductionOrder
		for _, o := range valid {
			if existingSet[o.OrderNumber] {
				result.SkippedDuplicates = append(result.SkippedDuplicates, o.OrderNumber)
				continue
			}
			if seen[o.OrderNumber] {
				result.DuplicatesInImport = append(result.DuplicatesInImport, o.OrderNumber)
				continue
			}
			seen[o.OrderNumber] = true
			rows = append(rows, model.ProductionOrder{
				OrderNumber:      o.OrderNumber,
				PartNumber:       o.PartNumber,
				QuantityRequired: o.Quantity,
				Status:           model.OrderPending,
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		result.Imported = len(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListOrders returns the ledger joined with part, machine and capability
// data, in creation order.
func (s *gormStore) ListOrders(ctx context.Context) ([]OrderRow, error) {
	var orders []model.ProductionOrder
	if err := s.db.WithContext(ctx).Order("created_at").Find(&orders).Error; err != nil {
		return nil, err
	}

	type joinRow struct {
		OrderNumber string
		PartName    *string
		MachineName *string
		CavityPlan  *int
	}
	var joins []joinRow
	err := s.db.WithContext(ctx).Model(&model.ProductionOrder{}).
		Select("production_orders.order_number, parts.part_name, machines.machine_name, machine_parts.cavity_plan").
		Joins("LEFT JOIN parts ON parts.part_number = production_orders.part_number").
		Joins("LEFT JOIN machines ON machines.machine_id = production_orders.machine_id").
		Joins("LEFT JOIN machine_parts ON machine_parts.machine_id = production_orders.machine_id AND machine_parts.part_number = production_orders.part_number").
		Scan(&joins).Error
	if err != nil {
		return nil, err
	}
	joinMap := make(map[string]joinRow, len(joins))
	for _, j := range joins {
		joinMap[j.OrderNumber] = j
	}

	rows := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		j := joinMap[o.OrderNumber]
		rows = append(rows, OrderRow{
			Order:       o,
			PartName:    j.PartName,
			MachineName: j.MachineName,
			CavityPlan:  j.CavityPlan,
		})
	}
	return rows, nil
}

// AvailableOrders lists the assignable orders (pending, assigned or running)
// grouped by part, plus the part-to-machine compatibility map used by the
// assignment picker.
func (s *gormStore) AvailableOrders(ctx context.Context) (*AvailableOrders, error) {
	var rows []AvailableOrder
	err := s.db.WithContext(ctx).Model(&model.ProductionOrder{}).
		Select("production_orders.order_number, production_orders.part_number, parts.part_name, production_orders.quantity_required, production_orders.quantity_completed, production_orders.status").
		Joins("LEFT JOIN parts ON parts.part_number = production_orders.part_number").
		Where("production_orders.status IN ?", []model.OrderStatus{model.OrderPending, model.OrderAssigned, model.OrderRunning}).
		Order("production_orders.order_number").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byPartIndex := make(map[string]int)
	var byPart []PartGroup
	for _, o := range rows {
		idx, ok := byPartIndex[o.PartNumber]
		if !ok {
			byPartIndex[o.PartNumber] = len(byPart)
			byPart = append(byPart, PartGroup{
				PartNumber:  o.PartNumber,
				PartName:    o.PartName,
				LowestOrder: o.OrderNumber,
				OrderCount:  1,
			})
			continue
		}
		byPart[idx].OrderCount++
	}

	var mappings []model.MachinePart
	if err := s.db.WithContext(ctx).Find(&mappings).Error; err != nil {
		return nil, err
	}
	compatibility := make(map[string][]int)
	for _, m := range mappings {
		compatibility[m.PartNumber] = append(compatibility[m.PartNumber], m.MachineID)
	}

	if rows == nil {
		rows = []AvailableOrder{}
	}
	if byPart == nil {
		byPart = []PartGroup{}
	}
	return &AvailableOrders{
		Orders:        rows,
		ByPart:        byPart,
		Compatibility: compatibility,
	}, nil
}

// UpdateOrder patches an order's fields.
func (s *gormStore) UpdateOrder(ctx context.Context, orderNumber string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&model.ProductionOrder{}).
		Where("order_number = ?", orderNumber).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", orderNumber, ErrNotFound)
	}
	return nil
}

// DeleteOrder removes an order and clears the config of any machine still
// pointing at it.
func (s *gormStore) DeleteOrder(ctx context.Context, orderNumber string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machines []model.Machine
		if err := tx.Find(&machines, "production_order = ?", orderNumber).Error; err != nil {
			return err
		}
		for _, m := range machines {
			if err := clearMachineConfig(tx, m.MachineID); err != nil {
				return err
			}
		}
		res := tx.Delete(&model.ProductionOrder{}, "order_number = ?", orderNumber)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s: %w", orderNumber, ErrNotFound)
		}
		return nil
	})
}
