package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shopfloor-status-backend/internal/model"
)

// CreateProductionLog records produced quantity for a machine/order/shift.
// The order's completed counter is bumped with a store-evaluated increment,
// never a value computed in application memory, so concurrent logs for the
// same order cannot lose production.
func (s *gormStore) CreateProductionLog(ctx context.Context, in ProductionLogInput) (*model.ProductionLog, error) {
	if in.MachineID == 0 || in.OrderNumber == "" || in.ShiftID == 0 || in.ShiftDate.IsZero() {
		return nil, fmt.Errorf("%w: machineId, orderNumber, shiftId and shiftDate are required", ErrValidation)
	}
	if in.QuantityProduced < 0 || in.QuantityScrap < 0 {
		return nil, fmt.Errorf("%w: quantities must not be negative", ErrValidation)
	}
	if in.Status == "" {
		in.Status = "in_progress"
	}

	log := model.ProductionLog{
		MachineID:        in.MachineID,
		OrderNumber:      in.OrderNumber,
		ShiftID:          in.ShiftID,
		ShiftDate:        in.ShiftDate,
		QuantityProduced: in.QuantityProduced,
		QuantityScrap:    in.QuantityScrap,
		StartedAt:        in.StartedAt,
		EndedAt:          in.EndedAt,
		Status:           in.Status,
		LoggedBy:         in.LoggedBy,
		Notes:            in.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("create production log: %w", err)
		}

		if in.QuantityProduced > 0 {
			res := tx.Model(&model.ProductionOrder{}).
				Where("order_number = ?", in.OrderNumber).
				Updates(map[string]any{
					"quantity_completed": gorm.Expr("quantity_completed + ?", in.QuantityProduced),
					"status":             model.OrderRunning,
				})
			if res.Error != nil {
				return fmt.Errorf("credit order %s: %w", in.OrderNumber, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("order %s: %w", in.OrderNumber, ErrNotFound)
			}
		}

		if err := tx.Model(&model.Machine{}).
			Where("machine_id = ?", in.MachineID).
			Updates(map[string]any{
				"status":           model.StatusRunning,
				"production_order": in.OrderNumber,
			}).Error; err != nil {
			return fmt.Errorf("update machine %d: %w", in.MachineID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// UpdateProductionLog edits a log entry. Quantity changes are applied to the
// order as the delta between the new and previous value of the same row: an
// edit from 50 to 70 credits 20. An edit whose status becomes completed
// releases the machine (idle, order unlinked).
func (s *gormStore) UpdateProductionLog(ctx context.Context, id int64, updates ProductionLogUpdate) (*model.ProductionLog, error) {
	var updated model.ProductionLog
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ProductionLog
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("production log %d: %w", id, ErrNotFound)
			}
			return err
		}

		fields := map[string]any{}
		if updates.QuantityProduced != nil {
			if *updates.QuantityProduced < 0 {
				return fmt.Errorf("%w: quantityProduced must not be negative", ErrValidation)
			}
			fields["quantity_produced"] = *updates.QuantityProduced
		}
		if updates.QuantityScrap != nil {
			fields["quantity_scrap"] = *updates.QuantityScrap
		}
		if updates.StartedAt != nil {
			fields["started_at"] = *updates.StartedAt
		}
		if updates.EndedAt != nil {
			fields["ended_at"] = *updates.EndedAt
		}
		if updates.Status != nil {
			fields["status"] = *updates.Status
		}
		if updates.Notes != nil {
			fields["notes"] = *updates.Notes
		}
		if len(fields) > 0 {
			if err := tx.Model(&model.ProductionLog{}).Where("id = ?", id).Updates(fields).Error; err != nil {
				return fmt.Errorf("update production log %d: %w", id, err)
			}
		}

		if updates.QuantityProduced != nil {
			delta := *updates.QuantityProduced - existing.QuantityProduced
			if delta != 0 {
				if err := tx.Model(&model.ProductionOrder{}).
					Where("order_number = ?", existing.OrderNumber).
					Update("quantity_completed", gorm.Expr("quantity_completed + ?", delta)).Error; err != nil {
					return fmt.Errorf("reconcile order %s: %w", existing.OrderNumber, err)
				}
			}
		}

		if updates.Status != nil && *updates.Status == "completed" {
			if err := tx.Model(&model.Machine{}).
				Where("machine_id = ?", existing.MachineID).
				Updates(map[string]any{
					"status":           model.StatusIdle,
					"production_order": nil,
				}).Error; err != nil {
				return fmt.Errorf("release machine %d: %w", existing.MachineID, err)
			}
		}

		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListProductionLogs returns log entries joined with their correlated names,
// optionally filtered by machine, shift date or order.
func (s *gormStore) ListProductionLogs(ctx context.Context, f ProductionLogFilter) ([]ProductionLogRow, error) {
	q := s.db.WithContext(ctx).Model(&model.ProductionLog{}).
		Select("production_logs.*, machines.machine_name, parts.part_name, shifts.name AS shift_name, production_orders.quantity_required").
		Joins("LEFT JOIN machines ON machines.machine_id = production_logs.machine_id").
		Joins("LEFT JOIN production_orders ON production_orders.order_number = production_logs.order_number").
		Joins("LEFT JOIN parts ON parts.part_number = production_orders.part_number").
		Joins("LEFT JOIN shifts ON shifts.id = production_logs.shift_id").
		Order("production_logs.created_at")

	if f.MachineID != nil {
		q = q.Where("production_logs.machine_id = ?", *f.MachineID)
	}
	if f.ShiftDate != nil {
		dayStart := f.ShiftDate.Truncate(24 * time.Hour)
		q = q.Where("production_logs.shift_date >= ? AND production_logs.shift_date < ?", dayStart, dayStart.Add(24*time.Hour))
	}
	if f.OrderNumber != nil {
		q = q.Where("production_logs.order_number = ?", *f.OrderNumber)
	}

	type flatRow struct {
		model.ProductionLog
		MachineName      *string
		PartName         *string
		ShiftName        *string
		QuantityRequired *int
	}
	var flat []flatRow
	if err := q.Scan(&flat).Error; err != nil {
		return nil, err
	}

	rows := make([]ProductionLogRow, 0, len(flat))
	for _, r := range flat {
		rows = append(rows, ProductionLogRow{
			Log:              r.ProductionLog,
			MachineName:      r.MachineName,
			PartName:         r.PartName,
			ShiftName:        r.ShiftName,
			QuantityRequired: r.QuantityRequired,
		})
	}
	return rows, nil
}

// TodayProductionSummary aggregates produced and scrap quantities per
// machine for the given day.
func (s *gormStore) TodayProductionSummary(ctx context.Context, today time.Time) ([]ProductionSummaryRow, error) {
	dayStart := today.Truncate(24 * time.Hour)
	var rows []ProductionSummaryRow
	err := s.db.WithContext(ctx).Model(&model.ProductionLog{}).
		Select("machine_id, COALESCE(SUM(quantity_produced), 0) AS total_produced, COALESCE(SUM(quantity_scrap), 0) AS total_scrap").
		Where("shift_date >= ? AND shift_date < ?", dayStart, dayStart.Add(24*time.Hour)).
		Group("machine_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
