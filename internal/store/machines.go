package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shopfloor-status-backend/internal/model"
)

// statusWriter identifies which source produced a status write. The input
// mode decides which writer owns the status field: the device in auto mode,
// the operator in manual mode. The losing writer's status is retained, its
// telemetry still applies.
type statusWriter int

const (
	writerDevice statusWriter = iota
	writerOperator
)

func statusOwnedBy(w statusWriter, mode model.InputMode) bool {
	if mode == model.InputModeManual {
		return w == writerOperator
	}
	return w == writerDevice
}

// ApplyHeartbeat upserts the registry row for a device heartbeat and appends
// a status log entry. Heartbeats are last-write-wins sequenced by the
// authoritative receipt timestamp: the update is guarded by a store-evaluated
// condition on last_seen so an older heartbeat delivered late is never
// applied over a newer one. Input mode is never touched by this path; on a
// manual-mode machine the heartbeat updates telemetry (lamps, counter,
// last_seen) but the operator-set status stands.
func (s *gormStore) ApplyHeartbeat(ctx context.Context, hb Heartbeat, receivedAt time.Time) (*HeartbeatResult, error) {
	if !model.ValidStatus(hb.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, hb.Status)
	}

	result := &HeartbeatResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Machine
		err := tx.First(&m, "machine_id = ?", hb.MachineID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First contact: the device implicitly registers the machine.
			m = model.Machine{
				MachineID:     hb.MachineID,
				MachineName:   hb.MachineName,
				Status:        hb.Status,
				Green:         hb.Green,
				Red:           hb.Red,
				CycleCount:    hb.CycleCount,
				PartsPerCycle: 1,
				LastSeen:      &receivedAt,
			}
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("create machine %d: %w", hb.MachineID, err)
			}
			result.FaultTransition = hb.Status == model.StatusFault
		case err != nil:
			return err
		default:
			if m.LastSeen != nil && m.LastSeen.After(receivedAt) {
				return ErrStaleHeartbeat
			}
			status := hb.Status
			if !statusOwnedBy(writerDevice, m.InputMode) {
				status = m.Status
			}
			res := tx.Model(&model.Machine{}).
				Where("machine_id = ?", hb.MachineID).
				Where("last_seen IS NULL OR last_seen <= ?", receivedAt).
				Updates(map[string]any{
					"machine_name": hb.MachineName,
					"status":       status,
					"green":        hb.Green,
					"red":          hb.Red,
					"cycle_count":  hb.CycleCount,
					"last_seen":    receivedAt,
				})
			if res.Error != nil {
				return fmt.Errorf("update machine %d: %w", hb.MachineID, res.Error)
			}
			if res.RowsAffected == 0 {
				// A newer heartbeat committed between our read and write.
				return ErrStaleHeartbeat
			}
			result.FaultTransition = m.Status != model.StatusFault && status == model.StatusFault
			// A lower counter than stored starts a new production-run
			// context; the new value is accepted, not treated as an error.
			result.CycleReset = hb.CycleCount < m.CycleCount
			m.MachineName = hb.MachineName
			m.Status = status
			m.Green = hb.Green
			m.Red = hb.Red
			m.CycleCount = hb.CycleCount
			m.LastSeen = &receivedAt
		}

		log := model.StatusLog{
			MachineID:  hb.MachineID,
			Status:     m.Status,
			CycleCount: hb.CycleCount,
			Timestamp:  receivedAt,
		}
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("append status log for machine %d: %w", hb.MachineID, err)
		}
		result.Machine = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetManualStatus applies an operator status command. The machine must be in
// manual mode; otherwise the command is rejected with ErrPolicy and nothing
// is written.
func (s *gormStore) SetManualStatus(ctx context.Context, machineID int, cmd ManualStatus, now time.Time) (*HeartbeatResult, error) {
	if !model.ValidStatus(cmd.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, cmd.Status)
	}
	if cmd.UpdatedBy == "" {
		return nil, fmt.Errorf("%w: updatedBy is required", ErrValidation)
	}

	result := &HeartbeatResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Machine
		if err := tx.First(&m, "machine_id = ?", machineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("machine %d: %w", machineID, ErrNotFound)
			}
			return err
		}
		if !statusOwnedBy(writerOperator, m.InputMode) {
			return fmt.Errorf("%w: machine is in auto mode, change to manual mode first", ErrPolicy)
		}

		cycleCount := m.CycleCount
		if cmd.CycleCount != nil {
			cycleCount = *cmd.CycleCount
		}
		if err := tx.Model(&model.Machine{}).
			Where("machine_id = ?", machineID).
			Updates(map[string]any{
				"status":            cmd.Status,
				"status_updated_by": cmd.UpdatedBy,
				"cycle_count":       cycleCount,
				"last_seen":         now,
			}).Error; err != nil {
			return fmt.Errorf("update machine %d: %w", machineID, err)
		}

		log := model.StatusLog{
			MachineID:  machineID,
			Status:     cmd.Status,
			CycleCount: cycleCount,
			Timestamp:  now,
		}
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("append status log for machine %d: %w", machineID, err)
		}

		result.FaultTransition = m.Status != model.StatusFault && cmd.Status == model.StatusFault
		m.Status = cmd.Status
		m.StatusUpdatedBy = &cmd.UpdatedBy
		m.CycleCount = cycleCount
		m.LastSeen = &now
		result.Machine = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetInputMode toggles a machine between auto and manual input. The status
// itself is left untouched.
func (s *gormStore) SetInputMode(ctx context.Context, machineID int, mode model.InputMode) error {
	if mode != model.InputModeAuto && mode != model.InputModeManual {
		return fmt.Errorf("%w: unknown input mode %q", ErrValidation, mode)
	}
	res := s.db.WithContext(ctx).Model(&model.Machine{}).
		Where("machine_id = ?", machineID).
		Update("input_mode", mode)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("machine %d: %w", machineID, ErrNotFound)
	}
	return nil
}

// AssignOrder sets or clears a machine's production-order assignment in a
// single transaction: the machine config and the order link always change
// together. Auto-fill resolves the order's part and the optional
// machine-part capability row; a missing capability row only weakens the
// defaults (nil cycle time, one cavity), it does not block assignment.
// Clearing the assignment reverts the linked active order to pending.
func (s *gormStore) AssignOrder(ctx context.Context, machineID int, orderNumber *string) (*AssignmentResult, error) {
	var applied AssignmentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Machine
		if err := tx.First(&m, "machine_id = ?", machineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("machine %d: %w", machineID, ErrNotFound)
			}
			return err
		}

		if orderNumber == nil || *orderNumber == "" {
			if m.ProductionOrder != nil {
				if err := releaseOrder(tx, *m.ProductionOrder); err != nil {
					return err
				}
			}
			if err := clearMachineConfig(tx, machineID); err != nil {
				return err
			}
			applied = AssignmentResult{PartsPerCycle: 1}
			return nil
		}

		var order model.ProductionOrder
		if err := tx.First(&order, "order_number = ?", *orderNumber).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %s: %w", *orderNumber, ErrNotFound)
			}
			return err
		}
		if !order.Status.Active() {
			return fmt.Errorf("%w: order %s is %s", ErrPolicy, order.OrderNumber, order.Status)
		}

		var partName *string
		var part model.Part
		if err := tx.First(&part, "part_number = ?", order.PartNumber).Error; err == nil {
			partName = &part.PartName
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Capability row is a hint, not a gate.
		var targetCycleTime *float64
		partsPerCycle := 1
		var capability model.MachinePart
		err := tx.First(&capability, "machine_id = ? AND part_number = ?", machineID, order.PartNumber).Error
		if err == nil {
			targetCycleTime = capability.TargetCycleTime
			if capability.CavityPlan > 0 {
				partsPerCycle = capability.CavityPlan
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// One active order per machine: release the previous one.
		if m.ProductionOrder != nil && *m.ProductionOrder != order.OrderNumber {
			if err := releaseOrder(tx, *m.ProductionOrder); err != nil {
				return err
			}
		}
		// One machine per order: detach the order's previous machine.
		if order.MachineID != nil && *order.MachineID != machineID {
			if err := clearMachineConfig(tx, *order.MachineID); err != nil {
				return err
			}
		}

		if err := tx.Model(&model.Machine{}).
			Where("machine_id = ?", machineID).
			Updates(map[string]any{
				"production_order":  order.OrderNumber,
				"part_number":       order.PartNumber,
				"part_name":         partName,
				"target_cycle_time": targetCycleTime,
				"parts_per_cycle":   partsPerCycle,
			}).Error; err != nil {
			return fmt.Errorf("configure machine %d: %w", machineID, err)
		}
		if err := tx.Model(&model.ProductionOrder{}).
			Where("order_number = ?", order.OrderNumber).
			Updates(map[string]any{
				"machine_id": machineID,
				"status":     model.OrderAssigned,
			}).Error; err != nil {
			return fmt.Errorf("link order %s: %w", order.OrderNumber, err)
		}

		num := order.OrderNumber
		partNum := order.PartNumber
		applied = AssignmentResult{
			ProductionOrder: &num,
			PartNumber:      &partNum,
			PartName:        partName,
			TargetCycleTime: targetCycleTime,
			PartsPerCycle:   partsPerCycle,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &applied, nil
}

// releaseOrder reverts a still-active order to pending and detaches it from
// its machine.
func releaseOrder(tx *gorm.DB, orderNumber string) error {
	err := tx.Model(&model.ProductionOrder{}).
		Where("order_number = ? AND status IN ?", orderNumber,
			[]model.OrderStatus{model.OrderAssigned, model.OrderRunning}).
		Updates(map[string]any{
			"machine_id": nil,
			"status":     model.OrderPending,
		}).Error
	if err != nil {
		return fmt.Errorf("release order %s: %w", orderNumber, err)
	}
	return nil
}

// clearMachineConfig nulls out a machine's assignment fields.
func clearMachineConfig(tx *gorm.DB, machineID int) error {
	err := tx.Model(&model.Machine{}).
		Where("machine_id = ?", machineID).
		Updates(map[string]any{
			"production_order":  nil,
			"part_number":       nil,
			"part_name":         nil,
			"target_cycle_time": nil,
			"parts_per_cycle":   1,
		}).Error
	if err != nil {
		return fmt.Errorf("clear machine %d config: %w", machineID, err)
	}
	return nil
}

// GetMachine fetches a single registry row.
func (s *gormStore) GetMachine(ctx context.Context, machineID int) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, "machine_id = ?", machineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("machine %d: %w", machineID, ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

// ListMachines returns all machines joined with their assigned order's
// quantities, ordered by machine id.
func (s *gormStore) ListMachines(ctx context.Context) ([]MachineRow, error) {
	var rows []MachineRow
	err := s.db.WithContext(ctx).Model(&model.Machine{}).
		Select("machines.*, production_orders.quantity_required AS quantity_required, production_orders.quantity_completed AS quantity_completed").
		Joins("LEFT JOIN production_orders ON production_orders.order_number = machines.production_order").
		Order("machines.machine_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateMachine inserts an admin-created machine.
func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	if m.PartsPerCycle <= 0 {
		m.PartsPerCycle = 1
	}
	if m.Status == "" {
		m.Status = model.StatusOffline
	}
	if m.InputMode == "" {
		m.InputMode = model.InputModeAuto
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// UpdateMachine patches the static/config fields of a machine. Runtime
// fields stay owned by the ingestion paths and are not accepted here.
func (s *gormStore) UpdateMachine(ctx context.Context, machineID int, updates map[string]any) (*model.Machine, error) {
	var m model.Machine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, "machine_id = ?", machineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("machine %d: %w", machineID, ErrNotFound)
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&m).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&m, "machine_id = ?", machineID).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMachine removes a machine with its status log and capability rows.
// Returns the deleted machine's name.
func (s *gormStore) DeleteMachine(ctx context.Context, machineID int) (string, error) {
	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.Machine
		if err := tx.First(&m, "machine_id = ?", machineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("machine %d: %w", machineID, ErrNotFound)
			}
			return err
		}
		name = m.MachineName

		if err := tx.Where("machine_id = ?", machineID).Delete(&model.StatusLog{}).Error; err != nil {
			return fmt.Errorf("delete status logs for machine %d: %w", machineID, err)
		}
		if err := tx.Where("machine_id = ?", machineID).Delete(&model.MachinePart{}).Error; err != nil {
			return fmt.Errorf("delete capabilities for machine %d: %w", machineID, err)
		}
		if err := tx.Delete(&model.Machine{}, "machine_id = ?", machineID).Error; err != nil {
			return fmt.Errorf("delete machine %d: %w", machineID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}
