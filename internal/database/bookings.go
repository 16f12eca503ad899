package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salonbook/internal/models"
)

func (db *DB) ListBookedSlots(ctx context.Context) ([]models.BookedSlot, error) {
	rows, err := db.QueryContext(ctx, `SELECT booking_date, booking_time FROM bookings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}
	defer rows.Close()

	slots := make([]models.BookedSlot, 0)
	for rows.Next() {
		var (
			date any
			slot models.BookedSlot
		)
		var bookingTime *string
		if err := rows.Scan(&date, &bookingTime); err != nil {
			return nil, fmt.Errorf("failed to scan booked slot: %w", err)
		}
		slot.Date = slotDate(date)
		if bookingTime != nil {
			slot.Time = *bookingTime
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booked slots: %w", err)
	}
	return slots, nil
}

// CountBookings returns the number of rows occupying the slot.
func (db *DB) CountBookings(ctx context.Context, slot models.Slot) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE booking_date = $1 AND booking_time = $2`
	var count int
	if err := db.QueryRowContext(ctx, query, slot.Date, slot.Time).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// CreateBookingWithLock checks the slot and inserts the booking in one
// transaction. Returns ErrSlotTaken when the slot is occupied.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var bookedCount int
	queryCount := `SELECT COUNT(*) FROM bookings WHERE booking_date = $1 AND booking_time = $2`
	err = tx.QueryRowContext(ctx, queryCount, booking.BookingDate, booking.BookingTime).Scan(&bookedCount)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if bookedCount > 0 {
		return ErrSlotTaken
	}

	queryInsert := `INSERT INTO bookings (
				client_name, client_phone, services, booking_date,
				booking_time, payment_method, wishes
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = tx.ExecContext(ctx, queryInsert,
		booking.ClientName,
		booking.ClientPhone,
		booking.Services,
		booking.BookingDate,
		booking.BookingTime,
		booking.PaymentMethod,
		booking.Wishes,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

// slotDate renders a scanned booking_date as YYYY-MM-DD. Drivers hand back
// time.Time for DATE columns; text values are passed through.
func slotDate(v any) *string {
	var s string
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		if d.IsZero() {
			return nil
		}
		s = d.Format(models.DateLayout)
	case []byte:
		s = normalizeDate(string(d))
	case string:
		s = normalizeDate(d)
	default:
		s = fmt.Sprint(d)
	}
	if s == "" {
		return nil
	}
	return &s
}

func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= len(models.DateLayout) {
		if _, err := time.Parse(models.DateLayout, raw[:len(models.DateLayout)]); err == nil {
			return raw[:len(models.DateLayout)]
		}
	}
	return raw
}
