// Package export builds spreadsheet reports of bookings and payments.
package export

import (
	"fmt"
	"io"
	"time"

	"parkdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	PaymentsSheet = "Payments"
	BookingsSheet = "Bookings"

	timeLayout = "2006-01-02 15:04"
)

var (
	paymentHeaders = []any{"Payment ID", "Booking", "Due", "Paid", "Balance", "Status", "Paid by", "Paid at"}
	bookingHeaders = []any{"Booking ID", "Reference", "Customer", "Vehicle", "Slot", "Status", "Duration", "Hours", "Amount", "Paid", "Booked at"}
)

// WritePaymentsReport пишет книгу XLSX с листами Payments и Bookings в w.
// Суммы выводятся в денежных единицах, а не в центах.
func WritePaymentsReport(w io.Writer, bookings []*models.Booking, payments []*models.Payment) error {
	f := excelize.NewFile()
	defer f.Close()

	refs := make(map[int64]string, len(bookings))
	for _, b := range bookings {
		refs[b.ID] = b.Reference
	}

	index, err := f.NewSheet(PaymentsSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(BookingsSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	// Удаляем стандартный лист
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("error deleting default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	if err := writeRows(f, PaymentsSheet, paymentHeaders, headerStyle, len(payments), func(i int) []any {
		p := payments[i]
		ref := refs[p.BookingID]
		if ref == "" {
			ref = fmt.Sprintf("#%d", p.BookingID)
		}
		return []any{
			p.ID, ref,
			p.DueAmount.Dollars(), p.PaidAmount.Dollars(), p.Balance().Dollars(),
			p.Status.String(), p.PaidBy, formatTime(p.PaymentDate),
		}
	}); err != nil {
		return err
	}

	if err := writeRows(f, BookingsSheet, bookingHeaders, headerStyle, len(bookings), func(i int) []any {
		b := bookings[i]
		return []any{
			b.ID, b.Reference, b.CustomerID, b.VehicleID, b.SlotID,
			b.Status.String(), b.Duration, b.TotalHours, b.TotalAmount.Dollars(),
			b.IsPaid, b.BookingTime.Format(timeLayout),
		}
	}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, headers []any, headerStyle, n int, row func(int) []any) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("error writing %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", last, headerStyle)

	for i := 0; i < n; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("error writing %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "A", lastCol, 16)
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
