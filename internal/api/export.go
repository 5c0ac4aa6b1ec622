package api

import (
	"fmt"
	"net/http"
	"time"

	"shareit/internal/export"
)

// handleExportBookings streams every booking as an XLSX workbook.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListAllBookings(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	f, err := export.BuildBookingsWorkbook(bookings)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("failed to stream export")
	}
}
