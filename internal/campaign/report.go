package campaign

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"messagemaster/internal/models"
)

const (
	DeliveryDelivered = "Delivered"
	DeliveryFailed    = "Failed"
)

var ErrReportHeader = errors.New("report must have recipient and status columns")

// ParseReportCSV reads a delivery report with recipient and status columns in any order.
func ParseReportCSV(data []byte) ([]models.ReportEntry, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrReportHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read report header: %w", err)
	}
	recipientCol, statusCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "recipient":
			recipientCol = i
		case "status":
			statusCol = i
		}
	}
	if recipientCol < 0 || statusCol < 0 {
		return nil, ErrReportHeader
	}
	var out []models.ReportEntry
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read report line %d: %w", line, err)
		}
		if recipientCol >= len(rec) || statusCol >= len(rec) {
			continue
		}
		recipient := strings.TrimSpace(rec[recipientCol])
		if recipient == "" {
			continue
		}
		out = append(out, models.ReportEntry{Recipient: recipient, Status: strings.TrimSpace(rec[statusCol])})
	}
	return out, nil
}

// DeliveryCounts counts exact Delivered and Failed entries; other statuses count as neither.
func DeliveryCounts(report []models.ReportEntry) (delivered, failed int) {
	for _, e := range report {
		switch e.Status {
		case DeliveryDelivered:
			delivered++
		case DeliveryFailed:
			failed++
		}
	}
	return delivered, failed
}
