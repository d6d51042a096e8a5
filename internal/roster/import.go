package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"contest-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Entry is one participant row read from a roster workbook.
type Entry struct {
	Username     string
	EnrollmentNo string
	IsAdmin      bool
}

// Registrar creates participants. *app.ContestService satisfies it.
type Registrar interface {
	RegisterParticipant(ctx context.Context, username, enrollmentNo string, isAdmin bool) (domain.Participant, error)
}

// Report summarises an import run.
type Report struct {
	Created    []domain.Participant
	Duplicates []string
}

// ParseParticipants reads every sheet of an XLSX roster. A sheet is used when
// its header row names a username column; other sheets are ignored.
func ParseParticipants(r io.Reader) ([]Entry, error) {
	xlsx, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	defer xlsx.Close()

	var entries []Entry
	for _, sheet := range xlsx.GetSheetList() {
		rows, err := xlsx.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}

		userIdx, enrollIdx, adminIdx := -1, -1, -1
		for i, cell := range rows[0] {
			switch strings.ToLower(strings.TrimSpace(cell)) {
			case "username", "user name", "name":
				userIdx = i
			case "enrollment", "enrollment no", "enrollment number", "enrollment_no":
				enrollIdx = i
			case "admin", "is admin", "role":
				adminIdx = i
			}
		}
		if userIdx == -1 {
			continue
		}

		for _, row := range rows[1:] {
			username := cell(row, userIdx)
			if username == "" {
				continue
			}
			entries = append(entries, Entry{
				Username:     username,
				EnrollmentNo: cell(row, enrollIdx),
				IsAdmin:      isAdminCell(cell(row, adminIdx)),
			})
		}
	}
	if len(entries) == 0 {
		return nil, errors.New("no participant rows found")
	}
	return entries, nil
}

// Import registers every roster entry. Existing participants are reported and
// skipped; any other failure stops the run.
func Import(ctx context.Context, reg Registrar, r io.Reader) (Report, error) {
	entries, err := ParseParticipants(r)
	if err != nil {
		return Report{}, err
	}
	var report Report
	for _, e := range entries {
		p, err := reg.RegisterParticipant(ctx, e.Username, e.EnrollmentNo, e.IsAdmin)
		if errors.Is(err, domain.ErrDuplicateParticipant) {
			report.Duplicates = append(report.Duplicates, e.Username)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("register %s: %w", e.Username, err)
		}
		report.Created = append(report.Created, p)
	}
	log.Printf("roster import: %d created, %d duplicates", len(report.Created), len(report.Duplicates))
	return report, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isAdminCell(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "y", "true", "1", "admin":
		return true
	}
	return false
}
