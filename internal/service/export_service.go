package service

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/prn-tf/jmrh-portal/internal/domain"
)

// ExportSheet is the worksheet name of the paper export.
const ExportSheet = "Papers"

var exportHeader = []interface{}{
	"ID", "Title", "Discipline", "Author", "Author Email", "Status",
	"Assigned Professor", "Submitted At", "Revision Comments", "Manuscript",
}

// ExportService writes spreadsheet reports for the editorial office.
type ExportService struct {
	store  PaperStore
	logger zerolog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(st PaperStore, logger zerolog.Logger) *ExportService {
	return &ExportService{
		store:  st,
		logger: logger.With().Str("service", "export").Logger(),
	}
}

// ExportFilename returns the download name for an export taken at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("jmrh-papers-%s.xlsx", now.UTC().Format("20060102-150405"))
}

// WritePapers writes every paper as an XLSX workbook to w.
func (s *ExportService) WritePapers(actor *domain.User, w io.Writer) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(ExportSheet, "A1", lastCol+"1", bold); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	_ = f.SetColWidth(ExportSheet, "B", "B", 48)
	_ = f.SetColWidth(ExportSheet, "I", "I", 48)

	papers := s.store.Papers()
	for i, p := range papers {
		row := []interface{}{
			p.ID,
			p.Title,
			p.Discipline,
			p.AuthorName,
			s.email(p.AuthorID),
			p.Status.Label(),
			s.name(p.AssignedProfessorID),
			p.SubmittedAt.UTC().Format(time.RFC3339),
			p.RevisionComments,
			p.ManuscriptPath,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
	}

	if len(papers) > 0 {
		if err := f.AutoFilter(ExportSheet, fmt.Sprintf("A1:%s%d", lastCol, len(papers)+1), nil); err != nil {
			s.logger.Warn().Err(err).Msg("failed to add export filter")
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info().Int("papers", len(papers)).Str("by", actor.ID).Msg("papers exported")
	return len(papers), nil
}

func (s *ExportService) email(id string) string {
	if u, ok := s.store.UserByID(id); ok {
		return u.Email
	}
	return ""
}

func (s *ExportService) name(id string) string {
	if id == "" {
		return ""
	}
	if u, ok := s.store.UserByID(id); ok {
		return u.Name
	}
	return id
}
