package campaignsrv

import (
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
)

const reportTimeLayout = "02 Jan 2006 15:04"

var reportHeader = []any{"Student ID", "Email", "Subject", "Status", "Attempts", "Message ID", "Error", "Created", "Sent"}

// ExportReport builds an xlsx workbook with one row per message log and a
// summary sheet with the aggregate counts.
func (s *Service) ExportReport(ctx context.Context, id kernel.CampaignID) ([]byte, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.ListLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		return nil, err
	}

	xl := excelize.NewFile()
	defer xl.Close()

	const deliveries = "Deliveries"
	if err := xl.SetSheetName(xl.GetSheetName(0), deliveries); err != nil {
		return nil, exportError(id, err)
	}
	if err := xl.SetSheetRow(deliveries, "A1", &reportHeader); err != nil {
		return nil, exportError(id, err)
	}
	for i, l := range logs {
		sent := ""
		if l.SentAt != nil {
			sent = l.SentAt.Format(reportTimeLayout)
		}
		row := []any{
			l.StudentID.String(),
			l.Email,
			l.Subject,
			string(l.Status),
			l.Attempts,
			l.MessageID,
			l.Error,
			l.CreatedAt.Format(reportTimeLayout),
			sent,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, exportError(id, err)
		}
		if err := xl.SetSheetRow(deliveries, cell, &row); err != nil {
			return nil, exportError(id, err)
		}
	}

	const summary = "Summary"
	if _, err := xl.NewSheet(summary); err != nil {
		return nil, exportError(id, err)
	}
	rows := [][]any{
		{"Campaign", c.Name},
		{"Status", string(c.Status)},
		{"Recipients", c.TotalRecipients},
		{"Logged", stats.Total},
		{"Sent", stats.Sent},
		{"Failed", stats.Failed},
		{"Pending", stats.Pending},
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow(summary, cell, &rows[i]); err != nil {
			return nil, exportError(id, err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, exportError(id, err)
	}
	return buf.Bytes(), nil
}

func exportError(id kernel.CampaignID, err error) error {
	return campaign.ErrRegistry.NewWithCause(campaign.CodeExportFailed, err).WithDetail("campaign_id", id)
}
