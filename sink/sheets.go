package sink

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/use-agent/channelscout/models"
)

// SheetMirror keeps one worksheet of a spreadsheet as a full-replace mirror
// of the local record store: the worksheet is deleted if present, recreated,
// and rewritten from A1 on every upload. The remote sheet is a copy of the
// durable file, not an append log.
type SheetMirror struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetMirror authenticates with a service-account credential file and
// targets the worksheet sheetName inside spreadsheetID.
func NewSheetMirror(ctx context.Context, spreadsheetID, sheetName, credentialsFile string) (*SheetMirror, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to create sheets service with %s", credentialsFile), err)
	}
	return &SheetMirror{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Replace uploads grid as the entire worksheet contents.
func (m *SheetMirror) Replace(ctx context.Context, grid [][]string) error {
	meta, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return models.NewSweepError(models.ErrCodeSink, "failed to load spreadsheet metadata", err)
	}

	var requests []*sheets.Request
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == m.sheetName {
			requests = append(requests, &sheets.Request{
				DeleteSheet: &sheets.DeleteSheetRequest{SheetId: sh.Properties.SheetId},
			})
		}
	}
	requests = append(requests, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: m.sheetName,
				GridProperties: &sheets.GridProperties{
					RowCount:    gridRows(len(grid)),
					ColumnCount: 20,
				},
			},
		},
	})

	_, err = m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to recreate worksheet %q", m.sheetName), err)
	}

	values := make([][]interface{}, len(grid))
	for i, row := range grid {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		values[i] = cells
	}

	_, err = m.svc.Spreadsheets.Values.
		Update(m.spreadsheetID, m.sheetName+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return models.NewSweepError(models.ErrCodeSink,
			fmt.Sprintf("failed to write %d rows to worksheet %q", len(grid), m.sheetName), err)
	}

	slog.Debug("worksheet replaced", "sheet", m.sheetName, "rows", len(grid))
	return nil
}

// gridRows sizes the fresh worksheet with headroom above the current grid.
func gridRows(n int) int64 {
	const min = 1000
	if n < min {
		return min
	}
	return int64(n + 100)
}
