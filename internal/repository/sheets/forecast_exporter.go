package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/domain/models"
)

const forecastRange = "Forecasts!A:G"

// Exporter publishes forecast tables to an external spreadsheet.
type Exporter interface {
	AppendForecast(ctx context.Context, analysis *models.DCAAnalysis) error
}

// GoogleSheetExporter implements Exporter using the official Google Sheets API.
type GoogleSheetExporter struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetExporter builds a Google Sheets backed exporter instance.
func NewGoogleSheetExporter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetExporter{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendForecast appends the analysis' forecast table, one row per month,
// in a single call.
func (e *GoogleSheetExporter) AppendForecast(ctx context.Context, analysis *models.DCAAnalysis) error {
	if len(analysis.ForecastPoints) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(analysis.ForecastPoints))
	for _, p := range analysis.ForecastPoints {
		rows = append(rows, []interface{}{
			analysis.WellName,
			analysis.ModelType,
			analysis.FluidType,
			p.TimeMonths,
			p.Rate,
			p.Volume,
			p.Cumulative,
		})
	}

	payload := &sheetsapi.ValueRange{Values: rows}
	call := e.service.Spreadsheets.Values.Append(e.spreadsheetID, forecastRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append forecast rows for analysis %s: %w", analysis.ID, err)
	}

	e.logger.Debug("forecast exported to sheet",
		zap.String("analysis_id", analysis.ID),
		zap.Int("rows", len(rows)))
	return nil
}
