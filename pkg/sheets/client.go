package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

var (
	errSpreadsheetIDRequired = errors.New("sheets spreadsheet id is required")
	errClientNotInitialized  = errors.New("sheets client not initialized")
	errWorksheetNotFound     = errors.New("worksheet not found")
)

// Client wraps the Sheets API for one spreadsheet. Each worksheet holds
// one entity table: a header row of column names, one data row per record.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	timeout       time.Duration

	mu       sync.Mutex
	sheetIDs map[string]int64
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a Sheets client and verifies the spreadsheet is
// reachable with the configured credentials.
func NewClient(ctx context.Context, cfg config.SheetsConfig, logg *logger.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errSpreadsheetIDRequired
	}

	svc, err := sheetsapi.NewService(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	client := &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		timeout:       cfg.Timeout,
		sheetIDs:      make(map[string]int64),
	}

	if err := client.refreshSheetIDs(ctx); err != nil {
		return nil, fmt.Errorf("checking spreadsheet %q: %w", spreadsheetID, err)
	}

	if logg != nil {
		logg.Info(ctx, "sheets client initialized")
	}

	return client, nil
}

func clientOptions(cfg config.SheetsConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsPath) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	return opts
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) refreshSheetIDs(ctx context.Context) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheetIDs = make(map[string]int64, len(spreadsheet.Sheets))
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil {
			c.sheetIDs[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	return nil
}

func (c *Client) sheetID(title string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.sheetIDs[title]
	return id, ok
}

// Ping verifies the spreadsheet is still accessible.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	return c.refreshSheetIDs(ctx)
}

// EnsureWorksheet creates the named worksheet with the given header row
// if it does not exist yet, and writes the header if the sheet is empty.
func (c *Client) EnsureWorksheet(ctx context.Context, title string, header []string) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}

	if _, ok := c.sheetID(title); !ok {
		if err := c.addWorksheet(ctx, title); err != nil {
			return err
		}
	}

	rows, err := c.ReadRows(ctx, title)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}

	cells := make([]any, len(header))
	for i, name := range header {
		cells[i] = name
	}
	return c.OverwriteRow(ctx, title, 1, cells)
}

func (c *Client) addWorksheet(ctx context.Context, title string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(callCtx).Do(); err != nil {
		// Another writer may have created it between the check and now.
		if !isAlreadyExists(err) {
			return fmt.Errorf("adding worksheet %q: %w", title, err)
		}
	}
	return c.refreshSheetIDs(ctx)
}

// ReadRows returns every populated row of the worksheet, header included.
// Cells keep their underlying type: strings, float64 numbers, booleans.
func (c *Client) ReadRows(ctx context.Context, title string) ([][]any, error) {
	if c == nil || c.svc == nil {
		return nil, errClientNotInitialized
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, title).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading worksheet %q: %w", title, err)
	}

	rows := make([][]any, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = row
	}
	return rows, nil
}

// AppendRow adds one row after the last populated row of the worksheet.
func (c *Client) AppendRow(ctx context.Context, title string, cells []any) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	vr := &sheetsapi.ValueRange{Values: [][]any{cells}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, title, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending to worksheet %q: %w", title, err)
	}
	return nil
}

// OverwriteRow replaces the cells of one row. Row numbers are 1-based,
// row 1 being the header.
func (c *Client) OverwriteRow(ctx context.Context, title string, rowNumber int, cells []any) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	rang := fmt.Sprintf("%s!A%d", title, rowNumber)
	vr := &sheetsapi.ValueRange{Values: [][]any{cells}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rang, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updating worksheet %q row %d: %w", title, rowNumber, err)
	}
	return nil
}

// DeleteRow removes one row entirely so later rows shift up. Row numbers
// are 1-based.
func (c *Client) DeleteRow(ctx context.Context, title string, rowNumber int) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}

	sheetID, ok := c.sheetID(title)
	if !ok {
		if err := c.refreshSheetIDs(ctx); err != nil {
			return err
		}
		if sheetID, ok = c.sheetID(title); !ok {
			return fmt.Errorf("%w: %q", errWorksheetNotFound, title)
		}
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNumber - 1),
					EndIndex:   int64(rowNumber),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting worksheet %q row %d: %w", title, rowNumber, err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "already exists")
	}
	return false
}
