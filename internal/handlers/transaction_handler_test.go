package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"monestat/internal/ingest"
	"monestat/internal/models"
	"monestat/internal/pagination"
	"monestat/internal/services"
	"monestat/internal/validator"
)

type mockTransactionService struct {
	insertTransactionsFn func(ctx context.Context, records []ingest.Record) (int, error)
	getDataPeriodFn      func(ctx context.Context, category string, window services.PeriodWindow) ([]models.Transaction, bool, error)
	listTransactionsFn   func(ctx context.Context, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

func (m *mockTransactionService) InsertTransactions(ctx context.Context, records []ingest.Record) (int, error) {
	if m.insertTransactionsFn != nil {
		return m.insertTransactionsFn(ctx, records)
	}
	return len(records), nil
}

func (m *mockTransactionService) GetDataPeriod(ctx context.Context, category string, window services.PeriodWindow) ([]models.Transaction, bool, error) {
	if m.getDataPeriodFn != nil {
		return m.getDataPeriodFn(ctx, category, window)
	}
	return []models.Transaction{}, true, nil
}

func (m *mockTransactionService) ListTransactions(ctx context.Context, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.listTransactionsFn != nil {
		return m.listTransactionsFn(ctx, page, filter)
	}
	return &pagination.PageResponse[models.Transaction]{Data: []models.Transaction{}}, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.Register()
	r := gin.New()
	r.POST("/transactions/import", handler.ImportTransactions)
	r.GET("/transactions", handler.ListTransactions)
	r.GET("/report/period", handler.GetDataPeriod)
	return r
}

const exportHeader = "date,account,category,amount,currency,converted amount,currency,description"

func uploadCSV(t *testing.T, r *gin.Engine, path, csv string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "export.csv")
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := part.Write([]byte(csv)); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	w.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTransactionHandler_ImportTransactions(t *testing.T) {
	t.Run("ingests a valid export", func(t *testing.T) {
		var got []ingest.Record
		txSvc := &mockTransactionService{
			insertTransactionsFn: func(_ context.Context, records []ingest.Record) (int, error) {
				got = records
				return len(records), nil
			},
		}
		handler := NewTransactionHandler(txSvc, 1<<20)

		csv := exportHeader + "\n" +
			"25/03/2020,Cash,Food,-12.50,USD,-12.50,USD,lunch\n"
		rec := uploadCSV(t, setupTransactionRouter(handler), "/transactions/import", csv)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(got) != 1 || got[0].Category != "Food" {
			t.Fatalf("unexpected records passed to the service: %+v", got)
		}

		var body struct {
			Ingested int      `json:"ingested"`
			Skipped  []string `json:"skipped"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Ingested != 1 || len(body.Skipped) != 0 {
			t.Errorf("unexpected summary: %+v", body)
		}
	})

	t.Run("fails the batch on a malformed row by default", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, 1<<20)

		csv := exportHeader + "\n" +
			"not-a-date,Cash,Food,-12.50,USD,-12.50,USD,lunch\n"
		rec := uploadCSV(t, setupTransactionRouter(handler), "/transactions/import", csv)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("collect mode skips malformed rows and reports them", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, 1<<20)

		csv := exportHeader + "\n" +
			"25/03/2020,Cash,Food,-12.50,USD,-12.50,USD,lunch\n" +
			"not-a-date,Cash,Food,-3.00,USD,-3.00,USD,coffee\n"
		rec := uploadCSV(t, setupTransactionRouter(handler), "/transactions/import?on_error=collect", csv)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Ingested int      `json:"ingested"`
			Skipped  []string `json:"skipped"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Ingested != 1 {
			t.Errorf("expected 1 ingested, got %d", body.Ingested)
		}
		if len(body.Skipped) != 1 {
			t.Errorf("expected 1 skipped row, got %v", body.Skipped)
		}
	})

	t.Run("requires the file field", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, 1<<20)
		rec := doRequest(setupTransactionRouter(handler), "POST", "/transactions/import", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetDataPeriod(t *testing.T) {
	t.Run("builds the window from explicit dates", func(t *testing.T) {
		var gotWindow services.PeriodWindow
		txSvc := &mockTransactionService{
			getDataPeriodFn: func(_ context.Context, category string, window services.PeriodWindow) ([]models.Transaction, bool, error) {
				gotWindow = window
				return []models.Transaction{}, true, nil
			},
		}
		handler := NewTransactionHandler(txSvc, 1<<20)

		rec := doRequest(setupTransactionRouter(handler), "GET",
			"/report/period?category=food&start=2020-03-01&end=2020-03-31", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotWindow.Start.Format("2006-01-02") != "2020-03-01" || gotWindow.End.Format("2006-01-02") != "2020-03-31" {
			t.Errorf("unexpected window: %+v", gotWindow)
		}
	})

	t.Run("returns 404 for an unknown category", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getDataPeriodFn: func(context.Context, string, services.PeriodWindow) ([]models.Transaction, bool, error) {
				return nil, false, nil
			},
		}
		handler := NewTransactionHandler(txSvc, 1<<20)

		rec := doRequest(setupTransactionRouter(handler), "GET",
			"/report/period?category=neverseen&period_days=30", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if errorCode(t, rec) != "CATEGORY_NOT_FOUND" {
			t.Errorf("expected CATEGORY_NOT_FOUND, got %s", errorCode(t, rec))
		}
	})

	t.Run("rejects a request with neither period_days nor dates", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, 1<<20)
		rec := doRequest(setupTransactionRouter(handler), "GET", "/report/period?category=food", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	t.Run("passes filters and pagination through", func(t *testing.T) {
		var gotFilter services.TransactionFilter
		var gotPage pagination.PageRequest
		txSvc := &mockTransactionService{
			listTransactionsFn: func(_ context.Context, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				gotPage = page
				gotFilter = filter
				return &pagination.PageResponse[models.Transaction]{Data: []models.Transaction{}}, nil
			},
		}
		handler := NewTransactionHandler(txSvc, 1<<20)

		rec := doRequest(setupTransactionRouter(handler), "GET",
			"/transactions?page=2&page_size=10&account=Cash&from=2020-03-01", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPage.Page != 2 || gotPage.PageSize != 10 {
			t.Errorf("unexpected page request: %+v", gotPage)
		}
		if gotFilter.Account != "Cash" {
			t.Errorf("expected account filter, got %+v", gotFilter)
		}
		if gotFilter.FromDate == nil || gotFilter.FromDate.Format("2006-01-02") != "2020-03-01" {
			t.Errorf("expected from filter, got %+v", gotFilter.FromDate)
		}
	})

	t.Run("rejects a malformed date filter", func(t *testing.T) {
		handler := NewTransactionHandler(&mockTransactionService{}, 1<<20)
		rec := doRequest(setupTransactionRouter(handler), "GET", "/transactions?from=01/03/2020", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
