package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"fincli/internal/core"
	"fincli/internal/gateway"
)

// Export formats understood by the backend.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type ReportsAPI struct{ c *Client }

func (a *ReportsAPI) Generate(ctx context.Context, req core.ReportRequest) (core.Report, error) {
	var out core.Report
	if err := req.Validate(); err != nil {
		return out, err
	}
	if req.Period != core.PeriodCustom {
		req.StartDate, req.EndDate = "", ""
	}
	err := a.c.send(ctx, http.MethodPost, "/reports/generate/", req, &out)
	return out, err
}

// Export downloads a generated report. It returns the raw document and its
// content type.
func (a *ReportsAPI) Export(ctx context.Context, id, format string) ([]byte, string, error) {
	accept := "text/csv"
	switch format {
	case FormatCSV:
	case FormatPDF:
		accept = "application/pdf"
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}

	resp, err := a.c.doer.Do(ctx, &gateway.Request{
		Method: http.MethodGet,
		Path:   itemPath("/reports/", id) + "export/",
		Query:  url.Values{"format": {format}},
		Header: http.Header{"Accept": {accept}},
	})
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = accept
	}
	return resp.Body, contentType, nil
}
