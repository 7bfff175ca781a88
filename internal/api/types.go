package api

import (
	"folio/internal/frame"
	"folio/internal/report"
	"folio/pkg/folio"
)

type reportResponse struct {
	Name     string                  `json:"name"`
	Date     string                  `json:"date"`
	Currency string                  `json:"currency"`
	Figures  *report.Figures         `json:"figures,omitempty"`
	Tables   map[string]*frame.Table `json:"tables"`
}

// reportsResponse carries every report that built. Failed reports are listed
// in Errors by name.
type reportsResponse struct {
	Reports []reportResponse  `json:"reports"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type portfolioItem struct {
	folio.Portfolio
	Purchases int `json:"purchases"`
}

type operationLogsResponse struct {
	Items  []folio.OperationLog `json:"items"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func newReportResponse(res *report.Result, rc report.Context) reportResponse {
	out := reportResponse{
		Name:     res.Name,
		Date:     folio.FormatDate(rc.AsOf),
		Currency: rc.Currency,
		Figures:  res.Figures,
		Tables:   make(map[string]*frame.Table, len(res.Tables)),
	}
	for _, t := range res.Tables {
		out.Tables[t.Name] = t.Table
	}
	return out
}
