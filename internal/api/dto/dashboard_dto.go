package dto

import "github.com/nicopel-ti/helpdesk/internal/domain"

// ChatRequest is a chatbot question.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// ChatResponse carries the assistant reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChartsResponse feeds the dashboard charts.
type ChartsResponse struct {
	ByStatus           map[domain.TicketStatus]int `json:"by_status"`
	BySector           map[string]int              `json:"by_sector"`
	AvgResolutionHours float64                     `json:"avg_resolution_hours"`
}

// StatusDurationResponse is the average hours spent in each status.
type StatusDurationResponse struct {
	Hours map[domain.TicketStatus]float64 `json:"hours"`
}

// GrafanaMetric describes a queryable target.
type GrafanaMetric struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// GrafanaQueryRequest is the subset of the simple-JSON query body we read.
type GrafanaQueryRequest struct {
	Range struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"range"`
	Targets []struct {
		Target string `json:"target" validate:"required"`
	} `json:"targets" validate:"required,min=1,dive"`
}

// GrafanaColumn is a table column header.
type GrafanaColumn struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// GrafanaTable is a table-format response.
type GrafanaTable struct {
	Type    string          `json:"type"`
	Columns []GrafanaColumn `json:"columns"`
	Rows    [][]any         `json:"rows"`
}

// GrafanaSeries is a time-series response; datapoints are [value, epoch_ms].
type GrafanaSeries struct {
	Target     string     `json:"target"`
	Datapoints [][2]int64 `json:"datapoints"`
}
