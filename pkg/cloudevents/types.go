package cloudevents

import "time"

// SourceSorterStation is the CloudEvents source of this service
const SourceSorterStation = "/wms/sorter-station-service"

// Extension attribute names carried as ce-* message headers
const (
	ExtCorrelationID = "wmscorrelationid"
	ExtWaveNumber    = "wmswavenumber"
	ExtWorkflowID    = "wmsworkflowid"
	ExtStationID     = "wmsstationid"
	ExtOrderID       = "wmsorderid"
	ExtTraceParent   = "traceparent"
	ExtTraceState    = "tracestate"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WaveNumber    string `json:"wmswavenumber,omitempty"`
	WorkflowID    string `json:"wmsworkflowid,omitempty"`
	StationID     string `json:"wmsstationid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// Headers returns the binary-mode ce-* headers for the event. Empty
// extensions are omitted.
func (e *WMSCloudEvent) Headers() map[string]string {
	h := map[string]string{
		"ce-specversion": e.SpecVersion,
		"ce-type":        e.Type,
		"ce-source":      e.Source,
		"ce-id":          e.ID,
		"ce-time":        e.Time.Format(time.RFC3339),
		"content-type":   e.DataContentType,
	}
	ext := map[string]string{
		ExtCorrelationID: e.CorrelationID,
		ExtWaveNumber:    e.WaveNumber,
		ExtWorkflowID:    e.WorkflowID,
		ExtStationID:     e.StationID,
		ExtOrderID:       e.OrderID,
		ExtTraceParent:   e.TraceParent,
		ExtTraceState:    e.TraceState,
	}
	for name, value := range ext {
		if value != "" {
			h["ce-"+name] = value
		}
	}
	return h
}
