package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/wms-platform/sorter-station-service/internal/application"
)

var (
	// ErrMissingStationID is returned when feedback is sent before a
	// snapshot reported the station id
	ErrMissingStationID = errors.New("station id is not known")
	// ErrMissingWorkflowID is returned for wave feedback without a wave
	ErrMissingWorkflowID = errors.New("workflow id is not known")
)

const statusFinished = "FINISHED"

// FeedbackRejectedError is a sorter API response whose status is not OK
type FeedbackRejectedError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *FeedbackRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected with status %s", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s rejected with status %s: %s", e.Endpoint, e.Status, e.Message)
}

type dropPayload struct {
	PickingContainerNo string `json:"pickingContainerNo"`
	SKUNo              string `json:"skuNo"`
	ContainerNo        string `json:"containerNo"`
	WaveNo             string `json:"waveNo"`
	OrderNo            string `json:"orderNo"`
	GridNo             string `json:"gridNo"`
	StationID          string `json:"stationId"`
	CenterID           string `json:"centerId"`
}

type orderDetail struct {
	SKUNo          string `json:"skuNo"`
	SortedQuantity int    `json:"sortedQuantity"`
}

type orderPayload struct {
	ContainerNo string        `json:"containerNo"`
	GridNo      string        `json:"gridNo"`
	OrderNo     string        `json:"orderNo"`
	Status      string        `json:"status"`
	WaveNo      string        `json:"waveNo"`
	StationID   string        `json:"stationId"`
	CenterID    string        `json:"centerId"`
	Details     []orderDetail `json:"details"`
}

type wavePayload struct {
	WaveNo    string `json:"waveNo"`
	Status    string `json:"status"`
	StationID string `json:"stationId"`
	CenterID  string `json:"centerId"`
}

type sorterResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendDropFeedback reports one unit dropped into a grid
func (c *WMSClient) SendDropFeedback(ctx context.Context, fb application.DropFeedback) error {
	if fb.StationID == "" {
		return ErrMissingStationID
	}
	return c.sendFeedback(ctx, "product-drop-feedback", fb.StationID, dropPayload{
		PickingContainerNo: fb.SourceContainer,
		SKUNo:              fb.SKUID,
		ContainerNo:        fb.DestinationContainer,
		WaveNo:             fb.WorkflowID,
		OrderNo:            fb.OrderID,
		GridNo:             strconv.Itoa(fb.GridNumber),
		StationID:          fb.StationID,
		CenterID:           c.config.CenterID,
	})
}

// SendOrderFeedback reports a finished grid with its manifest
func (c *WMSClient) SendOrderFeedback(ctx context.Context, fb application.OrderFeedback) error {
	if fb.StationID == "" {
		return ErrMissingStationID
	}
	details := make([]orderDetail, 0, len(fb.Items))
	for _, item := range fb.Items {
		details = append(details, orderDetail{SKUNo: item.SKUID, SortedQuantity: item.Quantity})
	}
	return c.sendFeedback(ctx, "customer-order-feedback", fb.StationID, orderPayload{
		ContainerNo: fb.DestinationContainer,
		GridNo:      strconv.Itoa(fb.GridNumber),
		OrderNo:     fb.OrderID,
		Status:      statusFinished,
		WaveNo:      fb.WorkflowID,
		StationID:   fb.StationID,
		CenterID:    c.config.CenterID,
		Details:     details,
	})
}

// SendWaveFeedback reports a finished wave
func (c *WMSClient) SendWaveFeedback(ctx context.Context, fb application.WaveFeedback) error {
	if fb.StationID == "" {
		return ErrMissingStationID
	}
	if fb.WorkflowID == "" {
		return ErrMissingWorkflowID
	}
	return c.sendFeedback(ctx, "wave-order-feedback", fb.StationID, wavePayload{
		WaveNo:    fb.WorkflowID,
		Status:    statusFinished,
		StationID: fb.StationID,
		CenterID:  c.config.CenterID,
	})
}

// sendFeedback posts payload and interprets the sorter status envelope.
// A missing status field counts as success.
func (c *WMSClient) sendFeedback(ctx context.Context, endpoint, stationID string, payload any) error {
	headers := map[string]string{
		HeaderAPIKey:    c.config.APIKey,
		HeaderStationID: stationID,
		HeaderCenterID:  c.config.CenterID,
	}
	resp, err := c.post(ctx, c.feedback, endpoint, c.config.FeedbackPath+"/"+endpoint, headers, payload)
	if err != nil {
		return err
	}

	var out sorterResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return fmt.Errorf("failed to decode %s response (status %d): %w", endpoint, resp.status, err)
	}
	if out.Status != "" && out.Status != "OK" {
		return &FeedbackRejectedError{Endpoint: endpoint, Status: out.Status, Message: out.Message}
	}
	if resp.status >= 400 {
		return &FeedbackRejectedError{Endpoint: endpoint, Status: strconv.Itoa(resp.status), Message: out.Message}
	}
	return nil
}
