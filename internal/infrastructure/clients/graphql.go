package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wms-platform/sorter-station-service/internal/application"
	"github.com/wms-platform/sorter-station-service/internal/domain"
)

// ErrInvalidResponse is returned when a GraphQL response carries neither
// data nor errors in the expected shape
var ErrInvalidResponse = errors.New("invalid response structure")

// GraphQLError is the first error reported by the GraphQL endpoint
type GraphQLError struct {
	Message string `json:"message"`
}

func (e *GraphQLError) Error() string {
	return "graphql: " + e.Message
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []GraphQLError             `json:"errors"`
}

const stationStateQuery = `query Fc_order_assorting_station_state($barcode: String!) {
  fc_order_assorting_station_state(barcode: $barcode) {
    station_id
    total_cell_count
    sorter_type
    grids {
      grid
      orders {
        order_id
        oms_order_id
        order_workflow_id
        workflow_name
        assorted_tote
        order_item_list {
          order_item_id
          sku_id
          barcode
          total_qty
          total_worked_qty
          picking_tote_list {
            picking_tote
            qty
            worked_qty
          }
        }
      }
    }
  }
}`

const totePageQuery = `query GetFcTotePageList($search_input: FCToteSearchInput!, $page_input: FCPageInput!) {
  fc_tote_page_list(search_input: $search_input, page_input: $page_input) {
    tote_list {
      tote_barcode
    }
  }
}`

type totePage struct {
	ToteList []struct {
		ToteBarcode string `json:"tote_barcode"`
	} `json:"tote_list"`
}

// query runs a GraphQL query and returns the raw value of field
func (c *WMSClient) query(ctx context.Context, endpoint, path, query, field string, variables map[string]any) (json.RawMessage, error) {
	resp, err := c.post(ctx, c.queries, endpoint, path, nil, graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	var out graphQLResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response (status %d): %w", endpoint, resp.status, err)
	}
	if len(out.Errors) > 0 {
		return nil, &out.Errors[0]
	}
	raw, ok := out.Data[field]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%s: %w", endpoint, ErrInvalidResponse)
	}
	return raw, nil
}

// FetchSnapshot loads the station state for a station barcode
func (c *WMSClient) FetchSnapshot(ctx context.Context, stationBarcode string) (*domain.Snapshot, error) {
	raw, err := c.query(ctx, "station-state", c.config.SnapshotPath, stationStateQuery,
		"fc_order_assorting_station_state", map[string]any{"barcode": stationBarcode})
	if err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
		}
		return nil, fmt.Errorf("failed to fetch station state: %w", err)
	}

	if err := c.validator.Validate(raw); err != nil {
		return nil, err
	}
	var doc application.SnapshotDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	return doc.ToDomain(), nil
}

// AvailableContainers lists totes not assigned to any station. The page
// size is capped by the configured maximum.
func (c *WMSClient) AvailableContainers(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	if c.config.MaxContainerPageSize > 0 && limit > c.config.MaxContainerPageSize {
		limit = c.config.MaxContainerPageSize
	}

	raw, err := c.query(ctx, "tote-page", c.config.ContainerPagePath, totePageQuery, "fc_tote_page_list", map[string]any{
		"search_input": map[string]string{"domain_type": "NONE", "assign_type": "NOT_ASSIGNED"},
		"page_input":   map[string]int{"page": c.config.ContainerPage, "page_size": limit},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list available containers: %w", err)
	}

	var page totePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode tote page: %w", err)
	}
	containers := make([]string, 0, len(page.ToteList))
	for _, t := range page.ToteList {
		containers = append(containers, t.ToteBarcode)
	}
	return containers, nil
}
