package serving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jackwhelpton/fasthttp-routing/v2"
	"github.com/kcz17/regionstats/dataset"
	"github.com/kcz17/regionstats/querylog"
	"github.com/kcz17/regionstats/stats"
	"github.com/kcz17/regionstats/telemetry"
)

const queryDescription = "POST JSON {regions:[...], threshold_ms:<number>} to /metrics"

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON never returns an error to the router, since the router resets the
// response (and its CORS headers) on errors. Unencodable data becomes a 500.
func writeJSON(c *routing.Context, status int, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("could not marshal response: err = %v\n", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"internal server error"}`)
	}

	c.SetStatusCode(status)
	c.SetContentType("application/json")
	c.SetBody(b)
	return nil
}

// decodeQuery parses and validates a request body. Every failure wraps
// stats.ErrInvalidQuery.
func decodeQuery(body []byte) (*stats.Query, error) {
	var query stats.Query
	if err := json.Unmarshal(body, &query); err != nil {
		return nil, fmt.Errorf("%w: could not parse body: %v", stats.ErrInvalidQuery, err)
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return &query, nil
}

func (s *Server) queryHandler() routing.Handler {
	return func(c *routing.Context) error {
		query, err := decodeQuery(c.PostBody())
		if err != nil {
			return s.writeQueryResponse(c, http.StatusBadRequest, &errorResponse{Error: err.Error()})
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
		defer cancel()
		records, err := s.loader.Load(ctx)
		if err != nil {
			log.Printf("could not load dataset: err = %v\n", err)
			message := "internal server error"
			if errors.Is(err, dataset.ErrDataUnavailable) {
				message = dataset.ErrDataUnavailable.Error()
			}
			return s.writeQueryResponse(c, http.StatusInternalServerError, &errorResponse{Error: message})
		}

		startTime := time.Now()
		result := stats.Aggregate(records, query.Regions, *query.ThresholdMs)
		duration := time.Since(startTime)
		telemetry.AggregationDuration.Observe(duration.Seconds())

		unmatched := 0
		for _, regionStats := range result {
			if !regionStats.Matched() {
				unmatched++
			}
		}
		telemetry.RegionsRequestedTotal.Add(float64(len(result)))
		telemetry.RegionsUnmatchedTotal.Add(float64(unmatched))

		if err := s.writeQueryResponse(c, http.StatusOK, s.responseShape.Render(result, query.Regions)); err != nil {
			return err
		}

		s.queryLog.Write(querylog.NewEvent(query.Regions, *query.ThresholdMs, len(result)-unmatched, unmatched, duration))
		return nil
	}
}

func (s *Server) writeQueryResponse(c *routing.Context, status int, data interface{}) error {
	telemetry.QueriesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	return writeJSON(c, status, data)
}

func describeQueryHandler(c *routing.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{"message": queryDescription})
}

// preflightHandler answers CORS preflight requests. The CORS middleware has
// already set the access control headers.
func preflightHandler(c *routing.Context) error {
	c.SetStatusCode(http.StatusNoContent)
	return nil
}

// notFoundHandler writes the body itself rather than returning an HTTP error,
// since the router resets the response (and its CORS headers) on errors.
func notFoundHandler(c *routing.Context) error {
	return writeJSON(c, http.StatusNotFound, &errorResponse{Error: "not found"})
}
