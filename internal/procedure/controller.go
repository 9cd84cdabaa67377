package procedure

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"moresql-service/pkg/metrics"
	"moresql-service/pkg/req"
	"moresql-service/pkg/res"
)

// Pinger is satisfied by *db.Db.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ControllerDeps struct {
	*Service
	Routes []Route
	Logger *logrus.Logger
	Pinger Pinger
}

type Controller struct {
	*Service
	logger *logrus.Logger
	pinger Pinger
}

func NewController(router *http.ServeMux, deps ControllerDeps) (*Controller, error) {
	c := &Controller{Service: deps.Service, logger: deps.Logger, pinger: deps.Pinger}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}

	for _, route := range deps.Routes {
		call, err := route.Call()
		if err != nil {
			return nil, err
		}
		router.Handle(route.Pattern(), c.Invoke(route, call))
	}
	router.Handle("GET /healthz", c.Health())
	return c, nil
}

// Invoke serves one route. A JSON object body supplies explicit values;
// otherwise arguments come from the query string and form body.
func (c *Controller) Invoke(route Route, call Call) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		status := http.StatusOK
		defer func() {
			metrics.RequestTotal.WithLabelValues(r.Method, route.Path, strconv.Itoa(status)).Inc()
			c.logger.WithFields(logrus.Fields{
				"request_id":  requestID,
				"procedure":   call.Name,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("procedure request")
		}()

		var explicit map[string]any
		if req.IsJSON(r) {
			body, err := req.HandleBody[map[string]any](&w, r)
			if err != nil {
				status = http.StatusBadRequest
				return
			}
			if *body != nil {
				explicit = NormalizeJSON(*body).(map[string]any)
			}
		}

		var bag map[string]string
		if explicit == nil {
			var err error
			bag, err = req.Bag(r)
			if err != nil {
				status = http.StatusBadRequest
				res.Json(w, map[string]any{"error": "invalid request parameters", "details": err.Error()}, status)
				return
			}
		}

		out, err := c.Service.Render(r.Context(), call, route.CacheTTL, explicit, bag)
		if err != nil {
			var payload map[string]any
			status, payload = errorResponse(err)
			res.Json(w, payload, status)
			return
		}
		res.Raw(w, out, status)
	}
}

func (c *Controller) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.pinger != nil {
			if err := c.pinger.Ping(r.Context()); err != nil {
				res.Json(w, map[string]any{"status": "unavailable", "error": err.Error()}, http.StatusServiceUnavailable)
				return
			}
		}
		res.Json(w, map[string]any{"status": "ok"}, http.StatusOK)
	}
}

func errorResponse(err error) (int, map[string]any) {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		payload := map[string]any{"error": dbErr.Error()}
		if dbErr.Code != "" {
			payload["code"] = dbErr.Code
		}
		return http.StatusBadGateway, payload
	}
	var serErr *SerializationError
	if errors.As(err, &serErr) {
		return http.StatusInternalServerError, map[string]any{"error": serErr.Error()}
	}
	return http.StatusInternalServerError, map[string]any{"error": err.Error()}
}
