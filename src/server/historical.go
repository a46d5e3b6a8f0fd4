package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	datasource "candle-stream/src/data_source"
	"candle-stream/src/helpers"
	"candle-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxHistoricalCount caps the count parameter of /historical.
const MaxHistoricalCount = 5000

// historicalQuery is the bound query string of /historical.
type historicalQuery struct {
	Instruments string `form:"instruments" binding:"required,instrument_csv"`
	TimeFrame   string `form:"timeFrame" binding:"required,timeframe"`
	Start       string `form:"start"`
	End         string `form:"end"`
	Count       int    `form:"count" binding:"omitempty,min=1,max=5000"`
}

var registerOnce sync.Once

// registerValidations adds the custom tags used by the query structs to gin's
// validator engine.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("timeframe", func(fl validator.FieldLevel) bool {
			return models.HistoricalTimeFrame(fl.Field().String()).IsSupported()
		})
		_ = v.RegisterValidation("instrument_csv", func(fl validator.FieldLevel) bool {
			return len(datasource.SplitCSV(fl.Field().String())) > 0
		})
	})
}

// -----------------------------------------------------------------------------

func (s *StreamServer) getHistorical(c *gin.Context) {
	var q historicalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.abortWithError(c, helpers.NewValidationError("%s", describeBindError(err)))
		return
	}

	req, err := s.buildHistoricalRequest(q)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	instruments, err := s.Registry.ParseCSV(q.Instruments)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	result, err := s.fetchHistorical(c, instruments, req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// -----------------------------------------------------------------------------

func (s *StreamServer) buildHistoricalRequest(q historicalQuery) (models.MHistoricalRequest, error) {
	req := models.MHistoricalRequest{
		TimeFrame: models.HistoricalTimeFrame(q.TimeFrame),
		Count:     q.Count,
	}

	var err error
	if req.Start, err = parseTimeParam(q.Start); err != nil {
		return req, helpers.NewValidationError("invalid start: %v", err)
	}
	if req.End, err = parseTimeParam(q.End); err != nil {
		return req, helpers.NewValidationError("invalid end: %v", err)
	}

	if req.Start != 0 && req.Start > s.Now().UnixMilli() {
		return req, helpers.NewValidationError("start must not be in the future")
	}
	if req.Start != 0 && req.End != 0 && req.Start >= req.End {
		return req, helpers.NewValidationError("start must be before end")
	}
	return req, nil
}

// -----------------------------------------------------------------------------

// fetchHistorical loads every instrument in parallel. The first failure is
// returned and the partial result dropped.
func (s *StreamServer) fetchHistorical(c *gin.Context, instruments []string, base models.MHistoricalRequest) (map[string][]models.MCandle, error) {
	ctx := c.Request.Context()
	result := make(map[string][]models.MCandle, len(instruments))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, instrument := range instruments {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			req := base
			req.Instrument = name
			candles, err := s.History.Candles(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if candles == nil {
				candles = []models.MCandle{}
			}
			result[name] = candles
		}(instrument)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

// -----------------------------------------------------------------------------

func (s *StreamServer) abortWithError(c *gin.Context, err error) {
	status := helpers.HTTPStatus(err)
	if status >= http.StatusInternalServerError && !helpers.IsTransportAbort(err) {
		s.Logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------

// parseTimeParam accepts epoch milliseconds or RFC3339. Empty means unset.
func parseTimeParam(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("%q must be positive", raw)
		}
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("%q is neither epoch milliseconds nor RFC3339", raw)
	}
	return t.UnixMilli(), nil
}

// -----------------------------------------------------------------------------

// describeBindError turns binding failures into a message naming the parameter.
func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		param := queryName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", param))
		case "timeframe":
			msgs = append(msgs, fmt.Sprintf("unsupported timeFrame %q (expected one of %v)", fe.Value(), models.SupportedHistoricalTimeFrames()))
		case "instrument_csv":
			msgs = append(msgs, "instruments must be a comma separated list")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be between 1 and %d", param, MaxHistoricalCount))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", param, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func queryName(field string) string {
	switch field {
	case "TimeFrame":
		return "timeFrame"
	default:
		return strings.ToLower(field)
	}
}
