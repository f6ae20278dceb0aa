package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fakhrymubarak/weather-compare/internal/config"
	"github.com/fakhrymubarak/weather-compare/internal/model"
	"github.com/fakhrymubarak/weather-compare/internal/repository"
	"github.com/fakhrymubarak/weather-compare/internal/service"
)

const (
	msgMissingRange = "Please select both start and end dates."
	msgFetchFailed  = "Failed to fetch weather data"
)

var errInvalidDateFormat = errors.New("dates must use the YYYY-MM-DD format")

type WeatherHandler struct {
	WeatherService service.WeatherServiceInterface
	now            func() time.Time
}

func NewWeatherHandler(svc service.WeatherServiceInterface) *WeatherHandler {
	return &WeatherHandler{
		WeatherService: svc,
		now:            time.Now,
	}
}

// Routes registers every endpoint on a new mux.
func (h *WeatherHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/cities", h.HandleCities)
	mux.HandleFunc("/series", h.HandleSeries)
	mux.HandleFunc("/compare", h.HandleCompare)
	return mux
}

func (h *WeatherHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

func (h *WeatherHandler) allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", http.MethodGet)
	h.writeJSONResponse(w, http.StatusMethodNotAllowed, model.ErrorResponse("Method not allowed"))
	return false
}

// parseDateRange reads start_date and end_date. With neither present the
// default window applies; with only one present the range is missing.
func (h *WeatherHandler) parseDateRange(r *http.Request) (start, end model.Date, err error) {
	q := r.URL.Query()
	rawStart, rawEnd := q.Get("start_date"), q.Get("end_date")

	switch {
	case rawStart == "" && rawEnd == "":
		start, end = service.DefaultRange(h.now())
		return start, end, nil
	case rawStart == "" || rawEnd == "":
		return start, end, service.ErrMissingDateRange
	}

	if start, err = model.ParseDate(rawStart); err != nil {
		return start, end, fmt.Errorf("%w: start_date %q", errInvalidDateFormat, rawStart)
	}
	if end, err = model.ParseDate(rawEnd); err != nil {
		return start, end, fmt.Errorf("%w: end_date %q", errInvalidDateFormat, rawEnd)
	}
	return start, end, nil
}

func (h *WeatherHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingDateRange):
		h.writeJSONResponse(w, http.StatusBadRequest, model.ErrorResponse(msgMissingRange))
	case errors.Is(err, errInvalidDateFormat), service.IsRequestError(err):
		h.writeJSONResponse(w, http.StatusBadRequest, model.ErrorResponse(err.Error()))
	case errors.Is(err, repository.ErrRemoteFetch), errors.Is(err, service.ErrSeriesMisaligned):
		h.writeJSONResponse(w, http.StatusBadGateway, model.ErrorResponse(msgFetchFailed))
	default:
		h.writeJSONResponse(w, http.StatusInternalServerError, model.ErrorResponse(msgFetchFailed))
	}
}

func missingWarning(s *model.WeatherSeries) string {
	return fmt.Sprintf("Some data points are missing for %s. The visualization may be incomplete.", s.City)
}

func (h *WeatherHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, model.Response{Message: "ok"})
}

func (h *WeatherHandler) HandleCities(w http.ResponseWriter, r *http.Request) {
	if !h.allowGet(w, r) {
		return
	}
	h.writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    h.WeatherService.Cities(),
		Message: "Success",
	})
}

func (h *WeatherHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	if !h.allowGet(w, r) {
		return
	}

	city := r.URL.Query().Get("city")
	if city == "" {
		h.writeJSONResponse(w, http.StatusBadRequest, model.ErrorResponse("Missing 'city' query parameter"))
		return
	}

	start, end, err := h.parseDateRange(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	series, err := h.WeatherService.SeriesForCity(r.Context(), city, start, end)
	if err != nil {
		config.GetLogger().Errorw("Series request failed", "city", city, "error", err)
		h.writeError(w, err)
		return
	}

	resp := model.Response{Data: series, Message: "Success"}
	if series.HasMissing {
		resp.Warnings = append(resp.Warnings, missingWarning(series))
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

func (h *WeatherHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if !h.allowGet(w, r) {
		return
	}

	start, end, err := h.parseDateRange(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	cmp, err := h.WeatherService.CompareCities(r.Context(), start, end)
	if err != nil {
		config.GetLogger().Errorw("Compare request failed", "start_date", start.String(), "end_date", end.String(), "error", err)
		h.writeError(w, err)
		return
	}

	resp := model.Response{Data: cmp, Message: "Success"}
	for _, s := range cmp.Series {
		if s.HasMissing {
			resp.Warnings = append(resp.Warnings, missingWarning(s))
		}
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}
