package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seedtray/growlog/internal/gaps"
	"github.com/seedtray/growlog/internal/metrics"
	"github.com/seedtray/growlog/internal/models"
	"github.com/seedtray/growlog/internal/project"
)

type unitView struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	Name          string  `json:"name"`
	Crop          string  `json:"crop"`
	System        string  `json:"system"`
	Topology      string  `json:"topology,omitempty"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	PlantedDate   string  `json:"planted_date"`
	HarvestedDate string  `json:"harvested_date,omitempty"`
	Status        string  `json:"status"`
}

func toUnitView(u models.CultivationUnit) unitView {
	v := unitView{
		ID:          u.ID,
		OwnerID:     u.OwnerID,
		Name:        u.Name,
		Crop:        u.Crop,
		System:      string(u.System),
		Topology:    string(u.Topology),
		Latitude:    u.Latitude,
		Longitude:   u.Longitude,
		PlantedDate: models.DateKey(u.PlantedDate),
		Status:      string(u.Status),
	}
	if u.HarvestedDate.Valid {
		v.HarvestedDate = models.DateKey(u.HarvestedDate.Time)
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	units, err := s.store.ListActiveUnits()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "active_units": len(units)})
}

func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	var units []models.CultivationUnit
	var err error
	if owner := r.URL.Query().Get("owner"); owner != "" {
		units, err = s.store.ListUnitsByOwner(owner)
	} else {
		units, err = s.store.ListActiveUnits()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]unitView, 0, len(units))
	for _, u := range units {
		views = append(views, toUnitView(u))
	}
	writeJSON(w, http.StatusOK, views)
}

// loadUnit fetches the unit plus everything a walk or projection needs. A nil
// unit with a nil error means not found, already answered with a 404.
func (s *Server) loadUnit(w http.ResponseWriter, r *http.Request) (*models.CultivationUnit, []models.DailyLogEntry, map[string]models.WeatherSample, bool) {
	id := chi.URLParam(r, "id")
	unit, err := s.store.GetUnit(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, nil, false
	}
	if unit == nil {
		http.Error(w, "unit not found", http.StatusNotFound)
		return nil, nil, nil, false
	}

	logs, err := s.store.ListLogs(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, nil, false
	}
	weather, err := s.store.GetWeather(unit.Latitude, unit.Longitude,
		models.DayUTC(unit.PlantedDate), unit.EndDate(s.now()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, nil, nil, false
	}
	return unit, logs, weather, true
}

func (s *Server) handleUnitState(w http.ResponseWriter, r *http.Request) {
	unit, logs, weather, ok := s.loadUnit(w, r)
	if !ok {
		return
	}

	state, err := project.Project(*unit, logs, weather, s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	metrics.ProjectionsComputed.Inc()
	writeJSON(w, http.StatusOK, state)
}

type dayView struct {
	Day    string `json:"day"`
	Status string `json:"status"`
}

type rangeView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type gapsView struct {
	Days           []dayView   `json:"days"`
	LoggedDays     int         `json:"logged_days"`
	BackfilledDays int         `json:"backfilled_days"`
	MissingDays    int         `json:"missing_days"`
	NeedsCatchup   bool        `json:"needs_catchup"`
	MissingRanges  []rangeView `json:"missing_ranges"`
}

func (s *Server) handleUnitGaps(w http.ResponseWriter, r *http.Request) {
	unit, logs, weather, ok := s.loadUnit(w, r)
	if !ok {
		return
	}

	report := gaps.Detect(*unit, logs, weather, s.now())
	view := gapsView{
		Days:           make([]dayView, 0, len(report.Days)),
		LoggedDays:     report.LoggedDays,
		BackfilledDays: report.BackfilledDays,
		MissingDays:    report.MissingDays,
		NeedsCatchup:   report.NeedsCatchup,
		MissingRanges:  make([]rangeView, 0),
	}
	for _, d := range report.Days {
		view.Days = append(view.Days, dayView{Day: models.DateKey(d.Day), Status: string(d.Status)})
	}
	for _, rng := range report.MissingRanges() {
		view.MissingRanges = append(view.MissingRanges, rangeView{
			Start: models.DateKey(rng.Start),
			End:   models.DateKey(rng.End),
		})
	}
	writeJSON(w, http.StatusOK, view)
}

type logRequest struct {
	Day           string          `json:"day"`
	PH            *float64        `json:"ph"`
	EC            *float64        `json:"ec"`
	TempC         *float64        `json:"temp_c"`
	HumidityPct   *float64        `json:"humidity_pct"`
	WaterTempC    *float64        `json:"water_temp_c"`
	TelemetryKind string          `json:"telemetry_kind"`
	Telemetry     json.RawMessage `json:"telemetry"`
	Actions       []string        `json:"actions"`
	Notes         string          `json:"notes"`
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unit, err := s.store.GetUnit(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if unit == nil {
		http.Error(w, "unit not found", http.StatusNotFound)
		return
	}

	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		http.Error(w, "day must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	day = models.DayUTC(day)
	if day.Before(models.DayUTC(unit.PlantedDate)) {
		http.Error(w, "day precedes planted date", http.StatusBadRequest)
		return
	}
	if day.After(models.DayUTC(s.now())) {
		http.Error(w, "day is in the future", http.StatusBadRequest)
		return
	}

	entry := models.DailyLogEntry{
		UnitID:    unit.ID,
		Day:       day,
		PH:        nullFloat(req.PH),
		EC:        nullFloat(req.EC),
		Temp:      nullFloat(req.TempC),
		Humidity:  nullFloat(req.HumidityPct),
		WaterTemp: nullFloat(req.WaterTempC),
		Actions:   req.Actions,
		CreatedAt: s.now(),
	}
	if req.Notes != "" {
		entry.Notes = sql.NullString{String: req.Notes, Valid: true}
	}
	if req.TelemetryKind != "" {
		telemetry, err := models.DecodeTelemetry(req.TelemetryKind, string(req.Telemetry))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		entry.Telemetry = telemetry
	}

	logID, err := s.store.InsertLog(entry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": logID, "day": models.DateKey(day)})
}

type harvestRequest struct {
	HarvestDate string   `json:"harvest_date"`
	YieldGrams  *float64 `json:"yield_grams"`
	Quality     string   `json:"quality"`
	Notes       string   `json:"notes"`
}

func (s *Server) handleRecordHarvest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unit, err := s.store.GetUnit(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if unit == nil {
		http.Error(w, "unit not found", http.StatusNotFound)
		return
	}
	if unit.Status == models.UnitHarvested {
		http.Error(w, "unit already harvested", http.StatusConflict)
		return
	}

	var req harvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.HarvestDate)
	if err != nil {
		http.Error(w, "harvest_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	rec := models.HarvestRecord{
		UnitID:      unit.ID,
		HarvestDate: models.DayUTC(date),
		YieldGrams:  nullFloat(req.YieldGrams),
	}
	if req.Quality != "" {
		rec.Quality = sql.NullString{String: req.Quality, Valid: true}
	}
	if req.Notes != "" {
		rec.Notes = sql.NullString{String: req.Notes, Valid: true}
	}

	if err := s.store.RecordHarvest(rec); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "harvested", "harvest_date": models.DateKey(rec.HarvestDate)})
}

func (s *Server) handleCatchup(w http.ResponseWriter, r *http.Request) {
	if s.catchup == nil {
		http.Error(w, "catchup not configured", http.StatusServiceUnavailable)
		return
	}

	stats, err := s.catchup.RunOnce(r.Context(), s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"units_scanned":    stats.UnitsScanned,
		"ranges_fetched":   stats.RangesFetched,
		"samples_merged":   stats.SamplesMerged,
		"ghosts_committed": stats.GhostsCommitted,
		"fetch_errors":     stats.FetchErrors,
	})
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
