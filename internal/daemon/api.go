package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deckhand/deckhand/internal/buildinfo"
	"github.com/deckhand/deckhand/internal/catalog"
	"github.com/deckhand/deckhand/internal/db"
	"github.com/deckhand/deckhand/internal/fleet"
	"github.com/deckhand/deckhand/internal/license"
	"github.com/deckhand/deckhand/internal/models"
	"github.com/deckhand/deckhand/internal/update"
)

const (
	maxJSONBytes       = 1 << 20
	defaultEventsLimit = 200
	maxEventsLimit     = 1000
)

// ControlAPI exposes the local control surface over the unix socket.
//
// Routes:
//
//	GET  /v1/host                      version and runtime availability
//	GET  /v1/products                  catalog with status and entitlement
//	POST /v1/products/{id}/start       start a product's container pair
//	POST /v1/products/{id}/stop        stop a product's container pair
//	GET  /v1/products/{id}/status      single product status
//	GET  /v1/runtime/summary           host summary, or available=false
//	POST /v1/runtime/prune             best-effort runtime housekeeping
//	GET  /v1/license                   persisted license, no side effects
//	POST /v1/license/activate          exchange a key for a paid license
//	POST /v1/license/validate          run the validation state machine
//	GET  /v1/license/products/{id}     local entitlement check
//	GET  /v1/fleet/agents              agent listing with filters
//	GET  /v1/fleet/agents/{id}/alerts  alerts for one agent
//	POST /v1/fleet/agents/{id}/alerts/{alertID}/resolve
//	POST /v1/fleet/agents/{id}/exec    command passthrough
//	GET  /v1/fleet/stats               fleet-wide agent statistics
//	GET  /v1/fleet/health              health score, tray text, critical flag
//	GET  /v1/updates/check             query the release feed
//	GET  /v1/events                    tail the local event log
//
// Raw transport errors never cross this boundary; failures surface as
// {success:false, message} payloads or typed HTTP errors.
type ControlAPI struct {
	catalog   *catalog.Catalog
	products  *ProductManager
	validator *license.Validator
	monitor   *fleet.Monitor
	updates   *update.Checker
	store     *db.Store
	metrics   *Metrics
	logger    *log.Logger
	now       func() time.Time
}

// NewControlAPI builds the control surface over the product manager and
// license validator. Fleet, updates, and the event log attach via the
// WithX setters.
func NewControlAPI(cat *catalog.Catalog, products *ProductManager, validator *license.Validator, logger *log.Logger) *ControlAPI {
	if logger == nil {
		logger = log.Default()
	}
	return &ControlAPI{
		catalog:   cat,
		products:  products,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// WithMonitor wires the fleet monitor; fleet routes 503 without one.
func (api *ControlAPI) WithMonitor(monitor *fleet.Monitor) *ControlAPI {
	if api == nil {
		return api
	}
	api.monitor = monitor
	return api
}

// WithUpdates wires the update checker.
func (api *ControlAPI) WithUpdates(checker *update.Checker) *ControlAPI {
	if api == nil {
		return api
	}
	api.updates = checker
	return api
}

// WithStore wires the event log.
func (api *ControlAPI) WithStore(store *db.Store) *ControlAPI {
	if api == nil {
		return api
	}
	api.store = store
	return api
}

// WithMetrics wires optional Prometheus metrics.
func (api *ControlAPI) WithMetrics(metrics *Metrics) *ControlAPI {
	if api == nil {
		return api
	}
	api.metrics = metrics
	return api
}

// Register installs the control routes on mux.
func (api *ControlAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/host", api.handleHost)
	mux.HandleFunc("/v1/products", api.handleProducts)
	mux.HandleFunc("/v1/products/", api.handleProductAction)
	mux.HandleFunc("/v1/runtime/summary", api.handleRuntimeSummary)
	mux.HandleFunc("/v1/runtime/prune", api.handleRuntimePrune)
	mux.HandleFunc("/v1/license", api.handleLicense)
	mux.HandleFunc("/v1/license/activate", api.handleLicenseActivate)
	mux.HandleFunc("/v1/license/validate", api.handleLicenseValidate)
	mux.HandleFunc("/v1/license/products/", api.handleLicenseProduct)
	mux.HandleFunc("/v1/fleet/agents", api.handleFleetAgents)
	mux.HandleFunc("/v1/fleet/agents/", api.handleFleetAgentAction)
	mux.HandleFunc("/v1/fleet/stats", api.handleFleetStats)
	mux.HandleFunc("/v1/fleet/health", api.handleFleetHealth)
	mux.HandleFunc("/v1/updates/check", api.handleUpdateCheck)
	mux.HandleFunc("/v1/events", api.handleEvents)
}

func (api *ControlAPI) handleHost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	writeJSON(w, http.StatusOK, V1HostResponse{
		Version:          buildinfo.Version,
		Commit:           buildinfo.Commit,
		RuntimeAvailable: api.products.RuntimeAvailable(r.Context()),
	})
}

func (api *ControlAPI) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	ctx := r.Context()
	lic, err := api.validator.GetLicense(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load license", err)
		return
	}
	statuses, err := api.products.Statuses(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve product statuses", err)
		return
	}
	out := make([]V1Product, 0, api.catalog.Len())
	for _, product := range api.catalog.Products() {
		entitled := lic != nil && lic.Entitles(product.ID)
		out = append(out, V1Product{
			ID:           product.ID,
			Name:         product.Name,
			Category:     product.Category,
			BackendPort:  product.BackendPort,
			FrontendPort: product.FrontendPort,
			MinTier:      product.MinTier,
			Status:       statuses[product.ID],
			Entitled:     entitled,
		})
	}
	writeJSON(w, http.StatusOK, V1ProductListResponse{Products: out})
}

// handleProductAction routes /v1/products/{id}/(start|stop|status).
func (api *ControlAPI) handleProductAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	productID, action := parts[0], parts[1]
	if _, ok := api.catalog.Lookup(productID); !ok {
		writeError(w, http.StatusNotFound, "unknown product: "+productID)
		return
	}

	switch action {
	case "start":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, []string{http.MethodPost})
			return
		}
		api.startProduct(w, r, productID)
	case "stop":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, []string{http.MethodPost})
			return
		}
		if err := api.products.StopProduct(r.Context(), productID); err != nil {
			writeJSON(w, http.StatusOK, V1ProductActionResponse{Success: false, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, V1ProductActionResponse{Success: true, Message: "stopped " + productID})
	case "status":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, []string{http.MethodGet})
			return
		}
		status, err := api.products.Status(r.Context(), productID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve product status", err)
			return
		}
		writeJSON(w, http.StatusOK, V1ProductStatusResponse{ProductID: productID, Status: status})
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (api *ControlAPI) startProduct(w http.ResponseWriter, r *http.Request, productID string) {
	ctx := r.Context()
	entitled, err := api.validator.CanAccessProduct(ctx, productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check entitlement", err)
		return
	}
	if !entitled {
		writeJSON(w, http.StatusForbidden, V1ProductActionResponse{
			Success: false,
			Message: "product " + productID + " is not covered by the current license",
		})
		return
	}
	if !api.products.RuntimeAvailable(ctx) {
		writeError(w, http.StatusServiceUnavailable, "container runtime unavailable")
		return
	}
	if err := api.products.StartProduct(ctx, productID); err != nil {
		writeJSON(w, http.StatusOK, V1ProductActionResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, V1ProductActionResponse{Success: true, Message: "started " + productID})
}

func (api *ControlAPI) handleRuntimeSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	summary := api.products.RuntimeSummary(r.Context())
	writeJSON(w, http.StatusOK, V1RuntimeSummaryResponse{
		Available: summary != nil,
		Summary:   summary,
	})
}

func (api *ControlAPI) handleRuntimePrune(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, []string{http.MethodPost})
		return
	}
	api.products.Prune(r.Context())
	writeJSON(w, http.StatusOK, V1ProductActionResponse{Success: true, Message: "prune completed"})
}

func (api *ControlAPI) handleLicense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	ctx := r.Context()
	lic, err := api.validator.GetLicense(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load license", err)
		return
	}
	if lic == nil {
		writeJSON(w, http.StatusOK, V1LicenseResponse{Valid: false})
		return
	}
	days, err := api.validator.DaysRemaining(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute days remaining", err)
		return
	}
	writeJSON(w, http.StatusOK, V1LicenseResponse{
		Tier:          lic.Tier,
		Key:           maskKey(lic.Key),
		Email:         lic.Email,
		Organization:  lic.Organization,
		Products:      lic.Products,
		IsTrial:       lic.IsTrial,
		ExpiresAt:     optionalTime(lic.ExpiresAt),
		TrialEndsAt:   optionalTime(lic.TrialEndsAt),
		DaysRemaining: days,
		Valid:         locallyValid(*lic, api.now()),
	})
}

func (api *ControlAPI) handleLicenseActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, []string{http.MethodPost})
		return
	}
	var req V1ActivateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	result, err := api.validator.Activate(r.Context(), strings.TrimSpace(req.Key))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "activation failed", err)
		return
	}
	outcome := "rejected"
	if result.Success {
		outcome = "activated"
	}
	api.metrics.IncLicenseValidation(outcome)
	writeJSON(w, http.StatusOK, result)
}

func (api *ControlAPI) handleLicenseValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, []string{http.MethodPost})
		return
	}
	valid, err := api.validator.Validate(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "validation failed", err)
		return
	}
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	api.metrics.IncLicenseValidation(outcome)
	writeJSON(w, http.StatusOK, V1ValidateResponse{Valid: valid})
}

func (api *ControlAPI) handleLicenseProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	productID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/license/products/"), "/")
	if productID == "" || strings.Contains(productID, "/") {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	entitled, err := api.validator.CanAccessProduct(r.Context(), productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check entitlement", err)
		return
	}
	writeJSON(w, http.StatusOK, V1EntitlementResponse{ProductID: productID, Entitled: entitled})
}

func (api *ControlAPI) requireMonitor(w http.ResponseWriter) bool {
	if api.monitor == nil {
		writeError(w, http.StatusServiceUnavailable, "fleet monitor is not configured")
		return false
	}
	return true
}

func (api *ControlAPI) handleFleetAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	if !api.requireMonitor(w) {
		return
	}
	filter := fleet.AgentFilter{
		Page:   queryInt(r, "page", 0),
		Limit:  queryInt(r, "limit", 0),
		Status: models.AgentStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	}
	page, err := api.monitor.Agents(r.Context(), filter)
	if err != nil {
		api.metrics.IncFleetPoll("failure")
		writeError(w, http.StatusBadGateway, "fleet listing failed", err)
		return
	}
	api.metrics.IncFleetPoll("success")
	writeJSON(w, http.StatusOK, page)
}

// handleFleetAgentAction routes /v1/fleet/agents/{id}/alerts,
// /v1/fleet/agents/{id}/alerts/{alertID}/resolve, and
// /v1/fleet/agents/{id}/exec.
func (api *ControlAPI) handleFleetAgentAction(w http.ResponseWriter, r *http.Request) {
	if !api.requireMonitor(w) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/fleet/agents/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	agentID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "alerts":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, []string{http.MethodGet})
			return
		}
		filter := fleet.AlertFilter{
			Severity: models.AlertSeverity(r.URL.Query().Get("severity")),
		}
		if raw := r.URL.Query().Get("resolved"); raw != "" {
			resolved, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid value for resolved", err)
				return
			}
			filter.Resolved = &resolved
		}
		alerts, err := api.monitor.AgentAlerts(r.Context(), agentID, filter)
		if err != nil {
			writeError(w, http.StatusBadGateway, "fleet alert listing failed", err)
			return
		}
		if alerts == nil {
			alerts = []models.Alert{}
		}
		writeJSON(w, http.StatusOK, alerts)
	case len(parts) == 4 && parts[1] == "alerts" && parts[3] == "resolve":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, []string{http.MethodPost})
			return
		}
		if err := api.monitor.ResolveAlert(r.Context(), agentID, parts[2]); err != nil {
			writeError(w, http.StatusBadGateway, "fleet alert resolve failed", err)
			return
		}
		writeJSON(w, http.StatusOK, V1ProductActionResponse{Success: true, Message: "alert resolved"})
	case len(parts) == 2 && parts[1] == "exec":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, []string{http.MethodPost})
			return
		}
		var req V1ExecRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
		if strings.TrimSpace(req.Command) == "" {
			writeError(w, http.StatusBadRequest, "command is required")
			return
		}
		result, err := api.monitor.ExecuteCommand(r.Context(), agentID, req.Command, req.Parameters)
		if err != nil {
			writeError(w, http.StatusBadGateway, "fleet command failed", err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (api *ControlAPI) handleFleetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	if !api.requireMonitor(w) {
		return
	}
	stats, err := api.monitor.Stats(r.Context())
	if err != nil {
		api.metrics.IncFleetPoll("failure")
		writeError(w, http.StatusBadGateway, "fleet stats failed", err)
		return
	}
	api.metrics.IncFleetPoll("success")
	writeJSON(w, http.StatusOK, stats)
}

func (api *ControlAPI) handleFleetHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	if !api.requireMonitor(w) {
		return
	}
	ctx := r.Context()
	score, err := api.monitor.HealthScore(ctx)
	if err != nil {
		api.metrics.IncFleetPoll("failure")
		writeError(w, http.StatusBadGateway, "fleet health failed", err)
		return
	}
	text, err := api.monitor.TrayStatusText(ctx)
	if err != nil {
		api.metrics.IncFleetPoll("failure")
		writeError(w, http.StatusBadGateway, "fleet health failed", err)
		return
	}
	api.metrics.IncFleetPoll("success")
	writeJSON(w, http.StatusOK, V1FleetHealthResponse{
		Score:      score,
		StatusText: text,
		Critical:   api.monitor.HasCriticalAlerts(ctx),
	})
}

func (api *ControlAPI) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	if api.updates == nil {
		writeError(w, http.StatusServiceUnavailable, "update feed url is not configured")
		return
	}
	result, err := api.updates.Check(r.Context())
	if err != nil {
		api.metrics.IncUpdateCheck("failure")
		writeError(w, http.StatusBadGateway, "update check failed", err)
		return
	}
	api.metrics.IncUpdateCheck("success")
	writeJSON(w, http.StatusOK, result)
}

func (api *ControlAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	if api.store == nil {
		writeError(w, http.StatusServiceUnavailable, "event log unavailable")
		return
	}
	limit := queryInt(r, "limit", defaultEventsLimit)
	if limit <= 0 {
		limit = defaultEventsLimit
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}
	product := r.URL.Query().Get("product")
	var events []db.Event
	var err error
	if after := queryInt(r, "after", 0); after > 0 {
		// Cursor mode for pollers resuming from a known event id.
		events, err = api.store.ListEventsAfter(r.Context(), int64(after), limit)
	} else {
		events, err = api.store.ListEventsTail(r.Context(), product, limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events", err)
		return
	}
	out := make([]V1Event, 0, len(events))
	for _, ev := range events {
		item := V1Event{
			ID:        ev.ID,
			Timestamp: ev.Timestamp,
			Kind:      ev.Kind,
			Message:   ev.Message,
		}
		if ev.ProductID != nil {
			item.ProductID = *ev.ProductID
		}
		if product != "" && item.ProductID != product {
			continue
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, V1EventListResponse{Events: out})
}

// locallyValid applies the purely local half of the validity check: trial
// window for trials, expiry for paid licenses.
func locallyValid(lic models.License, now time.Time) bool {
	if lic.IsTrial {
		return lic.TrialEndsAt.IsZero() || !now.After(lic.TrialEndsAt)
	}
	return lic.ExpiresAt.IsZero() || !now.After(lic.ExpiresAt)
}

// maskKey hides all but the last four characters of a license key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 4) + key[len(key)-4:]
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string, err ...error) {
	payload := V1ErrorResponse{
		Error: msg,
		Code:  daemonErrorCode(status, msg),
	}
	if len(err) > 0 && err[0] != nil {
		payload.Details = err[0].Error()
	}
	writeJSON(w, status, payload)
}

func writeMethodNotAllowed(w http.ResponseWriter, methods []string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
