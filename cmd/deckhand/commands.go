package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultEventLimit     = 200
	jsonFlagDescription   = "output json"
)

var errHelp = errors.New("help requested")

type commonFlags struct {
	socketPath string
	jsonOutput bool
	timeout    time.Duration
}

func (c *commonFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.socketPath, "socket", c.socketPath, "path to deckhandd socket")
	fs.BoolVar(&c.jsonOutput, "json", c.jsonOutput, jsonFlagDescription)
	fs.DurationVar(&c.timeout, "timeout", c.timeout, "request timeout (e.g. 30s, 2m)")
}

// keyValueFlag collects repeatable key=value flags into a map.
type keyValueFlag map[string]string

func (f keyValueFlag) String() string {
	pairs := make([]string, 0, len(f))
	for k, v := range f {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (f keyValueFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	f[strings.TrimSpace(key)] = val
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, usage func(), help *bool) error {
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		usage()
		return err
	}
	if help != nil && *help {
		usage()
		return errHelp
	}
	return nil
}

func (c commonFlags) client() *apiClient {
	return newAPIClient(c.socketPath, c.timeout)
}

func runHostCommand(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("host")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/host", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var host hostResponse
	if err := json.Unmarshal(payload, &host); err != nil {
		return err
	}
	fmt.Printf("Version: %s\n", host.Version)
	if host.Commit != "" {
		fmt.Printf("Commit: %s\n", host.Commit)
	}
	fmt.Printf("Runtime Available: %t\n", host.RuntimeAvailable)
	return nil
}

func runProductCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printProductUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runProductList(ctx, args[1:], base)
	case "start", "stop", "status":
		return runProductAction(ctx, args[0], args[1:], base)
	default:
		printProductUsage()
		return fmt.Errorf("unknown product command %q", args[0])
	}
}

func runProductList(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("product list")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printProductUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/products", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var list productListResponse
	if err := json.Unmarshal(payload, &list); err != nil {
		return err
	}
	printProductList(list.Products)
	return nil
}

func runProductAction(ctx context.Context, action string, args []string, base commonFlags) error {
	fs := newFlagSet("product " + action)
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printProductUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printProductUsage()
		return fmt.Errorf("product %s requires a product id", action)
	}
	productID := rest[0]

	switch action {
	case "status":
		payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(productID)+"/status", nil)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return prettyPrintJSON(os.Stdout, payload)
		}
		var status productStatusResponse
		if err := json.Unmarshal(payload, &status); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", status.ProductID, status.Status)
		return nil
	default:
		payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/products/"+url.PathEscape(productID)+"/"+action, nil)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return prettyPrintJSON(os.Stdout, payload)
		}
		var result actionResponse
		if err := json.Unmarshal(payload, &result); err != nil {
			return err
		}
		if !result.Success {
			return newCLIError(result.Message, "check `deckhand events --product "+productID+"` for details")
		}
		fmt.Println(result.Message)
		return nil
	}
}

func runLicenseCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printLicenseUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runLicenseShow(ctx, args[1:], base)
	case "activate":
		return runLicenseActivate(ctx, args[1:], base)
	case "validate":
		return runLicenseValidate(ctx, args[1:], base)
	case "check":
		return runLicenseCheck(ctx, args[1:], base)
	default:
		printLicenseUsage()
		return fmt.Errorf("unknown license command %q", args[0])
	}
}

func runLicenseShow(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("license show")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printLicenseUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/license", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var lic licenseResponse
	if err := json.Unmarshal(payload, &lic); err != nil {
		return err
	}
	printLicense(lic)
	return nil
}

func runLicenseActivate(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("license activate")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printLicenseUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 || strings.TrimSpace(rest[0]) == "" {
		printLicenseUsage()
		return fmt.Errorf("license activate requires a license key")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/license/activate", activateRequest{Key: rest[0]})
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var result actionResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}
	if !result.Success {
		return newCLIError(result.Message, "")
	}
	fmt.Println(result.Message)
	return nil
}

func runLicenseValidate(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("license validate")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printLicenseUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/license/validate", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var result validateResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}
	if result.Valid {
		fmt.Println("license is valid")
	} else {
		fmt.Println("license is NOT valid")
	}
	return nil
}

func runLicenseCheck(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("license check")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printLicenseUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printLicenseUsage()
		return fmt.Errorf("license check requires a product id")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/license/products/"+url.PathEscape(rest[0]), nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var ent entitlementResponse
	if err := json.Unmarshal(payload, &ent); err != nil {
		return err
	}
	if ent.Entitled {
		fmt.Printf("%s: entitled\n", ent.ProductID)
	} else {
		fmt.Printf("%s: not entitled\n", ent.ProductID)
	}
	return nil
}

func runFleetCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printFleetUsage()
		return nil
	}
	switch args[0] {
	case "agents":
		return runFleetAgents(ctx, args[1:], base)
	case "alerts":
		return runFleetAlerts(ctx, args[1:], base)
	case "resolve":
		return runFleetResolve(ctx, args[1:], base)
	case "exec":
		return runFleetExec(ctx, args[1:], base)
	case "stats":
		return runFleetStats(ctx, args[1:], base)
	case "health":
		return runFleetHealth(ctx, args[1:], base)
	default:
		printFleetUsage()
		return fmt.Errorf("unknown fleet command %q", args[0])
	}
}

func runFleetAgents(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("fleet agents")
	opts := base
	opts.bind(fs)
	var status, search string
	var page, limit int
	var help bool
	fs.StringVar(&status, "status", "", "filter by agent status (ACTIVE, OFFLINE, ERROR, MAINTENANCE)")
	fs.StringVar(&search, "search", "", "filter by hostname substring")
	fs.IntVar(&page, "page", 0, "page number")
	fs.IntVar(&limit, "limit", 0, "page size")
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printFleetUsage, &help); err != nil {
		return err
	}
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if search != "" {
		query.Set("search", search)
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/fleet/agents"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var pageResp agentPageResponse
	if err := json.Unmarshal(payload, &pageResp); err != nil {
		return err
	}
	printAgentList(pageResp)
	return nil
}

func runFleetAlerts(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("fleet alerts")
	opts := base
	opts.bind(fs)
	var severity, resolved string
	var help bool
	fs.StringVar(&severity, "severity", "", "filter by severity (INFO, WARNING, ERROR, CRITICAL)")
	fs.StringVar(&resolved, "resolved", "", "filter by resolution state (true or false)")
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printFleetUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printFleetUsage()
		return fmt.Errorf("fleet alerts requires an agent id")
	}
	query := url.Values{}
	if severity != "" {
		query.Set("severity", severity)
	}
	if resolved != "" {
		query.Set("resolved", resolved)
	}
	path := "/v1/fleet/agents/" + url.PathEscape(rest[0]) + "/alerts"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var alerts []alertResponse
	if err := json.Unmarshal(payload, &alerts); err != nil {
		return err
	}
	printAlertList(alerts)
	return nil
}

func runFleetResolve(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("fleet resolve")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printFleetUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		printFleetUsage()
		return fmt.Errorf("fleet resolve requires an agent id and an alert id")
	}
	path := "/v1/fleet/agents/" + url.PathEscape(rest[0]) + "/alerts/" + url.PathEscape(rest[1]) + "/resolve"
	payload, err := opts.client().doJSON(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	fmt.Println("alert resolved")
	return nil
}

func runFleetExec(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("fleet exec")
	opts := base
	opts.bind(fs)
	var command string
	var help bool
	params := keyValueFlag{}
	fs.StringVar(&command, "command", "", "command to execute on the agent")
	fs.Var(params, "param", "command parameter as key=value, repeatable")
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printFleetUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printFleetUsage()
		return fmt.Errorf("fleet exec requires an agent id")
	}
	if strings.TrimSpace(command) == "" {
		printFleetUsage()
		return fmt.Errorf("fleet exec requires --command")
	}
	req := execRequest{Command: command}
	if len(params) > 0 {
		req.Parameters = params
	}
	path := "/v1/fleet/agents/" + url.PathEscape(rest[0]) + "/exec"
	payload, err := opts.client().doJSON(ctx, http.MethodPost, path, req)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var result execResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}
	if result.Output != "" {
		fmt.Print(result.Output)
		if !strings.HasSuffix(result.Output, "\n") {
			fmt.Println()
		}
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("command exited with status %d", result.ExitCode)
	}
	return nil
}

func runFleetStats(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("fleet stats")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printFleetUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/fleet/stats", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var stats fleetStatsResponse
	if err := json.Unmarshal(payload, &stats); err != nil {
		return err
	}
	fmt.Printf("Total: %d\n", stats.Total)
	fmt.Printf("Active: %d\n", stats.Active)
	fmt.Printf("Offline: %d\n", stats.Offline)
	fmt.Printf("Error: %d\n", stats.Error)
	fmt.Printf("Maintenance: %d\n", stats.Maintenance)
	fmt.Printf("Unresolved Alerts: %d\n", stats.TotalUnresolvedAlerts)
	return nil
}

func runFleetHealth(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("fleet health")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printFleetUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/fleet/health", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var health fleetHealthResponse
	if err := json.Unmarshal(payload, &health); err != nil {
		return err
	}
	fmt.Printf("Score: %d\n", health.Score)
	fmt.Printf("Status: %s\n", health.StatusText)
	fmt.Printf("Critical Alerts: %t\n", health.Critical)
	return nil
}

func runRuntimeCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printRuntimeUsage()
		return nil
	}
	switch args[0] {
	case "summary":
		return runRuntimeSummary(ctx, args[1:], base)
	case "prune":
		return runRuntimePrune(ctx, args[1:], base)
	default:
		printRuntimeUsage()
		return fmt.Errorf("unknown runtime command %q", args[0])
	}
}

func runRuntimeSummary(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("runtime summary")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printRuntimeUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/runtime/summary", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var summary runtimeSummaryResponse
	if err := json.Unmarshal(payload, &summary); err != nil {
		return err
	}
	if !summary.Available || summary.Summary == nil {
		fmt.Println("runtime summary unavailable")
		return nil
	}
	s := summary.Summary
	fmt.Printf("Containers: %d (%d running, %d stopped)\n", s.Containers, s.ContainersRunning, s.ContainersStopped)
	fmt.Printf("Images: %d\n", s.Images)
	fmt.Printf("CPUs: %d\n", s.CPUs)
	fmt.Printf("Memory: %.1f GiB\n", float64(s.MemoryBytes)/(1<<30))
	if s.ServerVersion != "" {
		fmt.Printf("Server Version: %s\n", s.ServerVersion)
	}
	if s.OperatingSystem != "" {
		fmt.Printf("Operating System: %s\n", s.OperatingSystem)
	}
	return nil
}

func runRuntimePrune(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("runtime prune")
	opts := base
	opts.bind(fs)
	var force bool
	var help bool
	fs.BoolVar(&force, "force", false, "skip the confirmation prompt")
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printRuntimeUsage, &help); err != nil {
		return err
	}
	if err := requireConfirmation(confirmOptions{
		action:     "prune unused containers, images, volumes, and networks",
		force:      force,
		jsonOutput: opts.jsonOutput,
	}); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/runtime/prune", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	fmt.Println("prune completed")
	return nil
}

func runUpdateCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 || args[0] != "check" {
		printUpdateUsage()
		if len(args) == 0 {
			return nil
		}
		return fmt.Errorf("unknown update command %q", args[0])
	}
	fs := newFlagSet("update check")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args[1:], printUpdateUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/updates/check", nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var result updateCheckResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}
	if !result.HasUpdate {
		fmt.Printf("up to date (%s)\n", result.CurrentVersion)
		return nil
	}
	fmt.Printf("update available: %s -> %s\n", result.CurrentVersion, result.Version)
	if result.DownloadURL != "" {
		fmt.Printf("Download: %s\n", result.DownloadURL)
	}
	if result.Checksum != "" {
		fmt.Printf("Checksum: %s\n", result.Checksum)
	}
	if result.Notes != "" {
		fmt.Printf("Notes: %s\n", result.Notes)
	}
	return nil
}

func runEventsCommand(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("events")
	opts := base
	opts.bind(fs)
	var product string
	var limit, after int
	var help bool
	fs.StringVar(&product, "product", "", "filter by product id")
	fs.IntVar(&limit, "limit", defaultEventLimit, "maximum events to show")
	fs.IntVar(&after, "after", 0, "only events with id greater than this")
	fs.BoolVar(&help, "help", false, "show help")
	if err := parseFlags(fs, args, printEventsUsage, &help); err != nil {
		return err
	}
	query := url.Values{}
	if product != "" {
		query.Set("product", product)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if after > 0 {
		query.Set("after", strconv.Itoa(after))
	}
	path := "/v1/events"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var list eventListResponse
	if err := json.Unmarshal(payload, &list); err != nil {
		return err
	}
	for _, ev := range list.Events {
		product := ev.ProductID
		if product == "" {
			product = "-"
		}
		fmt.Printf("%s  %-22s %-10s %s\n", ev.Timestamp, ev.Kind, product, ev.Message)
	}
	return nil
}

func printProductList(products []productResponse) {
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTATUS\tENTITLED\tTIER\tPORTS")
	for _, p := range products {
		entitled := "no"
		if p.Entitled {
			entitled = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			p.ID, p.Name, orDash(p.Category), p.Status, entitled, p.MinTier, p.BackendPort, p.FrontendPort)
	}
	_ = w.Flush()
}

func printLicense(lic licenseResponse) {
	if lic.Tier == "" {
		fmt.Println("no license on this machine; run `deckhand license validate` to start a trial")
		return
	}
	fmt.Printf("Tier: %s\n", lic.Tier)
	fmt.Printf("Key: %s\n", orDash(lic.Key))
	fmt.Printf("Email: %s\n", orDash(lic.Email))
	fmt.Printf("Organization: %s\n", orDash(lic.Organization))
	fmt.Printf("Trial: %t\n", lic.IsTrial)
	fmt.Printf("Valid: %t\n", lic.Valid)
	fmt.Printf("Days Remaining: %d\n", lic.DaysRemaining)
	if len(lic.Products) > 0 {
		fmt.Printf("Products: %s\n", strings.Join(lic.Products, ", "))
	}
	if lic.ExpiresAt != "" {
		fmt.Printf("Expires At: %s\n", lic.ExpiresAt)
	}
	if lic.TrialEndsAt != "" {
		fmt.Printf("Trial Ends At: %s\n", lic.TrialEndsAt)
	}
}

func printAgentList(page agentPageResponse) {
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHOSTNAME\tSTATUS\tLAST SEEN")
	for _, agent := range page.Agents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", agent.ID, orDash(agent.Hostname), agent.Status, orDash(agent.LastSeen))
	}
	_ = w.Flush()
	fmt.Printf("total: %d\n", page.Total)
}

func printAlertList(alerts []alertResponse) {
	if len(alerts) == 0 {
		fmt.Println("no alerts")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEVERITY\tRESOLVED\tMESSAGE")
	for _, alert := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", alert.ID, alert.Severity, alert.Resolved, alert.Message)
	}
	_ = w.Flush()
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
