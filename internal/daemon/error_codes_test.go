package daemon

import (
	"net/http"
	"testing"
)

func TestDaemonErrorCodeFromMessage(t *testing.T) {
	cases := []struct {
		status  int
		message string
		want    string
	}{
		{http.StatusNotFound, "unknown product: crm", daemonErrorCodeProductNotFound},
		{http.StatusForbidden, "product erp is not covered by the current license", daemonErrorCodeProductNotEntitled},
		{http.StatusServiceUnavailable, "container runtime unavailable", daemonErrorCodeRuntimeUnavailable},
		{http.StatusOK, "pull image registry.example.com/crm-backend:latest: image not found", daemonErrorCodeProductStartFailed},
		{http.StatusOK, "stop container crm-backend: boom", daemonErrorCodeProductStopFailed},
		{http.StatusOK, "license key is required", daemonErrorCodeLicenseMissingKey},
		{http.StatusOK, "could not reach the license server; check your connection and try again", daemonErrorCodeLicenseUnreachable},
		{http.StatusOK, "license key was rejected: expired", daemonErrorCodeLicenseRejected},
		{http.StatusServiceUnavailable, "fleet monitor is not configured", daemonErrorCodeFleetUnconfigured},
		{http.StatusBadGateway, "fleet listing failed", daemonErrorCodeFleetUpstream},
		{http.StatusServiceUnavailable, "update feed url is not configured", daemonErrorCodeUpdateUnconfigured},
		{http.StatusBadGateway, "update feed returned status 500", daemonErrorCodeUpdateUnreachable},
		{http.StatusBadRequest, "invalid request body", daemonErrorCodeValidationMalformedJSON},
		{http.StatusBadRequest, "command is required", daemonErrorCodeValidationMissingField},
	}
	for _, tc := range cases {
		if got := daemonErrorCode(tc.status, tc.message); got != tc.want {
			t.Errorf("daemonErrorCode(%d, %q) = %q, want %q", tc.status, tc.message, got, tc.want)
		}
	}
}

func TestDaemonErrorCodeStatusFallback(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, daemonErrorCodeValidationBadRequest},
		{http.StatusNotFound, daemonErrorCodeResourceNotFound},
		{http.StatusConflict, daemonErrorCodeConflict},
		{http.StatusInternalServerError, daemonErrorCodeServerError},
		{http.StatusBadGateway, daemonErrorCodeUnavailable},
		{http.StatusTeapot, daemonErrorCodeInternalError},
	}
	for _, tc := range cases {
		if got := daemonErrorCode(tc.status, "something else entirely"); got != tc.want {
			t.Errorf("daemonErrorCode(%d) = %q, want %q", tc.status, got, tc.want)
		}
	}
}
