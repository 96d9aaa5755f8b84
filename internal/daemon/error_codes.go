package daemon

import (
	"net/http"
	"strings"
)

const daemonErrorCodeVersion = "v1"

const (
	// Validation domain
	daemonErrorCodeValidationBadRequest    = daemonErrorCodeVersion + "/validation/bad_request"
	daemonErrorCodeValidationMalformedJSON = daemonErrorCodeVersion + "/validation/malformed_json"
	daemonErrorCodeValidationMissingField  = daemonErrorCodeVersion + "/validation/missing_required_field"
	daemonErrorCodeValidationInvalidValue  = daemonErrorCodeVersion + "/validation/invalid_value"

	// Product domain
	daemonErrorCodeProductNotFound    = daemonErrorCodeVersion + "/product/not_found"
	daemonErrorCodeProductNotEntitled = daemonErrorCodeVersion + "/product/not_entitled"
	daemonErrorCodeProductStartFailed = daemonErrorCodeVersion + "/product/start_failed"
	daemonErrorCodeProductStopFailed  = daemonErrorCodeVersion + "/product/stop_failed"

	// Runtime domain
	daemonErrorCodeRuntimeUnavailable = daemonErrorCodeVersion + "/runtime/unavailable"

	// License domain
	daemonErrorCodeLicenseUnreachable = daemonErrorCodeVersion + "/license/authority_unreachable"
	daemonErrorCodeLicenseRejected    = daemonErrorCodeVersion + "/license/rejected"
	daemonErrorCodeLicenseMissingKey  = daemonErrorCodeVersion + "/license/missing_key"

	// Fleet domain
	daemonErrorCodeFleetUnconfigured = daemonErrorCodeVersion + "/fleet/not_configured"
	daemonErrorCodeFleetUpstream     = daemonErrorCodeVersion + "/fleet/upstream_error"
	daemonErrorCodeFleetNotFound     = daemonErrorCodeVersion + "/fleet/not_found"

	// Update domain
	daemonErrorCodeUpdateUnconfigured = daemonErrorCodeVersion + "/update/not_configured"
	daemonErrorCodeUpdateUnreachable  = daemonErrorCodeVersion + "/update/feed_unreachable"

	// Generic fallbacks
	daemonErrorCodeResourceNotFound = daemonErrorCodeVersion + "/resource/not_found"
	daemonErrorCodeConflict         = daemonErrorCodeVersion + "/resource/conflict"
	daemonErrorCodeInternalError    = daemonErrorCodeVersion + "/internal/error"
	daemonErrorCodeServerError      = daemonErrorCodeVersion + "/internal/server_error"
	daemonErrorCodeUnavailable      = daemonErrorCodeVersion + "/internal/unavailable"
)

func daemonErrorCode(status int, message string) string {
	normalized := strings.TrimSpace(strings.ToLower(message))
	if normalized != "" {
		if code := daemonErrorCodeFromMessage(status, normalized); code != "" {
			return code
		}
	}
	return daemonErrorCodeByStatus(status)
}

func daemonErrorCodeFromMessage(status int, normalized string) string {
	switch {
	case strings.Contains(normalized, "request body is required"):
		return daemonErrorCodeValidationMissingField
	case strings.Contains(normalized, "invalid request body"):
		return daemonErrorCodeValidationMalformedJSON
	case strings.Contains(normalized, "unexpected trailing data"):
		return daemonErrorCodeValidationMalformedJSON
	case strings.Contains(normalized, "unknown product"):
		return daemonErrorCodeProductNotFound
	case strings.Contains(normalized, "not entitled") || strings.Contains(normalized, "not covered by the current license"):
		return daemonErrorCodeProductNotEntitled
	case strings.Contains(normalized, "container runtime unavailable") || strings.Contains(normalized, "runtime is not available"):
		return daemonErrorCodeRuntimeUnavailable
	case strings.Contains(normalized, "pull image") || strings.Contains(normalized, "create container") || strings.Contains(normalized, "start container"):
		return daemonErrorCodeProductStartFailed
	case strings.Contains(normalized, "stop container"):
		return daemonErrorCodeProductStopFailed
	case strings.Contains(normalized, "license key is required"):
		return daemonErrorCodeLicenseMissingKey
	case strings.Contains(normalized, "could not reach the license server"):
		return daemonErrorCodeLicenseUnreachable
	case strings.Contains(normalized, "license key was rejected"):
		return daemonErrorCodeLicenseRejected
	case strings.Contains(normalized, "fleet monitor is not configured"):
		return daemonErrorCodeFleetUnconfigured
	case strings.Contains(normalized, "agent") && strings.Contains(normalized, "not found"):
		return daemonErrorCodeFleetNotFound
	case strings.Contains(normalized, "alert") && strings.Contains(normalized, "not found"):
		return daemonErrorCodeFleetNotFound
	case strings.Contains(normalized, "fleet") || strings.Contains(normalized, "monitor api"):
		return daemonErrorCodeFleetUpstream
	case strings.Contains(normalized, "update feed url is not configured"):
		return daemonErrorCodeUpdateUnconfigured
	case strings.Contains(normalized, "update feed"):
		return daemonErrorCodeUpdateUnreachable
	case strings.Contains(normalized, "not found"):
		return daemonErrorCodeResourceNotFound
	case strings.Contains(normalized, "is required") || strings.Contains(normalized, "must be set"):
		return daemonErrorCodeValidationMissingField
	case strings.Contains(normalized, "invalid value"):
		return daemonErrorCodeValidationInvalidValue
	case strings.Contains(normalized, "invalid json"):
		return daemonErrorCodeValidationMalformedJSON
	case strings.Contains(normalized, "invalid request"):
		return daemonErrorCodeValidationBadRequest
	case strings.Contains(normalized, "conflict"):
		return daemonErrorCodeConflict
	case strings.Contains(normalized, "unavailable"):
		if status >= http.StatusInternalServerError {
			return daemonErrorCodeUnavailable
		}
		return daemonErrorCodeConflict
	}
	return ""
}

func daemonErrorCodeByStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return daemonErrorCodeValidationBadRequest
	case http.StatusNotFound:
		return daemonErrorCodeResourceNotFound
	case http.StatusConflict:
		return daemonErrorCodeConflict
	case http.StatusInternalServerError:
		return daemonErrorCodeServerError
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusBadGateway:
		return daemonErrorCodeUnavailable
	default:
		if status >= http.StatusInternalServerError {
			return daemonErrorCodeServerError
		}
	}
	return daemonErrorCodeInternalError
}
