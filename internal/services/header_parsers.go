package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
)

// Header names carrying rate-limit signals
const (
	headerAppUsage         = "x-app-usage"
	headerBusinessUsage    = "x-business-use-case-usage"
	headerTwitterLimit     = "x-rate-limit-limit"
	headerTwitterRemaining = "x-rate-limit-remaining"
	headerGenericLimit     = "x-ratelimit-limit"
	headerGenericRemaining = "x-ratelimit-remaining"
)

// headerParser extracts the percentage of quota consumed from response headers.
// raw holds the headers it used. ok is false when no signal is present.
type headerParser func(headers map[string]string) (percentUsed float64, raw map[string]string, ok bool)

// defaultHeaderParsers maps platforms to their rate-limit header format.
// Platforms without an entry expose no usable signal.
func defaultHeaderParsers() map[platform.Platform]headerParser {
	return map[platform.Platform]headerParser{
		platform.Facebook:  parseGraphUsage,
		platform.Instagram: parseGraphUsage,
		platform.WhatsApp:  parseGraphUsage,
		platform.Twitter:   limitRemainingParser(headerTwitterLimit, headerTwitterRemaining),
		platform.LinkedIn:  limitRemainingParser(headerGenericLimit, headerGenericRemaining),
	}
}

// graphUsage is the body of the Graph API usage headers, values in percent
type graphUsage struct {
	CallCount    float64 `json:"call_count"`
	TotalCPUTime float64 `json:"total_cputime"`
	TotalTime    float64 `json:"total_time"`
}

func (u graphUsage) max() float64 {
	return math.Max(u.CallCount, math.Max(u.TotalCPUTime, u.TotalTime))
}

// parseGraphUsage reads X-App-Usage and X-Business-Use-Case-Usage and reports
// the highest percentage found in either.
func parseGraphUsage(headers map[string]string) (float64, map[string]string, bool) {
	raw := map[string]string{}
	found := false
	percent := 0.0

	if v, ok := lookupHeader(headers, headerAppUsage); ok {
		var u graphUsage
		if err := json.Unmarshal([]byte(v), &u); err == nil {
			raw[headerAppUsage] = v
			percent = math.Max(percent, u.max())
			found = true
		}
	}

	if v, ok := lookupHeader(headers, headerBusinessUsage); ok {
		var byBusiness map[string][]graphUsage
		if err := json.Unmarshal([]byte(v), &byBusiness); err == nil {
			raw[headerBusinessUsage] = v
			for _, entries := range byBusiness {
				for _, u := range entries {
					percent = math.Max(percent, u.max())
				}
			}
			found = true
		}
	}

	return percent, raw, found
}

// limitRemainingParser builds a parser for APIs that report a window limit and
// the remaining calls in it.
func limitRemainingParser(limitHeader, remainingHeader string) headerParser {
	return func(headers map[string]string) (float64, map[string]string, bool) {
		limitStr, ok := lookupHeader(headers, limitHeader)
		if !ok {
			return 0, nil, false
		}
		remainingStr, ok := lookupHeader(headers, remainingHeader)
		if !ok {
			return 0, nil, false
		}

		limit, err := strconv.ParseFloat(strings.TrimSpace(limitStr), 64)
		if err != nil || limit <= 0 {
			return 0, nil, false
		}
		remaining, err := strconv.ParseFloat(strings.TrimSpace(remainingStr), 64)
		if err != nil {
			return 0, nil, false
		}
		if remaining < 0 {
			remaining = 0
		}

		raw := map[string]string{limitHeader: limitStr, remainingHeader: remainingStr}
		return (limit - remaining) / limit * 100, raw, true
	}
}

// lookupHeader finds a header value ignoring key case
func lookupHeader(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
