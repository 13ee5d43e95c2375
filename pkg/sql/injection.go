package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes an injection pattern detected in a
// parameter value.
type InjectionCheckResult struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Name of the parameter that failed the check
}

// CheckParameterForInjection uses libinjection to detect SQL injection
// patterns in a parameter value. Only string values are checked;
// integers and other types cannot carry injection patterns and return
// nil. Returns nil when no injection is detected.
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		Fingerprint: string(fingerprint),
		ParamName:   paramName,
	}
}

// CheckAllParameters screens every parameter value and returns a result
// for each one that looks like an injection attempt.
func CheckAllParameters(params map[string]any) []InjectionCheckResult {
	var results []InjectionCheckResult
	for name, value := range params {
		if r := CheckParameterForInjection(name, value); r != nil {
			results = append(results, *r)
		}
	}
	return results
}
