// Package status maps the monitoring backend's raw numeric sensor states to
// the canonical set the dashboards present.
package status

// Status is the canonical sensor state.
type Status string

const (
	OK      Status = "ok"
	Warning Status = "warning"
	Error   Status = "error"
	Unusual Status = "unusual"
	Paused  Status = "paused"
	Unknown Status = "unknown"
)

// Raw status codes used by the backend. 5 is down, 13 is down (acknowledged),
// 14 is down (partial); all three render as error.
const (
	codeOK      = 3
	codeWarning = 4
	codeDown    = 5
	codeUnusual = 11
	codeDownAck = 13
	codeDownPar = 14
)

// FromCode normalizes a raw status code. Total over all integers.
func FromCode(code int) Status {
	switch code {
	case codeOK:
		return OK
	case codeWarning:
		return Warning
	case codeDown, codeDownAck, codeDownPar:
		return Error
	case codeUnusual:
		return Unusual
	case 7, 8, 9, 10, 12:
		return Paused
	default:
		return Unknown
	}
}

// IsErrorCode reports whether code is one of the down variants.
func IsErrorCode(code int) bool {
	return code == codeDown || code == codeDownAck || code == codeDownPar
}

// IsAlertCode reports whether a sensor with this raw code belongs on the
// dashboard alert list (warning or any down variant).
func IsAlertCode(code int) bool {
	return code == codeWarning || IsErrorCode(code)
}

// Worst aggregates raw status codes into one representative status: any down
// variant wins, then warning, then the normalized maximum raw code. The max
// runs over raw codes before normalizing; normalization is not monotonic, so
// e.g. [3,7] must come out paused.
func Worst(codes []int) Status {
	if len(codes) == 0 {
		return Unknown
	}

	maxCode := codes[0]
	hasWarning := false
	for _, c := range codes {
		if IsErrorCode(c) {
			return Error
		}
		if c == codeWarning {
			hasWarning = true
		}
		if c > maxCode {
			maxCode = c
		}
	}
	if hasWarning {
		return Warning
	}
	return FromCode(maxCode)
}

// branchPriority orders branch devices worst-first on the branches dashboard.
var branchPriority = map[Status]int{
	Error:   0,
	Unknown: 1,
	Warning: 2,
	Unusual: 3,
	Paused:  4,
	OK:      5,
}

// BranchPriority returns the sort rank for a branch device; lower is worse
// and sorts first.
func BranchPriority(s Status) int {
	if p, ok := branchPriority[s]; ok {
		return p
	}
	return len(branchPriority)
}
