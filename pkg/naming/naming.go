package naming

import (
	"regexp"
	"strings"
)

const maxStackNameLen = 128

var (
	nonStageChars = regexp.MustCompile(`[^a-z0-9_-]+`)
	nonStackChars = regexp.MustCompile(`[^A-Za-z0-9-]+`)
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]+`)
	multiDash     = regexp.MustCompile(`-+`)
)

// NormalizeStage maps stage aliases to canonical API Gateway stage names.
//
// Stage names only allow letters, digits, hyphens and underscores.
func NormalizeStage(stage string) string {
	stage = strings.ToLower(strings.TrimSpace(stage))
	switch stage {
	case "prod", "production", "live":
		return "prod"
	case "dev", "development":
		return "dev"
	case "stg", "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	case "":
		return ""
	default:
		stage = strings.ReplaceAll(stage, " ", "-")
		stage = nonStageChars.ReplaceAllString(stage, "-")
		stage = multiDash.ReplaceAllString(stage, "-")
		return strings.Trim(stage, "-")
	}
}

func sanitizeStackPart(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "_", "-")
	value = strings.ReplaceAll(value, " ", "-")
	value = nonStackChars.ReplaceAllString(value, "-")
	value = multiDash.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}

// StackName joins parts into a valid CloudFormation stack name.
//
// The result starts with a letter, contains only letters, digits and hyphens,
// and is at most 128 characters long. Case is preserved.
func StackName(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := sanitizeStackPart(part); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	name := strings.Join(cleaned, "-")
	name = strings.TrimLeft(name, "-0123456789")
	if len(name) > maxStackNameLen {
		name = strings.TrimRight(name[:maxStackNameLen], "-")
	}
	return name
}

// LogicalID strips everything but letters and digits, as CloudFormation
// requires for logical ids and output names.
func LogicalID(value string) string {
	return nonAlnum.ReplaceAllString(strings.TrimSpace(value), "")
}
