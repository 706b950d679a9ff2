package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/naming"
)

const (
	EnvStage         = "APIGWMOCK_STAGE"
	EnvLogLevel      = "APIGWMOCK_LOG_LEVEL"
	EnvLogFormat     = "APIGWMOCK_LOG_FORMAT"
	EnvErrorTopicARN = "APIGWMOCK_ERROR_TOPIC_ARN"
	EnvErrorSubject  = "APIGWMOCK_ERROR_SUBJECT"
)

// Decode reads YAML overrides from r and applies them on top of Default().
// Unknown fields are rejected. An empty document yields the defaults.
func Decode(r io.Reader) (*Plan, error) {
	plan := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeConfigLoad, "read plan", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return plan, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(plan); err != nil && !errors.Is(err, io.EOF) {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeConfigLoad, "decode plan", err)
	}
	return plan, nil
}

// Load reads a YAML plan file. An empty path returns Default().
func Load(path string) (*Plan, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	//nolint:gosec // Plan path is supplied by the operator on the command line.
	f, err := os.Open(path)
	if err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeConfigLoad, "open plan "+path, err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// ApplyEnv applies environment overrides. getenv defaults to os.Getenv.
//
// APIGWMOCK_STAGE renames the deployment stage; a usage plan bound to the
// previous stage follows the rename. A value with no usable characters is
// rejected.
func ApplyEnv(p *Plan, getenv func(string) string) error {
	if p == nil {
		return nil
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	raw := strings.TrimSpace(getenv(EnvStage))
	if raw == "" {
		return nil
	}
	stage := naming.NormalizeStage(raw)
	if stage == "" {
		return apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid,
			"%s: %q is not a usable stage name (letters, digits, hyphens and underscores)", EnvStage, raw)
	}
	if p.UsagePlan.Stage == p.RestAPI.StageName {
		p.UsagePlan.Stage = stage
	}
	p.RestAPI.StageName = stage
	return nil
}

// Marshal renders the plan as YAML.
func Marshal(p *Plan) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
