// Package outputs reads the stack outputs written by `cdk deploy --outputs-file`.
package outputs

import (
	"encoding/json"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/theory-cloud/apigwmock"
	"github.com/theory-cloud/apigwmock/pkg/config"
)

// StackOutputs are the deployed outputs of one stack.
type StackOutputs struct {
	StackName string
	APIURL    string
	APIKeyID  string
	// All holds every output of the stack, including the two above.
	All map[string]string
}

// Parse decodes an outputs file. The document maps stack names to output maps.
// An empty stackName selects the only stack in the file.
func Parse(r io.Reader, stackName string) (*StackOutputs, error) {
	var doc map[string]map[string]any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeOutputsMissing, "decode outputs file", err)
	}

	name := strings.TrimSpace(stackName)
	if name == "" {
		names := make([]string, 0, len(doc))
		for n := range doc {
			names = append(names, n)
		}
		sort.Strings(names)
		if len(names) != 1 {
			return nil, apigwmock.Errorf(apigwmock.ErrorCodeOutputsMissing,
				"outputs file has %d stacks (%s); pass a stack name", len(names), strings.Join(names, ", "))
		}
		name = names[0]
	}

	raw, ok := doc[name]
	if !ok {
		return nil, apigwmock.Errorf(apigwmock.ErrorCodeOutputsMissing, "stack %q not found in outputs file", name)
	}

	out := &StackOutputs{StackName: name, All: make(map[string]string, len(raw))}
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, apigwmock.WrapError(apigwmock.ErrorCodeOutputsMissing, "encode output "+k, err)
			}
			s = string(b)
		}
		out.All[k] = s
	}
	out.APIURL = out.All[config.OutputAPIURL]
	out.APIKeyID = out.All[config.OutputAPIKeyID]
	return out, nil
}

// Load reads an outputs file from path.
func Load(path, stackName string) (*StackOutputs, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apigwmock.WrapError(apigwmock.ErrorCodeOutputsMissing, "open outputs file", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f, stackName)
}

// Validate requires a non-empty API key id and an absolute http(s) API URL.
func (o *StackOutputs) Validate() error {
	if o == nil {
		return apigwmock.NewError(apigwmock.ErrorCodeOutputsMissing, "outputs are nil")
	}

	var problems []string
	if strings.TrimSpace(o.APIURL) == "" {
		problems = append(problems, config.OutputAPIURL+" is empty")
	} else if u, err := url.Parse(o.APIURL); err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		problems = append(problems, config.OutputAPIURL+" is not an absolute http(s) URL")
	}
	if strings.TrimSpace(o.APIKeyID) == "" {
		problems = append(problems, config.OutputAPIKeyID+" is empty")
	}

	if len(problems) > 0 {
		return apigwmock.Errorf(apigwmock.ErrorCodeOutputsMissing, "stack %s: %s", o.StackName, strings.Join(problems, "; "))
	}
	return nil
}

// ResourceURL joins the API base URL and a resource path.
func (o *StackOutputs) ResourceURL(path string) string {
	return strings.TrimRight(o.APIURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Stage returns the deployment stage named in the API URL: the first path
// segment of an execute-api URL, or the segment after the API id of a
// LocalStack "/restapis/<id>/<stage>/_user_request_" URL.
func (o *StackOutputs) Stage() string {
	u, err := url.Parse(o.APIURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) >= 3 && segments[0] == "restapis" {
		return segments[2]
	}
	return segments[0]
}
