package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/theory-cloud/apigwmock"
)

// Kind identifies the type of a declared entity.
type Kind string

const (
	KindRestAPI     Kind = "RestApi"
	KindStage       Kind = "Stage"
	KindIntegration Kind = "MockIntegration"
	KindAPIKey      Kind = "ApiKey"
	KindUsagePlan   Kind = "UsagePlan"
)

var outputAttributes = map[Kind][]string{
	KindRestAPI:   {"RestApiId", "RootResourceId", "Url"},
	KindStage:     {"StageName"},
	KindAPIKey:    {"KeyArn", "KeyId"},
	KindUsagePlan: {"UsagePlanId"},
}

// Declaration is an entity registered during the declare phase.
type Declaration struct {
	ID   string
	Kind Kind
	Seq  int
}

// IntegrationRef is a resolved reference to the mock integration.
type IntegrationRef struct{ decl Declaration }

func (r IntegrationRef) ID() string { return r.decl.ID }

// APIKeyRef is a resolved reference to an API key.
type APIKeyRef struct{ decl Declaration }

func (r APIKeyRef) ID() string { return r.decl.ID }

// StageRef is a resolved reference to the REST API deployment stage.
type StageRef struct{ decl Declaration }

func (r StageRef) Name() string { return r.decl.ID }

// AttrRef is a resolved output value expression.
type AttrRef struct {
	decl      Declaration
	attribute string
}

func (r AttrRef) TargetID() string   { return r.decl.ID }
func (r AttrRef) TargetKind() Kind   { return r.decl.Kind }
func (r AttrRef) Attribute() string  { return r.attribute }
func (r AttrRef) Expression() string { return r.decl.ID + "." + r.attribute }

type LinkedMethod struct {
	ResourceMethodConfig
	IntegrationRef IntegrationRef
}

type LinkedUsagePlan struct {
	UsagePlanConfig
	APIKeyRef APIKeyRef
	StageRef  StageRef
}

type LinkedOutput struct {
	OutputConfig
	ValueRef AttrRef
}

// Linked is a validated plan whose references are typed handles.
type Linked struct {
	RestAPI     RestAPIConfig
	Stage       StageRef
	Integration MockIntegrationConfig
	Method      LinkedMethod
	APIKey      APIKeyConfig
	UsagePlan   LinkedUsagePlan
	Outputs     []LinkedOutput

	declarations []Declaration
}

// Declarations returns the declared entities in declaration order.
func (l *Linked) Declarations() []Declaration {
	if l == nil {
		return nil
	}
	return append([]Declaration(nil), l.declarations...)
}

type registry struct {
	byID  map[string]Declaration
	order []Declaration
}

func newRegistry() *registry {
	return &registry{byID: map[string]Declaration{}}
}

func (r *registry) declare(kind Kind, id string) error {
	if prev, ok := r.byID[id]; ok {
		if kind == KindStage || prev.Kind == KindStage {
			other := prev.Kind
			if other == KindStage {
				other = kind
			}
			return apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid,
				"restApi.stageName %q collides with the %s id %q; stage names and construct ids share the output reference namespace, rename one of them",
				id, other, id)
		}
		return apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid,
			"%s %q is already declared as %s", kind, id, prev.Kind)
	}
	d := Declaration{ID: id, Kind: kind, Seq: len(r.order)}
	r.byID[id] = d
	r.order = append(r.order, d)
	return nil
}

// resolve looks up id for a field declared at position `at`. Targets must
// already be declared before `at` and must be of the wanted kind.
func (r *registry) resolve(field string, id string, at int, want ...Kind) (Declaration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Declaration{}, apigwmock.Errorf(apigwmock.ErrorCodeUnresolvedReference, "%s: reference is empty", field)
	}
	d, ok := r.byID[id]
	if !ok {
		return Declaration{}, apigwmock.Errorf(apigwmock.ErrorCodeUnresolvedReference, "%s: %q is not declared", field, id)
	}
	if d.Seq >= at {
		return Declaration{}, apigwmock.Errorf(apigwmock.ErrorCodeUnresolvedReference,
			"%s: %q is declared after its use (forward reference)", field, id)
	}
	for _, k := range want {
		if d.Kind == k {
			return d, nil
		}
	}
	return Declaration{}, apigwmock.Errorf(apigwmock.ErrorCodeUnresolvedReference,
		"%s: %q is a %s, want %s", field, id, d.Kind, joinKinds(want))
}

func joinKinds(kinds []Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, " or ")
}

// Link validates the plan and resolves its references.
//
// Entities are declared in the fixed order RestApi, Stage, MockIntegration,
// ApiKey, UsagePlan. Every reference must name an entity declared earlier.
func (p *Plan) Link() (*Linked, error) {
	if p == nil {
		return nil, apigwmock.NewError(apigwmock.ErrorCodeConfigInvalid, "plan is nil")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	reg := newRegistry()
	for _, d := range []struct {
		kind Kind
		id   string
	}{
		{KindRestAPI, p.RestAPI.ID},
		{KindStage, p.RestAPI.StageName},
		{KindIntegration, p.Integration.ID},
		{KindAPIKey, p.APIKey.ID},
		{KindUsagePlan, p.UsagePlan.ID},
	} {
		if err := reg.declare(d.kind, d.id); err != nil {
			return nil, err
		}
	}

	linked := &Linked{
		RestAPI:     p.RestAPI,
		Stage:       StageRef{decl: reg.byID[p.RestAPI.StageName]},
		Integration: p.Integration,
		APIKey:      p.APIKey,
	}

	// The method sits between the integration and the API key.
	methodAt := reg.byID[p.Integration.ID].Seq + 1
	integ, err := reg.resolve("method.integration", p.Method.Integration, methodAt, KindIntegration)
	if err != nil {
		return nil, err
	}
	linked.Method = LinkedMethod{ResourceMethodConfig: p.Method, IntegrationRef: IntegrationRef{decl: integ}}

	planAt := reg.byID[p.UsagePlan.ID].Seq
	key, err := reg.resolve("usagePlan.apiKey", p.UsagePlan.APIKey, planAt, KindAPIKey)
	if err != nil {
		return nil, err
	}
	stage, err := reg.resolve("usagePlan.stage", p.UsagePlan.Stage, planAt, KindStage)
	if err != nil {
		return nil, err
	}
	linked.UsagePlan = LinkedUsagePlan{
		UsagePlanConfig: p.UsagePlan,
		APIKeyRef:       APIKeyRef{decl: key},
		StageRef:        StageRef{decl: stage},
	}

	outputsAt := len(reg.order)
	for i, out := range p.Outputs {
		ref, err := resolveAttr(reg, i, out.Value, outputsAt)
		if err != nil {
			return nil, err
		}
		linked.Outputs = append(linked.Outputs, LinkedOutput{OutputConfig: out, ValueRef: ref})
	}

	linked.declarations = append([]Declaration(nil), reg.order...)
	return linked, nil
}

func resolveAttr(reg *registry, index int, expr string, at int) (AttrRef, error) {
	field := "outputs[" + strconv.Itoa(index) + "].value"
	id, attr, ok := strings.Cut(strings.TrimSpace(expr), ".")
	if !ok || id == "" || attr == "" {
		return AttrRef{}, apigwmock.Errorf(apigwmock.ErrorCodeConfigInvalid,
			"%s: %q must have the form <EntityID>.<Attribute>", field, expr)
	}
	d, err := reg.resolve(field, id, at, KindRestAPI, KindStage, KindAPIKey, KindUsagePlan)
	if err != nil {
		return AttrRef{}, err
	}
	allowed := outputAttributes[d.Kind]
	idx := sort.SearchStrings(allowed, attr)
	if idx >= len(allowed) || allowed[idx] != attr {
		return AttrRef{}, apigwmock.Errorf(apigwmock.ErrorCodeUnresolvedReference,
			"%s: %s %q has no attribute %q (have %s)", field, d.Kind, id, attr, strings.Join(allowed, ", "))
	}
	return AttrRef{decl: d, attribute: attr}, nil
}
