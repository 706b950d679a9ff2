package config

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/theory-cloud/apigwmock"
)

func drawID(t *rapid.T, label string) string {
	return rapid.StringMatching(`[A-Z][A-Za-z0-9]{2,12}`).Draw(t, label)
}

func TestLink_WellFormedPlansAlwaysLink(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := map[string]bool{}
		unique := func(label string) string {
			for {
				id := drawID(t, label)
				if !ids[id] {
					ids[id] = true
					return id
				}
			}
		}

		p := Default()
		p.RestAPI.ID = unique("api")
		p.RestAPI.StageName = rapid.StringMatching(`[a-z][a-z0-9_-]{0,10}`).Draw(t, "stage")
		ids[p.RestAPI.StageName] = true
		p.Integration.ID = unique("integration")
		p.APIKey.ID = unique("key")
		p.UsagePlan.ID = unique("plan")
		p.Method.Integration = p.Integration.ID
		p.UsagePlan.APIKey = p.APIKey.ID
		p.UsagePlan.Stage = p.RestAPI.StageName
		p.UsagePlan.Throttle.RateLimit = float64(rapid.IntRange(0, 10000).Draw(t, "rate"))
		p.UsagePlan.Throttle.BurstLimit = rapid.IntRange(0, 5000).Draw(t, "burst")
		p.UsagePlan.Quota.Limit = rapid.IntRange(0, 1_000_000).Draw(t, "quota")
		p.UsagePlan.Quota.Period = rapid.SampledFrom([]QuotaPeriod{PeriodDay, PeriodWeek, PeriodMonth}).Draw(t, "period")
		p.Outputs[0].Value = p.RestAPI.ID + "." + rapid.SampledFrom([]string{"Url", "RestApiId", "RootResourceId"}).Draw(t, "apiAttr")
		p.Outputs[1].Value = p.APIKey.ID + "." + rapid.SampledFrom([]string{"KeyId", "KeyArn"}).Draw(t, "keyAttr")

		first, err := p.Link()
		if err != nil {
			t.Fatalf("Link: %v", err)
		}
		second, err := p.Link()
		if err != nil {
			t.Fatalf("Link (second): %v", err)
		}
		a, b := first.Declarations(), second.Declarations()
		if len(a) != len(b) {
			t.Fatalf("declaration count differs: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("declaration %d differs: %+v vs %+v", i, a[i], b[i])
			}
		}
		if first.UsagePlan.StageRef.Name() != p.RestAPI.StageName {
			t.Fatalf("stage ref %q, want %q", first.UsagePlan.StageRef.Name(), p.RestAPI.StageName)
		}
	})
}

func TestLink_UnknownReferencesNeverLink(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Default()
		ref := rapid.StringMatching(`Unknown[A-Za-z0-9]{1,8}`).Draw(t, "ref")
		field := rapid.IntRange(0, 2).Draw(t, "field")
		switch field {
		case 0:
			p.Method.Integration = ref
		case 1:
			p.UsagePlan.APIKey = ref
		default:
			p.Outputs[0].Value = ref + ".Url"
		}

		_, err := p.Link()
		if err == nil {
			t.Fatalf("expected %q to be unresolved", ref)
		}
		if code := apigwmock.CodeOf(err); code != apigwmock.ErrorCodeUnresolvedReference {
			t.Fatalf("code=%q, want %q", code, apigwmock.ErrorCodeUnresolvedReference)
		}
	})
}
