package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/argus-api/argus/internal/deps"
	"github.com/argus-api/argus/internal/failure"
	"github.com/argus-api/argus/internal/httpclient"
	"github.com/argus-api/argus/internal/jsonpath"
	"github.com/argus-api/argus/internal/predicate"
	"github.com/argus-api/argus/internal/store"
	"github.com/argus-api/argus/internal/suite"
)

// Execute runs the test at index through its whole life cycle and returns
// its result. The result is not appended to st; Run does that.
//
// Stages: constants, dependencies, verb, rules, request, capture, status,
// body rules. The first failing stage ends the test.
func (s *Scheduler) Execute(ctx context.Context, su *suite.Suite, index int, st *store.Store) store.RunResult {
	start := time.Now()
	raw := su.Tests[index]
	name := suite.DisplayName(raw, index)
	log := s.logs.ForTest(name, rawLogLevel(raw))

	res := store.RunResult{Name: name, Index: index}
	fail := func(err error) store.RunResult {
		res.Status = store.StatusFailed
		res.Error = err.Error()
		res.Kind = failure.KindOf(err)
		res.Execution = time.Since(start)
		log.Error("test failed", zap.Stringer("kind", res.Kind), zap.Error(err))
		return res
	}

	tc, err := suite.DecodeTest(suite.ResolveConstants(su.Constants, raw), index)
	if err != nil {
		return fail(err)
	}
	log.Debug("running test",
		zap.String("description", tc.Description),
		zap.Any("request", tc.Request),
		zap.Any("expected", tc.Expected),
	)

	resolved, err := deps.Resolve(tc, st)
	if err != nil {
		return fail(err)
	}

	method, err := suite.NormalizeMethod(resolved.Request.Method)
	if err != nil {
		return fail(err)
	}

	rules, err := compileRules(resolved.Expected.Response)
	if err != nil {
		return fail(err)
	}

	resp, err := s.http.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     resolved.Request.Endpoint,
		Params:  resolved.Request.Params,
		Headers: resolved.Request.Headers,
		Body:    resolved.Request.Body,
	})
	if err != nil {
		return fail(err)
	}
	res.Network = resp.Duration
	res.NetworkMeasured = true
	log.Debug("response received", zap.Int("status", resp.Status), zap.Duration("network", resp.Duration))

	doc, parseErr := jsonpath.ParseJSON(resp.Body)
	if parseErr == nil {
		if st.Save(tc.Name, doc) {
			log.Warn("captured response overwrites an earlier test with the same name")
		}
		if pretty, err := json.MarshalIndent(doc, "", "    "); err == nil {
			log.Debug("response body", zap.ByteString("body", pretty))
		}
	} else {
		log.Debug("response text", zap.ByteString("body", resp.Body))
	}

	if err := validate(resolved.Expected, resp.Status, doc, parseErr, rules); err != nil {
		return fail(err)
	}

	res.Status = store.StatusOK
	res.Execution = time.Since(start)
	log.Debug("test passed", zap.Duration("execution", res.Execution))
	return res
}

// compileRules compiles the body rules up front so malformed rules fail the
// test before any request is sent.
func compileRules(spec suite.ResponseSpec) ([]predicate.Rule, error) {
	if spec.Type != "" && spec.Type != "json" {
		return nil, failure.New(failure.KindSchema, "unsupported response type %q", spec.Type)
	}
	rules := make([]predicate.Rule, 0, len(spec.JSON))
	for i, raw := range spec.JSON {
		r, err := predicate.CompileRule(raw)
		if err != nil {
			return nil, &failure.Error{Kind: failure.KindSchema, Msg: fmt.Sprintf("response.json[%d]", i), Err: err}
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// validate checks the status first; body rules are only evaluated once the
// status matches.
func validate(exp suite.Expected, status int, doc any, parseErr error, rules []predicate.Rule) error {
	if status != exp.Status {
		return failure.New(failure.KindAssertion, "expected status %d, but got %d", exp.Status, status)
	}

	wantJSON := exp.Response.Type == "json" || len(rules) > 0
	if !wantJSON {
		return nil
	}
	if parseErr != nil {
		return &failure.Error{Kind: failure.KindAssertion, Msg: "response is not valid JSON", Err: parseErr}
	}

	for _, r := range rules {
		if err := r.Evaluate(doc); err != nil {
			return failure.Wrap(failure.KindAssertion, err)
		}
	}
	return nil
}

// rawLogLevel reads the log field before the test is decoded so even schema
// failures are logged at the test's level.
func rawLogLevel(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		if s, ok := m["log"].(string); ok {
			return s
		}
	}
	return ""
}
