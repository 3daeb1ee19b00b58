// Package policy decides which outgoing page requests the browser may send.
//
// A Policy is plain data: an ordered list of rules loaded from YAML. The
// browser layer asks it for a Decision per request and acts on the answer; the
// rules themselves never touch the browser.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/net/publicsuffix"
)

// Action is what happens to a matched request.
type Action string

const (
	Abort    Action = "abort"
	Continue Action = "continue"
)

//go:embed default.yaml
var defaultDocument []byte

var ErrInvalidPolicy = errors.New("invalid interception policy")

// Rule matches a request when every non-empty criterion matches. Values inside
// one criterion are alternatives.
type Rule struct {
	Name          string   `yaml:"name"`
	Action        Action   `yaml:"action"`
	ResourceTypes []string `yaml:"resource_types,omitempty"`
	URLContains   []string `yaml:"url_contains,omitempty"`
	Schemes       []string `yaml:"schemes,omitempty"`
	Domains       []string `yaml:"domains,omitempty"`
}

// Policy is an ordered rule set. The zero value continues everything.
type Policy struct {
	Default Action `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// Decision is the outcome for one request. Rule is empty when no rule matched.
type Decision struct {
	Action Action
	Rule   string
}

func (d Decision) Aborted() bool { return d.Action == Abort }

// Default returns the built-in policy.
func Default() *Policy {
	p, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("policy: embedded default is invalid: %v", err))
	}
	return p
}

// Load reads a policy document from path. An empty path yields Default().
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and normalizes a YAML policy document.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.UnmarshalWithOptions(data, &p, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if err := p.normalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) normalize() error {
	if p.Default == "" {
		p.Default = Continue
	}
	if !validAction(p.Default) {
		return fmt.Errorf("%w: default action %q", ErrInvalidPolicy, p.Default)
	}
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i+1)
		}
		if !validAction(r.Action) {
			return fmt.Errorf("%w: rule %s: action %q", ErrInvalidPolicy, r.Name, r.Action)
		}
		if len(r.ResourceTypes)+len(r.URLContains)+len(r.Schemes)+len(r.Domains) == 0 {
			return fmt.Errorf("%w: rule %s matches nothing", ErrInvalidPolicy, r.Name)
		}
		r.Schemes = lowerAll(r.Schemes)
		r.Domains = lowerAll(r.Domains)
		for j, d := range r.Domains {
			r.Domains[j] = strings.TrimPrefix(d, ".")
		}
	}
	return nil
}

func validAction(a Action) bool { return a == Abort || a == Continue }

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// Decide returns the decision for a request of the given resource type
// ("Font", "WebSocket", ...) to rawURL.
func (p *Policy) Decide(resourceType, rawURL string) Decision {
	if p == nil {
		return Decision{Action: Continue}
	}
	u, _ := url.Parse(rawURL)
	for _, r := range p.Rules {
		if r.matches(resourceType, rawURL, u) {
			return Decision{Action: r.Action, Rule: r.Name}
		}
	}
	return Decision{Action: p.Default}
}

func (r *Rule) matches(resourceType, rawURL string, u *url.URL) bool {
	if len(r.ResourceTypes) > 0 && !containsFold(r.ResourceTypes, resourceType) {
		return false
	}
	if len(r.URLContains) > 0 && !anySubstring(rawURL, r.URLContains) {
		return false
	}
	if len(r.Schemes) > 0 {
		if u == nil || !contains(r.Schemes, strings.ToLower(u.Scheme)) {
			return false
		}
	}
	if len(r.Domains) > 0 {
		if u == nil || !domainMatches(strings.ToLower(u.Hostname()), r.Domains) {
			return false
		}
	}
	return true
}

// domainMatches compares the registrable domain of host (eTLD+1) with each
// listed domain, falling back to suffix matching for hosts the public suffix
// list cannot reduce (IPs, single-label names).
func domainMatches(host string, domains []string) bool {
	if host == "" {
		return false
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	for _, d := range domains {
		if err == nil && registrable == d {
			return true
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func anySubstring(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
