package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FieldMap names the raw feed keys that carry each canonical field.
// Ref lists one or more keys whose values are joined with "/".
type FieldMap struct {
	ID        string   `yaml:"id"`
	Ref       []string `yaml:"ref"`
	Activator string   `yaml:"activator"`
	Frequency string   `yaml:"frequency"`
	Mode      string   `yaml:"mode"`
	Name      string   `yaml:"name"`
	Location  string   `yaml:"location"`
	Spotter   string   `yaml:"spotter"`
	Comment   string   `yaml:"comment"`
	Time      string   `yaml:"time"`
}

// TopicRoute publishes spots whose reference matches Pattern to Topic.
type TopicRoute struct {
	Topic   string `yaml:"topic"`
	Pattern string `yaml:"pattern"`

	re *regexp.Regexp
}

// Matches reports whether the route accepts the reference.
func (r TopicRoute) Matches(ref string) bool {
	return r.re != nil && r.re.MatchString(ref)
}

// Program describes one activation scheme: where its feed lives, how to read
// it, and the policy knobs applied to its spots.
type Program struct {
	Name    string   `yaml:"name"`
	FeedURL string   `yaml:"feed_url"`
	Fields  FieldMap `yaml:"fields"`

	// FreqScale multiplies the raw frequency into kHz.
	FreqScale float64 `yaml:"freq_scale"`

	SuppressInterval int64 `yaml:"suppress_interval"` // seconds
	StoragePeriod    int64 `yaml:"storage_period"`    // days
	SummaryHours     int   `yaml:"summary_hours"`

	// PostFilter limits which references reach notification channels.
	PostFilter string `yaml:"post_filter"`
	Notify     bool   `yaml:"notify"`

	// NestedLabel prefixes nested references in activation logs. When empty,
	// the "<n>-fer:" count form is used instead.
	NestedLabel string `yaml:"nested_label"`
	// CrossRefLabel shows a cross-program reference (e.g. a summit in a park
	// log) when set.
	CrossRefLabel string `yaml:"cross_ref_label"`

	RefLookupURL    string `yaml:"ref_lookup_url"`
	RefLookupFilter string `yaml:"ref_lookup_filter"`

	Topics []TopicRoute `yaml:"topics"`

	postFilter *regexp.Regexp
	refLookup  *regexp.Regexp
}

// Compile validates the program and prepares its regular expressions.
func (p *Program) Compile() error {
	if p.Name == "" {
		return errors.New("program name is required")
	}
	p.Name = strings.ToLower(p.Name)
	if p.Fields.ID == "" || len(p.Fields.Ref) == 0 || p.Fields.Activator == "" {
		return fmt.Errorf("program %s: fields id, ref and activator are required", p.Name)
	}
	if p.FreqScale == 0 {
		p.FreqScale = 1
	}
	if p.SuppressInterval <= 0 {
		p.SuppressInterval = 900
	}
	if p.StoragePeriod <= 0 {
		p.StoragePeriod = 31
	}
	if p.SummaryHours <= 0 {
		p.SummaryHours = 21
	}

	var err error
	if p.PostFilter != "" {
		if p.postFilter, err = regexp.Compile(p.PostFilter); err != nil {
			return fmt.Errorf("program %s: post_filter: %w", p.Name, err)
		}
	}
	if p.RefLookupFilter != "" {
		if p.refLookup, err = regexp.Compile(p.RefLookupFilter); err != nil {
			return fmt.Errorf("program %s: ref_lookup_filter: %w", p.Name, err)
		}
	}
	for i := range p.Topics {
		if p.Topics[i].re, err = regexp.Compile(p.Topics[i].Pattern); err != nil {
			return fmt.Errorf("program %s: topic %s: %w", p.Name, p.Topics[i].Topic, err)
		}
	}
	return nil
}

// ShouldNotify reports whether a posted spot on ref goes to notification
// channels. Without a filter every reference qualifies.
func (p *Program) ShouldNotify(ref string) bool {
	if !p.Notify {
		return false
	}
	return p.postFilter == nil || p.postFilter.MatchString(ref)
}

// WantsLocalName reports whether ref should be looked up for a local name.
func (p *Program) WantsLocalName(ref string) bool {
	return p.RefLookupURL != "" && p.refLookup != nil && p.refLookup.MatchString(ref)
}

// RetentionCutoff returns the oldest observation time kept at now.
func (p *Program) RetentionCutoff(now int64) int64 {
	return now - p.StoragePeriod*86400
}
