package contract

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies a validation diagnostic.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Diagnostic is one finding from the contract validator.
type Diagnostic struct {
	Rule     string
	Severity Severity
	Message  string
	Handler  string
	Slice    string
}

// Result aggregates validator findings.
type Result struct {
	Diagnostics []Diagnostic
}

// Errors returns the error-severity findings.
func (r Result) Errors() []Diagnostic { return r.filter(SeverityError) }

// Warnings returns the warning-severity findings.
func (r Result) Warnings() []Diagnostic { return r.filter(SeverityWarning) }

// Info returns the informational findings.
func (r Result) Info() []Diagnostic { return r.filter(SeverityInfo) }

// IsValid reports whether the contract set has no errors. Warnings and info
// notes do not affect validity.
func (r Result) IsValid() bool { return len(r.Errors()) == 0 }

func (r Result) filter(severity Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == severity {
			out = append(out, d)
		}
	}
	return out
}

// String renders the result grouped by severity for startup logs.
func (r Result) String() string {
	var b strings.Builder
	writeGroup := func(title string, diags []Diagnostic) {
		if len(diags) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, d := range diags {
			fmt.Fprintf(&b, "  [%s] %s\n", d.Rule, d.Message)
		}
	}
	writeGroup("ERRORS", r.Errors())
	writeGroup("WARNINGS", r.Warnings())
	writeGroup("INFO", r.Info())
	if b.Len() == 0 {
		return "contracts valid"
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validator cross-checks the full registered contract set for consistency
// issues. It is meant to run once, after registration completes.
type Validator struct {
	registry      *Registry
	knownServices map[string]struct{}
}

// ValidatorOption customizes validation.
type ValidatorOption func(*Validator)

// WithKnownServices enables the service-dependency check against the given
// set. Without it, declared services are not checked.
func WithKnownServices(names ...string) ValidatorOption {
	return func(v *Validator) {
		v.knownServices = map[string]struct{}{}
		for _, name := range names {
			v.knownServices[name] = struct{}{}
		}
	}
}

// NewValidator builds a validator over a populated registry.
func NewValidator(registry *Registry, opts ...ValidatorOption) *Validator {
	v := &Validator{registry: registry}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every check and returns the aggregated result. None of the
// findings block anything by themselves; callers decide what to do with
// errors (typically refuse to start serving decisions).
func (v *Validator) Validate() Result {
	var result Result
	result.Diagnostics = append(result.Diagnostics, v.checkSliceReferences()...)
	result.Diagnostics = append(result.Diagnostics, v.checkServices()...)
	result.Diagnostics = append(result.Diagnostics, v.checkOrphans()...)
	result.Diagnostics = append(result.Diagnostics, v.checkUnreachable()...)
	result.Diagnostics = append(result.Diagnostics, v.checkSharedWriters()...)
	return result
}

func (v *Validator) checkSliceReferences() []Diagnostic {
	var diags []Diagnostic
	for _, name := range v.registry.Handlers() {
		c, _ := v.registry.Contract(name)
		for _, slice := range c.Reads {
			if !v.registry.isValidSlice(slice) {
				diags = append(diags, Diagnostic{
					Rule:     "unknown_slice",
					Severity: SeverityError,
					Message:  fmt.Sprintf("handler %s reads unknown slice %q", name, slice),
					Handler:  name,
					Slice:    slice,
				})
			}
		}
		for _, slice := range c.Writes {
			if !v.registry.isValidSlice(slice) {
				diags = append(diags, Diagnostic{
					Rule:     "unknown_slice",
					Severity: SeverityError,
					Message:  fmt.Sprintf("handler %s writes unknown slice %q", name, slice),
					Handler:  name,
					Slice:    slice,
				})
			}
		}
	}
	return diags
}

func (v *Validator) checkServices() []Diagnostic {
	if v.knownServices == nil {
		return nil
	}
	var diags []Diagnostic
	for _, name := range v.registry.Handlers() {
		c, _ := v.registry.Contract(name)
		for _, service := range c.Services {
			if _, ok := v.knownServices[service]; !ok {
				diags = append(diags, Diagnostic{
					Rule:     "unknown_service",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("handler %s declares unknown service %q", name, service),
					Handler:  name,
				})
			}
		}
	}
	return diags
}

func (v *Validator) checkOrphans() []Diagnostic {
	var diags []Diagnostic
	for _, name := range v.registry.Handlers() {
		c, _ := v.registry.Contract(name)
		if strings.TrimSpace(c.WorkflowID) == "" {
			diags = append(diags, Diagnostic{
				Rule:     "orphan_handler",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("handler %s is an orphan: it has no workflow", name),
				Handler:  name,
			})
		}
	}
	return diags
}

func (v *Validator) checkUnreachable() []Diagnostic {
	var diags []Diagnostic
	for _, name := range v.registry.Handlers() {
		c, _ := v.registry.Contract(name)
		if len(c.Triggers) == 0 {
			diags = append(diags, Diagnostic{
				Rule:     "unreachable_handler",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("handler %s is unreachable by rules: it has no trigger conditions and can only be chosen via arbitration or fallback", name),
				Handler:  name,
			})
		}
	}
	return diags
}

func (v *Validator) checkSharedWriters() []Diagnostic {
	var diags []Diagnostic
	writers := v.SharedWriters()
	slices := make([]string, 0, len(writers))
	for slice := range writers {
		slices = append(slices, slice)
	}
	sort.Strings(slices)
	for _, slice := range slices {
		names := writers[slice]
		if len(names) < 2 {
			continue
		}
		diags = append(diags, Diagnostic{
			Rule:     "shared_writers",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("slice %q is written by multiple handlers: %s", slice, strings.Join(names, ", ")),
			Slice:    slice,
		})
	}
	return diags
}

// SharedWriters maps each written slice to the handlers that write it, in
// registration order.
func (v *Validator) SharedWriters() map[string][]string {
	writers := map[string][]string{}
	for _, name := range v.registry.Handlers() {
		c, _ := v.registry.Contract(name)
		for _, slice := range c.Writes {
			writers[slice] = append(writers[slice], name)
		}
	}
	return writers
}

// SliceReaders maps each read slice to the handlers that read it, in
// registration order.
func (v *Validator) SliceReaders() map[string][]string {
	readers := map[string][]string{}
	for _, name := range v.registry.Handlers() {
		c, _ := v.registry.Contract(name)
		for _, slice := range c.Reads {
			readers[slice] = append(readers[slice], name)
		}
	}
	return readers
}
