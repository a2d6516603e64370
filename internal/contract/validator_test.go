package contract

import (
	"strings"
	"testing"

	"github.com/kingrea/waypoint/internal/state"
)

func TestValidateCleanSet(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(simpleContract("alpha", "main", TriggerCondition{Priority: 1})); err != nil {
		t.Fatal(err)
	}
	result := NewValidator(reg).Validate()
	if !result.IsValid() {
		t.Fatalf("expected clean set to validate: %s", result)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
}

func TestValidateUnknownSliceNamesHandlerAndSlice(t *testing.T) {
	reg := NewRegistry()
	c := simpleContract("alpha", "main", TriggerCondition{Priority: 1})
	c.Reads = []string{"invalid_slice"}
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}

	result := NewValidator(reg).Validate()
	if result.IsValid() {
		t.Fatal("expected unknown slice to be an error")
	}
	errs := result.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	d := errs[0]
	if d.Rule != "unknown_slice" || d.Handler != "alpha" || d.Slice != "invalid_slice" {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
	if !strings.Contains(d.Message, "alpha") || !strings.Contains(d.Message, "invalid_slice") {
		t.Fatalf("message should name handler and slice: %q", d.Message)
	}
}

func TestValidateUnknownSliceInWrites(t *testing.T) {
	reg := NewRegistry()
	c := simpleContract("alpha", "main", TriggerCondition{Priority: 1})
	c.Writes = []string{"nowhere"}
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}
	result := NewValidator(reg).Validate()
	if result.IsValid() {
		t.Fatal("expected error for unknown write slice")
	}
}

func TestValidateSharedWritersInfo(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"alpha", "beta"} {
		if err := reg.Register(simpleContract(name, "main", TriggerCondition{Priority: 1})); err != nil {
			t.Fatal(err)
		}
	}

	result := NewValidator(reg).Validate()
	if !result.IsValid() {
		t.Fatalf("shared writers must not be an error: %s", result)
	}
	infos := result.Info()
	if len(infos) != 1 {
		t.Fatalf("expected one info note, got %v", infos)
	}
	d := infos[0]
	if d.Rule != "shared_writers" || d.Slice != state.SliceResponse {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
	if !strings.Contains(d.Message, "alpha") || !strings.Contains(d.Message, "beta") {
		t.Fatalf("message should list both writers: %q", d.Message)
	}
}

func TestValidateOrphanAndUnreachableWarnings(t *testing.T) {
	reg := NewRegistry()
	orphan := simpleContract("orphan", "", TriggerCondition{Priority: 1})
	if err := reg.Register(orphan); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(simpleContract("untriggered", "main")); err != nil {
		t.Fatal(err)
	}

	result := NewValidator(reg).Validate()
	if !result.IsValid() {
		t.Fatalf("warnings must not fail validation: %s", result)
	}
	rules := map[string]bool{}
	for _, d := range result.Warnings() {
		rules[d.Rule] = true
	}
	if !rules["orphan_handler"] || !rules["unreachable_handler"] {
		t.Fatalf("expected orphan and unreachable warnings, got %v", result.Warnings())
	}
}

func TestValidateServicesCheckedOnlyWhenKnown(t *testing.T) {
	reg := NewRegistry()
	c := simpleContract("alpha", "main", TriggerCondition{Priority: 1})
	c.Services = []string{"kb"}
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}

	if result := NewValidator(reg).Validate(); len(result.Warnings()) != 0 {
		t.Fatalf("services not checked without a known set, got %v", result.Warnings())
	}

	result := NewValidator(reg, WithKnownServices("mailer")).Validate()
	warnings := result.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "unknown_service" {
		t.Fatalf("expected unknown_service warning, got %v", warnings)
	}

	if result := NewValidator(reg, WithKnownServices("kb")).Validate(); len(result.Warnings()) != 0 {
		t.Fatalf("declared service is known, got %v", result.Warnings())
	}
}

func TestResultString(t *testing.T) {
	reg := NewRegistry()
	c := simpleContract("alpha", "main", TriggerCondition{Priority: 1})
	c.Reads = []string{"bad"}
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}

	text := NewValidator(reg).Validate().String()
	if !strings.Contains(text, "ERRORS:") || !strings.Contains(text, "unknown_slice") {
		t.Fatalf("unexpected render: %q", text)
	}

	clean := NewRegistry()
	if err := clean.Register(simpleContract("alpha", "main", TriggerCondition{Priority: 1})); err != nil {
		t.Fatal(err)
	}
	if got := NewValidator(clean).Validate().String(); got != "contracts valid" {
		t.Fatalf("unexpected clean render: %q", got)
	}
}
