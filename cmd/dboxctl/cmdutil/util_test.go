package cmdutil

import (
	"bytes"
	"testing"

	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/internal/cli/profile"
)

func resetFlags(t *testing.T) {
	t.Helper()
	saved := *Flags
	*Flags = GlobalFlags{}
	t.Cleanup(func() { *Flags = saved })
}

func TestResolveTargetDefaults(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	target, err := ResolveTarget()
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}
	if target.Server != DefaultServer {
		t.Errorf("Server = %q, want %q", target.Server, DefaultServer)
	}
	if target.API != DefaultAPI {
		t.Errorf("API = %q, want %q", target.API, DefaultAPI)
	}
	if target.Identity != "" {
		t.Errorf("Identity = %q, want empty", target.Identity)
	}
}

func TestResolveTargetProfileAndFlags(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store, err := profile.NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Set("lab", &profile.Profile{Server: "lab:12346", Identity: "alice"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("prod", &profile.Profile{Server: "prod:12346", Identity: "bob", API: "http://prod:8080"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	target, err := ResolveTarget()
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}
	if target.Server != "lab:12346" || target.Identity != "alice" || target.API != DefaultAPI {
		t.Errorf("current profile target = %+v", target)
	}

	Flags.Profile = "prod"
	Flags.Identity = "carol"
	target, err = ResolveTarget()
	if err != nil {
		t.Fatalf("ResolveTarget() error = %v", err)
	}
	if target.Server != "prod:12346" || target.Identity != "carol" || target.API != "http://prod:8080" {
		t.Errorf("flag override target = %+v", target)
	}

	Flags.Profile = "missing"
	if _, err := ResolveTarget(); err == nil {
		t.Error("ResolveTarget() with unknown profile should fail")
	}
}

func TestPrintOutputEmpty(t *testing.T) {
	resetFlags(t)
	Flags.Output = "table"

	var buf bytes.Buffer
	if err := PrintOutput(&buf, []string{}, true, "No files.", output.NewTableData("NAME")); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}
	if buf.String() != "No files.\n" {
		t.Errorf("PrintOutput() = %q", buf.String())
	}
}

func TestPrintOutputJSON(t *testing.T) {
	resetFlags(t)
	Flags.Output = "json"

	var buf bytes.Buffer
	if err := PrintOutput(&buf, map[string]int{"n": 1}, false, "", nil); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"n": 1`)) {
		t.Errorf("PrintOutput() = %q", buf.String())
	}
}

func TestEmptyOr(t *testing.T) {
	if got := EmptyOr("", "-"); got != "-" {
		t.Errorf("EmptyOr(\"\") = %q", got)
	}
	if got := EmptyOr("x", "-"); got != "x" {
		t.Errorf("EmptyOr(\"x\") = %q", got)
	}
}

func TestBoolToYesNo(t *testing.T) {
	if BoolToYesNo(true) != "yes" || BoolToYesNo(false) != "no" {
		t.Error("BoolToYesNo mismatch")
	}
}
