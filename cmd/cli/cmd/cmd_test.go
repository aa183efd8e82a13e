package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"timbercalc/internal/errors"
)

// run executes the root command with args and returns its output
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--no-color"}, args...))
	err := Execute()
	return out.String(), err
}

func TestCLIFlow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIMBERCALC_STORAGE_BACKEND", "file")
	t.Setenv("TIMBERCALC_STORAGE_PATH", filepath.Join(dir, "prefs.json"))
	t.Setenv("TIMBERCALC_EXPORT_DIRECTORY", filepath.Join(dir, "WoodBills"))
	t.Setenv("TIMBERCALC_EVENTS_BACKEND", "none")
	t.Setenv("TIMBERCALC_SERVER_PASSCODE", "7898")

	if _, err := run(t, "table", "define", "--ranges", "0-18, 18-24", "--lengths", "8, 10", "--passcode", "0000"); !errors.IsType(err, errors.TypeUnauthorized) {
		t.Fatalf("wrong passcode: err = %v", err)
	}

	steps := [][]string{
		{"table", "define", "--ranges", "0-18, 18-24", "--lengths", "8, 10", "--passcode", "7898"},
		{"table", "price", "--range", "0-18", "--length", "10", "--price", "100", "--passcode", "7898"},
		{"calc", "12", "10"},
		{"calc", "20", "9"},
	}
	for _, args := range steps {
		if out, err := run(t, args...); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, out)
		}
	}

	out, err := run(t, "bill", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Total Volume: 2.2 cft") {
		t.Errorf("bill show output:\n%s", out)
	}
	if !strings.Contains(out, "Grand Total: ₹ 60.00") {
		t.Errorf("bill show output:\n%s", out)
	}

	out, err = run(t, "resolve", "12", "9")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "G_0.0-18.0_L_10.0") {
		t.Errorf("resolve output:\n%s", out)
	}

	if _, err := run(t, "bill", "export", "--client", "Ravi", "--format", "xlsx"); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "bills", "search", "--client", "ravi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1 bill(s)") {
		t.Errorf("bills search output:\n%s", out)
	}

	if _, err := run(t, "bill", "clear", "--yes"); err != nil {
		t.Fatal(err)
	}
	out, _ = run(t, "bill", "show")
	if !strings.Contains(out, "The bill is empty.") {
		t.Errorf("after clear:\n%s", out)
	}
}

func TestParseSlno(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 0, false},
		{" 3 ", 2, false},
		{"x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSlno(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestListFormat(t *testing.T) {
	tableFormat = ""
	if f, err := listFormat("prices.yaml"); err != nil || f != "yaml" {
		t.Errorf("yaml: %v %v", f, err)
	}
	tableFormat = "hcl"
	defer func() { tableFormat = "" }()
	if f, err := listFormat("prices.json"); err != nil || f != "hcl" {
		t.Errorf("override: %v %v", f, err)
	}
}
