package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testGrammar = `; dependency example
rule-a = rule-b / "x" rule-c
rule-b = 1*DIGIT
rule-c = <prose rule-b>
DIGIT  = %x30-39
`

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestGraphDefaultCommand(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "test.abnf", testGrammar)

	code, stdout, stderr := runCLI(t, path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}

	want := "digraph {\n" +
		"\tcompound=true;\n" +
		"\toverlap=scalexy;\n" +
		"\tsplines=true;\n" +
		"\tlayout=neato;\n" +
		"\n" +
		"\trule_a -> { rule_b, rule_c }\n" +
		"\trule_b -> { DIGIT }\n" +
		"}\n"

	if stdout != want {
		t.Errorf("stdout =\n%s\nwant\n%s", stdout, want)
	}
}

func TestGraphCommand(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "test.abnf", testGrammar)

	code, stdout, _ := runCLI(t, "graph", path)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "\trule_b -> { DIGIT }\n") {
		t.Errorf("stdout = %s", stdout)
	}
}

func TestMissingFile(t *testing.T) {
	code, stdout, stderr := runCLI(t, filepath.Join(t.TempDir(), "missing.abnf"))
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if !strings.Contains(stderr, "failed to open") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestTrailingData(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "bad.abnf", "rule-a = rule-b\nrule-b = )\n")

	code, stdout, stderr := runCLI(t, path)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}

	for _, want := range []string{
		"Trailing data at the end. You might have an error in your syntax.",
		"Note: The error must be after rule `rule-a`",
		"Note: Try adding a newline at the end.",
		"2 │ rule-b = )",
	} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestNothingParsed(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "bad.abnf", "not a grammar\n")

	code, _, stderr := runCLI(t, path)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Could not parse any data. Please check your ABNF syntax.") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestRenderCommand(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "test.abnf", testGrammar)

	code, stdout, _ := runCLI(t, "render", path)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	want := "rule-a = rule-b / \"x\" rule-c\n" +
		"rule-b = 1*DIGIT\n" +
		"rule-c = <prose rule-b>\n" +
		"DIGIT = %x30-39\n"
	if stdout != want {
		t.Errorf("stdout =\n%s\nwant\n%s", stdout, want)
	}

	code, stdout, _ = runCLI(t, "render", "--crlf", path)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(stdout, "rule-a = rule-b / \"x\" rule-c\r\n") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestDepsCommand(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "test.abnf", testGrammar)

	code, stdout, _ := runCLI(t, "deps", path)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	want := "rule-a = rule-b, rule-c\n" +
		"rule-b = DIGIT\n" +
		"rule-c =\n" +
		"DIGIT =\n"
	if stdout != want {
		t.Errorf("stdout =\n%s\nwant\n%s", stdout, want)
	}
}

func TestDepsJSON(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "test.abnf", testGrammar)

	code, stdout, _ := runCLI(t, "deps", "--json", path)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	var report []ruleDeps
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(report) != 4 {
		t.Fatalf("got %d entries, want 4", len(report))
	}
	if report[0].Rule != "rule-a" || strings.Join(report[0].Dependencies, ",") != "rule-b,rule-c" {
		t.Errorf("report[0] = %+v", report[0])
	}
	if report[2].Dependencies == nil || len(report[2].Dependencies) != 0 {
		t.Errorf("report[2] = %+v, want empty dependency list", report[2])
	}
}

func TestStoreCommand(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "test.abnf", testGrammar)
	db := filepath.Join(dir, "grammar.db")

	code, stdout, stderr := runCLI(t, "store", "--db", db, path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if stdout != "import 1: 4 rules\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(db); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestXMLInput(t *testing.T) {
	xml := `<rfc><middle><sourcecode type="abnf">
rule-a = rule-b
</sourcecode></middle></rfc>`
	path := createTestFile(t, t.TempDir(), "rfc.xml", xml)

	code, stdout, stderr := runCLI(t, path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "\trule_a -> { rule_b }\n") {
		t.Errorf("stdout = %s", stdout)
	}
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout != "abnfgraph version "+version+"\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestLogsGoToStderr(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "test.abnf", testGrammar)

	code, stdout, stderr := runCLI(t, "--log-level", "info", "--log-format", "json", "graph", path)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Contains(stdout, "grammar_loaded") {
		t.Errorf("log output on stdout: %s", stdout)
	}
	if !strings.Contains(stderr, `"msg":"grammar_loaded"`) || !strings.Contains(stderr, `"run_id"`) {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestHelp(t *testing.T) {
	code, stdout, stderr := runCLI(t, "--help")
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want empty", stderr)
	}
	if !strings.Contains(stdout, "abnfgraph") {
		t.Errorf("stdout missing usage:\n%s", stdout)
	}
}

func TestDebugLogging(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "test.abnf", testGrammar)

	code, _, stderr := runCLI(t, "--log-level", "debug", "--log-format", "json", "graph", path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stderr, `"msg":"grammar_read"`) || !strings.Contains(stderr, `"bytes":`) {
		t.Errorf("stderr missing grammar_read event: %s", stderr)
	}
}

func TestTrailingDataWarning(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "bad.abnf", "rule-a = rule-b\nrule-b = )\n")

	code, _, stderr := runCLI(t, "--log-format", "json", path)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	for _, want := range []string{`"level":"WARN"`, `"msg":"trailing_data"`, `"last_rule":"rule-a"`, `"line":2`} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %s:\n%s", want, stderr)
		}
	}
	if strings.Contains(stderr, `"msg":"grammar_error"`) {
		t.Errorf("trailing data logged as an error:\n%s", stderr)
	}
}

func TestStoreOpenFailure(t *testing.T) {
	dir := t.TempDir()
	path := createTestFile(t, dir, "test.abnf", testGrammar)
	db := filepath.Join(dir, "missing", "grammar.db")

	code, stdout, stderr := runCLI(t, "store", "--db", db, path)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if !strings.Contains(stderr, "store_failed") {
		t.Errorf("stderr missing store_failed event:\n%s", stderr)
	}
}
