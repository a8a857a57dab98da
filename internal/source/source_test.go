package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

const grammar = "rule-a = rule-b\nrule-b = \"b\"\n"

func createTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestLoadPlain(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "grammar.abnf", []byte(grammar))

	g, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if string(g.Data) != grammar {
		t.Errorf("Data = %q, want %q", g.Data, grammar)
	}
	if g.Path != path {
		t.Errorf("Path = %q, want %q", g.Path, path)
	}

	sum := blake3.Sum256([]byte(grammar))
	if g.Digest != Digest([]byte(grammar)) || len(g.Digest) != 2*len(sum) {
		t.Errorf("Digest = %q", g.Digest)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.abnf"), Options{})

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Load() error = %v, want *IOError", err)
	}
	if ioErr.Op != "open" {
		t.Errorf("Op = %q, want open", ioErr.Op)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error should unwrap to fs.ErrNotExist: %v", err)
	}
}

func TestLoadXZ(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grammar.abnf.xz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		t.Fatalf("xz writer: %v", err)
	}
	if _, err := w.Write([]byte(grammar)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close xz: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	g, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(g.Data) != grammar {
		t.Errorf("Data = %q, want %q", g.Data, grammar)
	}
}

func TestLoadCorruptXZ(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "grammar.abnf.xz", []byte("not xz"))

	_, err := Load(path, Options{})

	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "decompress" {
		t.Errorf("Load() error = %v, want decompress *IOError", err)
	}
}

const rfcXML = `<?xml version="1.0" encoding="UTF-8"?>
<rfc version="3">
  <middle>
    <section>
      <sourcecode type="abnf"><![CDATA[
rule-a = rule-b
]]></sourcecode>
      <sourcecode type="c">int main(void);</sourcecode>
      <figure>
        <artwork type="abnf">
rule-b = "b"
</artwork>
      </figure>
    </section>
  </middle>
</rfc>
`

func TestLoadXML(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "rfc9999.xml", []byte(rfcXML))

	g, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(g.Data) != grammar {
		t.Errorf("Data = %q, want %q", g.Data, grammar)
	}
}

func TestLoadForcedXML(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "rfc9999.txt", []byte(rfcXML))

	g, err := Load(path, Options{XML: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(g.Data) != grammar {
		t.Errorf("Data = %q, want %q", g.Data, grammar)
	}
}

func TestExtractXMLNoBlocks(t *testing.T) {
	_, err := ExtractXML(strings.NewReader(`<rfc><middle/></rfc>`))
	if !errors.Is(err, ErrNoABNF) {
		t.Errorf("ExtractXML() error = %v, want %v", err, ErrNoABNF)
	}
}

func TestIOErrorMessage(t *testing.T) {
	err := &IOError{Op: "read", Path: "x.abnf", Err: errors.New("boom")}
	if got := err.Error(); got != "failed to read x.abnf: boom" {
		t.Errorf("Error() = %q", got)
	}
}
