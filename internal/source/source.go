// Package source loads grammar text for the command line tool.
//
// A grammar can be a plain ABNF file, an xz-compressed one (".xz"), or an
// RFC in xml2rfc v3 format (".xml"), in which case every <sourcecode> and
// <artwork> element of type "abnf" is extracted in document order.
package source

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

// ErrNoABNF is returned when an XML document holds no ABNF blocks.
var ErrNoABNF = errors.New("no abnf blocks found")

// abnfBlocks selects the ABNF figures of an xml2rfc v3 document.
var abnfBlocks = xpath.MustCompile(`//*[(self::sourcecode or self::artwork) and @type='abnf']`)

// IOError reports a failure to read a grammar.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Options tune how Load interprets a file.
type Options struct {
	// XML forces RFC XML extraction regardless of the file extension.
	XML bool
}

// Grammar is loaded grammar text.
type Grammar struct {
	Path string
	Data []byte
	// Digest is the hex BLAKE3 hash of Data.
	Digest string
}

// Load reads the grammar at path.
func Load(path string, opts Options) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	name := path
	var r io.Reader = f

	if strings.HasSuffix(name, ".xz") {
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, &IOError{Op: "decompress", Path: path, Err: err}
		}
		r = xzr
		name = strings.TrimSuffix(name, ".xz")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	if opts.XML || strings.HasSuffix(name, ".xml") {
		data, err = ExtractXML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	return &Grammar{Path: path, Data: data, Digest: Digest(data)}, nil
}

// ExtractXML returns the text of every ABNF block in an RFC XML document,
// each block terminated by a newline.
func ExtractXML(r io.Reader) ([]byte, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("invalid xml: %w", err)
	}

	nodes := xmlquery.QuerySelectorAll(doc, abnfBlocks)
	if len(nodes) == 0 {
		return nil, ErrNoABNF
	}

	var buf bytes.Buffer
	for _, node := range nodes {
		text := strings.Trim(node.InnerText(), "\r\n")
		buf.WriteString(text)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// Digest returns the hex BLAKE3 hash of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
