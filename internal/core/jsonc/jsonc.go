// Package jsonc edits JSON documents owned by other applications.
//
// Documents are held as a hujson AST and mutated with RFC 6902 patches, so
// members ccg does not manage keep their bytes, comments and layout. Values
// ccg writes are indented with the unit the file already uses. Strict JSON
// documents stay strict on write; documents that already contained comments
// or trailing commas are written back as JSONC.
package jsonc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"

	"github.com/ccgkit/ccg/internal/core/failure"
	"github.com/ccgkit/ccg/internal/core/fileio"
)

// Document is a parsed JSON or JSONC file.
type Document struct {
	path    string
	root    hujson.Value
	exists  bool
	comment bool // original used JSONC extensions
	mode    os.FileMode

	compact bool   // original is a single line
	indent  string // one nesting level, as the original indents
}

// DefaultIndent is used for new documents and for files whose indentation
// cannot be detected.
const DefaultIndent = "  "

// newFileMode is the mode of documents ccg creates.
const newFileMode os.FileMode = 0o600

// Load reads and parses the document at path. A missing or empty file
// yields an empty object. A file that does not parse is an error wrapping
// failure.ErrParse and must not be written back.
func Load(path string) (*Document, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, failure.IO("reading "+path, err)
	}

	doc := &Document{
		path:   path,
		exists: data != nil,
		mode:   fileio.FileMode(path, newFileMode),
		indent: detectIndent(data),
	}
	trimmed := bytes.TrimSpace(data)
	doc.compact = len(trimmed) > 0 && !bytes.ContainsRune(trimmed, '\n')
	if len(trimmed) == 0 {
		data = []byte("{}")
	}

	root, err := hujson.Parse(data)
	if err != nil {
		return nil, failure.Parse("parsing "+path, err)
	}
	if _, ok := root.Value.(*hujson.Object); !ok {
		return nil, failure.Parse("parsing "+path, fmt.Errorf("top-level value is not an object"))
	}
	doc.root = root
	doc.comment = !root.IsStandard()
	return doc, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string { return d.path }

// Exists reports whether the file existed when it was loaded.
func (d *Document) Exists() bool { return d.exists }

// Has reports whether ptr resolves to a value.
func (d *Document) Has(ptr string) bool {
	return d.root.Find(ptr) != nil
}

// Get returns a gjson view of the value at the dotted gjson path.
func (d *Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.standard(), path)
}

// Raw returns the document bytes as they would be written.
func (d *Document) Raw() []byte {
	return d.root.Pack()
}

// Set adds or replaces the value at ptr, creating missing parent objects.
// Everything outside the written value keeps its original bytes.
func (d *Document) Set(ptr string, value any) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ptr, err)
	}

	if err := d.ensureParents(ptr); err != nil {
		return err
	}
	return d.put(ptr, valueJSON)
}

func (d *Document) put(ptr string, valueJSON []byte) error {
	op := "add"
	if d.root.Find(ptr) != nil {
		op = "replace"
	}
	patch := fmt.Sprintf(`[{"op":%q,"path":%q,"value":%s}]`, op, ptr, valueJSON)
	if err := d.root.Patch([]byte(patch)); err != nil {
		return fmt.Errorf("patching %s: %w", ptr, err)
	}
	return d.layout(ptr, valueJSON, op == "add")
}

// Remove deletes the value at ptr. It reports whether anything was removed.
func (d *Document) Remove(ptr string) (bool, error) {
	if d.root.Find(ptr) == nil {
		return false, nil
	}
	patch := fmt.Sprintf(`[{"op":"remove","path":%q}]`, ptr)
	if err := d.root.Patch([]byte(patch)); err != nil {
		return false, fmt.Errorf("removing %s: %w", ptr, err)
	}
	parentPtr, _ := splitPointer(ptr)
	if parent := d.find(parentPtr); parent != nil {
		if obj, ok := parent.Value.(*hujson.Object); ok && len(obj.Members) == 0 && isBlank(obj.AfterExtra) {
			obj.AfterExtra = nil
		}
	}
	return true, nil
}

// Save writes the document atomically. An existing file keeps its mode; a
// new one is created with mode 0600.
func (d *Document) Save() error {
	if !d.comment {
		d.root.Standardize()
	}
	if !d.exists && len(d.root.AfterExtra) == 0 {
		d.root.AfterExtra = hujson.Extra("\n")
	}
	if err := fileio.WriteFileAtomic(d.path, d.root.Pack(), d.mode); err != nil {
		return failure.IO("writing "+d.path, err)
	}
	d.exists = true
	return nil
}

func (d *Document) ensureParents(ptr string) error {
	tokens := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	parent := ""
	for _, tok := range tokens[:len(tokens)-1] {
		parent += "/" + tok
		if d.root.Find(parent) != nil {
			continue
		}
		if err := d.put(parent, []byte("{}")); err != nil {
			return fmt.Errorf("creating %s: %w", parent, err)
		}
	}
	return nil
}

// layout places a value just written at ptr the way the surrounding file is
// laid out. In a multi-line document an added member goes on its own line
// at its nesting depth and the value is indented to match. Compact
// documents and array elements are left as the patch wrote them.
func (d *Document) layout(ptr string, valueJSON []byte, added bool) error {
	if d.compact {
		return nil
	}
	parentPtr, name := splitPointer(ptr)
	parent := d.find(parentPtr)
	if parent == nil {
		return nil
	}
	obj, ok := parent.Value.(*hujson.Object)
	if !ok {
		return nil
	}
	i := memberIndex(obj, name)
	if i < 0 {
		return nil
	}

	depth := strings.Count(ptr, "/")
	prefix := strings.Repeat(d.indent, depth)

	var buf bytes.Buffer
	if err := json.Indent(&buf, valueJSON, prefix, d.indent); err != nil {
		return fmt.Errorf("indenting %s: %w", ptr, err)
	}
	v, err := hujson.Parse(buf.Bytes())
	if err != nil {
		return fmt.Errorf("indenting %s: %w", ptr, err)
	}
	m := &obj.Members[i]
	m.Value.Value = v.Value

	if !added {
		return nil
	}
	lead := bytes.TrimRight(m.Name.BeforeExtra, " \t\r\n")
	m.Name.BeforeExtra = append(append(hujson.Extra(nil), lead...), "\n"+prefix...)
	m.Name.AfterExtra = nil
	m.Value.BeforeExtra = hujson.Extra(" ")
	if !bytes.ContainsRune(obj.AfterExtra, '\n') {
		obj.AfterExtra = append(bytes.TrimRight(obj.AfterExtra, " \t"), "\n"+strings.Repeat(d.indent, depth-1)...)
	}
	return nil
}

func (d *Document) find(ptr string) *hujson.Value {
	if ptr == "" {
		return &d.root
	}
	return d.root.Find(ptr)
}

// splitPointer splits ptr into its parent pointer and its unescaped last
// reference token.
func splitPointer(ptr string) (parent, name string) {
	i := strings.LastIndexByte(ptr, '/')
	if i < 0 {
		return "", ptr
	}
	return ptr[:i], pointerUnescape(ptr[i+1:])
}

func pointerUnescape(tok string) string {
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(tok)
}

func memberIndex(obj *hujson.Object, name string) int {
	for i, m := range obj.Members {
		if lit, ok := m.Name.Value.(hujson.Literal); ok && lit.String() == name {
			return i
		}
	}
	return -1
}

// detectIndent returns the leading whitespace of the first indented line
// in data.
func detectIndent(data []byte) string {
	for _, line := range bytes.Split(data, []byte("\n")) {
		n := len(line) - len(bytes.TrimLeft(line, " \t"))
		if n > 0 && n < len(line) {
			return string(line[:n])
		}
	}
	return DefaultIndent
}

func isBlank(b []byte) bool {
	return len(bytes.TrimSpace(b)) == 0
}

func (d *Document) standard() []byte {
	v := d.root.Clone()
	v.Standardize()
	return v.Pack()
}

// Pointer builds a JSON Pointer from unescaped reference tokens.
func Pointer(tokens ...string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(PointerEscape(t))
	}
	return b.String()
}

// PointerEscape escapes a string for use as a JSON Pointer token (RFC 6901).
func PointerEscape(s string) string {
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '~':
			result = append(result, '~', '0')
		case '/':
			result = append(result, '~', '1')
		default:
			result = append(result, s[i])
		}
	}
	return string(result)
}

// EscapePath escapes a gjson path component so keys containing dots or
// wildcards can be addressed literally.
func EscapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}
