package source

import (
	"crypto/sha256"
	"encoding/hex"
)

// Text is a source backed by an in-memory string. Its text never changes,
// so LastModified is always 0.
type Text struct {
	name string
	text string
	id   string
}

// NewText creates a text source whose script name is derived from a hash of
// the text.
func NewText(text string) *Text {
	h := textHash(text)
	return newText("Script"+h[:12], text, h)
}

// NewNamedText creates a text source with an explicit script name.
func NewNamedText(name, text string) *Text {
	return newText(name, text, textHash(text))
}

func newText(name, text, hash string) *Text {
	return &Text{
		name: name,
		text: text,
		id:   "text:/" + name + "/" + hash,
	}
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (t *Text) ID() string            { return t.id }
func (t *Text) LastModified() int64   { return 0 }
func (t *Text) ScriptName() string    { return t.name }
func (t *Text) Text() (string, error) { return t.text, nil }

func (t *Text) String() string { return t.id }
