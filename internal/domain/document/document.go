package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ContentTypePDF is the only accepted upload content type.
const ContentTypePDF = "application/pdf"

// IdentityPolicy decides how a document identifier is derived.
type IdentityPolicy string

const (
	// IdentityFilename uses the caller-supplied file name. Two different documents uploaded
	// under the same name collide: the second upload is served from the first one's index.
	IdentityFilename IdentityPolicy = "filename"
	// IdentityContentHash derives the identifier from the document bytes.
	IdentityContentHash IdentityPolicy = "content_hash"
)

// ParseIdentityPolicy validates a policy name. Empty means IdentityFilename.
func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch IdentityPolicy(s) {
	case "", IdentityFilename:
		return IdentityFilename, nil
	case IdentityContentHash:
		return IdentityContentHash, nil
	default:
		return "", fmt.Errorf("unknown identity policy %q", s)
	}
}

// Document is an uploaded PDF with its identifier (immutable value object).
type Document struct {
	id          string
	name        string
	contentType string
	content     []byte
}

// New validates and creates a Document, deriving its id with policy.
func New(name, contentType string, content []byte, policy IdentityPolicy) (Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Document{}, fmt.Errorf("file name is required")
	}
	if contentType != ContentTypePDF {
		return Document{}, fmt.Errorf("invalid file type %q, please upload a PDF", contentType)
	}
	if len(content) == 0 {
		return Document{}, fmt.Errorf("file is empty")
	}

	id := name
	if policy == IdentityContentHash {
		id = ContentHash(content)
	}

	return Document{id: id, name: name, contentType: contentType, content: content}, nil
}

// ContentHash returns the content-derived identifier for raw document bytes.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(h[:])
}

// ID returns the cache identifier.
func (d *Document) ID() string { return d.id }

// Name returns the uploaded file name.
func (d *Document) Name() string { return d.name }

// ContentType returns the declared content type.
func (d *Document) ContentType() string { return d.contentType }

// Content returns the raw PDF bytes.
func (d *Document) Content() []byte { return d.content }
