package resource

import (
	"strings"

	"github.com/opencontainers/go-digest"
)

// IndexDocumentPath is the well-known location of a provider's
// reference index document for one resource kind, such as
// "/AgentPlane.Prompt/_prompt-references.json".
func IndexDocumentPath(provider string, kind string) string {
	return "/" + provider + "/_" + kind + "-references.json"
}

// ObjectPath is the canonical storage location of a named resource's
// payload. Repeated writes of the same name land on the same object.
func ObjectPath(provider string, name string) string {
	return "/" + provider + "/" + name + ".json"
}

// ContentAddressedPath is the canonical storage location of a
// content-addressed artifact. The name is extended with the digest of
// the content so identical content maps to the same object while
// distinct versions never collide.
func ContentAddressedPath(provider string, name string, content []byte) string {
	d := digest.Canonical.FromBytes(content)
	return "/" + provider + "/" + name + "-" + shortEncoded(d) + ".json"
}

func shortEncoded(d digest.Digest) string {
	encoded := d.Encoded()
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return encoded
}

// ValidName rejects names whose characters would let a resource
// escape its provider's storage prefix. The "_" prefix is reserved
// for provider-internal documents such as reference indexes, so a
// resource payload can never land on an index document path.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.HasPrefix(name, "_") {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
