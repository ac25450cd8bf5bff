package model

// AliasKind distinguishes the two things a local import name can resolve
// to: a concrete definition, or a whole module reachable for further
// dotted-member lookups.
type AliasKind string

const (
	AliasDefinition AliasKind = "definition"
	AliasModule     AliasKind = "module"
)

// AliasKey identifies one entry in the alias map: the file doing the
// importing, and the local name it binds.
type AliasKey struct {
	ImporterPath string
	LocalName    string
}

// AliasEntry is the resolution target of an AliasKey: either a reference
// to a concrete Element (AliasDefinition) or a file path to resolve
// further dotted members against (AliasModule).
type AliasEntry struct {
	Kind       AliasKind
	Definition *Element
	ModulePath string
}

// AliasMap is the full `(importer_path, local_name) -> AliasEntry` table
// produced by the Alias Resolver for one Project.
type AliasMap map[AliasKey]AliasEntry
