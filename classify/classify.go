// Package classify implements the Source Classifier: mapping a file path
// to a parser identity, or to Skip, before any content is read.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/corelens/tracecore/config"
)

// Skip is returned by Identity when a file should not be parsed at all.
const Skip config.ParserKind = ""

// Classifier maps file paths to parser identities using the ignore sets
// and extension mapping from a Config. It holds no mutable state and is
// safe to share across concurrent file classifications, mirroring how
// the teacher's repository detector treats its marker list as read-only
// configuration.
type Classifier struct {
	cfg *config.Config
}

// New builds a Classifier bound to cfg. cfg is treated as read-only
// afterward, per the process-wide configuration contract.
func New(cfg *config.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Identity returns the parser identity for relPath, or Skip if the file
// is ignored by name, extension, or containing directory.
func (c *Classifier) Identity(relPath string) config.ParserKind {
	if c.inIgnoredDirectory(relPath) {
		return Skip
	}
	base := filepath.Base(relPath)
	for _, ignored := range c.cfg.IgnoredFiles {
		if strings.EqualFold(base, ignored) {
			return Skip
		}
	}
	lowerPath := strings.ToLower(relPath)
	for _, ext := range c.cfg.IgnoredFileExtensions {
		if strings.HasSuffix(lowerPath, strings.ToLower(ext)) {
			return Skip
		}
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	kind, ok := c.cfg.ParserMapping[ext]
	if !ok {
		return Skip
	}
	return kind
}

func (c *Classifier) inIgnoredDirectory(relPath string) bool {
	dir := filepath.ToSlash(filepath.Dir(relPath))
	segments := strings.Split(dir, "/")
	for _, seg := range segments {
		for _, ignored := range c.cfg.IgnoredDirectories {
			if strings.EqualFold(seg, ignored) {
				return true
			}
		}
	}
	return false
}
