package types

import (
	"regexp"
	"sort"

	"github.com/crytic/solbuild/utils"
)

// libraryPlaceholderExp matches unlinked library references in bytecode. Both forms span 40 hex characters (an
// address): newer compilers emit a 34 character hash of the fully qualified library name between "__$" and "$__",
// older ones pad the library name with underscores to 36 characters between "__" and "__".
var libraryPlaceholderExp = regexp.MustCompile(`__\$[0-9a-fA-F]{34}\$__|__[^$]{36}__`)

// FindLibraryPlaceholders returns the distinct unlinked library placeholders found in hex bytecode, sorted.
func FindLibraryPlaceholders(bytecode string) []string {
	placeholders := utils.SliceDeduplicate(libraryPlaceholderExp.FindAllString(bytecode, -1))
	sort.Strings(placeholders)
	return placeholders
}
