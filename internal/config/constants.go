package config

// Version is the current interpreter version, set at build time by a
// release script via -ldflags, or left at this default for local builds.
var Version = "0.1.0"

// SourceFileExtensions are the filename suffixes the CLI driver treats as
// sysmel source when scanning a directory argument.
var SourceFileExtensions = []string{".sysmel", ".som"}

// TrimSourceExt removes any recognized source extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt returns true if path ends with any recognized source
// extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}
