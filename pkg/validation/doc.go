// Package validation checks user-provided names and file paths.
//
// # Path Containment
//
// A Dir confines file names to one directory. Names are rejected when they
// are absolute, climb out with "..", or resolve through a symbolic link to a
// location outside the directory:
//
//	dir, err := validation.NewDir("/home/me/.flowedit/flows")
//	if err != nil {
//	    return err
//	}
//	path, err := dir.Resolve("summarizer.yaml")
//
// # Identifiers
//
// Identifier accepts names made of ASCII letters, digits, hyphens and
// underscores. Credential names use it so that every name is valid as a
// keyring account on each platform.
package validation
