// Package locator resolves the running launcher binary: its absolute path,
// directory, file name, name stem and modification time. The stem names the
// paired runtime directory, so a renamed copy of the launcher gets its own.
package locator
