// Package paths resolves the on-disk bundle and map locations for emitted
// assets. Resolution depends only on the asset's name, its logical path,
// and the run configuration; it never touches the filesystem.
package paths
