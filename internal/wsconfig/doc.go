// Package wsconfig loads and persists a workspace's on-disk layout: the
// salto.config/ directory holding the environment list, the current
// environment, and the shared common/ and per-environment subdirectories
// that hold NaCl files.
package wsconfig
