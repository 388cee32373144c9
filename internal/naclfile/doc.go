// Package naclfile implements the NaCl file source (C6): it owns one
// directory of ".nacl" files as the source of element fragments for one
// environment, keeps three indices over the parsed result (file to
// fragments, element to containing files, element to referencing files),
// and durably caches parsed output in a bbolt-backed store keyed by file
// path and content hash.
package naclfile
